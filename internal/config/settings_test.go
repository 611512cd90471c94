package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ytget/mediadl/internal/model"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	if s.DownloadDir == "" {
		t.Error("Download directory should not be empty")
	}
	if s.Engine != EngineYtDlp {
		t.Errorf("Expected default engine %s, got %s", EngineYtDlp, s.Engine)
	}
	if s.Retries != model.DefaultRetries {
		t.Errorf("Expected default retries %d, got %d", model.DefaultRetries, s.Retries)
	}
	if s.FragmentRetries != model.DefaultFragmentRetries {
		t.Errorf("Expected default fragment retries %d, got %d", model.DefaultFragmentRetries, s.FragmentRetries)
	}
	if s.ProbeTimeout() != DefaultProbeTimeout {
		t.Errorf("Expected probe timeout %v, got %v", DefaultProbeTimeout, s.ProbeTimeout())
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Default settings should validate, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Missing file should not be an error, got %v", err)
	}
	if s.Retries != model.DefaultRetries {
		t.Errorf("Expected defaults, got retries %d", s.Retries)
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	s, err := Load("")
	if err != nil {
		t.Fatalf("Empty path should not be an error, got %v", err)
	}
	if s.Engine != DefaultEngine {
		t.Errorf("Expected default engine, got %s", s.Engine)
	}
}

func TestLoad_FileOverridesAndClamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	content := `{"download_dir": "/data/media", "engine": "native", "retries": 500, "fragment_retries": -3, "rate_limit": "2 MB"}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write settings: %v", err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.DownloadDir != "/data/media" {
		t.Errorf("Expected download dir /data/media, got %s", s.DownloadDir)
	}
	if s.Engine != EngineNative {
		t.Errorf("Expected engine native, got %s", s.Engine)
	}
	if s.Retries != MaxRetries {
		t.Errorf("Expected retries clamped to %d, got %d", MaxRetries, s.Retries)
	}
	if s.FragmentRetries != MinRetries {
		t.Errorf("Expected fragment retries clamped to %d, got %d", MinRetries, s.FragmentRetries)
	}
	// Untouched fields keep defaults
	if s.UserAgent != model.DefaultUserAgent {
		t.Errorf("Expected default user agent, got %s", s.UserAgent)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write settings: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected error for invalid JSON, got nil")
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	s := DefaultSettings()
	s.DownloadDir = "/srv/media"
	s.RevealOnComplete = true

	if err := s.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DownloadDir != "/srv/media" || !loaded.RevealOnComplete {
		t.Errorf("Round trip lost values: %+v", loaded)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvDownloadDir, "/env/dir")
	t.Setenv(EnvEngine, "NATIVE")
	t.Setenv(EnvRetries, "99")
	t.Setenv(EnvFragmentRetries, "4")
	t.Setenv(EnvRateLimit, "500K")

	s := DefaultSettings()
	if err := s.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	if s.DownloadDir != "/env/dir" {
		t.Errorf("Expected /env/dir, got %s", s.DownloadDir)
	}
	if s.Engine != EngineNative {
		t.Errorf("Expected native engine, got %s", s.Engine)
	}
	if s.Retries != MaxRetries {
		t.Errorf("Expected retries clamped to %d, got %d", MaxRetries, s.Retries)
	}
	if s.FragmentRetries != 4 {
		t.Errorf("Expected fragment retries 4, got %d", s.FragmentRetries)
	}
	if n, err := s.RateLimitBytes(); err != nil || n != 500000 {
		t.Errorf("Expected rate limit 500000, got %d (%v)", n, err)
	}
}

func TestApplyEnv_BadNumber(t *testing.T) {
	t.Setenv(EnvRetries, "many")

	s := DefaultSettings()
	if err := s.ApplyEnv(); err == nil {
		t.Error("Expected error for non-numeric retries, got nil")
	}
	if s.Retries != model.DefaultRetries {
		t.Errorf("Retries should be unchanged, got %d", s.Retries)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr bool
	}{
		{"defaults", func(s *Settings) {}, false},
		{"empty dir", func(s *Settings) { s.DownloadDir = " " }, true},
		{"unknown engine", func(s *Settings) { s.Engine = "curl" }, true},
		{"bad rate limit", func(s *Settings) { s.RateLimit = "fast" }, true},
		{"negative timeout", func(s *Settings) { s.ProbeTimeoutSeconds = -1 }, true},
		{"bad log level", func(s *Settings) { s.Log.Level = "chatty" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(s)
			if err := s.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFetchOptions(t *testing.T) {
	s := DefaultSettings()
	s.RateLimit = "1 MiB"
	opts := s.FetchOptions()

	if opts.Retries != 10 || opts.FragmentRetries != 10 {
		t.Errorf("Expected 10/10 retries, got %d/%d", opts.Retries, opts.FragmentRetries)
	}
	if !opts.SkipUnavailableFragments || !opts.NoCheckCertificate || !opts.GeoBypass || !opts.Overwrite || !opts.ContinuePartial {
		t.Errorf("Expected resilience flags enabled, got %+v", opts)
	}
	if opts.RateLimitBps != 1<<20 {
		t.Errorf("Expected rate limit %d, got %d", 1<<20, opts.RateLimitBps)
	}
	if opts.Playlist || opts.WantsSubtitles() {
		t.Error("Per-request fields should be unset")
	}
}

func TestProbeTimeout(t *testing.T) {
	s := DefaultSettings()
	s.ProbeTimeoutSeconds = 0
	if s.ProbeTimeout() != 0 {
		t.Errorf("Expected zero timeout, got %v", s.ProbeTimeout())
	}
	s.ProbeTimeoutSeconds = 5
	if s.ProbeTimeout() != 5*time.Second {
		t.Errorf("Expected 5s, got %v", s.ProbeTimeout())
	}
}
