package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ytget/mediadl/internal/logger"
	"github.com/ytget/mediadl/internal/model"
	"github.com/ytget/mediadl/internal/platform"
)

// EngineKind selects the extraction engine implementation
type EngineKind string

const (
	EngineYtDlp  EngineKind = "ytdlp"
	EngineNative EngineKind = "native"
)

// Environment variables read by ApplyEnv
const (
	EnvDownloadDir     = "MEDIADL_DOWNLOAD_DIR"
	EnvEngine          = "MEDIADL_ENGINE"
	EnvYtDlpPath       = "MEDIADL_YTDLP_PATH"
	EnvFFmpegPath      = "MEDIADL_FFMPEG_PATH"
	EnvRetries         = "MEDIADL_RETRIES"
	EnvFragmentRetries = "MEDIADL_FRAGMENT_RETRIES"
	EnvUserAgent       = "MEDIADL_USER_AGENT"
	EnvReferer         = "MEDIADL_REFERER"
	EnvRateLimit       = "MEDIADL_RATE_LIMIT"
	EnvHistoryPath     = "MEDIADL_HISTORY_PATH"
)

// Default values
const (
	DefaultEngine       = EngineYtDlp
	DefaultProbeTimeout = 60 * time.Second
	DefaultFallbackDir  = "/tmp/mediadl"
	MinRetries          = 0
	MaxRetries          = 50
)

// Settings holds the application configuration
type Settings struct {
	DownloadDir         string         `json:"download_dir"`
	Engine              EngineKind     `json:"engine"`
	YtDlpPath           string         `json:"ytdlp_path"`
	FFmpegPath          string         `json:"ffmpeg_path"`
	Retries             int            `json:"retries"`
	FragmentRetries     int            `json:"fragment_retries"`
	UserAgent           string         `json:"user_agent"`
	Referer             string         `json:"referer"`
	ProbeTimeoutSeconds int            `json:"probe_timeout_seconds"`
	RateLimit           string         `json:"rate_limit"` // e.g. "2 MB", empty disables
	HistoryPath         string         `json:"history_path"`
	RevealOnComplete    bool           `json:"reveal_on_complete"`
	Log                 logger.Options `json:"log"`
}

// DefaultSettings returns settings with every default applied
func DefaultSettings() *Settings {
	dir, err := platform.DefaultDestinationDir()
	if err != nil {
		dir = DefaultFallbackDir
	}
	return &Settings{
		DownloadDir:         dir,
		Engine:              DefaultEngine,
		YtDlpPath:           platform.ToolYtDlp,
		FFmpegPath:          platform.ToolFFmpeg,
		Retries:             model.DefaultRetries,
		FragmentRetries:     model.DefaultFragmentRetries,
		UserAgent:           model.DefaultUserAgent,
		Referer:             model.DefaultReferer,
		ProbeTimeoutSeconds: int(DefaultProbeTimeout / time.Second),
		Log:                 logger.DefaultOptions(),
	}
}

// Load reads settings from a JSON file on top of the defaults.
// A missing file is not an error.
func Load(path string) (*Settings, error) {
	s := DefaultSettings()
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read settings: %w", err)
	}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	s.SetRetries(s.Retries)
	s.SetFragmentRetries(s.FragmentRetries)
	return s, nil
}

// Save writes settings as indented JSON, creating parent directories
func (s *Settings) Save(path string) error {
	if err := platform.CreateDirectoryIfNotExists(filepath.Dir(path)); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// ApplyEnv overrides settings with MEDIADL_* environment variables.
// Malformed numeric values are reported and leave the field unchanged.
func (s *Settings) ApplyEnv() error {
	if v := os.Getenv(EnvDownloadDir); v != "" {
		s.DownloadDir = v
	}
	if v := os.Getenv(EnvEngine); v != "" {
		s.Engine = EngineKind(strings.ToLower(v))
	}
	if v := os.Getenv(EnvYtDlpPath); v != "" {
		s.YtDlpPath = v
	}
	if v := os.Getenv(EnvFFmpegPath); v != "" {
		s.FFmpegPath = v
	}
	if v := os.Getenv(EnvUserAgent); v != "" {
		s.UserAgent = v
	}
	if v := os.Getenv(EnvReferer); v != "" {
		s.Referer = v
	}
	if v := os.Getenv(EnvRateLimit); v != "" {
		s.RateLimit = v
	}
	if v := os.Getenv(EnvHistoryPath); v != "" {
		s.HistoryPath = v
	}
	if v := os.Getenv(EnvRetries); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRetries, err)
		}
		s.SetRetries(n)
	}
	if v := os.Getenv(EnvFragmentRetries); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvFragmentRetries, err)
		}
		s.SetFragmentRetries(n)
	}
	s.Log = s.Log.FromEnv()
	return nil
}

// Validate checks settings that cannot be clamped
func (s *Settings) Validate() error {
	if strings.TrimSpace(s.DownloadDir) == "" {
		return fmt.Errorf("download_dir is empty")
	}
	switch s.Engine {
	case EngineYtDlp, EngineNative:
	default:
		return fmt.Errorf("unknown engine: %q", s.Engine)
	}
	if _, err := s.RateLimitBytes(); err != nil {
		return err
	}
	if s.ProbeTimeoutSeconds < 0 {
		return fmt.Errorf("probe_timeout_seconds must not be negative")
	}
	return s.Log.Validate()
}

// SetRetries sets the item retry count, clamped to [MinRetries, MaxRetries]
func (s *Settings) SetRetries(n int) {
	s.Retries = clamp(n, MinRetries, MaxRetries)
}

// SetFragmentRetries sets the fragment retry count, clamped to [MinRetries, MaxRetries]
func (s *Settings) SetFragmentRetries(n int) {
	s.FragmentRetries = clamp(n, MinRetries, MaxRetries)
}

// ProbeTimeout returns the metadata probe timeout, 0 meaning none
func (s *Settings) ProbeTimeout() time.Duration {
	return time.Duration(s.ProbeTimeoutSeconds) * time.Second
}

// RateLimitBytes parses RateLimit ("500K", "2 MB") into bytes per second
func (s *Settings) RateLimitBytes() (int64, error) {
	if strings.TrimSpace(s.RateLimit) == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s.RateLimit)
	if err != nil {
		return 0, fmt.Errorf("rate_limit: %w", err)
	}
	return int64(n), nil
}

// FetchOptions returns the engine options shared by every request.
// Per-request fields are filled in by the orchestrator.
func (s *Settings) FetchOptions() model.FetchOptions {
	limit, _ := s.RateLimitBytes()
	return model.FetchOptions{
		Retries:                  s.Retries,
		FragmentRetries:          s.FragmentRetries,
		SkipUnavailableFragments: true,
		UserAgent:                s.UserAgent,
		Referer:                  s.Referer,
		NoCheckCertificate:       true,
		GeoBypass:                true,
		Overwrite:                true,
		ContinuePartial:          true,
		RateLimitBps:             limit,
	}
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
