package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

func newBufferLogger(level Level, format Format) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := New(&Config{Level: level, Format: format, Output: &buf})
	return l, &buf
}

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		name     string
		level    Level
		write    func(cl *ComponentLogger)
		expected bool
	}{
		{"debug below info", INFO, func(cl *ComponentLogger) { cl.Debug("x") }, false},
		{"info at info", INFO, func(cl *ComponentLogger) { cl.Info("x") }, true},
		{"error above warn", WARN, func(cl *ComponentLogger) { cl.Error("x") }, true},
		{"trace at trace", TRACE, func(cl *ComponentLogger) { cl.Trace("x") }, true},
		{"warn below error", ERROR, func(cl *ComponentLogger) { cl.Warn("x") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, buf := newBufferLogger(tt.level, FormatText)
			tt.write(l.WithComponent(ComponentEngine))
			if got := buf.Len() > 0; got != tt.expected {
				t.Errorf("Expected output=%v, got %q", tt.expected, buf.String())
			}
		})
	}
}

func TestTextFormatSortsFields(t *testing.T) {
	l, buf := newBufferLogger(INFO, FormatText)
	l.WithComponent(ComponentOrchestrator).Info("request done", Fields{"z": 1, "a": "b"})

	line := strings.TrimSpace(buf.String())
	if !strings.HasSuffix(line, "[INFO] [orchestrator] request done a=b z=1") {
		t.Errorf("Unexpected line: %q", line)
	}
}

func TestJSONFormat(t *testing.T) {
	l, buf := newBufferLogger(DEBUG, FormatJSON)
	l.WithComponent(ComponentHistory).Debug("saved", Fields{"id": "abc"})

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Expected valid JSON, got error: %v (%q)", err, buf.String())
	}
	if decoded["level"] != "DEBUG" {
		t.Errorf("Expected level DEBUG, got %v", decoded["level"])
	}
	if decoded["component"] != "history" {
		t.Errorf("Expected component history, got %v", decoded["component"])
	}
	fields, ok := decoded["fields"].(map[string]any)
	if !ok || fields["id"] != "abc" {
		t.Errorf("Expected fields.id=abc, got %v", decoded["fields"])
	}
}

func TestDisableComponent(t *testing.T) {
	l, buf := newBufferLogger(INFO, FormatText)
	l.DisableComponent(ComponentEngine)

	l.WithComponent(ComponentEngine).Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("Expected muted component to write nothing, got %q", buf.String())
	}

	l.WithComponent(ComponentApp).Info("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("Expected other components to still log, got %q", buf.String())
	}

	buf.Reset()
	l.EnableComponent(ComponentEngine)
	l.WithComponent(ComponentEngine).Info("back")
	if !strings.Contains(buf.String(), "back") {
		t.Errorf("Expected re-enabled component to log, got %q", buf.String())
	}
}

func TestWithBindsFields(t *testing.T) {
	l, buf := newBufferLogger(INFO, FormatText)
	child := l.WithComponent(ComponentOrchestrator).With(Fields{"request": "r1"})
	child.Info("start", Fields{"url": "u"})

	line := buf.String()
	if !strings.Contains(line, "request=r1") || !strings.Contains(line, "url=u") {
		t.Errorf("Expected bound and call fields, got %q", line)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"trace", TRACE, false},
		{"DEBUG", DEBUG, false},
		{"", INFO, false},
		{"warning", WARN, false},
		{" error ", ERROR, false},
		{"loud", INFO, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"defaults", DefaultOptions(), false},
		{"json to file", Options{Level: "debug", Format: "json", Output: "file:/tmp/x.log"}, false},
		{"bad level", Options{Level: "nope"}, true},
		{"bad format", Options{Format: "xml"}, true},
		{"bad output", Options{Output: "syslog"}, true},
		{"empty file path", Options{Output: "file:"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.opts.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv(EnvLevel, "debug")
	t.Setenv(EnvFormat, "json")
	t.Setenv(EnvOutput, "null")

	opts := DefaultOptions().FromEnv()
	if opts.Level != "debug" || opts.Format != "json" || opts.Output != "null" {
		t.Errorf("Expected env overrides, got %+v", opts)
	}
}

func TestOptionsBuildFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "mediadl.log")
	cfg, err := Options{Level: "warn", Format: "text", Output: "file:" + path, Muted: []string{"engine"}}.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if cfg.Level != WARN {
		t.Errorf("Expected WARN, got %v", cfg.Level)
	}
	if on, ok := cfg.Components[ComponentEngine]; !ok || on {
		t.Errorf("Expected engine muted, got %v", cfg.Components)
	}
}

func TestDiscard(t *testing.T) {
	// Must not panic and must not write anywhere.
	Discard(ComponentApp).Error("nothing")
}
