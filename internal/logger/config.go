package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Environment variables read by FromEnv
const (
	EnvLevel  = "MEDIADL_LOG_LEVEL"
	EnvFormat = "MEDIADL_LOG_FORMAT"
	EnvOutput = "MEDIADL_LOG_OUTPUT"
)

// Options is the serializable form of Config, embedded in the app settings
type Options struct {
	Level     string   `json:"level"`
	Format    string   `json:"format"`
	Output    string   `json:"output"`
	Muted     []string `json:"muted,omitempty"`
	Timestamp bool     `json:"timestamp"`
}

// DefaultOptions returns default logging options
func DefaultOptions() Options {
	return Options{
		Level:     "INFO",
		Format:    "text",
		Output:    "stderr",
		Timestamp: true,
	}
}

// FromEnv overrides options with MEDIADL_LOG_* variables
func (o Options) FromEnv() Options {
	if v := os.Getenv(EnvLevel); v != "" {
		o.Level = v
	}
	if v := os.Getenv(EnvFormat); v != "" {
		o.Format = v
	}
	if v := os.Getenv(EnvOutput); v != "" {
		o.Output = v
	}
	return o
}

// Validate checks every option without opening any file
func (o Options) Validate() error {
	if _, err := ParseLevel(o.Level); err != nil {
		return err
	}
	if _, err := ParseFormat(o.Format); err != nil {
		return err
	}
	out := strings.ToLower(strings.TrimSpace(o.Output))
	switch {
	case out == "", out == "stdout", out == "stderr", out == "null", out == "none":
	case strings.HasPrefix(out, "file:") && len(out) > len("file:"):
	default:
		return fmt.Errorf("unknown output: %s", o.Output)
	}
	return nil
}

// Build converts options into a Config, opening the output file if needed
func (o Options) Build() (*Config, error) {
	level, err := ParseLevel(o.Level)
	if err != nil {
		return nil, err
	}
	format, err := ParseFormat(o.Format)
	if err != nil {
		return nil, err
	}
	output, err := parseOutput(o.Output)
	if err != nil {
		return nil, err
	}

	components := make(map[Component]bool, len(o.Muted))
	for _, name := range o.Muted {
		if name = strings.TrimSpace(name); name != "" {
			components[Component(name)] = false
		}
	}

	return &Config{
		Level:      level,
		Format:     format,
		Output:     output,
		Components: components,
		Timestamp:  o.Timestamp,
	}, nil
}

// ParseLevel parses a level name
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return TRACE, nil
	case "DEBUG":
		return DEBUG, nil
	case "", "INFO":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown level: %s", s)
	}
}

// ParseFormat parses a format name
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatText, fmt.Errorf("unknown format: %s", s)
	}
}

func parseOutput(s string) (io.Writer, error) {
	out := strings.TrimSpace(s)
	switch strings.ToLower(out) {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	case "null", "none":
		return io.Discard, nil
	}
	if strings.HasPrefix(strings.ToLower(out), "file:") {
		path := out[len("file:"):]
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		return f, nil
	}
	return nil, fmt.Errorf("unknown output: %s", s)
}
