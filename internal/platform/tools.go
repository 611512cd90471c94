package platform

import (
	"fmt"
	"os/exec"
	"path/filepath"
)

// External tool names
const (
	ToolYtDlp   = "yt-dlp"
	ToolFFmpeg  = "ffmpeg"
	ToolFFprobe = "ffprobe"
)

// ToolNotFoundError is returned when an external executable cannot be located
type ToolNotFoundError struct {
	Name string
	Err  error
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %v", e.Name, e.Err)
}

func (e *ToolNotFoundError) Unwrap() error { return e.Err }

// LookupTool resolves a tool name or explicit path to an executable path.
// An empty configured value falls back to the default name on PATH.
func LookupTool(configured, defaultName string) (string, error) {
	name := configured
	if name == "" {
		name = defaultName
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", &ToolNotFoundError{Name: filepath.Base(name), Err: err}
	}
	return path, nil
}
