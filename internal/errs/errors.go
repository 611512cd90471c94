// Package errs defines the failure signals of a download request and maps
// any error into the user-facing taxonomy.
package errs

import (
	"errors"
	"fmt"
)

// ErrNetwork marks a failure of extraction or transfer after retries were exhausted
var ErrNetwork = errors.New("network failure")

// ErrTranscode marks a failure of the external merge/convert tool
var ErrTranscode = errors.New("ffmpeg failure")

// ValidationError reports a request that was rejected before any work started
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// NewValidationError creates a ValidationError
func NewValidationError(field, value, reason string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// Operations reported in FilesystemError.Op
const (
	OpCreateDir       = "mkdir"
	OpReadCredentials = "read credential bundle"
)

// FilesystemError reports a destination that could not be created or written
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

// NewFilesystemError creates a FilesystemError
func NewFilesystemError(op, path string, err error) *FilesystemError {
	return &FilesystemError{Op: op, Path: path, Err: err}
}
