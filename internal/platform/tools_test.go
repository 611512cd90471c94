package platform

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestLookupTool_Missing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "definitely-not-a-tool")

	_, err := LookupTool(missing, ToolFFmpeg)
	if err == nil {
		t.Fatal("Expected error for missing tool, got nil")
	}

	var notFound *ToolNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected *ToolNotFoundError, got %T", err)
	}
	if notFound.Name != "definitely-not-a-tool" {
		t.Errorf("Expected name 'definitely-not-a-tool', got %q", notFound.Name)
	}
}

func TestLookupTool_DefaultName(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	_, err := LookupTool("", ToolYtDlp)
	var notFound *ToolNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected *ToolNotFoundError, got %v", err)
	}
	if notFound.Name != ToolYtDlp {
		t.Errorf("Expected default name %q, got %q", ToolYtDlp, notFound.Name)
	}
}
