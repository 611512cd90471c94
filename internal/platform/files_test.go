package platform

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCreateDirectoryIfNotExists(t *testing.T) {
	// Create temporary directory for testing
	tempDir := t.TempDir()
	testDir := filepath.Join(tempDir, "nested", "test_dir")

	// Directory should not exist initially
	if _, err := os.Stat(testDir); !os.IsNotExist(err) {
		t.Fatalf("Test directory already exists: %s", testDir)
	}

	if err := CreateDirectoryIfNotExists(testDir); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	if info, err := os.Stat(testDir); err != nil || !info.IsDir() {
		t.Fatalf("Directory was not created: %s", testDir)
	}

	// Second call should not fail
	if err := CreateDirectoryIfNotExists(testDir); err != nil {
		t.Fatalf("Failed to handle existing directory: %v", err)
	}
}

func TestCreateDirectoryIfNotExists_FileInTheWay(t *testing.T) {
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "occupied")
	if err := os.WriteFile(filePath, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	if err := CreateDirectoryIfNotExists(filePath); err == nil {
		t.Error("Expected error when a file occupies the path, got nil")
	}

	if err := CreateDirectoryIfNotExists(filepath.Join(filePath, "child")); err == nil {
		t.Error("Expected error when a parent is a file, got nil")
	}
}

func TestIsWritableDir(t *testing.T) {
	tempDir := t.TempDir()
	if err := IsWritableDir(tempDir); err != nil {
		t.Errorf("Expected temp dir to be writable, got %v", err)
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("Failed to read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected probe file to be removed, found %d entries", len(entries))
	}

	if err := IsWritableDir(filepath.Join(tempDir, "missing")); err == nil {
		t.Error("Expected error for missing directory, got nil")
	}
}

func TestGetHomeDownloadsDir(t *testing.T) {
	t.Setenv("ANDROID_DATA", "")
	t.Setenv("ANDROID_ROOT", "")

	downloadsDir, err := GetHomeDownloadsDir()
	if err != nil {
		t.Fatalf("Failed to get downloads directory: %v", err)
	}

	if downloadsDir == "" {
		t.Fatal("Downloads directory is empty")
	}

	if filepath.Base(downloadsDir) != DownloadsDirName {
		t.Errorf("Expected directory to end with 'Downloads', got: %s", downloadsDir)
	}
}

func TestDefaultDestinationDir(t *testing.T) {
	t.Setenv("ANDROID_DATA", "")
	t.Setenv("ANDROID_ROOT", "")

	dir, err := DefaultDestinationDir()
	if err != nil {
		t.Fatalf("Failed to get destination directory: %v", err)
	}
	if filepath.Base(dir) != AppDirName {
		t.Errorf("Expected directory to end with %q, got: %s", AppDirName, dir)
	}
	if filepath.Base(filepath.Dir(dir)) != DownloadsDirName {
		t.Errorf("Expected parent to be Downloads, got: %s", dir)
	}
}

func TestRevealDirectory_Missing(t *testing.T) {
	err := RevealDirectory(filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Error("Expected error for missing directory, got nil")
	}
}

func TestRevealDirectory_File(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "file.mp4")
	if err := os.WriteFile(filePath, nil, 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	if err := RevealDirectory(filePath); err == nil {
		t.Error("Expected error for a regular file, got nil")
	}
}
