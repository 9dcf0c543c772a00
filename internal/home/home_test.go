package home

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("with explicit path", func(t *testing.T) {
		dir, err := New("/tmp/test-fable")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dir.Path() != "/tmp/test-fable" {
			t.Errorf("expected path /tmp/test-fable, got %s", dir.Path())
		}
	})

	t.Run("with empty path uses default", func(t *testing.T) {
		dir, err := New("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, DefaultDirName)
		if dir.Path() != expected {
			t.Errorf("expected path %s, got %s", expected, dir.Path())
		}
	})
}

func TestDir_Paths(t *testing.T) {
	dir, _ := New("/tmp/test-fable")

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"ConfigPath", dir.ConfigPath(), "/tmp/test-fable/config.yaml"},
		{"UploadsPath", dir.UploadsPath(), "/tmp/test-fable/uploads"},
		{"OutputsPath", dir.OutputsPath(), "/tmp/test-fable/outputs"},
		{"PreviewsPath", dir.PreviewsPath(), "/tmp/test-fable/previews"},
		{"StoriesPath", dir.StoriesPath(), "/tmp/test-fable/stories"},
		{"OutputPath", dir.OutputPath("job1"), "/tmp/test-fable/outputs/job1.pdf"},
		{"StoryPath", dir.StoryPath("lrrh"), "/tmp/test-fable/stories/lrrh.yaml"},
		{"UploadPath", dir.UploadPath("job1", ".png"), "/tmp/test-fable/uploads/job1.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, tt.got)
			}
		})
	}
}

func TestPreviewName(t *testing.T) {
	if got := PreviewName("abc", 3); got != "abc_p03.jpg" {
		t.Errorf("expected abc_p03.jpg, got %s", got)
	}
	if got := PreviewName("abc", 12); got != "abc_p12.jpg" {
		t.Errorf("expected abc_p12.jpg, got %s", got)
	}
}

func TestDir_EnsureExists(t *testing.T) {
	tmpDir := t.TempDir()
	fableDir := filepath.Join(tmpDir, "fable-test")

	dir, err := New(fableDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dir.Exists() {
		t.Error("directory should not exist before EnsureExists")
	}

	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists failed: %v", err)
	}

	if !dir.Exists() {
		t.Error("directory should exist after EnsureExists")
	}

	for _, p := range []string{dir.UploadsPath(), dir.OutputsPath(), dir.PreviewsPath(), dir.StoriesPath()} {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			t.Errorf("%s should exist after EnsureExists", p)
		}
	}
}

func TestDir_ConfigExists(t *testing.T) {
	tmpDir := t.TempDir()
	dir, _ := New(tmpDir)

	if dir.ConfigExists() {
		t.Error("config should not exist initially")
	}

	configPath := dir.ConfigPath()
	if err := os.WriteFile(configPath, []byte("test: true\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if !dir.ConfigExists() {
		t.Error("config should exist after creation")
	}
}
