package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the fable home directory.
	DefaultDirName = ".fable"

	// UploadsDirName holds reference photos received from clients.
	UploadsDirName = "uploads"

	// OutputsDirName holds assembled book PDFs.
	OutputsDirName = "outputs"

	// PreviewsDirName holds per-page preview JPEGs.
	PreviewsDirName = "previews"

	// StoriesDirName holds story template YAML files.
	StoriesDirName = "stories"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
)

// Dir represents the fable home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.fable).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// UploadsPath returns the directory for uploaded reference photos.
func (d *Dir) UploadsPath() string {
	return filepath.Join(d.path, UploadsDirName)
}

// OutputsPath returns the directory for finished PDFs.
func (d *Dir) OutputsPath() string {
	return filepath.Join(d.path, OutputsDirName)
}

// PreviewsPath returns the directory for page preview images.
func (d *Dir) PreviewsPath() string {
	return filepath.Join(d.path, PreviewsDirName)
}

// StoriesPath returns the directory for story template files.
func (d *Dir) StoriesPath() string {
	return filepath.Join(d.path, StoriesDirName)
}

// UploadPath returns the path for a job's uploaded reference photo.
// The extension comes from the original filename.
func (d *Dir) UploadPath(jobID, ext string) string {
	return filepath.Join(d.UploadsPath(), jobID+ext)
}

// OutputPath returns the path for a job's assembled PDF.
func (d *Dir) OutputPath(jobID string) string {
	return filepath.Join(d.OutputsPath(), jobID+".pdf")
}

// PreviewPath returns the path for a single page preview.
// Page numbers are 1-indexed.
func (d *Dir) PreviewPath(jobID string, page int) string {
	return filepath.Join(d.PreviewsPath(), PreviewName(jobID, page))
}

// PreviewName returns the canonical preview filename for a page.
func PreviewName(jobID string, page int) string {
	return fmt.Sprintf("%s_p%02d.jpg", jobID, page)
}

// StoryPath returns the path to a story template file.
func (d *Dir) StoryPath(storyID string) string {
	return filepath.Join(d.StoriesPath(), storyID+".yaml")
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	for _, p := range []string{d.UploadsPath(), d.OutputsPath(), d.PreviewsPath(), d.StoriesPath()} {
		if err := os.MkdirAll(p, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", p, err)
		}
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}
