// Package storage persists job artifacts: uploads, page previews, and
// assembled PDFs. The interface mirrors an object-store boundary so a
// cloud implementation can replace the filesystem one without touching
// the pipeline.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fablepress/fable/internal/home"
)

// Store is the artifact persistence boundary.
type Store interface {
	// SaveUpload persists a reference photo and returns its path.
	SaveUpload(jobID, ext string, data []byte) (string, error)

	// ReadUpload returns the stored reference photo.
	ReadUpload(jobID, ext string) ([]byte, error)

	// SavePreview persists one page preview and returns its ref, the
	// name clients use against /previews/{name}.
	SavePreview(jobID string, page int, data []byte) (string, error)

	// OpenPreview opens a preview by ref.
	OpenPreview(name string) (io.ReadCloser, error)

	// SavePDF persists the assembled book and returns its path.
	SavePDF(jobID string, data []byte) (string, error)

	// OpenPDF opens the assembled book.
	OpenPDF(jobID string) (io.ReadCloser, error)

	// PDFExists reports whether the book has been assembled.
	PDFExists(jobID string) bool
}

// FS implements Store on the fable home directory.
type FS struct {
	home *home.Dir
}

// NewFS creates a filesystem store rooted at the home directory.
func NewFS(h *home.Dir) *FS {
	return &FS{home: h}
}

// SaveUpload persists a reference photo.
func (s *FS) SaveUpload(jobID, ext string, data []byte) (string, error) {
	path := s.home.UploadPath(jobID, ext)
	if err := writeFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	return path, nil
}

// ReadUpload returns the stored reference photo.
func (s *FS) ReadUpload(jobID, ext string) ([]byte, error) {
	data, err := os.ReadFile(s.home.UploadPath(jobID, ext))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return data, nil
}

// SavePreview persists one page preview.
func (s *FS) SavePreview(jobID string, page int, data []byte) (string, error) {
	name := home.PreviewName(jobID, page)
	if err := writeFileAtomic(filepath.Join(s.home.PreviewsPath(), name), data); err != nil {
		return "", fmt.Errorf("failed to save preview: %w", err)
	}
	return name, nil
}

// OpenPreview opens a preview by ref. Refs are bare filenames; anything
// resembling a path is rejected.
func (s *FS) OpenPreview(name string) (io.ReadCloser, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return nil, fmt.Errorf("invalid preview name %q", name)
	}
	f, err := os.Open(filepath.Join(s.home.PreviewsPath(), name))
	if err != nil {
		return nil, fmt.Errorf("preview not found: %w", err)
	}
	return f, nil
}

// SavePDF persists the assembled book.
func (s *FS) SavePDF(jobID string, data []byte) (string, error) {
	path := s.home.OutputPath(jobID)
	if err := writeFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("failed to save pdf: %w", err)
	}
	return path, nil
}

// OpenPDF opens the assembled book.
func (s *FS) OpenPDF(jobID string) (io.ReadCloser, error) {
	f, err := os.Open(s.home.OutputPath(jobID))
	if err != nil {
		return nil, fmt.Errorf("pdf not found: %w", err)
	}
	return f, nil
}

// PDFExists reports whether the book has been assembled.
func (s *FS) PDFExists(jobID string) bool {
	_, err := os.Stat(s.home.OutputPath(jobID))
	return err == nil
}

// writeFileAtomic writes through a temp file and renames so readers
// never see partial artifacts.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".fable-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

var _ Store = (*FS)(nil)
