// Package pdf assembles ordered page images into the print-ready book.
package pdf

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// PagePoints is the square page edge: 8.75in (trim plus bleed) at 72pt/in.
const PagePoints = 630

// importSpec places each image full-bleed on its own square page.
var importSpec = fmt.Sprintf("dim:%d %d, pos:full", PagePoints, PagePoints)

// Assemble writes a PDF with one image per page, in slice order.
func Assemble(w io.Writer, pages [][]byte) error {
	if len(pages) == 0 {
		return fmt.Errorf("no pages to assemble")
	}

	readers := make([]io.Reader, 0, len(pages))
	for i, p := range pages {
		if len(p) == 0 {
			return fmt.Errorf("page %d is empty", i+1)
		}
		readers = append(readers, bytes.NewReader(p))
	}

	imp, err := api.Import(importSpec, types.POINTS)
	if err != nil {
		return fmt.Errorf("failed to build import spec: %w", err)
	}

	if err := api.ImportImages(nil, w, readers, imp, nil); err != nil {
		return fmt.Errorf("failed to import page images: %w", err)
	}
	return nil
}

// AssembleFile assembles the book at path, writing through a temp file
// so observers never see a partial PDF.
func AssembleFile(path string, pages [][]byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".fable-*.pdf")
	if err != nil {
		return fmt.Errorf("failed to create temp output: %w", err)
	}
	tmpName := tmp.Name()

	if err := Assemble(tmp, pages); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to finish output: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}

// PageCount reports the number of pages in an assembled PDF.
func PageCount(r io.ReadSeeker) (int, error) {
	n, err := api.PageCount(r, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	return n, nil
}
