package backend

import (
	"context"
	"image"
	"image/color"

	"github.com/fablepress/fable/internal/imaging"
)

const FallbackName = "fallback"

// washAlpha keeps the reference photo visible under the tint.
const washAlpha = 60

// FallbackRenderer is the local Backend: it composes a page from the
// reference photo alone, with no network calls. It never fails, which
// makes it both the stand-in for exhausted pages and a usable primary
// backend for development.
type FallbackRenderer struct{}

// NewFallbackRenderer creates the local renderer.
func NewFallbackRenderer() *FallbackRenderer {
	return &FallbackRenderer{}
}

// Name returns the backend identifier.
func (r *FallbackRenderer) Name() string {
	return FallbackName
}

// Generate renders the page: reference photo square-fit to the page,
// softened with a wash in its own dominant color, caption band on top.
// An unusable reference degrades to a plain tinted page.
func (r *FallbackRenderer) Generate(_ context.Context, req *Request) (*Result, error) {
	size := req.Size
	if size <= 0 {
		size = imaging.PagePixels
	}

	var page *image.RGBA
	if ref, err := imaging.Decode(req.Reference); err == nil {
		page = imaging.SquareFit(ref, size)
		imaging.Wash(page, imaging.DominantColor(ref), washAlpha)
	} else {
		page = blankPage(size)
	}

	imaging.DrawCaptionBand(page, req.Caption)

	data, err := imaging.EncodeJPEG(page, imaging.PreviewJPEGQuality)
	if err != nil {
		// jpeg.Encode on an in-memory RGBA does not fail in practice.
		return nil, Fatal("failed to encode fallback page", err)
	}
	return &Result{Image: data}, nil
}

func blankPage(size int) *image.RGBA {
	page := image.NewRGBA(image.Rect(0, 0, size, size))
	cream := color.RGBA{R: 245, G: 240, B: 228, A: 255}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			page.SetRGBA(x, y, cream)
		}
	}
	return page
}

var _ Backend = (*FallbackRenderer)(nil)
