package pipeline

import (
	"context"
	"fmt"

	"github.com/fablepress/fable/internal/backend"
	"github.com/fablepress/fable/internal/imaging"
	"github.com/fablepress/fable/internal/story"
)

// PageSpec is one page unit of work handed to the scheduler.
type PageSpec struct {
	Page   story.Page
	Prompt string
}

// PageResult is the outcome of one page task. Image always holds a
// valid page-sized JPEG: failed generations carry the fallback render.
type PageResult struct {
	Page       int
	Image      []byte
	Fallback   bool
	PreviewRef string
}

// composePage normalizes raw backend output into the final page art:
// square-fit to the page edge, re-encoded as JPEG.
func composePage(raw []byte, size int) ([]byte, error) {
	img, err := imaging.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("backend image not decodable: %w", err)
	}
	return imaging.EncodeJPEG(imaging.SquareFit(img, size), imaging.PreviewJPEGQuality)
}

// renderFallback produces the local stand-in page. The fallback
// renderer cannot fail; a render error here means the process is out of
// memory or similar, and an empty result would still be caught by the
// assembly phase.
func renderFallback(fallback backend.Backend, spec PageSpec, reference []byte, size int) []byte {
	res, err := fallback.Generate(context.Background(), &backend.Request{
		Prompt:    spec.Prompt,
		Reference: reference,
		Caption:   spec.Page.Caption,
		Size:      size,
		Page:      spec.Page.Number,
	})
	if err != nil || res == nil {
		return nil
	}
	return res.Image
}
