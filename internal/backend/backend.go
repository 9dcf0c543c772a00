// Package backend defines the image generation boundary: one interface,
// a tagged error taxonomy, a retry policy, and the concrete remote and
// local implementations.
package backend

import (
	"context"
)

// Request describes one page image to generate.
type Request struct {
	// Prompt is the fully assembled illustration prompt, caption
	// instruction included.
	Prompt string

	// Reference is the uploaded photo, used by local rendering.
	// Remote backends receive likeness through the prompt instead.
	Reference []byte

	// Caption is the page text, used by local rendering.
	Caption string

	// Size is the square edge in pixels the page will be composed at.
	Size int

	// Page is the 1-indexed page number, for logs.
	Page int
}

// Result is the normalized generation output. Adapters convert whatever
// shape their provider returns into raw image bytes here; response shape
// sniffing never leaks past the adapter.
type Result struct {
	Image []byte
}

// Backend generates one page image per call. Implementations classify
// every failure as a tagged *Error so the retry policy can route it.
type Backend interface {
	// Name returns the backend identifier for logs and status.
	Name() string

	// Generate produces one page image. The returned error, when
	// non-nil, is always a *Error.
	Generate(ctx context.Context, req *Request) (*Result, error)
}
