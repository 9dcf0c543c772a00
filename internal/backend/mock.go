package backend

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync/atomic"
	"time"

	"github.com/fablepress/fable/internal/imaging"
)

const MockName = "mock"

// MockBackend is a Backend for testing.
type MockBackend struct {
	// Configurable behavior
	Latency    time.Duration
	ShouldFail bool
	FailAfter  int       // Fail every request after the Nth (0 = never)
	FailKind   ErrorKind // Kind used for configured failures
	Script     []error   // Per-call outcomes; nil entry = success

	// Image returned on success. Defaults to a small valid JPEG.
	Image []byte

	// State
	requestCount atomic.Int64
}

// NewMockBackend creates a mock backend that always succeeds.
func NewMockBackend() *MockBackend {
	tile := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			tile.SetRGBA(x, y, color.RGBA{R: 90, G: 120, B: 180, A: 255})
		}
	}
	data, _ := imaging.EncodeJPEG(tile, imaging.PreviewJPEGQuality)

	return &MockBackend{
		FailKind: KindTransient,
		Image:    data,
	}
}

// Name returns the backend identifier.
func (m *MockBackend) Name() string {
	return MockName
}

// Generate returns the configured image or failure.
func (m *MockBackend) Generate(ctx context.Context, req *Request) (*Result, error) {
	count := m.requestCount.Add(1)

	if m.Latency > 0 {
		select {
		case <-time.After(m.Latency):
		case <-ctx.Done():
			return nil, Transient("mock interrupted", ctx.Err())
		}
	}

	if len(m.Script) > 0 {
		idx := int(count) - 1
		if idx < len(m.Script) {
			if err := m.Script[idx]; err != nil {
				return nil, asBackendError(err)
			}
			return &Result{Image: m.Image}, nil
		}
		// Past the script: succeed.
		return &Result{Image: m.Image}, nil
	}

	if m.ShouldFail {
		return nil, m.configuredFailure("mock backend configured to fail")
	}
	if m.FailAfter > 0 && int(count) > m.FailAfter {
		return nil, m.configuredFailure(fmt.Sprintf("mock backend failed after %d requests", m.FailAfter))
	}

	return &Result{Image: m.Image}, nil
}

// RequestCount returns the number of requests made.
func (m *MockBackend) RequestCount() int64 {
	return m.requestCount.Load()
}

// Reset resets the request counter.
func (m *MockBackend) Reset() {
	m.requestCount.Store(0)
}

func (m *MockBackend) configuredFailure(msg string) *Error {
	return &Error{Kind: m.FailKind, Message: msg}
}

func asBackendError(err error) error {
	if _, ok := err.(*Error); ok {
		return err
	}
	return Transient("mock failure", err)
}

// Verify interface
var _ Backend = (*MockBackend)(nil)
