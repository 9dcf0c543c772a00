package vision

import (
	"context"
	"sync/atomic"
	"time"
)

// MockDescriber is a Describer for testing.
type MockDescriber struct {
	Description string
	Err         error
	Latency     time.Duration

	requestCount atomic.Int64
}

// NewMockDescriber creates a mock that returns a fixed description.
func NewMockDescriber() *MockDescriber {
	return &MockDescriber{
		Description: "curly brown hair, green eyes, light skin, round glasses",
	}
}

// Describe returns the configured description or error.
func (m *MockDescriber) Describe(ctx context.Context, _ []byte) (string, error) {
	m.requestCount.Add(1)

	if m.Latency > 0 {
		select {
		case <-time.After(m.Latency):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if m.Err != nil {
		return "", m.Err
	}
	return m.Description, nil
}

// RequestCount returns the number of requests made.
func (m *MockDescriber) RequestCount() int64 {
	return m.requestCount.Load()
}

var _ Describer = (*MockDescriber)(nil)
