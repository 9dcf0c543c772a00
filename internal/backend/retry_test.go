package backend

import (
	"context"
	"testing"
	"time"
)

func testPolicy(attempts int) *RetryPolicy {
	p := NewRetryPolicy(attempts, nil)
	p.Unit = 5 * time.Millisecond
	p.RateLimitCap = 100 * time.Millisecond
	p.TransientCap = 50 * time.Millisecond
	return p
}

func TestRetryPolicy_SucceedsFirstTry(t *testing.T) {
	m := NewMockBackend()
	res, err := testPolicy(3).Execute(context.Background(), m, &Request{Prompt: "p", Page: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res == nil || len(res.Image) == 0 {
		t.Fatal("expected image result")
	}
	if m.RequestCount() != 1 {
		t.Errorf("expected 1 request, got %d", m.RequestCount())
	}
}

func TestRetryPolicy_RecoversAfterTransient(t *testing.T) {
	m := NewMockBackend()
	m.Script = []error{
		Transient("blip", nil),
		nil,
	}

	res, err := testPolicy(3).Execute(context.Background(), m, &Request{Prompt: "p", Page: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res == nil {
		t.Fatal("expected result after recovery")
	}
	if m.RequestCount() != 2 {
		t.Errorf("expected 2 requests, got %d", m.RequestCount())
	}
}

func TestRetryPolicy_ExhaustionReturnsNilNil(t *testing.T) {
	m := NewMockBackend()
	m.ShouldFail = true
	m.FailKind = KindTransient

	res, err := testPolicy(3).Execute(context.Background(), m, &Request{Prompt: "p", Page: 3})
	if err != nil {
		t.Fatalf("exhaustion must not surface an error, got %v", err)
	}
	if res != nil {
		t.Fatal("exhaustion must not produce a result")
	}
	if m.RequestCount() != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", m.RequestCount())
	}
}

func TestRetryPolicy_FatalAbortsImmediately(t *testing.T) {
	m := NewMockBackend()
	m.ShouldFail = true
	m.FailKind = KindFatal

	res, err := testPolicy(3).Execute(context.Background(), m, &Request{Prompt: "p", Page: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != nil {
		t.Fatal("fatal failure must not produce a result")
	}
	if m.RequestCount() != 1 {
		t.Errorf("fatal errors must not be retried, got %d attempts", m.RequestCount())
	}
}

func TestRetryPolicy_EmptyImageIsFatal(t *testing.T) {
	m := NewMockBackend()
	m.Image = nil

	res, err := testPolicy(3).Execute(context.Background(), m, &Request{Prompt: "p", Page: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != nil {
		t.Fatal("empty image must not produce a result")
	}
	if m.RequestCount() != 1 {
		t.Errorf("empty image is fatal and must not be retried, got %d attempts", m.RequestCount())
	}
}

func TestRetryPolicy_ContextCancellation(t *testing.T) {
	m := NewMockBackend()
	m.ShouldFail = true
	m.FailKind = KindRateLimited

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testPolicy(3).Execute(ctx, m, &Request{Prompt: "p", Page: 6})
	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestRetryPolicy_BackoffDelays(t *testing.T) {
	p := testPolicy(3)

	tests := []struct {
		name string
		n    uint
		err  error
		want time.Duration
	}{
		{"rate limited first retry", 0, RateLimited("429", 0), 5 * time.Millisecond},
		{"rate limited second retry", 1, RateLimited("429", 0), 10 * time.Millisecond},
		{"rate limited third retry", 2, RateLimited("429", 0), 20 * time.Millisecond},
		{"rate limited capped", 6, RateLimited("429", 0), 100 * time.Millisecond},
		{"rate limited honors retry-after", 0, RateLimited("429", 40 * time.Millisecond), 40 * time.Millisecond},
		{"transient first retry", 0, Transient("boom", nil), 5 * time.Millisecond},
		{"transient second retry", 1, Transient("boom", nil), 10 * time.Millisecond},
		{"transient capped", 30, Transient("boom", nil), 50 * time.Millisecond},
		{"untagged treated as transient", 0, context.DeadlineExceeded, 5 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.delay(tt.n, tt.err, nil); got != tt.want {
				t.Errorf("delay(%d) = %v, want %v", tt.n, got, tt.want)
			}
		})
	}
}

func TestRetryPolicy_ObservedBackoffPattern(t *testing.T) {
	m := NewMockBackend()
	m.ShouldFail = true
	m.FailKind = KindRateLimited

	p := testPolicy(3)
	start := time.Now()
	res, err := p.Execute(context.Background(), m, &Request{Prompt: "p", Page: 7})
	elapsed := time.Since(start)

	if err != nil || res != nil {
		t.Fatalf("expected nil, nil after exhaustion, got %v, %v", res, err)
	}
	// Two backoffs: 1 unit + 2 units = 15ms at a 5ms unit.
	if elapsed < 15*time.Millisecond {
		t.Errorf("backoff too short: %v", elapsed)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("backoff too long: %v", elapsed)
	}
}
