package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/fablepress/fable/internal/backend"
	"github.com/fablepress/fable/internal/home"
	"github.com/fablepress/fable/internal/progress"
	"github.com/fablepress/fable/internal/storage"
	"github.com/fablepress/fable/internal/story"
)

// pageBackend scripts per-page behavior for scheduler tests.
type pageBackend struct {
	latencyFor func(page int) time.Duration
	errFor     func(page int, call int) error
	panicFor   func(page int) bool
	image      []byte

	mu          sync.Mutex
	calls       map[int]int
	inFlight    int
	maxInFlight int
}

func newPageBackend() *pageBackend {
	return &pageBackend{
		image: backend.NewMockBackend().Image,
		calls: make(map[int]int),
	}
}

func (b *pageBackend) Name() string { return "scripted" }

func (b *pageBackend) Generate(ctx context.Context, req *backend.Request) (*backend.Result, error) {
	b.mu.Lock()
	b.calls[req.Page]++
	call := b.calls[req.Page]
	b.inFlight++
	if b.inFlight > b.maxInFlight {
		b.maxInFlight = b.inFlight
	}
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.inFlight--
		b.mu.Unlock()
	}()

	if b.panicFor != nil && b.panicFor(req.Page) {
		panic(fmt.Sprintf("scripted panic on page %d", req.Page))
	}

	if b.latencyFor != nil {
		select {
		case <-time.After(b.latencyFor(req.Page)):
		case <-ctx.Done():
			return nil, backend.Transient("interrupted", ctx.Err())
		}
	}

	if b.errFor != nil {
		if err := b.errFor(req.Page, call); err != nil {
			return nil, err
		}
	}
	return &backend.Result{Image: b.image}, nil
}

func (b *pageBackend) callCount(page int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[page]
}

func (b *pageBackend) peakConcurrency() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxInFlight
}

func testSpecs(n int) []PageSpec {
	specs := make([]PageSpec, 0, n)
	for i := 1; i <= n; i++ {
		specs = append(specs, PageSpec{
			Page: story.Page{
				Number:  i,
				Caption: fmt.Sprintf("Caption for page %d.", i),
			},
			Prompt: fmt.Sprintf("Scene %d", i),
		})
	}
	return specs
}

func testScheduler(t *testing.T, b backend.Backend, tracker progress.Tracker) *FanOutScheduler {
	t.Helper()
	h, err := home.New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create home: %v", err)
	}

	policy := backend.NewRetryPolicy(3, slog.Default())
	policy.Unit = time.Millisecond
	policy.RateLimitCap = 20 * time.Millisecond
	policy.TransientCap = 10 * time.Millisecond

	return &FanOutScheduler{
		Backend:    b,
		Fallback:   backend.NewFallbackRenderer(),
		Policy:     policy,
		Tracker:    tracker,
		Store:      storage.NewFS(h),
		Workers:    4,
		JobTimeout: 10 * time.Second,
		PageSize:   64,
	}
}

func checkComplete(t *testing.T, results []PageResult, total int) {
	t.Helper()
	if len(results) != total {
		t.Fatalf("expected %d results, got %d", total, len(results))
	}
	for i, r := range results {
		if r.Page != i+1 {
			t.Errorf("result %d has page %d, want %d (output must be sorted)", i, r.Page, i+1)
		}
		if len(r.Image) == 0 {
			t.Errorf("page %d has no image", r.Page)
		}
	}
}

func TestFanOutScheduler_AllPagesSucceed(t *testing.T) {
	ctx := context.Background()
	tracker := progress.NewMemoryTracker()
	tracker.Start(ctx, "job1", 12)

	b := newPageBackend()
	s := testScheduler(t, b, tracker)

	results := s.Run(ctx, "job1", nil, testSpecs(12))
	checkComplete(t, results, 12)

	for _, r := range results {
		if r.Fallback {
			t.Errorf("page %d unexpectedly fell back", r.Page)
		}
		if r.PreviewRef == "" {
			t.Errorf("page %d missing preview ref", r.Page)
		}
	}

	snap, _ := tracker.Read(ctx, "job1")
	if snap.CompletedPages != 12 {
		t.Errorf("expected 12 completed, got %d", snap.CompletedPages)
	}
}

func TestFanOutScheduler_OutputSortedUnderReverseCompletion(t *testing.T) {
	ctx := context.Background()
	tracker := progress.NewMemoryTracker()
	tracker.Start(ctx, "job1", 12)

	b := newPageBackend()
	// Later pages finish first.
	b.latencyFor = func(page int) time.Duration {
		return time.Duration(13-page) * 3 * time.Millisecond
	}
	s := testScheduler(t, b, tracker)
	s.Workers = 12

	results := s.Run(ctx, "job1", nil, testSpecs(12))
	checkComplete(t, results, 12)
}

func TestFanOutScheduler_FatalPagesFallBack(t *testing.T) {
	ctx := context.Background()
	tracker := progress.NewMemoryTracker()
	tracker.Start(ctx, "job1", 12)

	b := newPageBackend()
	b.errFor = func(page, call int) error {
		if page >= 11 {
			return backend.Fatal("content policy rejection", nil)
		}
		return nil
	}
	s := testScheduler(t, b, tracker)

	results := s.Run(ctx, "job1", nil, testSpecs(12))
	checkComplete(t, results, 12)

	for _, r := range results {
		wantFallback := r.Page >= 11
		if r.Fallback != wantFallback {
			t.Errorf("page %d fallback = %v, want %v", r.Page, r.Fallback, wantFallback)
		}
	}

	// Fatal means exactly one attempt.
	if got := b.callCount(11); got != 1 {
		t.Errorf("page 11 called %d times, want 1", got)
	}

	snap, _ := tracker.Read(ctx, "job1")
	if snap.CompletedPages != 12 {
		t.Errorf("fallback pages must count as completed, got %d", snap.CompletedPages)
	}
}

func TestFanOutScheduler_TransientRecovery(t *testing.T) {
	ctx := context.Background()
	tracker := progress.NewMemoryTracker()
	tracker.Start(ctx, "job1", 12)

	b := newPageBackend()
	b.errFor = func(page, call int) error {
		if page == 4 && call < 3 {
			return backend.Transient("flaky", nil)
		}
		return nil
	}
	s := testScheduler(t, b, tracker)

	results := s.Run(ctx, "job1", nil, testSpecs(12))
	checkComplete(t, results, 12)

	for _, r := range results {
		if r.Fallback {
			t.Errorf("page %d should have recovered, not fallen back", r.Page)
		}
	}
	if got := b.callCount(4); got != 3 {
		t.Errorf("page 4 called %d times, want 3", got)
	}
}

func TestFanOutScheduler_TimeoutReconciliation(t *testing.T) {
	ctx := context.Background()
	tracker := progress.NewMemoryTracker()
	tracker.Start(ctx, "job1", 12)

	b := newPageBackend()
	b.latencyFor = func(page int) time.Duration { return 5 * time.Second }
	s := testScheduler(t, b, tracker)
	s.JobTimeout = 50 * time.Millisecond

	start := time.Now()
	results := s.Run(ctx, "job1", nil, testSpecs(12))
	elapsed := time.Since(start)

	checkComplete(t, results, 12)
	for _, r := range results {
		if !r.Fallback {
			t.Errorf("page %d should be a fallback after timeout", r.Page)
		}
	}
	if elapsed > 3*time.Second {
		t.Errorf("timed-out run took too long: %v", elapsed)
	}

	snap, _ := tracker.Read(ctx, "job1")
	if snap.CompletedPages != 12 {
		t.Errorf("expected full completion after reconciliation, got %d", snap.CompletedPages)
	}
}

func TestFanOutScheduler_PanicAbsorbed(t *testing.T) {
	ctx := context.Background()
	tracker := progress.NewMemoryTracker()
	tracker.Start(ctx, "job1", 12)

	b := newPageBackend()
	b.panicFor = func(page int) bool { return page == 5 }
	s := testScheduler(t, b, tracker)

	results := s.Run(ctx, "job1", nil, testSpecs(12))
	checkComplete(t, results, 12)

	for _, r := range results {
		if r.Page == 5 && !r.Fallback {
			t.Error("panicking page should have fallen back")
		}
		if r.Page != 5 && r.Fallback {
			t.Errorf("page %d should not have fallen back", r.Page)
		}
	}
}

func TestFanOutScheduler_SingleWorkerSerializes(t *testing.T) {
	ctx := context.Background()
	tracker := progress.NewMemoryTracker()
	tracker.Start(ctx, "job1", 12)

	b := newPageBackend()
	b.latencyFor = func(page int) time.Duration { return 2 * time.Millisecond }
	s := testScheduler(t, b, tracker)
	s.Workers = 1

	results := s.Run(ctx, "job1", nil, testSpecs(12))
	checkComplete(t, results, 12)

	if peak := b.peakConcurrency(); peak != 1 {
		t.Errorf("expected serialized execution, peak concurrency %d", peak)
	}
}

func TestFanOutScheduler_WorkerCountBounds(t *testing.T) {
	tests := []struct {
		configured int
		want       int
	}{
		{0, DefaultWorkers},
		{-3, DefaultWorkers},
		{6, 6},
		{12, 12},
		{40, MaxWorkers},
	}
	for _, tt := range tests {
		s := &FanOutScheduler{Workers: tt.configured}
		if got := s.workerCount(); got != tt.want {
			t.Errorf("workerCount(%d) = %d, want %d", tt.configured, got, tt.want)
		}
	}
}
