package pipeline

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/fablepress/fable/internal/backend"
	"github.com/fablepress/fable/internal/imaging"
	"github.com/fablepress/fable/internal/progress"
	"github.com/fablepress/fable/internal/storage"
)

const (
	// DefaultWorkers is the fan-out pool size; MaxWorkers caps it at
	// one worker per page.
	DefaultWorkers = 6
	MaxWorkers     = 12

	// DefaultJobTimeout is the wall-clock budget for the whole fan-out.
	DefaultJobTimeout = 120 * time.Second
)

// FanOutScheduler runs all page tasks of a job on a bounded worker pool
// and guarantees a full set of results: every slot that is unfilled when
// the pool drains, times out, or panics is reconciled with a fallback
// page. Results come back sorted by page number.
type FanOutScheduler struct {
	Backend  backend.Backend
	Fallback backend.Backend
	Policy   *backend.RetryPolicy
	Tracker  progress.Tracker
	Store    storage.Store
	Logger   *slog.Logger

	Workers    int
	JobTimeout time.Duration
	PageSize   int
}

// Run executes every spec and returns exactly len(specs) results sorted
// by page number. The context governs shutdown; the job timeout governs
// how long Run waits before reconciling with fallbacks.
func (s *FanOutScheduler) Run(ctx context.Context, jobID string, reference []byte, specs []PageSpec) []PageResult {
	workers := s.workerCount()
	logger := s.logger().With("job_id", jobID)

	tasks := make(chan PageSpec)
	results := make(chan PageResult, len(specs))

	for i := 0; i < workers; i++ {
		go s.worker(ctx, jobID, reference, tasks, results)
	}

	go func() {
		defer close(tasks)
		for _, spec := range specs {
			select {
			case tasks <- spec:
			case <-ctx.Done():
				return
			}
		}
	}()

	timeout := s.JobTimeout
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	collected := make(map[int]PageResult, len(specs))

collect:
	for len(collected) < len(specs) {
		select {
		case r := <-results:
			collected[r.Page] = r
		case <-timer.C:
			logger.Warn("job timed out waiting for pages",
				"collected", len(collected),
				"total", len(specs),
				"timeout", timeout,
			)
			break collect
		case <-ctx.Done():
			logger.Warn("job interrupted", "collected", len(collected), "total", len(specs))
			break collect
		}
	}

	// Reconciliation: fill every missing slot with a fallback page so
	// the book always has its full page count. Late worker completions
	// are harmless; the tracker ignores duplicate reports.
	for _, spec := range specs {
		if _, ok := collected[spec.Page.Number]; ok {
			continue
		}
		logger.Warn("page unfilled after drain, using fallback", "page", spec.Page.Number)
		collected[spec.Page.Number] = s.fallbackResult(context.Background(), jobID, spec, reference)
	}

	out := make([]PageResult, 0, len(collected))
	for _, r := range collected {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Page < out[j].Page })
	return out
}

// worker drains the task channel. Each task is absorbed fully: panics
// and failures become fallback pages, never lost slots.
func (s *FanOutScheduler) worker(ctx context.Context, jobID string, reference []byte, tasks <-chan PageSpec, results chan<- PageResult) {
	for spec := range tasks {
		results <- s.runPage(ctx, jobID, reference, spec)
	}
}

// runPage executes one page task end to end: generation under the retry
// policy, composition, preview persistence, progress report.
func (s *FanOutScheduler) runPage(ctx context.Context, jobID string, reference []byte, spec PageSpec) (result PageResult) {
	logger := s.logger().With("job_id", jobID, "page", spec.Page.Number)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("page task panicked, using fallback", "panic", r)
			result = s.fallbackResult(context.Background(), jobID, spec, reference)
		}
	}()

	req := &backend.Request{
		Prompt:    spec.Prompt,
		Reference: reference,
		Caption:   spec.Page.Caption,
		Size:      s.pageSize(),
		Page:      spec.Page.Number,
	}

	res, err := s.Policy.Execute(ctx, s.Backend, req)
	if err != nil {
		// Context cancellation; still fill the slot.
		return s.fallbackResult(context.Background(), jobID, spec, reference)
	}
	if res == nil {
		logger.Warn("page generation failed, using fallback")
		return s.fallbackResult(ctx, jobID, spec, reference)
	}

	page, err := composePage(res.Image, s.pageSize())
	if err != nil {
		logger.Warn("backend image unusable, using fallback", "error", err)
		return s.fallbackResult(ctx, jobID, spec, reference)
	}

	return s.finishPage(ctx, jobID, spec.Page.Number, page, false)
}

// fallbackResult renders the local page and records it like any other
// completion. Fallback pages count as completed; the warn logs above
// are the only trace of the failure.
func (s *FanOutScheduler) fallbackResult(ctx context.Context, jobID string, spec PageSpec, reference []byte) PageResult {
	page := renderFallback(s.Fallback, spec, reference, s.pageSize())
	r := s.finishPage(ctx, jobID, spec.Page.Number, page, true)
	return r
}

func (s *FanOutScheduler) finishPage(ctx context.Context, jobID string, page int, image []byte, fellBack bool) PageResult {
	logger := s.logger().With("job_id", jobID, "page", page)

	ref := ""
	if s.Store != nil && len(image) > 0 {
		var err error
		ref, err = s.Store.SavePreview(jobID, page, image)
		if err != nil {
			logger.Warn("failed to save preview", "error", err)
		}
	}

	if s.Tracker != nil {
		if err := s.Tracker.ReportPageComplete(ctx, jobID, page, ref); err != nil {
			logger.Warn("failed to report page completion", "error", err)
		}
	}

	return PageResult{Page: page, Image: image, Fallback: fellBack, PreviewRef: ref}
}

func (s *FanOutScheduler) workerCount() int {
	w := s.Workers
	if w <= 0 {
		w = DefaultWorkers
	}
	if w > MaxWorkers {
		w = MaxWorkers
	}
	return w
}

func (s *FanOutScheduler) pageSize() int {
	if s.PageSize > 0 {
		return s.PageSize
	}
	return imaging.PagePixels
}

func (s *FanOutScheduler) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
