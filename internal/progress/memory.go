package progress

import (
	"context"
	"sync"
	"time"
)

// MemoryTracker keeps job state in process memory. Suited to the single
// binary deployment; swap in the Redis tracker when jobs are observed
// across processes.
type MemoryTracker struct {
	mu   sync.RWMutex
	jobs map[string]*memoryJob
}

// memoryJob carries its own lock so concurrent page reports for one job
// never contend with other jobs.
type memoryJob struct {
	mu   sync.Mutex
	snap Snapshot
}

// NewMemoryTracker creates an empty tracker.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{jobs: make(map[string]*memoryJob)}
}

// Start registers a job with its page total.
func (t *MemoryTracker) Start(_ context.Context, jobID string, totalPages int) error {
	j := &memoryJob{
		snap: Snapshot{
			JobID:      jobID,
			TotalPages: totalPages,
			Message:    MsgLoadingOutline,
			Previews:   make(map[int]string),
			UpdatedAt:  time.Now().UTC(),
		},
	}

	t.mu.Lock()
	t.jobs[jobID] = j
	t.mu.Unlock()
	return nil
}

// SetMessage updates the status message.
func (t *MemoryTracker) SetMessage(_ context.Context, jobID, message string) error {
	j, ok := t.job(jobID)
	if !ok {
		return ErrNotFound
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.snap.Done {
		return nil
	}
	j.snap.Message = message
	j.snap.UpdatedAt = time.Now().UTC()
	return nil
}

// ReportPageComplete marks one page done, once.
func (t *MemoryTracker) ReportPageComplete(_ context.Context, jobID string, page int, previewRef string) error {
	j, ok := t.job(jobID)
	if !ok {
		return ErrNotFound
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if _, dup := j.snap.Previews[page]; dup {
		return nil
	}
	j.snap.Previews[page] = previewRef
	j.snap.CompletedPages = len(j.snap.Previews)
	if !j.snap.Done {
		j.snap.Message = CreatingPagesMessage(j.snap.CompletedPages, j.snap.TotalPages)
	}
	j.snap.UpdatedAt = time.Now().UTC()
	return nil
}

// SetDone terminates the job record.
func (t *MemoryTracker) SetDone(_ context.Context, jobID string, failure error) error {
	j, ok := t.job(jobID)
	if !ok {
		return ErrNotFound
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.snap.Done = true
	if failure != nil {
		j.snap.Failed = true
		j.snap.Error = failure.Error()
		j.snap.Message = failure.Error()
	} else {
		j.snap.Message = MsgFinished
	}
	j.snap.UpdatedAt = time.Now().UTC()
	return nil
}

// Read returns a copy of the current snapshot.
func (t *MemoryTracker) Read(_ context.Context, jobID string) (*Snapshot, error) {
	j, ok := t.job(jobID)
	if !ok {
		return nil, ErrNotFound
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	snap := j.snap
	snap.Previews = make(map[int]string, len(j.snap.Previews))
	for k, v := range j.snap.Previews {
		snap.Previews[k] = v
	}
	return &snap, nil
}

func (t *MemoryTracker) job(jobID string) (*memoryJob, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	j, ok := t.jobs[jobID]
	return j, ok
}

var _ Tracker = (*MemoryTracker)(nil)
