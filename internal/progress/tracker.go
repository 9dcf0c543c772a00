// Package progress tracks per-job page completion. One writer per page,
// many readers polling or subscribed; implementations serialize updates
// per job, never globally.
package progress

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when reading a job the tracker has never seen.
var ErrNotFound = errors.New("job not found")

// Status messages shown to observers, in pipeline order.
const (
	MsgLoadingOutline = "Loading story outline…"
	MsgAnalyzing      = "Analyzing child's appearance…"
	MsgCreatingAll    = "Creating all pages in parallel…"
	MsgCompiling      = "Compiling PDF…"
	MsgFinished       = "Finished"
)

// CreatingPagesMessage reports fan-out progress.
func CreatingPagesMessage(completed, total int) string {
	return fmt.Sprintf("Creating pages… %d/%d complete", completed, total)
}

// Snapshot is a point-in-time view of one job.
type Snapshot struct {
	JobID          string         `json:"job_id"`
	TotalPages     int            `json:"total_pages"`
	CompletedPages int            `json:"completed_pages"`
	Message        string         `json:"message"`
	Done           bool           `json:"done"`
	Failed         bool           `json:"failed"`
	Error          string         `json:"error,omitempty"`
	Previews       map[int]string `json:"previews,omitempty"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// PreviewList returns preview refs ordered by page number, completed
// pages only.
func (s *Snapshot) PreviewList() []string {
	out := make([]string, 0, len(s.Previews))
	for page := 1; page <= s.TotalPages; page++ {
		if ref, ok := s.Previews[page]; ok {
			out = append(out, ref)
		}
	}
	return out
}

// Tracker is the progress contract shared by the in-memory and Redis
// implementations.
type Tracker interface {
	// Start registers a job with its page total.
	Start(ctx context.Context, jobID string, totalPages int) error

	// SetMessage updates the status message.
	SetMessage(ctx context.Context, jobID, message string) error

	// ReportPageComplete marks one page done and records its preview
	// ref. Idempotent: repeated reports for the same page are no-ops
	// and the first preview ref wins.
	ReportPageComplete(ctx context.Context, jobID string, page int, previewRef string) error

	// SetDone terminates the job record. A non-nil failure marks the
	// job failed with the error message; nil means success.
	SetDone(ctx context.Context, jobID string, failure error) error

	// Read returns the current snapshot, or ErrNotFound.
	Read(ctx context.Context, jobID string) (*Snapshot, error)
}
