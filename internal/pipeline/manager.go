package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fablepress/fable/internal/progress"
	"github.com/fablepress/fable/internal/story"
)

// Manager launches jobs fire-and-forget. Job execution is detached from
// the submitting request's context so clients can disconnect; shutdown
// cancels the shared base context and waits for running jobs.
type Manager struct {
	pipeline *Pipeline
	tracker  progress.Tracker
	logger   *slog.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager creates a job manager around the pipeline.
func NewManager(p *Pipeline, tracker progress.Tracker, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		pipeline: p,
		tracker:  tracker,
		logger:   logger,
		baseCtx:  ctx,
		cancel:   cancel,
	}
}

// StartJob registers a job and launches it in the background. The job
// record exists before this returns, so an immediate status poll finds
// it.
func (m *Manager) StartJob(ctx context.Context, childName, gender string, photo []byte) (string, error) {
	jobID := uuid.New().String()

	if err := m.tracker.Start(ctx, jobID, story.TotalPages); err != nil {
		return "", fmt.Errorf("failed to register job: %w", err)
	}

	in := JobInput{
		JobID:     jobID,
		ChildName: childName,
		Gender:    gender,
		Photo:     photo,
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.pipeline.Run(m.baseCtx, in)
	}()

	m.logger.Info("job started", "job_id", jobID, "gender", gender)
	return jobID, nil
}

// Shutdown cancels running jobs and waits for them to settle, bounded
// by the context deadline.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out waiting for jobs: %w", ctx.Err())
	}
}

// Wait blocks until all in-flight jobs finish or the timeout elapses,
// reporting whether the manager went quiet. Used by tests.
func (m *Manager) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
