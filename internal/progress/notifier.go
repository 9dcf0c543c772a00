package progress

import (
	"context"
	"sync"
)

// EventType distinguishes push events on the job stream.
type EventType string

const (
	EventProgress EventType = "progress"
	EventDone     EventType = "done"
)

// Event is one push notification to job observers.
type Event struct {
	Type     EventType `json:"type"`
	Snapshot Snapshot  `json:"snapshot"`
}

// Hub fans job events out to SSE subscribers. Slow subscribers drop
// events rather than block the pipeline.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan Event]struct{})}
}

// Subscribe registers an observer for one job. The returned cancel
// function must be called when the observer goes away.
func (h *Hub) Subscribe(jobID string) (<-chan Event, func()) {
	ch := make(chan Event, 32)

	h.mu.Lock()
	if h.subs[jobID] == nil {
		h.subs[jobID] = make(map[chan Event]struct{})
	}
	h.subs[jobID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[jobID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, jobID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber of the job.
func (h *Hub) Publish(jobID string, ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[jobID] {
		select {
		case ch <- ev:
		default:
			// Subscriber is not draining; drop instead of blocking.
		}
	}
}

// NotifyingTracker decorates a Tracker so every state change is pushed
// to hub subscribers as well as persisted.
type NotifyingTracker struct {
	inner Tracker
	hub   *Hub
}

// WithNotifier wraps tracker with push notifications.
func WithNotifier(tracker Tracker, hub *Hub) *NotifyingTracker {
	return &NotifyingTracker{inner: tracker, hub: hub}
}

func (t *NotifyingTracker) Start(ctx context.Context, jobID string, totalPages int) error {
	if err := t.inner.Start(ctx, jobID, totalPages); err != nil {
		return err
	}
	t.publish(ctx, jobID, EventProgress)
	return nil
}

func (t *NotifyingTracker) SetMessage(ctx context.Context, jobID, message string) error {
	if err := t.inner.SetMessage(ctx, jobID, message); err != nil {
		return err
	}
	t.publish(ctx, jobID, EventProgress)
	return nil
}

func (t *NotifyingTracker) ReportPageComplete(ctx context.Context, jobID string, page int, previewRef string) error {
	if err := t.inner.ReportPageComplete(ctx, jobID, page, previewRef); err != nil {
		return err
	}
	t.publish(ctx, jobID, EventProgress)
	return nil
}

func (t *NotifyingTracker) SetDone(ctx context.Context, jobID string, failure error) error {
	if err := t.inner.SetDone(ctx, jobID, failure); err != nil {
		return err
	}
	t.publish(ctx, jobID, EventDone)
	return nil
}

func (t *NotifyingTracker) Read(ctx context.Context, jobID string) (*Snapshot, error) {
	return t.inner.Read(ctx, jobID)
}

func (t *NotifyingTracker) publish(ctx context.Context, jobID string, typ EventType) {
	snap, err := t.inner.Read(ctx, jobID)
	if err != nil {
		return
	}
	t.hub.Publish(jobID, Event{Type: typ, Snapshot: *snap})
}

var _ Tracker = (*NotifyingTracker)(nil)
