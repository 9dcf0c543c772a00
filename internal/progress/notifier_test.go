package progress

import (
	"context"
	"testing"
	"time"
)

func drainOne(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestNotifyingTracker_PublishesProgress(t *testing.T) {
	ctx := context.Background()
	hub := NewHub()
	tr := WithNotifier(NewMemoryTracker(), hub)

	tr.Start(ctx, "job1", 12)

	ch, cancel := hub.Subscribe("job1")
	defer cancel()

	tr.ReportPageComplete(ctx, "job1", 1, "p01.jpg")
	ev := drainOne(t, ch)
	if ev.Type != EventProgress {
		t.Errorf("expected progress event, got %s", ev.Type)
	}
	if ev.Snapshot.CompletedPages != 1 {
		t.Errorf("expected 1 completed in event, got %d", ev.Snapshot.CompletedPages)
	}

	tr.SetDone(ctx, "job1", nil)
	ev = drainOne(t, ch)
	if ev.Type != EventDone {
		t.Errorf("expected done event, got %s", ev.Type)
	}
	if !ev.Snapshot.Done {
		t.Error("done event should carry terminal snapshot")
	}
}

func TestHub_UnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe("job1")
	cancel()

	hub.Publish("job1", Event{Type: EventProgress})
	select {
	case <-ch:
		t.Error("unsubscribed channel should not receive events")
	default:
	}
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub()
	_, cancel := hub.Subscribe("job1")
	defer cancel()

	done := make(chan struct{})
	go func() {
		// More events than the channel buffers; Publish must not block.
		for i := 0; i < 100; i++ {
			hub.Publish("job1", Event{Type: EventProgress})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}
