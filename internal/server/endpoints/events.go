package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/fablepress/fable/internal/api"
	"github.com/fablepress/fable/internal/progress"
	"github.com/fablepress/fable/internal/svcctx"
)

// JobEventsEndpoint handles GET /api/jobs/{job_id}/events as an SSE stream.
type JobEventsEndpoint struct{}

var _ api.Endpoint = (*JobEventsEndpoint)(nil)

func (e *JobEventsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/jobs/{job_id}/events", e.handler
}

func (e *JobEventsEndpoint) RequiresInit() bool { return true }

func (e *JobEventsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job_id is required")
		return
	}

	tracker := svcctx.TrackerFrom(r.Context())
	snap, err := tracker.Read(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("job %s not found", jobID))
		return
	}

	hub := svcctx.HubFrom(r.Context())
	if hub == nil {
		writeError(w, http.StatusServiceUnavailable, "event hub not initialized")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	// Subscribe before replaying the current snapshot so no transition
	// between replay and stream is lost.
	events, cancel := hub.Subscribe(jobID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	first := progress.Event{Type: progress.EventProgress, Snapshot: *snap}
	if snap.Done {
		first.Type = progress.EventDone
	}
	writeSSE(w, first)
	flusher.Flush()
	if snap.Done {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-events:
			writeSSE(w, ev)
			flusher.Flush()
			if ev.Type == progress.EventDone {
				return
			}
		}
	}
}

func writeSSE(w http.ResponseWriter, ev progress.Event) {
	data, err := json.Marshal(ev.Snapshot)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
}

func (e *JobEventsEndpoint) Command(_ func() string) *cobra.Command {
	// Streaming does not map onto the one-shot CLI output helpers; poll
	// with "jobs get" instead.
	return nil
}
