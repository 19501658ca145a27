package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/passdesk/internal/passport"
)

const defaultPingInterval = 25 * time.Second

// SnapshotSource produces the full annotated collection of a user.
type SnapshotSource interface {
	Snapshot(ctx context.Context, userID string) (*passport.Snapshot, error)
}

// ChangeSubscriber delivers a signal whenever a user's collection changes.
type ChangeSubscriber interface {
	Subscribe(userID string) (<-chan struct{}, func())
}

// EventsHandler streams live snapshots over Server-Sent Events.
type EventsHandler struct {
	source       SnapshotSource
	changes      ChangeSubscriber
	pingInterval time.Duration
}

// NewEventsHandler returns an EventsHandler.
func NewEventsHandler(source SnapshotSource, changes ChangeSubscriber) *EventsHandler {
	return &EventsHandler{
		source:       source,
		changes:      changes,
		pingInterval: defaultPingInterval,
	}
}

// Stream sends the current snapshot, then a fresh one after every change.
// GET /api/passports/events
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	// Subscribe before the first read so no change between the two is lost.
	changed, cancel := h.changes.Subscribe(userID)
	defer cancel()

	snapshot, err := h.source.Snapshot(ctx, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	rc := http.NewResponseController(w)
	// Streams outlive the server's write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeSnapshotEvent(w, rc, snapshot); err != nil {
		return
	}

	ping := time.NewTicker(h.pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		case <-changed:
			snapshot, err := h.source.Snapshot(ctx, userID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("failed to refresh snapshot",
					slog.String("user_id", userID),
					slog.String("error", err.Error()),
				)
				continue
			}
			if err := writeSnapshotEvent(w, rc, snapshot); err != nil {
				return
			}
		}
	}
}

func writeSnapshotEvent(w http.ResponseWriter, rc *http.ResponseController, s *passport.Snapshot) error {
	data, err := json.Marshal(toSnapshotResponse(s))
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data); err != nil {
		return err
	}
	return rc.Flush()
}
