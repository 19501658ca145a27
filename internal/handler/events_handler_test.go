package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hitoshi/passdesk/internal/expiry"
	"github.com/hitoshi/passdesk/internal/live"
	"github.com/hitoshi/passdesk/internal/model"
	"github.com/hitoshi/passdesk/internal/passport"
)

// startEventStream serves h for user-123 and opens a stream against it.
func startEventStream(t *testing.T, h *EventsHandler) (*bufio.Reader, context.CancelFunc) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Stream(w, withUserID(r, "user-123"))
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	resp, err := (&http.Client{Timeout: 5 * time.Second}).Do(req)
	if err != nil {
		t.Fatalf("failed to open stream: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q, want text/event-stream", ct)
	}
	return bufio.NewReader(resp.Body), cancel
}

// readEvent returns the lines of the next event block.
func readEvent(t *testing.T, r *bufio.Reader) []string {
	t.Helper()
	var lines []string
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("failed to read event: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		if line == "" {
			return lines
		}
		lines = append(lines, line)
	}
}

func decodeSnapshotEvent(t *testing.T, lines []string) snapshotResponse {
	t.Helper()
	if len(lines) != 2 || lines[0] != "event: snapshot" || !strings.HasPrefix(lines[1], "data: ") {
		t.Fatalf("unexpected event %q", lines)
	}
	var s snapshotResponse
	if err := json.Unmarshal([]byte(strings.TrimPrefix(lines[1], "data: ")), &s); err != nil {
		t.Fatalf("failed to decode snapshot: %v", err)
	}
	return s
}

func TestEventsHandler_SendsInitialSnapshotThenOnEveryChange(t *testing.T) {
	var calls atomic.Int32
	svc := &mockPassportService{
		snapshotFn: func(ctx context.Context, userID string) (*passport.Snapshot, error) {
			if userID != "user-123" {
				t.Errorf("userID = %q, want %q", userID, "user-123")
			}
			n := int(calls.Add(1)) - 1
			records := make([]model.ClassifiedPassport, n)
			for i := range records {
				records[i] = classified("id", "Holder", "2030-01-01", model.ExpiryValid, intPtr(1000))
			}
			return &passport.Snapshot{
				Passports: records,
				Summary:   expiry.Summary{Total: n, Active: n},
			}, nil
		},
	}
	broker := live.NewBroker(slog.New(slog.NewTextHandler(io.Discard, nil)))
	reader, cancel := startEventStream(t, NewEventsHandler(svc, broker))
	defer cancel()

	first := decodeSnapshotEvent(t, readEvent(t, reader))
	if len(first.Passports) != 0 || first.Summary.Total != 0 {
		t.Errorf("initial snapshot = %+v, want empty", first)
	}

	broker.Notify("other-user")
	broker.Notify("user-123")

	second := decodeSnapshotEvent(t, readEvent(t, reader))
	if len(second.Passports) != 1 || second.Summary.Total != 1 {
		t.Errorf("second snapshot = %+v, want one record", second)
	}
}

func TestEventsHandler_SendsKeepAlivePings(t *testing.T) {
	h := NewEventsHandler(&mockPassportService{}, live.NewBroker(slog.New(slog.NewTextHandler(io.Discard, nil))))
	h.pingInterval = 20 * time.Millisecond

	reader, cancel := startEventStream(t, h)
	defer cancel()

	decodeSnapshotEvent(t, readEvent(t, reader))

	ping := readEvent(t, reader)
	if len(ping) != 1 || ping[0] != ": ping" {
		t.Errorf("event = %q, want a ping comment", ping)
	}
}

func TestEventsHandler_UnsubscribesOnDisconnect(t *testing.T) {
	broker := live.NewBroker(slog.New(slog.NewTextHandler(io.Discard, nil)))
	reader, cancel := startEventStream(t, NewEventsHandler(&mockPassportService{}, broker))

	decodeSnapshotEvent(t, readEvent(t, reader))
	if n := broker.SubscriberCount(); n != 1 {
		t.Fatalf("SubscriberCount = %d, want 1", n)
	}

	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for broker.SubscriberCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("stream was not unsubscribed after the client disconnected")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestEventsHandler_InitialSnapshotFailure_ReturnsError(t *testing.T) {
	svc := &mockPassportService{
		snapshotFn: func(ctx context.Context, userID string) (*passport.Snapshot, error) {
			return nil, errors.New("db down")
		},
	}
	broker := live.NewBroker(slog.New(slog.NewTextHandler(io.Discard, nil)))
	h := NewEventsHandler(svc, broker)

	req := withUserID(httptest.NewRequest(http.MethodGet, "/api/passports/events", nil), "user-123")
	w := httptest.NewRecorder()

	h.Stream(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if n := broker.SubscriberCount(); n != 0 {
		t.Errorf("SubscriberCount = %d, want 0", n)
	}
}

func TestEventsHandler_NoUserID_ReturnsUnauthorized(t *testing.T) {
	h := NewEventsHandler(&mockPassportService{}, live.NewBroker(slog.New(slog.NewTextHandler(io.Discard, nil))))

	req := httptest.NewRequest(http.MethodGet, "/api/passports/events", nil)
	w := httptest.NewRecorder()

	h.Stream(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}
