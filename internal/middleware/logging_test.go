package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func logOnce(t *testing.T, observer StatusObserver, userID string, h http.HandlerFunc) map[string]any {
	t.Helper()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	req := httptest.NewRequest(http.MethodPost, "/api/passports", nil)
	if userID != "" {
		req = req.WithContext(ContextWithUserID(req.Context(), userID))
	}
	NewLoggingMiddleware(logger, observer)(h).ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one JSON entry, got %q: %v", buf.String(), err)
	}
	return entry
}

func TestLoggingMiddleware_StatusAndLevel(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		wantCode  float64
		wantLevel string
	}{
		{
			name:      "implicit 200 from body write",
			handler:   func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"id":"p1"}`)) },
			wantCode:  200,
			wantLevel: "INFO",
		},
		{
			name:      "created",
			handler:   func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusCreated) },
			wantCode:  201,
			wantLevel: "INFO",
		},
		{
			name:      "validation failure",
			handler:   func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadRequest) },
			wantCode:  400,
			wantLevel: "WARN",
		},
		{
			name:      "oversize photo",
			handler:   func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusRequestEntityTooLarge) },
			wantCode:  413,
			wantLevel: "WARN",
		},
		{
			name: "store failure keeps the first status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.WriteHeader(http.StatusOK)
			},
			wantCode:  500,
			wantLevel: "ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := logOnce(t, nil, "", tt.handler)

			if entry["msg"] != "http_request" {
				t.Errorf("msg = %v, want http_request", entry["msg"])
			}
			if entry["status"] != tt.wantCode {
				t.Errorf("status = %v, want %v", entry["status"], tt.wantCode)
			}
			if entry["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %v", entry["level"], tt.wantLevel)
			}
			if entry["method"] != http.MethodPost || entry["path"] != "/api/passports" {
				t.Errorf("method/path = %v %v", entry["method"], entry["path"])
			}
		})
	}
}

func TestLoggingMiddleware_UserID(t *testing.T) {
	ok := func(w http.ResponseWriter, r *http.Request) {}

	if entry := logOnce(t, nil, "clerk-3", ok); entry["user_id"] != "clerk-3" {
		t.Errorf("user_id = %v, want clerk-3", entry["user_id"])
	}
	if entry := logOnce(t, nil, "", ok); entry["user_id"] != nil {
		t.Errorf("anonymous request should omit user_id, got %v", entry["user_id"])
	}
}

func TestLoggingMiddleware_Duration(t *testing.T) {
	entry := logOnce(t, nil, "", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Millisecond)
	})

	d, ok := entry["duration_ms"].(float64)
	if !ok || d < 1 {
		t.Errorf("duration_ms = %v, want >= 1", entry["duration_ms"])
	}
}

type recordingObserver struct {
	codes []int
}

func (o *recordingObserver) RecordHTTPStatus(code int) {
	o.codes = append(o.codes, code)
}

func TestLoggingMiddleware_ReportsStatusToObserver(t *testing.T) {
	observer := &recordingObserver{}
	logOnce(t, observer, "", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	if len(observer.codes) != 1 || observer.codes[0] != http.StatusNotFound {
		t.Errorf("observed codes = %v, want [404]", observer.codes)
	}
}

func TestLoggingMiddleware_StreamingSupport(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))

	handler := NewLoggingMiddleware(logger, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := http.NewResponseController(w)
		if err := rc.SetWriteDeadline(time.Time{}); err != nil && err != http.ErrNotSupported {
			t.Errorf("SetWriteDeadline: %v", err)
		}
		w.Write([]byte("event: snapshot\ndata: {}\n\n"))
		if err := rc.Flush(); err != nil {
			t.Errorf("Flush through the recorder failed: %v", err)
		}
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/passports/events", nil))

	if !rec.Flushed {
		t.Error("expected the stream to be flushed")
	}
}
