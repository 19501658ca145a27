package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/passdesk/internal/model"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponseBody {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var body ErrorResponseBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	return body
}

func TestWriteErrorResponse_DomainErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		err    *model.APIError
	}{
		{"missing passport", http.StatusNotFound, model.NewPassportNotFoundError("9b1c")},
		{"missing field", http.StatusBadRequest, model.NewValidationError("fullName", "is required")},
		{"oversize photo", http.StatusRequestEntityTooLarge, model.NewImageTooLargeError(500 * 1024)},
		{"private photo URL", http.StatusForbidden, model.NewSSRFBlockedError()},
		{"photo host down", http.StatusBadGateway, model.NewFetchFailedError("status 503")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteErrorResponse(rec, tt.status, tt.err)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			body := decodeEnvelope(t, rec)
			want := ErrorResponseBody{
				Code:     tt.err.Code,
				Message:  tt.err.Message,
				Category: tt.err.Category,
				Action:   tt.err.Action,
			}
			if body != want {
				t.Errorf("body = %+v, want %+v", body, want)
			}
		})
	}
}

func TestWriteErrorResponse_EnvelopeKeys(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteErrorResponse(rec, http.StatusNotFound, model.NewPassportNotFoundError("x"))

	var raw map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, key := range []string{"code", "message", "category", "action"} {
		if v, ok := raw[key].(string); !ok || v == "" {
			t.Errorf("envelope key %q missing or empty: %v", key, raw[key])
		}
	}
	if len(raw) != 4 {
		t.Errorf("envelope has %d keys, want 4", len(raw))
	}
}

func TestWriteInternalServerError_HidesDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteInternalServerError(rec)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	if body.Code != "INTERNAL_ERROR" || body.Category != "system" {
		t.Errorf("body = %+v", body)
	}
	if strings.Contains(strings.ToLower(body.Message), "sql") {
		t.Errorf("message should be generic, got %q", body.Message)
	}
}

func TestWriteUnauthorized(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteUnauthorized(rec)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	if body.Code != "UNAUTHORIZED" || body.Category != "auth" {
		t.Errorf("body = %+v", body)
	}
}
