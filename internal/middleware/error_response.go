package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/passdesk/internal/model"
)

// ErrorResponseBody is the JSON body of every failed API call.
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

var (
	errInternal = &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "An internal error occurred.",
		Category: "system",
		Action:   "Wait a moment and try again.",
	}
	errUnauthorized = &model.APIError{
		Code:     "UNAUTHORIZED",
		Message:  "Sign in to continue.",
		Category: "auth",
		Action:   "Sign in and retry the request.",
	}
)

// WriteErrorResponse sends apiErr with statusCode.
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	body := ErrorResponseBody(*apiErr)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("failed to encode error response", slog.String("error", err.Error()))
	}
}

// WriteInternalServerError sends a 500 that reveals nothing. Log the cause first.
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, errInternal)
}

// WriteUnauthorized sends the 401 for a missing or dead session.
func WriteUnauthorized(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusUnauthorized, errUnauthorized)
}
