package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/passdesk/internal/middleware"
	"github.com/hitoshi/passdesk/internal/model"
)

// statusByCode maps APIError codes to HTTP statuses. Unlisted codes are 500.
var statusByCode = map[string]int{
	model.ErrCodePassportNotFound: http.StatusNotFound,
	model.ErrCodeUserNotFound:     http.StatusNotFound,
	model.ErrCodeValidation:       http.StatusBadRequest,
	model.ErrCodeInvalidURL:       http.StatusBadRequest,
	model.ErrCodeInvalidImage:     http.StatusBadRequest,
	model.ErrCodeImageTooLarge:    http.StatusRequestEntityTooLarge,
	model.ErrCodeSSRFBlocked:      http.StatusForbidden,
	model.ErrCodeLoginDisabled:    http.StatusForbidden,
	model.ErrCodeFetchFailed:      http.StatusBadGateway,
}

var errInvalidRequest = &model.APIError{
	Code:     "INVALID_REQUEST",
	Message:  "The request body could not be parsed.",
	Category: "validation",
	Action:   "Send a valid JSON body.",
}

func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", slog.String("error", err.Error()))
	}
}

func writeInvalidRequest(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, errInvalidRequest)
}

// handleServiceError answers with the envelope of an *model.APIError, or
// logs err and answers 500 for anything else.
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		slog.Error("internal server error", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}
	status, ok := statusByCode[apiErr.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	writeAPIErrorResponse(w, status, apiErr)
}
