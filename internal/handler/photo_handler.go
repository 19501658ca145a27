package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/hitoshi/passdesk/internal/metrics"
	"github.com/hitoshi/passdesk/internal/model"
)

const (
	photoFormField = "photo"

	// multipartOverhead covers boundaries and part headers around the file.
	multipartOverhead  = 64 << 10
	maxImportBodyBytes = 8 << 10
)

// PhotoEncoder turns raw image bytes into a data URL.
type PhotoEncoder interface {
	MaxBytes() int64
	Encode(data []byte) (string, error)
}

// PhotoImporter fetches a remote photo as a data URL.
type PhotoImporter interface {
	Import(ctx context.Context, rawURL string) (string, error)
}

// PhotoHandler serves the photo capture endpoints.
type PhotoHandler struct {
	encoder  PhotoEncoder
	importer PhotoImporter
	metrics  metrics.MetricsCollector
}

// NewPhotoHandler returns a PhotoHandler. mc may be nil.
func NewPhotoHandler(encoder PhotoEncoder, importer PhotoImporter, mc metrics.MetricsCollector) *PhotoHandler {
	if mc == nil {
		mc = metrics.NoopCollector{}
	}
	return &PhotoHandler{
		encoder:  encoder,
		importer: importer,
		metrics:  mc,
	}
}

type photoResponse struct {
	DataURL string `json:"dataUrl"`
}

type importPhotoRequest struct {
	URL string `json:"url"`
}

// Upload encodes a multipart photo upload.
// POST /api/photos
func (h *PhotoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	limit := h.encoder.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	file, _, err := r.FormFile(photoFormField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.reject(w, model.NewImageTooLargeError(limit))
			return
		}
		h.reject(w, model.NewValidationError(photoFormField, "is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		h.reject(w, model.NewInvalidImageError())
		return
	}

	dataURL, err := h.encoder.Encode(data)
	if err != nil {
		h.reject(w, err)
		return
	}

	writeJSON(w, http.StatusOK, photoResponse{DataURL: dataURL})
}

// Import fetches a photo from a public URL.
// POST /api/photos/import
func (h *PhotoHandler) Import(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	var req importPhotoRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxImportBodyBytes)).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}
	if req.URL == "" {
		h.reject(w, model.NewInvalidURLError("URL is empty"))
		return
	}

	dataURL, err := h.importer.Import(r.Context(), req.URL)
	if err != nil {
		h.reject(w, err)
		return
	}

	writeJSON(w, http.StatusOK, photoResponse{DataURL: dataURL})
}

func (h *PhotoHandler) reject(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		h.metrics.RecordPhotoRejected(apiErr.Code)
	}
	handleServiceError(w, err)
}
