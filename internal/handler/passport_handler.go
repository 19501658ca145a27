package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/passdesk/internal/expiry"
	"github.com/hitoshi/passdesk/internal/middleware"
	"github.com/hitoshi/passdesk/internal/model"
	"github.com/hitoshi/passdesk/internal/passport"
)

// maxPassportBodyBytes bounds a create or update body. The photo data URL dominates it.
const maxPassportBodyBytes = 4 << 20

// PassportServiceInterface is the service the passport handlers depend on.
type PassportServiceInterface interface {
	Snapshot(ctx context.Context, userID string) (*passport.Snapshot, error)
	List(ctx context.Context, userID, query string) ([]model.ClassifiedPassport, error)
	Dashboard(ctx context.Context, userID string) (*passport.Dashboard, error)
	Get(ctx context.Context, userID, id string) (*model.ClassifiedPassport, error)
	Create(ctx context.Context, userID string, in model.PassportInput) (*model.ClassifiedPassport, error)
	Update(ctx context.Context, userID, id string, in model.PassportInput) (*model.ClassifiedPassport, error)
	Delete(ctx context.Context, userID, id string) error
	ExportCSV(ctx context.Context, userID string, w io.Writer) error
}

// PassportHandler serves the passport collection endpoints.
type PassportHandler struct {
	service PassportServiceInterface
}

// NewPassportHandler returns a PassportHandler.
func NewPassportHandler(service PassportServiceInterface) *PassportHandler {
	return &PassportHandler{service: service}
}

type passportRequest struct {
	FullName       string `json:"fullName"`
	PassportNumber string `json:"passportNumber"`
	Nationality    string `json:"nationality"`
	Gender         string `json:"gender"`
	DOB            string `json:"dob"`
	IssueDate      string `json:"issueDate"`
	ExpiryDate     string `json:"expiryDate"`
	Status         string `json:"status"`
	PassportImage  string `json:"passportImage"`
}

type passportResponse struct {
	ID             string     `json:"id"`
	FullName       string     `json:"fullName"`
	PassportNumber string     `json:"passportNumber"`
	Nationality    string     `json:"nationality"`
	Gender         string     `json:"gender"`
	DOB            string     `json:"dob"`
	IssueDate      string     `json:"issueDate"`
	ExpiryDate     string     `json:"expiryDate"`
	Status         string     `json:"status"`
	PassportImage  string     `json:"passportImage"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      *time.Time `json:"updatedAt,omitempty"`
	ExpiryStatus   string     `json:"expiryStatus"`
	DaysRemaining  *int       `json:"daysRemaining"`
}

type snapshotResponse struct {
	Passports []passportResponse `json:"passports"`
	Summary   expiry.Summary     `json:"summary"`
}

type dashboardResponse struct {
	Summary   expiry.Summary     `json:"summary"`
	Attention []passportResponse `json:"attention"`
}

// List returns the caller's annotated records filtered by ?q=.
// GET /api/passports
func (h *PassportHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	records, err := h.service.List(r.Context(), userID, r.URL.Query().Get("q"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPassportResponses(records))
}

// Create stores a new record.
// POST /api/passports
func (h *PassportHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	in, ok := decodePassportRequest(w, r)
	if !ok {
		return
	}

	created, err := h.service.Create(r.Context(), userID, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toPassportResponse(*created))
}

// Get returns one annotated record.
// GET /api/passports/{id}
func (h *PassportHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	p, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPassportResponse(*p))
}

// Update replaces the editable fields of a record.
// PUT /api/passports/{id}
func (h *PassportHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	in, ok := decodePassportRequest(w, r)
	if !ok {
		return
	}

	updated, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPassportResponse(*updated))
}

// Delete removes a record.
// DELETE /api/passports/{id}
func (h *PassportHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Dashboard returns the summary counters and the records that need attention.
// GET /api/dashboard
func (h *PassportHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	d, err := h.service.Dashboard(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		Summary:   d.Summary,
		Attention: toPassportResponses(d.Attention),
	})
}

// Export downloads the whole collection as CSV.
// GET /api/passports/export.csv
func (h *PassportHandler) Export(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.service.ExportCSV(r.Context(), userID, &buf); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+passport.ExportFilename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func decodePassportRequest(w http.ResponseWriter, r *http.Request) (model.PassportInput, bool) {
	var req passportRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPassportBodyBytes)).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return model.PassportInput{}, false
	}

	return model.PassportInput{
		FullName:       req.FullName,
		PassportNumber: req.PassportNumber,
		Nationality:    req.Nationality,
		Gender:         model.Gender(req.Gender),
		DOB:            req.DOB,
		IssueDate:      req.IssueDate,
		ExpiryDate:     req.ExpiryDate,
		Status:         model.AdminStatus(req.Status),
		PassportImage:  req.PassportImage,
	}, true
}

// requireUserID writes a 401 and returns false when the request carries no user.
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteUnauthorized(w)
		return "", false
	}
	return userID, true
}

func toPassportResponse(p model.ClassifiedPassport) passportResponse {
	return passportResponse{
		ID:             p.ID,
		FullName:       p.FullName,
		PassportNumber: p.PassportNumber,
		Nationality:    p.Nationality,
		Gender:         string(p.Gender),
		DOB:            p.DOB,
		IssueDate:      p.IssueDate,
		ExpiryDate:     p.ExpiryDate,
		Status:         string(p.Status),
		PassportImage:  p.PassportImage,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
		ExpiryStatus:   string(p.ExpiryStatus),
		DaysRemaining:  p.DaysRemaining,
	}
}

func toPassportResponses(records []model.ClassifiedPassport) []passportResponse {
	out := make([]passportResponse, len(records))
	for i, p := range records {
		out[i] = toPassportResponse(p)
	}
	return out
}

func toSnapshotResponse(s *passport.Snapshot) snapshotResponse {
	return snapshotResponse{
		Passports: toPassportResponses(s.Passports),
		Summary:   s.Summary,
	}
}
