package handler

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/passdesk/internal/middleware"
	"github.com/hitoshi/passdesk/internal/model"
)

// CardRenderer renders the printable ID card of one record.
type CardRenderer interface {
	Render(w io.Writer, p model.ClassifiedPassport, lang string) error
}

// LanguageNegotiator picks the display language of a request.
type LanguageNegotiator interface {
	Negotiate(langParam, acceptLanguage string) string
}

// CardHandler serves the printable ID card page.
type CardHandler struct {
	service    PassportServiceInterface
	renderer   CardRenderer
	negotiator LanguageNegotiator
}

// NewCardHandler returns a CardHandler.
func NewCardHandler(service PassportServiceInterface, renderer CardRenderer, negotiator LanguageNegotiator) *CardHandler {
	return &CardHandler{
		service:    service,
		renderer:   renderer,
		negotiator: negotiator,
	}
}

// Card renders the ID card as an HTML page.
// GET /api/passports/{id}/card?lang=so
func (h *CardHandler) Card(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	p, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	lang := h.negotiator.Negotiate(r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"))

	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, *p, lang); err != nil {
		slog.Error("failed to render id card",
			slog.String("passport_id", p.ID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Language", lang)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
