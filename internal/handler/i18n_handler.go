package handler

import (
	"net/http"

	"github.com/hitoshi/passdesk/internal/i18n"
)

// I18nHandler serves the translation tables.
type I18nHandler struct {
	negotiator LanguageNegotiator
}

// NewI18nHandler returns an I18nHandler.
func NewI18nHandler(negotiator LanguageNegotiator) *I18nHandler {
	return &I18nHandler{negotiator: negotiator}
}

type translationsResponse struct {
	Lang   string     `json:"lang"`
	Labels i18n.Table `json:"labels"`
}

// Translations returns the table negotiated from ?lang= and Accept-Language.
// GET /api/i18n
func (h *I18nHandler) Translations(w http.ResponseWriter, r *http.Request) {
	lang := h.negotiator.Negotiate(r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"))
	w.Header().Set("Content-Language", lang)
	writeJSON(w, http.StatusOK, translationsResponse{
		Lang:   lang,
		Labels: i18n.Lookup(lang),
	})
}
