// Package idcard renders the printable passport ID card page.
package idcard

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"log/slog"

	"github.com/hitoshi/passdesk/internal/expiry"
	"github.com/hitoshi/passdesk/internal/i18n"
	"github.com/hitoshi/passdesk/internal/model"
	"github.com/hitoshi/passdesk/internal/photo"
)

//go:embed templates/card.html
var templatesFS embed.FS

// Photo box on the card, in CSS pixels at 2x density.
const (
	thumbWidth  = 192
	thumbHeight = 256
)

// view is the data handed to the template.
type view struct {
	Lang           string
	Labels         i18n.Table
	PassportNumber string
	FullName       string
	Nationality    string
	Gender         string
	ExpiryDate     string
	Expired        bool
	Status         string
	Photo          template.URL
}

// Renderer renders ID cards. It is safe for concurrent use.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded card template.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/card.html")
	if err != nil {
		return nil, fmt.Errorf("parse card template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render writes the card for p with labels in lang.
// A photo that cannot be decoded is replaced by the placeholder.
func (r *Renderer) Render(w io.Writer, p model.ClassifiedPassport, lang string) error {
	v := view{
		Lang:           lang,
		Labels:         i18n.Lookup(lang),
		PassportNumber: p.PassportNumber,
		FullName:       p.FullName,
		Nationality:    p.Nationality,
		Gender:         i18n.GenderLabel(lang, p.Gender),
		ExpiryDate:     FormatDate(p.ExpiryDate),
		Expired:        p.ExpiryStatus == model.ExpiryExpired,
		Status:         string(p.Status),
	}
	if p.PassportImage != "" {
		thumb, err := photo.Thumbnail(p.PassportImage, thumbWidth, thumbHeight)
		if err != nil {
			slog.Warn("id card photo unreadable", "passport_id", p.ID, "error", err)
		} else {
			// Thumbnail only ever produces a PNG data URL.
			v.Photo = template.URL(thumb)
		}
	}

	if err := r.tmpl.Execute(w, v); err != nil {
		return fmt.Errorf("render card: %w", err)
	}
	return nil
}

// FormatDate renders a stored date as DD/MM/YYYY. Empty input stays empty
// and unparseable input is shown unchanged.
func FormatDate(s string) string {
	if s == "" {
		return ""
	}
	t, ok := expiry.ParseDate(s)
	if !ok {
		return s
	}
	return t.Format("02/01/2006")
}
