// Package security holds the input hardening used by the API:
// markup stripping for free-text fields and an SSRF-safe HTTP client for
// fetching photos from operator-supplied URLs.
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer strips markup from plain-text form fields before they are stored.
type TextSanitizer interface {
	// SanitizeText removes every HTML element and comment from s, decodes
	// entities back to text and trims surrounding whitespace.
	// Plain text passes through unchanged.
	SanitizeText(s string) string
}

// textSanitizer wraps bluemonday's strict policy. Policies are safe for concurrent use.
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer returns a TextSanitizer that allows no markup at all.
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// SanitizeText implements TextSanitizer.
// The strict policy escapes what it keeps, so entities are decoded again to
// store names such as O'Brien verbatim. Output is escaped at render time.
func (s *textSanitizer) SanitizeText(in string) string {
	if in == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(in)))
}
