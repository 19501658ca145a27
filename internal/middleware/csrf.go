package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/passdesk/internal/model"
)

const (
	// csrfCookieName is not HttpOnly: the client reads it and echoes it in csrfHeaderName.
	csrfCookieName = "csrf_token"
	csrfHeaderName = "X-CSRF-Token"
	csrfMaxAge     = 24 * 60 * 60
)

// CSRFConfig configures the double-submit CSRF check.
type CSRFConfig struct {
	CookieSecure bool
	CookieDomain string
}

var errCSRFRejected = &model.APIError{
	Code:     "CSRF_REJECTED",
	Message:  "The request is missing a valid CSRF token.",
	Category: "auth",
	Action:   "Reload the page and try again.",
}

// NewCSRFMiddleware guards state-changing requests with a double-submit
// token: the csrf_token cookie must equal the X-CSRF-Token header. GET,
// HEAD and OPTIONS pass, picking up a cookie if they lack one.
func NewCSRFMiddleware(config CSRFConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				if csrfCookieValue(r) == "" {
					if _, err := issueCSRFCookie(w, config); err != nil {
						slog.Error("failed to generate CSRF token", slog.String("error", err.Error()))
					}
				}
				next.ServeHTTP(w, r)
				return
			}

			if reason := csrfMismatch(csrfCookieValue(r), r.Header.Get(csrfHeaderName)); reason != "" {
				slog.Warn("CSRF validation failed",
					slog.String("reason", reason),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)
				WriteErrorResponse(w, http.StatusForbidden, errCSRFRejected)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewCSRFTokenHandler serves GET /api/csrf-token as {"token": "..."},
// reusing the caller's cookie when present.
func NewCSRFTokenHandler(config CSRFConfig) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := csrfCookieValue(r)
		if token == "" {
			var err error
			if token, err = issueCSRFCookie(w, config); err != nil {
				slog.Error("failed to generate CSRF token", slog.String("error", err.Error()))
				WriteInternalServerError(w)
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(struct {
			Token string `json:"token"`
		}{token}); err != nil {
			slog.Warn("failed to encode CSRF token", slog.String("error", err.Error()))
		}
	})
}

func csrfCookieValue(r *http.Request) string {
	c, err := r.Cookie(csrfCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// csrfMismatch returns why the pair is rejected, or "" when it is accepted.
func csrfMismatch(cookie, header string) string {
	switch {
	case cookie == "":
		return "missing cookie token"
	case header == "":
		return "missing header token"
	case subtle.ConstantTimeCompare([]byte(cookie), []byte(header)) != 1:
		return "token mismatch"
	}
	return ""
}

func issueCSRFCookie(w http.ResponseWriter, config CSRFConfig) (string, error) {
	var raw [32]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	token := base64.RawURLEncoding.EncodeToString(raw[:])

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		Domain:   config.CookieDomain,
		MaxAge:   csrfMaxAge,
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}
