// Package handler provides the HTTP handlers.
package handler

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/passdesk/internal/middleware"
	"github.com/hitoshi/passdesk/internal/model"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateTTL    = 10 * time.Minute
)

// AuthServiceInterface is the service the auth handlers depend on.
type AuthServiceInterface interface {
	GoogleEnabled() bool
	AnonymousEnabled() bool
	GetLoginURL(state string) (string, error)
	HandleCallback(ctx context.Context, code string) (*model.Session, error)
	SignInAnonymously(ctx context.Context) (*model.Session, error)
	Logout(ctx context.Context, sessionID string) error
	GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

// AuthHandlerConfig configures the auth handlers.
type AuthHandlerConfig struct {
	BaseURL       string // where the browser lands after sign-in and sign-out
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // seconds
}

// AuthHandler serves /auth/*.
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler returns an AuthHandler.
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{service: service, config: config}
}

type signInMethods struct {
	Google    bool `json:"google"`
	Anonymous bool `json:"anonymous"`
}

type currentUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

var errInvalidOAuthState = &model.APIError{
	Code:     "INVALID_OAUTH_STATE",
	Message:  "The sign-in request expired or was tampered with.",
	Category: "auth",
	Action:   "Start the sign-in again.",
}

var errMissingOAuthCode = &model.APIError{
	Code:     "MISSING_OAUTH_CODE",
	Message:  "Google did not return an authorization code.",
	Category: "auth",
	Action:   "Start the sign-in again.",
}

// Methods reports which sign-in buttons the login screen should show.
func (h *AuthHandler) Methods(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, signInMethods{
		Google:    h.service.GoogleEnabled(),
		Anonymous: h.service.AnonymousEnabled(),
	})
}

// Login redirects to Google with a fresh state value, remembered in a
// short-lived cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := randomState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	target, err := h.service.GetLoginURL(state)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	http.SetCookie(w, h.cookie(oauthStateCookie, state, int(oauthStateTTL.Seconds())))
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

// Callback checks state, finishes the code exchange and starts a session.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	state := q.Get("state")

	// The state cookie is single use.
	remembered, cookieErr := r.Cookie(oauthStateCookie)
	http.SetCookie(w, h.cookie(oauthStateCookie, "", -1))

	if cookieErr != nil || state == "" || remembered.Value != state {
		slog.Warn("oauth state mismatch", slog.String("query_state", state))
		writeAPIErrorResponse(w, http.StatusBadRequest, errInvalidOAuthState)
		return
	}

	code := q.Get("code")
	if code == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, errMissingOAuthCode)
		return
	}

	session, err := h.service.HandleCallback(r.Context(), code)
	if err != nil {
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		handleServiceError(w, err)
		return
	}

	http.SetCookie(w, h.sessionCookie(session.ID))
	http.Redirect(w, r, h.config.BaseURL, http.StatusTemporaryRedirect)
}

// Anonymous starts a session for a brand-new anonymous user.
func (h *AuthHandler) Anonymous(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.SignInAnonymously(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	http.SetCookie(w, h.sessionCookie(session.ID))
	writeJSON(w, http.StatusCreated, currentUser{ID: session.UserID})
}

// Logout ends the session if there is one. The cookie is cleared and the
// browser redirected either way.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if id := sessionIDFromRequest(r); id != "" {
		if err := h.service.Logout(r.Context(), id); err != nil {
			slog.Error("failed to logout", slog.String("error", err.Error()))
		}
	}
	http.SetCookie(w, h.cookie(middleware.SessionCookieName, "", -1))
	http.Redirect(w, r, h.config.BaseURL, http.StatusTemporaryRedirect)
}

// Me returns the user behind the session cookie.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id := sessionIDFromRequest(r)
	if id == "" {
		middleware.WriteUnauthorized(w)
		return
	}

	user, err := h.service.GetCurrentUser(r.Context(), id)
	if err != nil {
		slog.Warn("failed to get current user", slog.String("error", err.Error()))
		middleware.WriteUnauthorized(w)
		return
	}
	writeJSON(w, http.StatusOK, currentUser{ID: user.ID, Email: user.Email, Name: user.Name})
}

func sessionIDFromRequest(r *http.Request) string {
	c, err := r.Cookie(middleware.SessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func (h *AuthHandler) sessionCookie(id string) *http.Cookie {
	c := h.cookie(middleware.SessionCookieName, id, h.config.SessionMaxAge)
	c.Domain = h.config.CookieDomain
	return c
}

// cookie builds an HttpOnly, SameSite=Lax cookie on "/". maxAge < 0 deletes it.
func (h *AuthHandler) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func randomState() (string, error) {
	b := make([]byte, 18)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
