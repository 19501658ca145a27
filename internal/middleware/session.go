// Package middleware provides the HTTP middleware chain.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/passdesk/internal/model"
)

// SessionCookieName is the HttpOnly cookie carrying the session id.
const SessionCookieName = "session_id"

type ownerKey struct{}

var errNoOwner = errors.New("user ID not found in context")

// SessionFinder is the subset of repository.SessionRepository needed here.
type SessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// NewSessionMiddleware admits requests whose session cookie names a live
// session and records the owning user on the context. Everything else,
// lookup failures included, is a 401.
func NewSessionMiddleware(sessions SessionFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner, ok := sessionOwner(r, sessions)
			if !ok {
				WriteUnauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), owner)))
		})
	}
}

func sessionOwner(r *http.Request, sessions SessionFinder) (string, bool) {
	c, err := r.Cookie(SessionCookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	s, err := sessions.FindByID(r.Context(), c.Value)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to find session", slog.String("error", err.Error()))
		return "", false
	}
	if s == nil {
		return "", false
	}
	return s.UserID, true
}

// UserIDFromContext returns the owner recorded by the session middleware.
func UserIDFromContext(ctx context.Context) (string, error) {
	if id, _ := ctx.Value(ownerKey{}).(string); id != "" {
		return id, nil
	}
	return "", errNoOwner
}

// ContextWithUserID returns ctx owned by userID.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ownerKey{}, userID)
}
