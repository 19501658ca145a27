package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/passdesk/internal/middleware"
)

// UserServiceInterface closes accounts.
type UserServiceInterface interface {
	Withdraw(ctx context.Context, userID string) error
}

// UserHandler serves /api/users.
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler returns a UserHandler.
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// Withdraw deletes the caller's account and all of its passports, then
// expires the session cookie.
// DELETE /api/users/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	if err := h.service.Withdraw(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// SetupUserRoutes mounts only the account routes. Used in tests.
func SetupUserRoutes(service UserServiceInterface) http.Handler {
	h := NewUserHandler(service)
	r := chi.NewRouter()
	r.Delete("/api/users/me", h.Withdraw)
	return r
}
