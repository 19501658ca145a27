package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/passdesk/internal/model"
)

// protectedRouter mounts the protected passport chain:
// Session → RateLimit(General) → CSRF.
func protectedRouter(t *testing.T, generalBurst int) http.Handler {
	t.Helper()

	sessions := &mockSessionRepository{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			switch id {
			case "amina-session":
				return &model.Session{ID: id, UserID: "amina", ExpiresAt: time.Now().Add(time.Hour)}, nil
			case "omar-session":
				return &model.Session{ID: id, UserID: "omar", ExpiresAt: time.Now().Add(time.Hour)}, nil
			}
			return nil, nil
		},
	}

	rl := NewRateLimiter(testLimiterConfig(generalBurst, 1, time.Hour))
	t.Cleanup(rl.Stop)

	csrf := CSRFConfig{}
	r := chi.NewRouter()
	r.Get("/api/csrf-token", NewCSRFTokenHandler(csrf).ServeHTTP)
	r.Group(func(r chi.Router) {
		r.Use(NewSessionMiddleware(sessions))
		r.Use(rl.GeneralMiddleware())
		r.Use(NewCSRFMiddleware(csrf))

		owner := func(w http.ResponseWriter, r *http.Request) {
			userID, _ := UserIDFromContext(r.Context())
			json.NewEncoder(w).Encode(map[string]string{"owner": userID})
		}
		r.Get("/api/passports", owner)
		r.Post("/api/passports", owner)
	})
	return r
}

func chainRequest(method, session, csrf string) *http.Request {
	req := httptest.NewRequest(method, "/api/passports", nil)
	if session != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: session})
	}
	if csrf != "" {
		req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: csrf})
		req.Header.Set(csrfHeaderName, csrf)
	}
	return req
}

func TestProtectedChain_Statuses(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		session    string
		csrf       string
		wantStatus int
		wantOwner  string
	}{
		{"read with session", http.MethodGet, "amina-session", "", http.StatusOK, "amina"},
		{"read without session", http.MethodGet, "", "", http.StatusUnauthorized, ""},
		{"read with unknown session", http.MethodGet, "forged", "", http.StatusUnauthorized, ""},
		{"write with session and token", http.MethodPost, "omar-session", "tok", http.StatusOK, "omar"},
		{"write without token", http.MethodPost, "omar-session", "", http.StatusForbidden, ""},
		// authentication is checked before CSRF
		{"write without session or token", http.MethodPost, "", "", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := protectedRouter(t, 10)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, chainRequest(tt.method, tt.session, tt.csrf))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantOwner == "" {
				return
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body["owner"] != tt.wantOwner {
				t.Errorf("owner = %q, want %q", body["owner"], tt.wantOwner)
			}
		})
	}
}

func TestProtectedChain_RateLimitIsPerUser(t *testing.T) {
	router := protectedRouter(t, 2)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, chainRequest(http.MethodGet, "amina-session", ""))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, chainRequest(http.MethodGet, "amina-session", ""))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("third request: status = %d, want 429", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, chainRequest(http.MethodGet, "omar-session", ""))
	if rec.Code != http.StatusOK {
		t.Errorf("other user: status = %d, want 200", rec.Code)
	}
}

func TestProtectedChain_CSRFTokenEndpointIsPublic(t *testing.T) {
	router := protectedRouter(t, 10)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body.Token == "" {
		t.Fatalf("expected a token, got %+v (err %v)", body, err)
	}

	// the issued token unlocks a write
	req := chainRequest(http.MethodPost, "amina-session", body.Token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("write with issued token: status = %d, want 200", rec.Code)
	}
}
