// Package auth is the identity collaborator: Google OAuth and anonymous
// sign-in, backed by database sessions.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/passdesk/internal/model"
	"github.com/hitoshi/passdesk/internal/repository"
)

// ProviderAnonymous is the identity provider recorded for anonymous users.
const ProviderAnonymous = "anonymous"

// OAuthUserInfo is the profile returned by an OAuth provider.
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	Provider       string
}

// OAuthProvider is an OAuth 2.0 identity provider.
type OAuthProvider interface {
	GetLoginURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// ServiceConfig configures the auth Service.
type ServiceConfig struct {
	SessionMaxAge  int // seconds
	AllowAnonymous bool
}

// Service issues and resolves login sessions.
type Service struct {
	oauth       OAuthProvider
	userRepo    repository.UserRepository
	identRepo   repository.IdentityRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
}

// NewService returns a Service. oauth may be nil, which disables Google login.
func NewService(
	oauth OAuthProvider,
	userRepo repository.UserRepository,
	identRepo repository.IdentityRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		oauth:       oauth,
		userRepo:    userRepo,
		identRepo:   identRepo,
		sessionRepo: sessionRepo,
		config:      config,
	}
}

// GoogleEnabled reports whether an OAuth provider is configured.
func (s *Service) GoogleEnabled() bool {
	return s.oauth != nil
}

// AnonymousEnabled reports whether anonymous sign-in is allowed.
func (s *Service) AnonymousEnabled() bool {
	return s.config.AllowAnonymous
}

// GetLoginURL returns the provider's authorization URL for state.
func (s *Service) GetLoginURL(state string) (string, error) {
	if s.oauth == nil {
		return "", model.NewLoginDisabledError("google")
	}
	return s.oauth.GetLoginURL(state), nil
}

// HandleCallback finishes a Google sign-in. The first callback for a Google
// account creates its user.
func (s *Service) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	if s.oauth == nil {
		return nil, model.NewLoginDisabledError("google")
	}
	profile, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}
	return s.signIn(ctx, profile)
}

// SignInAnonymously opens a new, empty collection. Nothing links two
// anonymous sign-ins, so each call gets its own user.
func (s *Service) SignInAnonymously(ctx context.Context) (*model.Session, error) {
	if !s.config.AllowAnonymous {
		return nil, model.NewLoginDisabledError(ProviderAnonymous)
	}
	return s.signIn(ctx, &OAuthUserInfo{
		Provider:       ProviderAnonymous,
		ProviderUserID: uuid.NewString(),
	})
}

// Logout ends the session. Unknown ids are not an error.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return errSessionIDRequired
	}
	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	slog.Info("user logged out", slog.String("session", sessionFingerprint(sessionID)))
	return nil
}

// sessionFingerprint identifies a session in logs without revealing the
// bearer token.
func sessionFingerprint(sessionID string) string {
	sum := sha256.Sum256([]byte(sessionID))
	return hex.EncodeToString(sum[:6])
}

// GetCurrentUser resolves the owner of a live session.
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, errSessionIDRequired
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	switch {
	case err != nil:
		return nil, fmt.Errorf("failed to find session: %w", err)
	case session == nil:
		return nil, errors.New("session not found or expired")
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	switch {
	case err != nil:
		return nil, fmt.Errorf("failed to find user: %w", err)
	case user == nil:
		return nil, errors.New("user not found")
	}
	return user, nil
}

var errSessionIDRequired = errors.New("session ID is required")

// signIn maps the profile to a user, creating one on first sight, and
// issues a session for it.
func (s *Service) signIn(ctx context.Context, profile *OAuthUserInfo) (*model.Session, error) {
	userID, created, err := s.resolveUser(ctx, profile)
	if err != nil {
		return nil, err
	}
	slog.Info("user signed in",
		slog.String("user_id", userID),
		slog.String("provider", profile.Provider),
		slog.Bool("new_user", created),
	)

	token, err := newSessionToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}
	now := time.Now()
	session := &model.Session{
		ID:        token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

func (s *Service) resolveUser(ctx context.Context, profile *OAuthUserInfo) (userID string, created bool, err error) {
	if profile.Provider != ProviderAnonymous {
		existing, err := s.identRepo.FindByProviderAndProviderUserID(ctx, profile.Provider, profile.ProviderUserID)
		if err != nil {
			return "", false, fmt.Errorf("failed to find identity: %w", err)
		}
		if existing != nil {
			return existing.UserID, false, nil
		}
	}

	now := time.Now()
	user := &model.User{ID: uuid.NewString(), Email: profile.Email, Name: profile.Name, CreatedAt: now, UpdatedAt: now}
	ident := &model.Identity{
		ID:             uuid.NewString(),
		UserID:         user.ID,
		Provider:       profile.Provider,
		ProviderUserID: profile.ProviderUserID,
		CreatedAt:      now,
	}
	if err := s.userRepo.CreateWithIdentity(ctx, user, ident); err != nil {
		return "", false, fmt.Errorf("failed to create user and identity: %w", err)
	}
	return user.ID, true, nil
}

// newSessionToken returns 256 random bits as 64 hex characters.
func newSessionToken() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
