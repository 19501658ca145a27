// Package user implements account management.
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/passdesk/internal/model"
	"github.com/hitoshi/passdesk/internal/repository"
)

// PassportDeleter removes every passport of a user.
type PassportDeleter interface {
	DeleteByUserID(ctx context.Context, userID string) error
}

// Service closes accounts.
type Service struct {
	users     repository.UserRepository
	sessions  repository.SessionRepository
	passports PassportDeleter
}

// NewService returns a Service. sessions and passports may be nil when the
// database cascade is enough.
func NewService(users repository.UserRepository, sessions repository.SessionRepository, passports PassportDeleter) *Service {
	return &Service{users: users, sessions: sessions, passports: passports}
}

// Withdraw deletes the user's passports, then sessions, then the user.
// The first failure stops the sequence; rerunning finishes it.
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if u == nil {
		return model.NewUserNotFoundError()
	}

	type step struct {
		what string
		run  func(context.Context, string) error
	}
	var steps []step
	if s.passports != nil {
		steps = append(steps, step{"passports", s.passports.DeleteByUserID})
	}
	if s.sessions != nil {
		steps = append(steps, step{"sessions", s.sessions.DeleteByUserID})
	}
	steps = append(steps, step{"user", s.users.DeleteByID})

	for _, st := range steps {
		if err := st.run(ctx, userID); err != nil {
			return fmt.Errorf("failed to delete %s: %w", st.what, err)
		}
	}

	slog.Info("account withdrawn", slog.String("user_id", userID), slog.Int("steps", len(steps)))
	return nil
}
