// Package repository defines the persistence interfaces and their PostgreSQL implementations.
package repository

import (
	"context"

	"github.com/hitoshi/passdesk/internal/model"
)

// UserRepository persists users.
type UserRepository interface {
	// FindByID returns the user with id, or nil when none exists.
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity creates the user and its identity in one transaction.
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// DeleteByID deletes the user. Identities, sessions and passports cascade.
	DeleteByID(ctx context.Context, id string) error
}

// IdentityRepository persists links to external identity providers.
type IdentityRepository interface {
	// FindByProviderAndProviderUserID returns nil when no identity matches.
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository persists login sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	// FindByID returns nil for unknown or expired sessions.
	FindByID(ctx context.Context, id string) (*model.Session, error)
	DeleteByID(ctx context.Context, id string) error
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired removes every session past its expiry and returns how many were removed.
	DeleteExpired(ctx context.Context) (int64, error)
}

// PassportRepository persists passport records. Every lookup by id is scoped
// to the owning user so one user can never address another user's records.
type PassportRepository interface {
	// Create inserts p and fills in ID and CreatedAt from the database.
	Create(ctx context.Context, p *model.Passport) error

	// Update overwrites the editable fields of the record identified by
	// p.ID and p.UserID and sets UpdatedAt. It returns nil when no such record exists.
	Update(ctx context.Context, p *model.Passport) (*model.Passport, error)

	// Delete removes a record. found is false when it did not exist.
	Delete(ctx context.Context, userID, id string) (found bool, err error)

	// FindByID returns nil when the record does not exist for userID.
	FindByID(ctx context.Context, userID, id string) (*model.Passport, error)

	// ListByUserID returns every record of the user, newest first.
	ListByUserID(ctx context.Context, userID string) ([]model.Passport, error)

	// ForEachExpiry streams the id, owner, name, number and expiry date of every
	// record in the database. Photos are not loaded.
	ForEachExpiry(ctx context.Context, fn func(p model.Passport) error) error

	// DeleteByUserID removes every record of the user.
	DeleteByUserID(ctx context.Context, userID string) error
}
