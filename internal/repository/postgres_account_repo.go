package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/passdesk/internal/model"
)

// Accounts are a users row plus one identities row per sign-in provider.
// Both repos below share the same tables.

const (
	userColumns     = `id, email, name, created_at, updated_at`
	identityColumns = `id, user_id, provider, provider_user_id, created_at`
)

// PostgresUserRepo stores users.
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo returns a PostgresUserRepo.
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// PostgresIdentityRepo looks up provider identities.
type PostgresIdentityRepo struct {
	db *sql.DB
}

// NewPostgresIdentityRepo returns a PostgresIdentityRepo.
func NewPostgresIdentityRepo(db *sql.DB) *PostgresIdentityRepo {
	return &PostgresIdentityRepo{db: db}
}

// findOne runs a single-row query and maps sql.ErrNoRows to (nil, nil).
func findOne[T any](row *sql.Row, scan func(rowScanner) (*T, error), what string) (*T, error) {
	v, err := scan(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to find %s: %w", what, err)
	}
	return v, nil
}

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func scanIdentity(row rowScanner) (*model.Identity, error) {
	var i model.Identity
	if err := row.Scan(&i.ID, &i.UserID, &i.Provider, &i.ProviderUserID, &i.CreatedAt); err != nil {
		return nil, err
	}
	return &i, nil
}

// FindByID returns nil when no user has id.
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return findOne(row, scanUser, "user")
}

// CreateWithIdentity inserts both rows or neither.
func (r *PostgresUserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5)`,
			user.ID, user.Email, user.Name, user.CreatedAt, user.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert user: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO identities (`+identityColumns+`) VALUES ($1, $2, $3, $4, $5)`,
			identity.ID, user.ID, identity.Provider, identity.ProviderUserID, identity.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert identity: %w", err)
		}
		return nil
	})
}

// DeleteByID removes the account. Identities, sessions and passports go with
// it through ON DELETE CASCADE.
func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id string) error {
	var deleted string
	err := r.db.QueryRowContext(ctx, `DELETE FROM users WHERE id = $1 RETURNING id`, id).Scan(&deleted)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("user not found: %s", id)
	}
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// FindByProviderAndProviderUserID returns nil when the provider account has
// never signed in.
func (r *PostgresIdentityRepo) FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE provider = $1 AND provider_user_id = $2`,
		provider, providerUserID,
	)
	return findOne(row, scanIdentity, "identity")
}

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

var (
	_ UserRepository     = (*PostgresUserRepo)(nil)
	_ IdentityRepository = (*PostgresIdentityRepo)(nil)
)
