package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/passdesk/internal/model"
)

const passportColumns = `id, user_id, full_name, passport_number, nationality, gender, dob,
	issue_date, expiry_date, status, passport_image, created_at, updated_at`

// PostgresPassportRepo is the PostgreSQL passport repository.
type PostgresPassportRepo struct {
	db *sql.DB
}

// NewPostgresPassportRepo returns a PostgresPassportRepo.
func NewPostgresPassportRepo(db *sql.DB) *PostgresPassportRepo {
	return &PostgresPassportRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPassport(row rowScanner) (*model.Passport, error) {
	p := &model.Passport{}
	var gender, status string
	var updatedAt sql.NullTime
	if err := row.Scan(
		&p.ID, &p.UserID, &p.FullName, &p.PassportNumber, &p.Nationality, &gender, &p.DOB,
		&p.IssueDate, &p.ExpiryDate, &status, &p.PassportImage, &p.CreatedAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	p.Gender = model.Gender(gender)
	p.Status = model.AdminStatus(status)
	if updatedAt.Valid {
		p.UpdatedAt = &updatedAt.Time
	}
	return p, nil
}

// Create inserts p. The database assigns id and created_at.
func (r *PostgresPassportRepo) Create(ctx context.Context, p *model.Passport) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO passports (user_id, full_name, passport_number, nationality, gender, dob,
		                        issue_date, expiry_date, status, passport_image)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at`,
		p.UserID, p.FullName, p.PassportNumber, p.Nationality, string(p.Gender), p.DOB,
		p.IssueDate, p.ExpiryDate, string(p.Status), p.PassportImage,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create passport: %w", err)
	}
	return nil
}

// Update overwrites the editable fields. Returns nil when the record does not exist.
func (r *PostgresPassportRepo) Update(ctx context.Context, p *model.Passport) (*model.Passport, error) {
	updated, err := scanPassport(r.db.QueryRowContext(ctx,
		`UPDATE passports SET
		    full_name = $3, passport_number = $4, nationality = $5, gender = $6, dob = $7,
		    issue_date = $8, expiry_date = $9, status = $10, passport_image = $11,
		    updated_at = now()
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+passportColumns,
		p.ID, p.UserID, p.FullName, p.PassportNumber, p.Nationality, string(p.Gender), p.DOB,
		p.IssueDate, p.ExpiryDate, string(p.Status), p.PassportImage,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update passport: %w", err)
	}
	return updated, nil
}

// Delete removes one record of userID.
func (r *PostgresPassportRepo) Delete(ctx context.Context, userID, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM passports WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete passport: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// FindByID returns the record, or nil when userID owns no record with id.
func (r *PostgresPassportRepo) FindByID(ctx context.Context, userID, id string) (*model.Passport, error) {
	p, err := scanPassport(r.db.QueryRowContext(ctx,
		`SELECT `+passportColumns+` FROM passports WHERE id = $1 AND user_id = $2`,
		id, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find passport: %w", err)
	}
	return p, nil
}

// ListByUserID returns the user's records ordered by created_at descending.
func (r *PostgresPassportRepo) ListByUserID(ctx context.Context, userID string) ([]model.Passport, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+passportColumns+`
		 FROM passports
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list passports: %w", err)
	}
	defer rows.Close()

	passports := make([]model.Passport, 0)
	for rows.Next() {
		p, err := scanPassport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan passport row: %w", err)
		}
		passports = append(passports, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate passports: %w", err)
	}

	return passports, nil
}

// ForEachExpiry calls fn for every record in the database. Iteration stops at
// the first error returned by fn.
func (r *PostgresPassportRepo) ForEachExpiry(ctx context.Context, fn func(p model.Passport) error) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, full_name, passport_number, expiry_date FROM passports`,
	)
	if err != nil {
		return fmt.Errorf("failed to scan passports for expiry: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p model.Passport
		if err := rows.Scan(&p.ID, &p.UserID, &p.FullName, &p.PassportNumber, &p.ExpiryDate); err != nil {
			return fmt.Errorf("failed to scan passport row: %w", err)
		}
		if err := fn(p); err != nil {
			return err
		}
	}
	return rows.Err()
}

// DeleteByUserID removes every record of the user.
func (r *PostgresPassportRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM passports WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user passports: %w", err)
	}
	return nil
}

// compile-time interface check
var _ PassportRepository = (*PostgresPassportRepo)(nil)
