// Package passport implements the passport record use cases: form
// validation, persistence, change publication and the derived views
// (annotated snapshot, dashboard and CSV export).
package passport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/passdesk/internal/expiry"
	"github.com/hitoshi/passdesk/internal/metrics"
	"github.com/hitoshi/passdesk/internal/model"
	"github.com/hitoshi/passdesk/internal/repository"
	"github.com/hitoshi/passdesk/internal/security"
)

// AttentionLimit is the number of records listed on the dashboard.
const AttentionLimit = 5

// Write operations, used as metric labels and in logs.
const (
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
	opList   = "list"
)

// Publisher announces that a user's collection changed.
type Publisher interface {
	Publish(ctx context.Context, userID string) error
}

// PhotoChecker validates the photo data URL submitted with a form.
type PhotoChecker interface {
	CheckDataURL(dataURL string) error
}

// Snapshot is the full annotated collection of one user plus its summary.
type Snapshot struct {
	Passports []model.ClassifiedPassport
	Summary   expiry.Summary
}

// Dashboard is the summary with the records that need attention.
type Dashboard struct {
	Summary   expiry.Summary
	Attention []model.ClassifiedPassport
}

// Service is the passport service layer.
type Service struct {
	repo      repository.PassportRepository
	publisher Publisher
	sanitizer security.TextSanitizer
	photos    PhotoChecker
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
	now       func() time.Time
}

// NewService returns a Service. publisher may be nil when no live updates are wired.
func NewService(
	repo repository.PassportRepository,
	publisher Publisher,
	sanitizer security.TextSanitizer,
	photos PhotoChecker,
	mc metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	if mc == nil {
		mc = metrics.NoopCollector{}
	}
	return &Service{
		repo:      repo,
		publisher: publisher,
		sanitizer: sanitizer,
		photos:    photos,
		metrics:   mc,
		logger:    logger,
		now:       time.Now,
	}
}

// Snapshot returns every record of userID, newest first, classified at the current time.
func (s *Service) Snapshot(ctx context.Context, userID string) (*Snapshot, error) {
	records, err := s.list(ctx, userID)
	if err != nil {
		return nil, err
	}
	annotated := expiry.Annotate(records, s.now())
	return &Snapshot{
		Passports: annotated,
		Summary:   expiry.SummarizeClassified(annotated),
	}, nil
}

// List returns the records matching query, classified at the current time.
func (s *Service) List(ctx context.Context, userID, query string) ([]model.ClassifiedPassport, error) {
	records, err := s.list(ctx, userID)
	if err != nil {
		return nil, err
	}
	return expiry.Annotate(expiry.Filter(records, query), s.now()), nil
}

// Dashboard returns the summary and the first AttentionLimit records that are
// not valid, in snapshot order.
func (s *Service) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	snap, err := s.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		Summary:   snap.Summary,
		Attention: expiry.NeedsAttention(snap.Passports, AttentionLimit),
	}, nil
}

// Get returns one classified record.
func (s *Service) Get(ctx context.Context, userID, id string) (*model.ClassifiedPassport, error) {
	if !validID(id) {
		return nil, model.NewPassportNotFoundError(id)
	}
	p, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find passport: %w", err)
	}
	if p == nil {
		return nil, model.NewPassportNotFoundError(id)
	}
	return s.classify(*p), nil
}

// Create validates in and stores a new record.
func (s *Service) Create(ctx context.Context, userID string, in model.PassportInput) (*model.ClassifiedPassport, error) {
	clean, err := s.normalize(in)
	if err != nil {
		return nil, err
	}

	p := fromInput(userID, clean)
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, s.storeFailure(opCreate, userID, "", err)
	}

	s.written(ctx, opCreate, userID, p.ID)
	return s.classify(*p), nil
}

// Update validates in and overwrites the record's fields.
func (s *Service) Update(ctx context.Context, userID, id string, in model.PassportInput) (*model.ClassifiedPassport, error) {
	if !validID(id) {
		return nil, model.NewPassportNotFoundError(id)
	}
	clean, err := s.normalize(in)
	if err != nil {
		return nil, err
	}

	p := fromInput(userID, clean)
	p.ID = id
	updated, err := s.repo.Update(ctx, p)
	if err != nil {
		return nil, s.storeFailure(opUpdate, userID, id, err)
	}
	if updated == nil {
		return nil, model.NewPassportNotFoundError(id)
	}

	s.written(ctx, opUpdate, userID, id)
	return s.classify(*updated), nil
}

// Delete removes a record.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if !validID(id) {
		return model.NewPassportNotFoundError(id)
	}
	found, err := s.repo.Delete(ctx, userID, id)
	if err != nil {
		return s.storeFailure(opDelete, userID, id, err)
	}
	if !found {
		return model.NewPassportNotFoundError(id)
	}

	s.written(ctx, opDelete, userID, id)
	return nil
}

func (s *Service) list(ctx context.Context, userID string) ([]model.Passport, error) {
	records, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		s.metrics.RecordStoreFailure(opList)
		return nil, fmt.Errorf("failed to list passports: %w", err)
	}
	return records, nil
}

func (s *Service) classify(p model.Passport) *model.ClassifiedPassport {
	c := expiry.Annotate([]model.Passport{p}, s.now())[0]
	return &c
}

// storeFailure logs and counts a failed write. Nothing is retried or rolled back.
func (s *Service) storeFailure(op, userID, id string, err error) error {
	s.metrics.RecordStoreFailure(op)
	s.logger.Error("passport store write failed",
		"op", op,
		"user_id", userID,
		"passport_id", id,
		"error", err,
	)
	return fmt.Errorf("failed to %s passport: %w", op, err)
}

// written records a successful write and publishes the change. A failed
// publish only delays live views until the next change, so it is logged.
func (s *Service) written(ctx context.Context, op, userID, id string) {
	s.metrics.RecordPassportWrite(op)
	s.logger.Info("passport "+op+"d", "user_id", userID, "passport_id", id)

	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, userID); err != nil {
		s.logger.Warn("passport change publish failed", "user_id", userID, "error", err)
	}
}

// normalize sanitises the free-text fields, applies the form defaults and
// rejects incomplete input. The photo is checked last so that a missing
// field is reported before an oversize image.
func (s *Service) normalize(in model.PassportInput) (model.PassportInput, error) {
	out := model.PassportInput{
		FullName:       s.sanitizer.SanitizeText(in.FullName),
		PassportNumber: s.sanitizer.SanitizeText(in.PassportNumber),
		Nationality:    s.sanitizer.SanitizeText(in.Nationality),
		Gender:         in.Gender,
		DOB:            s.sanitizer.SanitizeText(in.DOB),
		IssueDate:      s.sanitizer.SanitizeText(in.IssueDate),
		ExpiryDate:     s.sanitizer.SanitizeText(in.ExpiryDate),
		Status:         in.Status,
		PassportImage:  in.PassportImage,
	}

	required := []struct {
		field string
		value string
	}{
		{"fullName", out.FullName},
		{"passportNumber", out.PassportNumber},
		{"issueDate", out.IssueDate},
		{"expiryDate", out.ExpiryDate},
	}
	for _, r := range required {
		if r.value == "" {
			return out, model.NewValidationError(r.field, "is required")
		}
	}

	if out.Nationality == "" {
		out.Nationality = model.DefaultNationality
	}

	// Column widths of the passports table, in characters.
	limits := []struct {
		field string
		value string
		max   int
	}{
		{"fullName", out.FullName, 255},
		{"passportNumber", out.PassportNumber, 64},
		{"nationality", out.Nationality, 100},
		{"dob", out.DOB, 32},
		{"issueDate", out.IssueDate, 32},
		{"expiryDate", out.ExpiryDate, 32},
	}
	for _, l := range limits {
		if utf8.RuneCountInString(l.value) > l.max {
			return out, model.NewValidationError(l.field, fmt.Sprintf("must be at most %d characters", l.max))
		}
	}

	switch out.Gender {
	case "":
		out.Gender = model.GenderMale
	case model.GenderMale, model.GenderFemale:
	default:
		return out, model.NewValidationError("gender", "must be Male or Female")
	}

	switch out.Status {
	case "":
		out.Status = model.AdminStatusActive
	case model.AdminStatusActive, model.AdminStatusInactive, model.AdminStatusLost:
	default:
		return out, model.NewValidationError("status", "must be Active, Inactive or Lost/Stolen")
	}

	if err := s.photos.CheckDataURL(out.PassportImage); err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			s.metrics.RecordPhotoRejected(apiErr.Code)
		}
		return out, err
	}

	return out, nil
}

func fromInput(userID string, in model.PassportInput) *model.Passport {
	return &model.Passport{
		UserID:         userID,
		FullName:       in.FullName,
		PassportNumber: in.PassportNumber,
		Nationality:    in.Nationality,
		Gender:         in.Gender,
		DOB:            in.DOB,
		IssueDate:      in.IssueDate,
		ExpiryDate:     in.ExpiryDate,
		Status:         in.Status,
		PassportImage:  in.PassportImage,
	}
}

// validID reports whether id can name a stored record. Anything else cannot
// exist and is answered as not found without a query.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
