// Package sweep runs the periodic expiry sweep over every stored passport.
package sweep

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/passdesk/internal/expiry"
	"github.com/hitoshi/passdesk/internal/metrics"
	"github.com/hitoshi/passdesk/internal/model"
)

// ExpiryScanner streams every stored passport.
type ExpiryScanner interface {
	ForEachExpiry(ctx context.Context, fn func(p model.Passport) error) error
}

// Result holds the counts of one sweep, keyed by expiry status.
type Result struct {
	Counts map[model.ExpiryStatus]int
	Urgent int
}

// Scheduler classifies all passports on a fixed interval, publishes the
// per-status gauge and logs each record in the urgent band.
type Scheduler struct {
	repo    ExpiryScanner
	metrics metrics.MetricsCollector
	logger  *slog.Logger
	now     func() time.Time
}

// NewScheduler returns a Scheduler. mc may be nil.
func NewScheduler(repo ExpiryScanner, mc metrics.MetricsCollector, logger *slog.Logger) *Scheduler {
	if mc == nil {
		mc = metrics.NoopCollector{}
	}
	return &Scheduler{
		repo:    repo,
		metrics: mc,
		logger:  logger,
		now:     time.Now,
	}
}

// Start sweeps once immediately, then every interval until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("expiry sweep scheduler started",
		slog.Duration("interval", interval),
	)

	s.runLogged(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("expiry sweep scheduler stopped")
			return
		case <-ticker.C:
			s.runLogged(ctx)
		}
	}
}

func (s *Scheduler) runLogged(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("expiry sweep failed",
			slog.String("error", err.Error()),
		)
	}
}

// RunOnce classifies every passport at the current instant. The gauge is
// only replaced after a complete pass.
func (s *Scheduler) RunOnce(ctx context.Context) (*Result, error) {
	start := time.Now()
	now := s.now()

	result := &Result{Counts: map[model.ExpiryStatus]int{
		model.ExpiryValid:   0,
		model.ExpiryWarning: 0,
		model.ExpiryUrgent:  0,
		model.ExpiryExpired: 0,
	}}

	err := s.repo.ForEachExpiry(ctx, func(p model.Passport) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		status := expiry.Classify(p.ExpiryDate, now)
		result.Counts[status]++

		if status == model.ExpiryUrgent {
			result.Urgent++
			days, _ := expiry.DaysRemaining(p.ExpiryDate, now)
			s.logger.Warn("passport expiring",
				slog.String("passport_id", p.ID),
				slog.String("user_id", p.UserID),
				slog.String("passport_number", p.PassportNumber),
				slog.String("expiry_date", p.ExpiryDate),
				slog.Int("days_remaining", days),
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	gauge := make(map[string]int, len(result.Counts))
	total := 0
	for status, n := range result.Counts {
		gauge[string(status)] = n
		total += n
	}
	s.metrics.SetPassportsByExpiry(gauge)

	duration := time.Since(start)
	s.metrics.RecordSweepDuration(duration)

	s.logger.Info("expiry sweep completed",
		slog.Int("passport_count", total),
		slog.Int("urgent_count", result.Urgent),
		slog.Int("expired_count", result.Counts[model.ExpiryExpired]),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return result, nil
}
