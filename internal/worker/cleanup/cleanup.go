// Package cleanup removes expired sessions on a schedule.
// Deletion is idempotent; a run with nothing to delete succeeds.
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ExpiredSessionDeleter deletes sessions past their expiry.
type ExpiredSessionDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// CleanupJob is the expired session cleanup batch job.
type CleanupJob struct {
	sessions ExpiredSessionDeleter
	logger   *slog.Logger
}

// NewCleanupJob returns a CleanupJob.
func NewCleanupJob(sessions ExpiredSessionDeleter, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		sessions: sessions,
		logger:   logger,
	}
}

// Run deletes every expired session once.
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()
	n, err := j.sessions.DeleteExpired(ctx)
	if err != nil {
		j.logger.LogAttrs(ctx, slog.LevelError, "session cleanup job failed", slog.String("error", err.Error()))
		return fmt.Errorf("failed to clean up sessions: %w", err)
	}
	j.logger.LogAttrs(ctx, slog.LevelInfo, "session cleanup job completed",
		slog.Int64("deleted_count", n),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return nil
}

// Start runs the job now and then on every tick of interval until ctx is
// done. A failed run is retried on the next tick.
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		_ = j.Run(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
