package jobs

import (
	"context"
	"log/slog"
	"time"

	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/clock"

	"github.com/robfig/cron/v3"
)

// IdempotencyCleanupJob removes idempotency ledger records older than the
// retention window. Replays arriving after their record was swept are
// treated as fresh requests, which the acceptance gate handles safely.
type IdempotencyCleanupJob struct {
	uowFactory ports.UnitOfWorkFactory
	clock      clock.Clock
	retention  time.Duration
	cron       *cron.Cron
	logger     *slog.Logger
}

// NewIdempotencyCleanupJob creates a job that sweeps expired ledger records
// every ten minutes.
func NewIdempotencyCleanupJob(
	uowFactory ports.UnitOfWorkFactory,
	appClock clock.Clock,
	retention time.Duration,
	logger *slog.Logger,
) *IdempotencyCleanupJob {
	return &IdempotencyCleanupJob{
		uowFactory: uowFactory,
		clock:      appClock,
		retention:  retention,
		cron:       cron.New(cron.WithSeconds()),
		logger:     logger.With("component", "idempotency_cleanup_job"),
	}
}

// Start begins the idempotency cleanup job.
func (j *IdempotencyCleanupJob) Start() error {
	_, err := j.cron.AddFunc("0 */10 * * * *", func() {
		ctx := context.Background()
		if err := j.sweep(ctx); err != nil {
			j.logger.ErrorContext(ctx, "Idempotency cleanup failed", "error", err)
		}
	})

	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "Idempotency cleanup job started (running every 10 minutes)")
	return nil
}

// Stop stops the idempotency cleanup job.
func (j *IdempotencyCleanupJob) Stop() {
	j.cron.Stop()
	j.logger.InfoContext(context.Background(), "Idempotency cleanup job stopped")
}

func (j *IdempotencyCleanupJob) sweep(ctx context.Context) error {
	uow := j.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	cutoff := j.clock.Now().Add(-j.retention)
	deleted, err := uow.IdempotencyRepository().DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}

	if err = uow.Commit(ctx); err != nil {
		return err
	}

	if deleted > 0 {
		j.logger.InfoContext(ctx, "Swept expired idempotency records", "deleted", deleted)
	}
	return nil
}
