package jobs

import (
	"fmt"
	"log/slog"
	"time"

	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/clock"
)

// JobManager coordinates all scheduled jobs in the application.
// Provides a unified interface to start and stop all background jobs.
type JobManager struct {
	dispatchSweepJob      *DispatchSweepJob
	idempotencyCleanupJob *IdempotencyCleanupJob
}

// NewJobManager creates a new job manager with all required jobs.
func NewJobManager(
	sweeper UnassignedSweeper,
	uowFactory ports.UnitOfWorkFactory,
	appClock clock.Clock,
	idempotencyRetention time.Duration,
	logger *slog.Logger,
) *JobManager {
	return &JobManager{
		dispatchSweepJob:      NewDispatchSweepJob(sweeper, logger),
		idempotencyCleanupJob: NewIdempotencyCleanupJob(uowFactory, appClock, idempotencyRetention, logger),
	}
}

// StartAll starts all scheduled jobs.
// Returns an error if any job fails to start.
func (jm *JobManager) StartAll() error {
	if err := jm.dispatchSweepJob.Start(); err != nil {
		return fmt.Errorf("failed to start dispatch sweep job: %w", err)
	}

	if err := jm.idempotencyCleanupJob.Start(); err != nil {
		// Stop already started jobs if this one fails
		jm.dispatchSweepJob.Stop()
		return fmt.Errorf("failed to start idempotency cleanup job: %w", err)
	}

	return nil
}

// StopAll stops all scheduled jobs gracefully.
func (jm *JobManager) StopAll() {
	jm.dispatchSweepJob.Stop()
	jm.idempotencyCleanupJob.Stop()
}
