package jobs

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// UnassignedSweeper runs a dispatch round for every order still awaiting
// automatic dispatch. Implemented by the dispatch coordinator.
type UnassignedSweeper interface {
	SweepUnassigned(ctx context.Context) error
}

// DispatchSweepJob periodically re-dispatches orders that have no courier,
// no active offer, and are not parked for manual dispatch. The normal path
// dispatches orders as they arrive; the sweep catches orders whose offer
// chain stalled, for example across a process restart.
type DispatchSweepJob struct {
	sweeper UnassignedSweeper
	cron    *cron.Cron
	logger  *slog.Logger
}

// NewDispatchSweepJob creates a job that sweeps unassigned orders every
// five seconds.
func NewDispatchSweepJob(sweeper UnassignedSweeper, logger *slog.Logger) *DispatchSweepJob {
	return &DispatchSweepJob{
		sweeper: sweeper,
		cron:    cron.New(cron.WithSeconds()),
		logger:  logger.With("component", "dispatch_sweep_job"),
	}
}

// Start begins the dispatch sweep job.
func (j *DispatchSweepJob) Start() error {
	_, err := j.cron.AddFunc("*/5 * * * * *", func() {
		ctx := context.Background()
		if err := j.sweeper.SweepUnassigned(ctx); err != nil {
			j.logger.ErrorContext(ctx, "Dispatch sweep failed", "error", err)
		}
	})

	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "Dispatch sweep job started (running every 5 seconds)")
	return nil
}

// Stop stops the dispatch sweep job.
func (j *DispatchSweepJob) Stop() {
	j.cron.Stop()
	j.logger.InfoContext(context.Background(), "Dispatch sweep job stopped")
}
