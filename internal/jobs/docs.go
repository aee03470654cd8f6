// Package jobs provides scheduled background tasks for the dispatch engine.
//
// This package implements cron-based jobs using github.com/robfig/cron/v3
// to handle periodic operations required for the order lifecycle service.
//
// # Available Jobs
//
// 1. DispatchSweepJob - Periodically re-runs dispatch rounds for orders still
// awaiting a courier, picking up orders whose offer chain stalled (process
// restart, transient notification failures)
// 2. IdempotencyCleanupJob - Removes idempotency ledger records older than
// the retention window
//
// # Usage
//
// Jobs are managed through JobManager which provides a unified interface:
//
//	jobManager := jobs.NewJobManager(coordinator, uowFactory, appClock, retention, logger)
//
//	if err := jobManager.StartAll(); err != nil {
//		log.Fatal("Failed to start jobs:", err)
//	}
//
//	defer jobManager.StopAll()
//
// # Error Handling
//
// Both jobs log failures and keep running; a failed sweep or cleanup pass is
// retried on the next tick. Failed job starts stop any already running jobs.
package jobs
