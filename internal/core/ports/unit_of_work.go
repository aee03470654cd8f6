package ports

import (
	"context"
)

// UnitOfWorkFactory creates new UnitOfWork instances for each request/command.
// This ensures proper isolation between concurrent operations.
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// UnitOfWork represents a business transaction boundary.
// It provides transaction control, repository access bound to the current
// transaction, and the store-level advisory lock primitive used by the
// duplicate-order guard. Client code must explicitly manage the lifecycle.
type UnitOfWork interface {
	// Begin starts a new database transaction.
	Begin(ctx context.Context) error

	// Commit commits the current transaction.
	// Returns error if no active transaction or commit fails.
	Commit(ctx context.Context) error

	// Rollback rolls back the current transaction.
	// Returns error if no active transaction or rollback fails.
	Rollback(ctx context.Context) error

	// AdvisoryLock acquires a transaction-scoped advisory lock on key,
	// blocking until it is granted. The lock is released automatically
	// when the transaction commits or rolls back; calling it without an
	// active transaction is an error.
	AdvisoryLock(ctx context.Context, key int64) error

	// OrderRepository returns an OrderRepository bound to the current transaction.
	OrderRepository() OrderRepository

	// CourierRepository returns a CourierRepository bound to the current transaction.
	CourierRepository() CourierRepository

	// IdempotencyRepository returns an IdempotencyRepository bound to the
	// current transaction.
	IdempotencyRepository() IdempotencyRepository
}
