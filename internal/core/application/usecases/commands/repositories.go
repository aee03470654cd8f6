// Package commands contains business operations that modify system state.
// Implements the Command pattern for write operations in the CQRS architecture.
// All commands follow a consistent pattern: validation, transaction management, and persistence.
package commands

import (
	"context"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"
)

// Unit of Work interfaces provide transaction management for command handlers.
// These abstractions ensure data consistency across aggregate boundaries.
type (
	// TxManager handles database transaction lifecycle.
	// Ensures atomic operations across multiple repository calls.
	TxManager interface {
		Begin(ctx context.Context) error
		Commit(ctx context.Context) error
		Rollback(ctx context.Context) error
	}

	// AdvisoryLocker exposes the store's transaction-scoped advisory lock.
	// Used to serialize concurrent order creations sharing a correlation key.
	AdvisoryLocker interface {
		AdvisoryLock(ctx context.Context, key int64) error
	}

	// OrderRepoFactory provides access to the order repository within a transaction.
	OrderRepoFactory interface {
		OrderRepository() ports.OrderRepository
	}

	// CourierRepoFactory provides access to the courier repository within a transaction.
	CourierRepoFactory interface {
		CourierRepository() ports.CourierRepository
	}

	// IdempotencyRepoFactory provides access to the idempotency ledger within a transaction.
	IdempotencyRepoFactory interface {
		IdempotencyRepository() ports.IdempotencyRepository
	}

	// OrderUoW manages transactions for order-only operations that may also
	// need the duplicate-suppression advisory lock.
	OrderUoW interface {
		TxManager
		AdvisoryLocker
		OrderRepoFactory
	}

	// OrderUoWFactory creates new order unit of work instances.
	OrderUoWFactory interface {
		Create() OrderUoW
	}

	// OrderCourierUoW manages transactions for status updates, which touch
	// the order and, on completion, the delivering courier.
	OrderCourierUoW interface {
		TxManager
		OrderRepoFactory
		CourierRepoFactory
	}

	// OrderCourierUoWFactory creates new order-and-courier unit of work instances.
	OrderCourierUoWFactory interface {
		Create() OrderCourierUoW
	}

	// CourierUoW manages transactions for courier-only operations.
	CourierUoW interface {
		TxManager
		CourierRepoFactory
	}

	// CourierUoWFactory creates new courier unit of work instances.
	CourierUoWFactory interface {
		Create() CourierUoW
	}

	// UoW manages transactions across order, courier, and ledger state.
	// Used by the acceptance gate, which touches all three.
	UoW interface {
		TxManager
		AdvisoryLocker
		OrderRepoFactory
		CourierRepoFactory
		IdempotencyRepoFactory
	}

	// UoWFactory creates new unit of work instances for cross-aggregate operations.
	UoWFactory interface {
		Create() UoW
	}
)

// Dispatch coordination contracts. The coordinator lives outside the core
// and is injected through these narrow interfaces so handlers stay testable.
type (
	// DispatchCanceler clears in-flight dispatch state for an order.
	DispatchCanceler interface {
		// OrderTaken cancels the pending offer and timer after a courier
		// wins the order, and triggers the best-effort taken broadcast.
		OrderTaken(orderID, winnerID kernel.UUID)

		// OrderClosed clears remaining dispatch state when an order
		// reaches a terminal status.
		OrderClosed(orderID kernel.UUID)
	}

	// OfferEscalator advances the escalation chain for an order after an
	// explicit courier refusal.
	OfferEscalator interface {
		// Refuse records the refusal and immediately re-dispatches to the
		// next eligible courier. Returns whether a new offer went out.
		Refuse(ctx context.Context, orderID, courierID kernel.UUID) (bool, error)
	}
)
