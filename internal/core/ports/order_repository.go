package ports

import (
	"context"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
)

// OrderRepository defines the persistence contract for order aggregates.
// Besides plain CRUD it exposes the store-level atomic primitive the
// acceptance gate relies on: a conditional courier assignment expressed as
// one indivisible compare-and-swap against the order row.
type OrderRepository interface {
	// Add persists a new order aggregate to storage.
	// The order must be valid and not already exist in the repository.
	Add(ctx context.Context, aggregate *order.Order) error

	// Update persists changes to an existing order aggregate.
	// The order must exist in the repository and be valid.
	Update(ctx context.Context, aggregate *order.Order) error

	// Get retrieves an order aggregate by its unique identifier.
	Get(ctx context.Context, id kernel.UUID) (*order.Order, error)

	// AssignCourier executes the single atomic conditional write of the
	// acceptance protocol: set the courier and move the order to Delivery
	// only if the current status is Pending, Accepted, or Ready and no
	// courier is assigned yet. Returns false when the predicate matched
	// zero rows, meaning a concurrent caller won the race; this is an
	// expected outcome, not an error.
	AssignCourier(ctx context.Context, orderID, courierID kernel.UUID, at time.Time) (bool, error)

	// FindDuplicateOf looks up an existing order that shares the candidate's
	// correlation identity: the same client token, or the same derived
	// (phone, restaurant, total price) key created at or after since.
	// Returns nil without error when no such order exists.
	FindDuplicateOf(ctx context.Context, candidate *order.Order, since time.Time) (*order.Order, error)

	// GetAllUnassigned retrieves orders still awaiting automatic dispatch:
	// assignable status, no courier, and not parked for manual dispatch.
	GetAllUnassigned(ctx context.Context) ([]*order.Order, error)

	// GetAwaitingManualDispatch retrieves orders parked for operator
	// attention after escalation exhausted the courier pool.
	GetAwaitingManualDispatch(ctx context.Context) ([]*order.Order, error)

	// CountActiveByCourier returns, per courier, the number of orders
	// currently in Delivery. Couriers with no active orders are absent
	// from the map.
	CountActiveByCourier(ctx context.Context) (map[kernel.UUID]int, error)
}
