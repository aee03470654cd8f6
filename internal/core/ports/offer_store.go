package ports

import (
	"context"
	"time"

	"dispatch/internal/core/domain/model/kernel"
)

// DispatchOffer is a single pending proposal of one order to one courier.
// At most one active offer exists per order at any instant; this is the
// core fairness and ordering invariant of the dispatch engine.
type DispatchOffer struct {
	OrderID   kernel.UUID
	CourierID kernel.UUID
	OfferedAt time.Time
}

// OfferStore holds the currently pending dispatch offers, keyed by order.
//
// The coordinator injects this dependency rather than owning a map so that
// single-instance deployments can use the in-memory implementation while
// multi-instance deployments back it with the shared store. Timers remain
// local to the coordinating instance either way; running several
// coordinators without electing an owner is a known scaling limitation.
type OfferStore interface {
	// Put records the active offer for an order, replacing any previous one.
	Put(ctx context.Context, offer DispatchOffer) error

	// Get returns the active offer for an order, or nil without error when
	// the order has none.
	Get(ctx context.Context, orderID kernel.UUID) (*DispatchOffer, error)

	// Delete clears the active offer for an order. Deleting an absent
	// offer is a no-op.
	Delete(ctx context.Context, orderID kernel.UUID) error
}
