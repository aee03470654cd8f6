package ports

import (
	"context"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
)

// OfferSummary is the payload delivered to a courier with a dispatch offer.
// The concrete channel (push, SMS, chat) is behind the Notifier abstraction;
// only the fields a courier needs to decide are carried.
type OfferSummary struct {
	OrderID      kernel.UUID
	RestaurantID kernel.UUID
	TotalPrice   int64
	ExpiresAt    time.Time
}

// Notifier delivers dispatch offers and order events to couriers.
//
// Delivery is best-effort: a send failure makes the coordinator escalate to
// the next candidate immediately, and broadcast failures are logged, never
// propagated as failures of the primary operation.
type Notifier interface {
	// Send delivers an offer to one courier.
	Send(ctx context.Context, courierID kernel.UUID, offer OfferSummary) error

	// BroadcastTaken informs couriers other than the winner that an order
	// they may have had queued is no longer available.
	BroadcastTaken(ctx context.Context, orderID, winnerID kernel.UUID) error
}

// EventPublisher consumes domain events raised by the order aggregate.
// Publishing happens after commit, fire-and-forget: it never blocks or
// fails the transition that raised the event.
type EventPublisher interface {
	Publish(ctx context.Context, event order.DomainEvent) error
}
