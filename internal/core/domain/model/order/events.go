package order

import (
	"time"

	"dispatch/internal/core/domain/model/kernel"
)

// DomainEvent is raised by the Order aggregate when it crosses a lifecycle
// boundary that downstream consumers (the notification layer) care about.
// Events are collected on the aggregate and published after a successful
// commit, fire-and-forget: publishing never blocks or fails a transition.
type DomainEvent interface {
	// EventName returns a stable name identifying the event kind.
	EventName() string

	// OrderID returns the identifier of the order that raised the event.
	OrderID() kernel.UUID

	// OccurredAt returns when the event was raised.
	OccurredAt() time.Time
}

// baseEvent carries the fields shared by all order events.
type baseEvent struct {
	orderID    kernel.UUID
	occurredAt time.Time
}

func (e baseEvent) OrderID() kernel.UUID  { return e.orderID }
func (e baseEvent) OccurredAt() time.Time { return e.occurredAt }

// ReadyEvent is raised when the restaurant marks the order Ready.
// Consumed by the notification layer to ping the assigned or offered courier.
type ReadyEvent struct{ baseEvent }

// EventName returns the stable name of the event kind.
func (ReadyEvent) EventName() string { return "order.ready" }

// DeliveryStartedEvent is raised when a courier wins the order and the
// status moves to Delivery.
type DeliveryStartedEvent struct {
	baseEvent
	courierID kernel.UUID
}

// EventName returns the stable name of the event kind.
func (DeliveryStartedEvent) EventName() string { return "order.delivery_started" }

// CourierID returns the courier now carrying the order.
func (e DeliveryStartedEvent) CourierID() kernel.UUID { return e.courierID }

// DeliveredEvent is raised when the order reaches its terminal Delivered status.
type DeliveredEvent struct{ baseEvent }

// EventName returns the stable name of the event kind.
func (DeliveredEvent) EventName() string { return "order.delivered" }
