package amqpnotify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"dispatch/internal/core/domain/model/order"

	amqp "github.com/rabbitmq/amqp091-go"
)

// eventMessage is the wire form of an order lifecycle event.
type eventMessage struct {
	Event      string    `json:"event"`
	OrderID    string    `json:"order_id"`
	CourierID  string    `json:"courier_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher publishes order domain events to the events exchange,
// routed by event name. Implements ports.EventPublisher.
type EventPublisher struct {
	client *Client
	mu     sync.Mutex
}

// NewEventPublisher creates an AMQP-backed event publisher on an
// established client.
func NewEventPublisher(client *Client) *EventPublisher {
	return &EventPublisher{client: client}
}

// Publish sends one domain event. Callers publish after commit and treat
// errors as log-only.
func (p *EventPublisher) Publish(ctx context.Context, event order.DomainEvent) error {
	msg := eventMessage{
		Event:      event.EventName(),
		OrderID:    event.OrderID().String(),
		OccurredAt: event.OccurredAt(),
	}
	if started, ok := event.(order.DeliveryStartedEvent); ok {
		msg.CourierID = started.CourierID().String()
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.EventName(), err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.client.ch.PublishWithContext(ctx, EventsExchange, event.EventName(), false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		ContentType:  "application/json",
		Body:         body,
	})
}
