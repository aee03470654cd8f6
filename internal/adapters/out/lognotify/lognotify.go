// Package lognotify provides log-only implementations of the notification
// ports for local development, where no broker is configured. Offers are
// written to the log and never reach a courier, so acceptance has to come
// through the API directly.
package lognotify

import (
	"context"
	"log/slog"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/ports"
)

// Notifier logs offers and taken broadcasts instead of delivering them.
type Notifier struct {
	logger *slog.Logger
}

// NewNotifier creates a log-only notifier.
func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{logger: logger.With("component", "log_notifier")}
}

// Send logs the offer. Always succeeds.
func (n *Notifier) Send(ctx context.Context, courierID kernel.UUID, offer ports.OfferSummary) error {
	n.logger.InfoContext(ctx, "offer",
		"courier_id", courierID.String(),
		"order_id", offer.OrderID.String(),
		"total_price", offer.TotalPrice,
		"expires_at", offer.ExpiresAt)
	return nil
}

// BroadcastTaken logs the taken broadcast. Always succeeds.
func (n *Notifier) BroadcastTaken(ctx context.Context, orderID, winnerID kernel.UUID) error {
	n.logger.InfoContext(ctx, "order taken",
		"order_id", orderID.String(),
		"courier_id", winnerID.String())
	return nil
}

// EventPublisher logs order domain events instead of publishing them.
type EventPublisher struct {
	logger *slog.Logger
}

// NewEventPublisher creates a log-only event publisher.
func NewEventPublisher(logger *slog.Logger) *EventPublisher {
	return &EventPublisher{logger: logger.With("component", "log_event_publisher")}
}

// Publish logs the event. Always succeeds.
func (p *EventPublisher) Publish(ctx context.Context, event order.DomainEvent) error {
	p.logger.InfoContext(ctx, "order event",
		"event", event.EventName(),
		"order_id", event.OrderID().String(),
		"occurred_at", event.OccurredAt())
	return nil
}
