package amqpnotify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"

	amqp "github.com/rabbitmq/amqp091-go"
)

// offerMessage is the wire form of a dispatch offer.
type offerMessage struct {
	OrderID      string    `json:"order_id"`
	RestaurantID string    `json:"restaurant_id"`
	TotalPrice   int64     `json:"total_price"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// takenMessage is the wire form of the taken broadcast.
type takenMessage struct {
	OrderID   string `json:"order_id"`
	CourierID string `json:"courier_id"`
}

// Notifier publishes dispatch offers and taken broadcasts over AMQP.
// Implements ports.Notifier.
type Notifier struct {
	client *Client
	mu     sync.Mutex
}

// NewNotifier creates an AMQP-backed notifier on an established client.
func NewNotifier(client *Client) *Notifier {
	return &Notifier{client: client}
}

// Send publishes an offer to the courier's personal routing key. A publish
// error is returned to the caller, which treats the courier as unreachable
// and escalates.
func (n *Notifier) Send(ctx context.Context, courierID kernel.UUID, offer ports.OfferSummary) error {
	body, err := json.Marshal(offerMessage{
		OrderID:      offer.OrderID.String(),
		RestaurantID: offer.RestaurantID.String(),
		TotalPrice:   offer.TotalPrice,
		ExpiresAt:    offer.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("marshal offer: %w", err)
	}

	routingKey := fmt.Sprintf("courier.%s.offer", courierID.String())
	return n.publish(ctx, OffersExchange, routingKey, body)
}

// BroadcastTaken fans out the outcome of a won race so courier apps drop
// the order from their queue views.
func (n *Notifier) BroadcastTaken(ctx context.Context, orderID, winnerID kernel.UUID) error {
	body, err := json.Marshal(takenMessage{
		OrderID:   orderID.String(),
		CourierID: winnerID.String(),
	})
	if err != nil {
		return fmt.Errorf("marshal taken broadcast: %w", err)
	}

	return n.publish(ctx, TakenExchange, "", body)
}

func (n *Notifier) publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.client.ch.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		ContentType:  "application/json",
		Body:         body,
	})
}
