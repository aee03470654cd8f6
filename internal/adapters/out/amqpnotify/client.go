// Package amqpnotify delivers dispatch offers and order lifecycle events
// over RabbitMQ. Couriers consume their personal offer queue bound to the
// offers topic exchange; the taken broadcast goes out on a fanout exchange
// so every connected courier app can drop the order from its queue view.
package amqpnotify

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// OffersExchange routes offers to individual couriers. Courier apps
	// bind a queue with the routing key "courier.<id>.offer".
	OffersExchange = "dispatch_offers_topic"

	// TakenExchange fans the taken broadcast out to every courier app.
	TakenExchange = "dispatch_taken_fanout"

	// EventsExchange carries order lifecycle events, routed by event name
	// ("order.ready", "order.delivery_started", "order.delivered").
	EventsExchange = "order_events_topic"
)

// Client owns the AMQP connection and channel shared by the notifier and
// the event publisher. Channel operations are not safe for concurrent use;
// callers serialize through the adapters' own locks.
type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// Dial connects to the broker at url and opens a publishing channel.
func Dial(url string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	return &Client{conn: conn, ch: ch}, nil
}

// Close releases the channel and the connection.
func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// DeclareTopology declares the exchanges this service publishes to.
// Queues and bindings belong to the consumers.
func (c *Client) DeclareTopology() error {
	if c == nil || c.ch == nil {
		return fmt.Errorf("nil channel")
	}

	if err := c.ch.ExchangeDeclare(OffersExchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", OffersExchange, err)
	}
	if err := c.ch.ExchangeDeclare(TakenExchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", TakenExchange, err)
	}
	if err := c.ch.ExchangeDeclare(EventsExchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", EventsExchange, err)
	}

	return nil
}
