package cmd

import "time"

// Config carries the runtime configuration of the dispatch service, loaded
// from the environment by the application entry point.
type Config struct {
	HTTPPort   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	// AmqpURL points at the RabbitMQ broker delivering offers and events.
	// Empty means log-only notifications for local development.
	AmqpURL string

	// OfferTTL is how long a courier may sit on a dispatch offer before it
	// times out and escalates to the next candidate.
	OfferTTL time.Duration

	// DedupWindow is the duplicate-suppression window applied to orders
	// sharing a derived correlation key.
	DedupWindow time.Duration

	// IdempotencyRetention is how long acceptance outcomes stay replayable.
	IdempotencyRetention time.Duration

	// MaxActiveOrders caps how many orders a courier may carry at once.
	MaxActiveOrders int
}
