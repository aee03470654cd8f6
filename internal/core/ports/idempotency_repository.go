package ports

import (
	"context"
	"time"

	"dispatch/internal/core/domain/model/kernel"
)

// IdempotencyRecord stores the outcome of an acceptance request keyed by a
// client-supplied token. Records are created on the first attempt with a
// given key, are read-only afterward, and are garbage-collected after the
// retention window.
type IdempotencyRecord struct {
	// Key is the client-supplied idempotency token.
	Key string

	// OrderID and CourierID scope the record: a key replay with a different
	// pair is a fresh request, not a cache hit.
	OrderID   kernel.UUID
	CourierID kernel.UUID

	// Response is the serialized result returned to the original caller,
	// replayed byte-identically on retries.
	Response []byte

	// CreatedAt is when the record was stored; drives retention sweeps.
	CreatedAt time.Time
}

// IdempotencyRepository is the persistence contract of the idempotency
// ledger that de-duplicates retried acceptance requests.
type IdempotencyRepository interface {
	// Put stores the outcome of an acceptance attempt under its key.
	// The key is unique; storing an existing key fails.
	Put(ctx context.Context, record IdempotencyRecord) error

	// Get retrieves the record for a key, or nil without error when the
	// key has never been seen (or was already swept).
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)

	// DeleteOlderThan removes records created before the cutoff and
	// returns how many were deleted. Called by the retention sweep job.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
