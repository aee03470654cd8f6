package ports

import (
	"context"

	"dispatch/internal/core/domain/model/courier"
	"dispatch/internal/core/domain/model/kernel"
)

// CourierRepository defines the persistence contract for courier aggregates.
type CourierRepository interface {
	// Add persists a new courier aggregate to storage.
	Add(ctx context.Context, aggregate *courier.Courier) error

	// Update persists changes to an existing courier aggregate.
	Update(ctx context.Context, aggregate *courier.Courier) error

	// Get retrieves a courier aggregate by its unique identifier.
	Get(ctx context.Context, id kernel.UUID) (*courier.Courier, error)

	// GetAllOnDuty retrieves couriers whose duty status accepts offers
	// (Available or Busy). Capacity filtering against the active order
	// count is the caller's concern.
	GetAllOnDuty(ctx context.Context) ([]*courier.Courier, error)

	// GetAll retrieves every registered courier regardless of duty status.
	GetAll(ctx context.Context) ([]*courier.Courier, error)
}
