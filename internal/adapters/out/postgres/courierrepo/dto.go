// Package courierrepo provides data transfer objects and mapping functions for courier persistence.
// Implements the repository pattern for the courier domain aggregate.
package courierrepo

import (
	"time"

	"dispatch/internal/core/domain/model/courier"
	"dispatch/internal/core/domain/model/kernel"

	"github.com/google/uuid"
)

// CourierDTO represents the database structure for persisting courier aggregates.
// The engagement clock is nullable: NULL means the courier has never been
// offered a job and ranks as infinitely idle in dispatch.
type CourierDTO struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Name          string     ``
	Status        string     `gorm:"index"`
	LastEngagedAt *time.Time ``
	LastSeen      time.Time  ``
}

// TableName specifies the database table name for courier entities.
func (CourierDTO) TableName() string {
	return "couriers"
}

// fromDomain converts a courier domain aggregate to its database representation.
func fromDomain(aggregate *courier.Courier) CourierDTO {
	return CourierDTO{
		ID:            aggregate.ID().Bytes(),
		Name:          aggregate.Name(),
		Status:        aggregate.Status().String(),
		LastEngagedAt: aggregate.LastEngagedAt(),
		LastSeen:      aggregate.LastSeen(),
	}
}

// toDomain converts a database DTO to a courier domain aggregate using RestoreCourier.
func toDomain(dto CourierDTO) (*courier.Courier, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}

	status, err := courier.StatusFromString(dto.Status)
	if err != nil {
		return nil, err
	}

	return courier.RestoreCourier(id, dto.Name, status, dto.LastEngagedAt, dto.LastSeen)
}
