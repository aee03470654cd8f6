// Package idemrepo persists the idempotency ledger that de-duplicates
// retried acceptance requests.
package idemrepo

import (
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"

	"github.com/google/uuid"
)

// IdempotencyRecordDTO represents one stored acceptance outcome. The key is
// the primary key, so a second insert under the same key fails at the
// database rather than silently overwriting the original response.
type IdempotencyRecordDTO struct {
	Key       string    `gorm:"primaryKey"`
	OrderID   uuid.UUID `gorm:"type:uuid;index"`
	CourierID uuid.UUID `gorm:"type:uuid"`
	Response  []byte    `gorm:"type:bytea"`
	CreatedAt time.Time `gorm:"index"`
}

// TableName specifies the database table name for ledger entries.
func (IdempotencyRecordDTO) TableName() string {
	return "idempotency_records"
}

// fromRecord converts a ledger record to its database representation.
func fromRecord(record ports.IdempotencyRecord) IdempotencyRecordDTO {
	return IdempotencyRecordDTO{
		Key:       record.Key,
		OrderID:   record.OrderID.Bytes(),
		CourierID: record.CourierID.Bytes(),
		Response:  record.Response,
		CreatedAt: record.CreatedAt,
	}
}

// toRecord converts a database DTO back to a ledger record.
func toRecord(dto IdempotencyRecordDTO) (ports.IdempotencyRecord, error) {
	orderID, err := kernel.UUIDFromBytes(dto.OrderID[:])
	if err != nil {
		return ports.IdempotencyRecord{}, err
	}

	courierID, err := kernel.UUIDFromBytes(dto.CourierID[:])
	if err != nil {
		return ports.IdempotencyRecord{}, err
	}

	return ports.IdempotencyRecord{
		Key:       dto.Key,
		OrderID:   orderID,
		CourierID: courierID,
		Response:  dto.Response,
		CreatedAt: dto.CreatedAt,
	}, nil
}
