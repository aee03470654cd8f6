package idemrepo

import (
	"context"
	"errors"
	"time"

	"dispatch/internal/core/ports"

	"gorm.io/gorm"
)

// GormIdempotencyRepository implements IdempotencyRepository using GORM.
type GormIdempotencyRepository struct {
	db *gorm.DB
}

// NewGormIdempotencyRepository creates a new GORM idempotency ledger repository.
func NewGormIdempotencyRepository(db *gorm.DB) *GormIdempotencyRepository {
	return &GormIdempotencyRepository{db: db}
}

// Put stores an acceptance outcome under its key. The primary key constraint
// rejects a duplicate key, keeping the first stored response authoritative.
func (r *GormIdempotencyRepository) Put(ctx context.Context, record ports.IdempotencyRecord) error {
	dto := fromRecord(record)
	return r.db.WithContext(ctx).Create(&dto).Error
}

// Get retrieves the record for a key, or nil without error when the key has
// never been seen or was already swept.
func (r *GormIdempotencyRepository) Get(ctx context.Context, key string) (*ports.IdempotencyRecord, error) {
	var dto IdempotencyRecordDTO
	if err := r.db.WithContext(ctx).First(&dto, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil //nolint:nilnil // absence is a valid, expected outcome
		}
		return nil, err
	}

	record, err := toRecord(dto)
	if err != nil {
		return nil, err
	}

	return &record, nil
}

// DeleteOlderThan removes records created before the cutoff and returns how
// many were deleted. Called by the retention sweep job.
func (r *GormIdempotencyRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&IdempotencyRecordDTO{})
	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}
