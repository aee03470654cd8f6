package orderrepo

import (
	"context"
	"errors"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/errs"

	"gorm.io/gorm"
)

// GormOrderRepository implements OrderRepository using GORM.
type GormOrderRepository struct {
	db      *gorm.DB
	tracker aggregateTracker
}

// aggregateTracker defines the interface for tracking aggregates.
type aggregateTracker interface {
	TrackAggregate(id kernel.UUID, aggregate any)
}

// NewGormOrderRepository creates a new GORM order repository.
func NewGormOrderRepository(db *gorm.DB, tracker aggregateTracker) *GormOrderRepository {
	return &GormOrderRepository{
		db:      db,
		tracker: tracker,
	}
}

// assignableStatuses are the statuses from which a courier may claim an order.
// Must stay in sync with Status.ValidateAssign.
func assignableStatuses() []string {
	return []string{order.Pending.String(), order.Accepted.String(), order.Ready.String()}
}

// orderColumns lists every order column written on Update. Explicit selection
// forces GORM to persist zero values such as a cleared manual-dispatch flag.
func orderColumns() []string {
	return []string{
		"restaurant_id", "customer_phone", "client_token", "courier_id",
		"total_price", "status", "ignored_by", "awaiting_manual_dispatch",
		"created_at", "assigned_at",
	}
}

// Add saves a new order with its lines to the database.
func (r *GormOrderRepository) Add(ctx context.Context, aggregate *order.Order) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	if err := r.db.WithContext(ctx).Create(&dto).Error; err != nil {
		return err
	}

	r.tracker.TrackAggregate(aggregate.ID(), aggregate)
	return nil
}

// Update saves an existing order to the database. Order lines are immutable
// after creation and are not touched.
func (r *GormOrderRepository) Update(ctx context.Context, aggregate *order.Order) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	result := r.db.WithContext(ctx).Model(&OrderDTO{}).
		Where("id = ?", dto.ID).
		Select(orderColumns()).
		Updates(&dto)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	r.tracker.TrackAggregate(aggregate.ID(), aggregate)
	return nil
}

// Get retrieves an order by ID, including its lines.
func (r *GormOrderRepository) Get(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var dto OrderDTO
	if err := r.db.WithContext(ctx).Preload("Items").First(&dto, "id = ?", id.Bytes()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("order", id.String())
		}
		return nil, err
	}

	return toDomain(dto)
}

// AssignCourier performs the conditional write of the acceptance protocol:
// one UPDATE whose predicate requires a claimable status and no courier.
// The database serializes concurrent claims on the row, so exactly one
// caller observes an affected row and every other caller observes zero.
func (r *GormOrderRepository) AssignCourier(
	ctx context.Context,
	orderID, courierID kernel.UUID,
	at time.Time,
) (bool, error) {
	if err := orderID.Validate(); err != nil {
		return false, err
	}
	if err := courierID.Validate(); err != nil {
		return false, err
	}

	result := r.db.WithContext(ctx).Model(&OrderDTO{}).
		Where("id = ? AND courier_id IS NULL AND status IN ?", orderID.Bytes(), assignableStatuses()).
		Updates(map[string]any{
			"courier_id":               courierID.Bytes(),
			"status":                   order.Delivery.String(),
			"assigned_at":              at,
			"awaiting_manual_dispatch": false,
		})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}

// FindDuplicateOf looks up a prior order sharing the candidate's correlation
// identity: an exact client token match, or the derived phone, restaurant,
// and total key for orders created at or after since. Returns nil without
// error on no match.
func (r *GormOrderRepository) FindDuplicateOf(
	ctx context.Context,
	candidate *order.Order,
	since time.Time,
) (*order.Order, error) {
	if err := candidate.Validate(); err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).Preload("Items").Order("created_at DESC")
	if token := candidate.ClientToken(); token != "" {
		query = query.Where("client_token = ?", token)
	} else {
		query = query.Where(
			"client_token = '' AND customer_phone = ? AND restaurant_id = ? AND total_price = ? AND created_at >= ?",
			candidate.CustomerPhone(),
			candidate.RestaurantID().Bytes(),
			candidate.TotalPrice(),
			since,
		)
	}

	var dto OrderDTO
	if err := query.First(&dto).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil //nolint:nilnil // absence is a valid, expected outcome
		}
		return nil, err
	}

	return toDomain(dto)
}

// GetAllUnassigned retrieves orders still awaiting automatic dispatch,
// oldest first: claimable status, no courier, not parked for operators.
func (r *GormOrderRepository) GetAllUnassigned(ctx context.Context) ([]*order.Order, error) {
	var dtos []OrderDTO
	err := r.db.WithContext(ctx).Preload("Items").
		Where("courier_id IS NULL AND status IN ? AND NOT awaiting_manual_dispatch", assignableStatuses()).
		Order("created_at").
		Find(&dtos).Error
	if err != nil {
		return nil, err
	}

	return toDomainSlice(dtos)
}

// GetAwaitingManualDispatch retrieves orders parked for operator attention,
// oldest first.
func (r *GormOrderRepository) GetAwaitingManualDispatch(ctx context.Context) ([]*order.Order, error) {
	var dtos []OrderDTO
	err := r.db.WithContext(ctx).Preload("Items").
		Where("awaiting_manual_dispatch AND courier_id IS NULL").
		Order("created_at").
		Find(&dtos).Error
	if err != nil {
		return nil, err
	}

	return toDomainSlice(dtos)
}

// CountActiveByCourier returns the number of orders currently in delivery
// per courier. Couriers without active orders are absent from the map.
func (r *GormOrderRepository) CountActiveByCourier(ctx context.Context) (map[kernel.UUID]int, error) {
	rows, err := r.db.WithContext(ctx).Model(&OrderDTO{}).
		Select("courier_id, COUNT(*) AS active").
		Where("status = ? AND courier_id IS NOT NULL", order.Delivery.String()).
		Group("courier_id").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[kernel.UUID]int)
	for rows.Next() {
		var rawID []byte
		var active int
		if err = rows.Scan(&rawID, &active); err != nil {
			return nil, err
		}

		courierID, idErr := kernel.UUIDFromString(string(rawID))
		if idErr != nil {
			return nil, idErr
		}
		counts[courierID] = active
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}

func toDomainSlice(dtos []OrderDTO) ([]*order.Order, error) {
	orders := make([]*order.Order, 0, len(dtos))
	for _, dto := range dtos {
		o, err := toDomain(dto)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}

	return orders, nil
}
