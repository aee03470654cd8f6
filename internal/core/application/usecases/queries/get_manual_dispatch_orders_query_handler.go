package queries

import (
	"context"

	"dispatch/internal/core/domain/model/kernel"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GetManualDispatchOrdersQueryHandler retrieves orders flagged for manual
// dispatch from the database, oldest first so operators work the backlog
// in submission order.
type GetManualDispatchOrdersQueryHandler struct {
	db *gorm.DB
}

// NewGetManualDispatchOrdersQueryHandler creates a handler for the operator
// backlog query. Requires a GORM database connection for query execution.
func NewGetManualDispatchOrdersQueryHandler(db *gorm.DB) GetManualDispatchOrdersQueryHandler {
	return GetManualDispatchOrdersQueryHandler{db: db}
}

// Handle executes the query to retrieve all orders awaiting manual dispatch.
// Only unassigned orders carry the flag; it is cleared on assignment.
func (h GetManualDispatchOrdersQueryHandler) Handle(
	ctx context.Context,
	query GetManualDispatchOrdersQuery,
) ([]GetManualDispatchOrdersQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	orders := make([]GetManualDispatchOrdersQueryResponse, 0)

	rows, err := h.db.WithContext(ctx).Raw(`
		SELECT
			id,
			restaurant_id,
			customer_phone,
			total_price,
			created_at
		FROM orders
		WHERE awaiting_manual_dispatch AND courier_id IS NULL
		ORDER BY created_at
	`).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var orderResp GetManualDispatchOrdersQueryResponse
		var id, restaurantID uuid.UUID

		err = rows.Scan(
			&id,
			&restaurantID,
			&orderResp.CustomerPhone,
			&orderResp.TotalPrice,
			&orderResp.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		orderID, idErr := kernel.UUIDFromBytes(id[:])
		if idErr != nil {
			return nil, idErr
		}
		orderResp.ID = orderID

		restID, idErr := kernel.UUIDFromBytes(restaurantID[:])
		if idErr != nil {
			return nil, idErr
		}
		orderResp.RestaurantID = restID

		orders = append(orders, orderResp)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}
