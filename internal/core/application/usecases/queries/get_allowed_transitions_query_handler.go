package queries

import (
	"context"
	"database/sql"
	"errors"

	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/errs"

	"gorm.io/gorm"
)

// GetAllowedTransitionsQueryHandler answers which statuses an order can
// reach from its current one. Reads the status directly from the database;
// the transition rules themselves live on the Status value object.
//
// Example:
//
//	handler := NewGetAllowedTransitionsQueryHandler(db)
//	resp, err := handler.Handle(ctx, query)
//	if errors.Is(err, errs.ErrObjectNotFound) {
//	    // 404 for the caller
//	}
type GetAllowedTransitionsQueryHandler struct {
	db *gorm.DB
}

// NewGetAllowedTransitionsQueryHandler creates a handler for transition queries.
// Requires a GORM database connection for query execution.
func NewGetAllowedTransitionsQueryHandler(db *gorm.DB) GetAllowedTransitionsQueryHandler {
	return GetAllowedTransitionsQueryHandler{db: db}
}

// Handle executes the query. Returns errs.ErrObjectNotFound (wrapped) when
// the order does not exist.
func (h GetAllowedTransitionsQueryHandler) Handle(
	ctx context.Context,
	query GetAllowedTransitionsQuery,
) (GetAllowedTransitionsQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return GetAllowedTransitionsQueryResponse{}, err
	}

	var statusName string
	row := h.db.WithContext(ctx).Raw(`
		SELECT status
		FROM orders
		WHERE id = ?
	`, query.OrderID().Bytes()).Row()

	if err := row.Scan(&statusName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return GetAllowedTransitionsQueryResponse{},
				errs.NewObjectNotFoundError("order", query.OrderID())
		}
		return GetAllowedTransitionsQueryResponse{}, err
	}

	status, err := order.StatusFromString(statusName)
	if err != nil {
		return GetAllowedTransitionsQueryResponse{}, err
	}

	allowed := status.AllowedTransitions()
	names := make([]string, 0, len(allowed))
	for _, target := range allowed {
		names = append(names, target.String())
	}

	return GetAllowedTransitionsQueryResponse{
		OrderID: query.OrderID(),
		Current: status.String(),
		Allowed: names,
	}, nil
}
