package queries

import (
	"errors"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/guard"
)

var ErrGetManualDispatchOrdersQueryIsNotConstructed = errors.New(
	"GetManualDispatchOrdersQuery must be created via NewGetManualDispatchOrdersQuery constructor",
)

// GetManualDispatchOrdersQuery retrieves orders parked for operator attention
// after automatic escalation exhausted the eligible courier pool.
//
// Example:
//
//	query := NewGetManualDispatchOrdersQuery()
//	handler := NewGetManualDispatchOrdersQueryHandler(db)
//	parked, err := handler.Handle(ctx, query)
type GetManualDispatchOrdersQuery struct {
	guard guard.ConstructorGuard
}

// NewGetManualDispatchOrdersQuery creates a query for operator-parked orders.
// This is a parameterless query.
func NewGetManualDispatchOrdersQuery() GetManualDispatchOrdersQuery {
	return GetManualDispatchOrdersQuery{guard: guard.NewConstructorGuard()}
}

// Validate ensures the query was created through the constructor.
// Returns ErrGetManualDispatchOrdersQueryIsNotConstructed if validation fails.
func (q GetManualDispatchOrdersQuery) Validate() error {
	return q.guard.Validate(ErrGetManualDispatchOrdersQueryIsNotConstructed)
}

// GetManualDispatchOrdersQueryResponse represents one order awaiting manual
// dispatch, with the fields an operator needs to act on it.
type GetManualDispatchOrdersQueryResponse struct {
	ID            kernel.UUID
	RestaurantID  kernel.UUID
	CustomerPhone string
	TotalPrice    int64
	CreatedAt     time.Time
}
