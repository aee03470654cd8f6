// Package queries contains read-only operations implementing the query side
// of the CQRS architecture. Query handlers bypass the domain aggregates and
// read directly from the database for performance.
package queries

import (
	"errors"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/guard"
)

var ErrGetAllowedTransitionsQueryIsNotConstructed = errors.New(
	"GetAllowedTransitionsQuery must be created via NewGetAllowedTransitionsQuery constructor",
)

// GetAllowedTransitionsQuery asks which statuses an order can move to from
// its current one. The answer reflects the state machine only; whether a
// particular caller may perform a given transition is decided at write time
// by the role permission table.
//
// Example:
//
//	query, err := NewGetAllowedTransitionsQuery(orderID)
//	if err != nil {
//	    return err
//	}
//	handler := NewGetAllowedTransitionsQueryHandler(db)
//	resp, err := handler.Handle(ctx, query)
//	// resp.Allowed is e.g. ["Accepted", "Rejected"] for a Pending order
type GetAllowedTransitionsQuery struct { //nolint:recvcheck //using for validation
	orderID kernel.UUID

	guard guard.ConstructorGuard
}

// NewGetAllowedTransitionsQuery creates a query for an order's reachable statuses.
func NewGetAllowedTransitionsQuery(orderID kernel.UUID) (GetAllowedTransitionsQuery, error) {
	if err := orderID.Validate(); err != nil {
		return GetAllowedTransitionsQuery{}, err
	}

	return GetAllowedTransitionsQuery{
		orderID: orderID,
		guard:   guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the query was created through the constructor.
// Returns ErrGetAllowedTransitionsQueryIsNotConstructed if validation fails.
func (q GetAllowedTransitionsQuery) Validate() error {
	return q.guard.Validate(ErrGetAllowedTransitionsQueryIsNotConstructed)
}

// OrderID returns the identifier of the queried order.
func (q GetAllowedTransitionsQuery) OrderID() kernel.UUID {
	return q.orderID
}

// GetAllowedTransitionsQueryResponse carries the current status and the
// statuses reachable from it. Allowed is empty for terminal orders.
type GetAllowedTransitionsQueryResponse struct {
	OrderID kernel.UUID
	Current string
	Allowed []string
}
