package commands

import (
	"context"
)

// RefuseOrderResult reports what happened after a courier declined an order.
type RefuseOrderResult struct {
	// Escalated is true when the offer moved on to another courier, false
	// when the pool was exhausted and the order was parked for operators.
	Escalated bool
}

// RefuseOrderCommandHandler records an explicit courier refusal and advances
// the escalation chain. The heavy lifting lives in the dispatch coordinator,
// which owns the offer state and timers; the handler validates the request
// and translates the coordinator's answer.
type RefuseOrderCommandHandler struct {
	escalator OfferEscalator
}

// NewRefuseOrderCommandHandler creates a handler for courier refusals.
func NewRefuseOrderCommandHandler(escalator OfferEscalator) RefuseOrderCommandHandler {
	return RefuseOrderCommandHandler{
		escalator: escalator,
	}
}

// Handle processes the refusal. The coordinator marks the courier ignored,
// cancels the pending timer, and immediately offers the order to the next
// eligible courier, if any.
func (h RefuseOrderCommandHandler) Handle(ctx context.Context, cmd RefuseOrderCommand) (RefuseOrderResult, error) {
	if err := cmd.Validate(); err != nil {
		return RefuseOrderResult{}, err
	}

	escalated, err := h.escalator.Refuse(ctx, cmd.OrderID(), cmd.CourierID())
	if err != nil {
		return RefuseOrderResult{}, err
	}

	return RefuseOrderResult{Escalated: escalated}, nil
}
