package commands

import (
	"context"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/clock"
)

// CreateOrderResult reports the outcome of an order creation attempt.
// When Duplicate is true no new order was persisted and OrderID refers to
// the previously accepted order sharing the same correlation key.
type CreateOrderResult struct {
	OrderID    kernel.UUID
	TotalPrice int64
	Duplicate  bool
}

// CreateOrderCommandHandler handles the business logic for order creation,
// including the duplicate-order guard.
//
// Two submissions are duplicates when they share a correlation key (client
// token, or derived phone/restaurant/total key) within the suppression
// window. Concurrent submissions are serialized on a store-level advisory
// lock keyed by the hashed correlation key, so exactly one of two identical
// simultaneous requests creates an order and the other observes it.
//
// Example:
//
//	handler := NewCreateOrderCommandHandler(uowFactory, clock.NewSystem(), 10*time.Second)
//	result, err := handler.Handle(ctx, cmd)
//	if err != nil {
//	    return fmt.Errorf("order creation failed: %w", err)
//	}
//	// result.OrderID now awaits courier dispatch (or points at the original)
type CreateOrderCommandHandler struct {
	uowFactory  OrderUoWFactory
	clock       clock.Clock
	dedupWindow time.Duration
}

// NewCreateOrderCommandHandler creates a handler for order creation operations.
// Requires an OrderUoWFactory for transactional persistence, a clock, and the
// duplicate-suppression window applied to derived correlation keys.
func NewCreateOrderCommandHandler(
	uowFactory OrderUoWFactory,
	clk clock.Clock,
	dedupWindow time.Duration,
) CreateOrderCommandHandler {
	return CreateOrderCommandHandler{
		uowFactory:  uowFactory,
		clock:       clk,
		dedupWindow: dedupWindow,
	}
}

// Handle processes the order creation command.
//
// The candidate aggregate is built first so its correlation key exists before
// any store interaction. Inside the transaction the handler takes the advisory
// lock for that key, looks for a prior order within the suppression window,
// and either reports the duplicate or persists the candidate. The lock is
// released with the transaction.
func (h *CreateOrderCommandHandler) Handle(ctx context.Context, cmd CreateOrderCommand) (CreateOrderResult, error) {
	if err := cmd.Validate(); err != nil {
		return CreateOrderResult{}, err
	}

	now := h.clock.Now()
	candidate, err := order.NewOrder(
		cmd.OrderID(),
		cmd.RestaurantID(),
		cmd.CustomerPhone(),
		cmd.ClientToken(),
		cmd.Items(),
		now,
	)
	if err != nil {
		return CreateOrderResult{}, err
	}

	uow := h.uowFactory.Create()
	if err = uow.Begin(ctx); err != nil {
		return CreateOrderResult{}, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	if err = uow.AdvisoryLock(ctx, candidate.DuplicateLockKey()); err != nil {
		return CreateOrderResult{}, err
	}

	orderRepo := uow.OrderRepository()

	existing, err := orderRepo.FindDuplicateOf(ctx, candidate, now.Add(-h.dedupWindow))
	if err != nil {
		return CreateOrderResult{}, err
	}
	if existing != nil {
		return CreateOrderResult{
			OrderID:    existing.ID(),
			TotalPrice: existing.TotalPrice(),
			Duplicate:  true,
		}, nil
	}

	if err = orderRepo.Add(ctx, candidate); err != nil {
		return CreateOrderResult{}, err
	}

	if err = uow.Commit(ctx); err != nil {
		return CreateOrderResult{}, err
	}

	return CreateOrderResult{
		OrderID:    candidate.ID(),
		TotalPrice: candidate.TotalPrice(),
	}, nil
}
