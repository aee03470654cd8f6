package commands

import (
	"context"
	"time"

	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/clock"
)

// UpdateOrderStatusCommandHandler applies actor-requested status transitions.
// The aggregate rejects unreachable transitions, forbidden roles, and actors
// that do not own the order; the handler owns the transaction and the
// post-commit side effects.
//
// Events raised by the transition are published after commit, fire-and-forget.
// A terminal transition additionally clears any in-flight dispatch state so
// pending offers cannot resurrect a closed order. Reaching Delivered also
// releases the courier: the engagement clock moves forward and a courier with
// no remaining active deliveries returns to Available.
//
// Example:
//
//	handler := NewUpdateOrderStatusCommandHandler(uowFactory, publisher, canceler, clock.NewSystem())
//	updated, err := handler.Handle(ctx, cmd)
//	switch {
//	case errors.Is(err, order.ErrInvalidTransition):
//	    // 409 for the caller
//	case errors.Is(err, order.ErrActorForbidden):
//	    // 403 for the caller
//	}
type UpdateOrderStatusCommandHandler struct {
	uowFactory OrderCourierUoWFactory
	publisher  ports.EventPublisher
	canceler   DispatchCanceler
	clock      clock.Clock
}

// NewUpdateOrderStatusCommandHandler creates a handler for status transitions.
func NewUpdateOrderStatusCommandHandler(
	uowFactory OrderCourierUoWFactory,
	publisher ports.EventPublisher,
	canceler DispatchCanceler,
	clk clock.Clock,
) UpdateOrderStatusCommandHandler {
	return UpdateOrderStatusCommandHandler{
		uowFactory: uowFactory,
		publisher:  publisher,
		canceler:   canceler,
		clock:      clk,
	}
}

// Handle processes the status update command.
// Loads the order, applies the transition through the aggregate, and persists
// the result. Domain errors from the aggregate pass through unwrapped so the
// transport layer can map them to response codes.
func (h UpdateOrderStatusCommandHandler) Handle(
	ctx context.Context,
	cmd UpdateOrderStatusCommand,
) (*order.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	orderRepo := uow.OrderRepository()

	aggregate, err := orderRepo.Get(ctx, cmd.OrderID())
	if err != nil {
		return nil, err
	}

	now := h.clock.Now()

	if err = aggregate.TransitionTo(cmd.Target(), cmd.Actor(), now); err != nil {
		return nil, err
	}

	if err = orderRepo.Update(ctx, aggregate); err != nil {
		return nil, err
	}

	if cmd.Target() == order.Delivered {
		if err = h.releaseCourier(ctx, uow, aggregate, now); err != nil {
			return nil, err
		}
	}

	if err = uow.Commit(ctx); err != nil {
		return nil, err
	}

	if cmd.Target().IsTerminal() && h.canceler != nil {
		h.canceler.OrderClosed(aggregate.ID())
	}

	h.publishEvents(ctx, aggregate)

	return aggregate, nil
}

// releaseCourier updates the delivering courier after a completed delivery:
// the engagement clock moves to now, and a courier with no remaining active
// deliveries returns to Available. Idle ranking counts time since the last
// completion or offer, so completing a job must reset the clock.
func (h UpdateOrderStatusCommandHandler) releaseCourier(
	ctx context.Context,
	uow OrderCourierUoW,
	aggregate *order.Order,
	now time.Time,
) error {
	courierID := aggregate.Courier()
	if courierID == nil {
		return nil
	}

	courierRepo := uow.CourierRepository()
	deliverer, err := courierRepo.Get(ctx, *courierID)
	if err != nil {
		return err
	}

	deliverer.TouchEngaged(now)

	// The count runs inside the transaction, so the just-delivered order is
	// already excluded from the courier's active set.
	active, err := uow.OrderRepository().CountActiveByCourier(ctx)
	if err != nil {
		return err
	}
	if active[*courierID] == 0 {
		deliverer.MarkAvailable(now)
	}

	return courierRepo.Update(ctx, deliverer)
}

// publishEvents hands raised events to the publisher without blocking the
// caller. Publish failures never surface; the transition already committed.
func (h UpdateOrderStatusCommandHandler) publishEvents(ctx context.Context, aggregate *order.Order) {
	events := aggregate.PopEvents()
	if len(events) == 0 || h.publisher == nil {
		return
	}

	detached := context.WithoutCancel(ctx)
	go func() {
		for _, event := range events {
			_ = h.publisher.Publish(detached, event)
		}
	}()
}
