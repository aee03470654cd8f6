package commands

import (
	"context"

	"dispatch/internal/core/domain/model/courier"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/clock"
)

// CreateCourierCommandHandler handles courier registration.
//
// Example:
//
//	handler := NewCreateCourierCommandHandler(uowFactory, clock.NewSystem())
//	cmd, _ := NewCreateCourierCommand("Sam")
//	courierID, err := handler.Handle(ctx, cmd)
type CreateCourierCommandHandler struct {
	uowFactory CourierUoWFactory
	clock      clock.Clock
}

// NewCreateCourierCommandHandler creates a handler for courier registration.
func NewCreateCourierCommandHandler(uowFactory CourierUoWFactory, clk clock.Clock) CreateCourierCommandHandler {
	return CreateCourierCommandHandler{
		uowFactory: uowFactory,
		clock:      clk,
	}
}

// Handle registers a new courier and returns its generated identifier.
func (h CreateCourierCommandHandler) Handle(ctx context.Context, cmd CreateCourierCommand) (kernel.UUID, error) {
	if err := cmd.Validate(); err != nil {
		return kernel.UUID{}, err
	}

	aggregate, err := courier.NewCourier(kernel.NewUUID(), cmd.Name(), h.clock.Now())
	if err != nil {
		return kernel.UUID{}, err
	}

	uow := h.uowFactory.Create()
	if err = uow.Begin(ctx); err != nil {
		return kernel.UUID{}, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	if err = uow.CourierRepository().Add(ctx, aggregate); err != nil {
		return kernel.UUID{}, err
	}

	if err = uow.Commit(ctx); err != nil {
		return kernel.UUID{}, err
	}

	return aggregate.ID(), nil
}
