package commands

import (
	"errors"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/guard"
)

var ErrRefuseOrderCommandIsNotConstructed = errors.New(
	"RefuseOrderCommand must be created via NewRefuseOrderCommand constructor",
)

// RefuseOrderCommand represents a courier explicitly declining an offered
// order. Refusal is permanent for that order: the courier joins its ignored
// set and is never offered it again.
type RefuseOrderCommand struct { //nolint:recvcheck //using for validation
	orderID   kernel.UUID
	courierID kernel.UUID

	guard guard.ConstructorGuard
}

// NewRefuseOrderCommand creates a command for a courier to decline an order.
func NewRefuseOrderCommand(orderID, courierID kernel.UUID) (RefuseOrderCommand, error) {
	refuseCommand := RefuseOrderCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		refuseCommand.setOrderID(orderID),
		refuseCommand.setCourierID(courierID),
	); err != nil {
		return RefuseOrderCommand{}, err
	}

	return refuseCommand, nil
}

// Validate ensures the command was created through the constructor.
// Returns ErrRefuseOrderCommandIsNotConstructed if validation fails.
func (c RefuseOrderCommand) Validate() error {
	return c.guard.Validate(ErrRefuseOrderCommandIsNotConstructed)
}

// OrderID returns the identifier of the declined order.
func (c RefuseOrderCommand) OrderID() kernel.UUID {
	return c.orderID
}

// CourierID returns the identifier of the declining courier.
func (c RefuseOrderCommand) CourierID() kernel.UUID {
	return c.courierID
}

func (c *RefuseOrderCommand) setOrderID(orderID kernel.UUID) error {
	if err := orderID.Validate(); err != nil {
		return err
	}

	c.orderID = orderID
	return nil
}

func (c *RefuseOrderCommand) setCourierID(courierID kernel.UUID) error {
	if err := courierID.Validate(); err != nil {
		return err
	}

	c.courierID = courierID
	return nil
}
