package commands

import (
	"errors"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/guard"
)

var ErrAcceptOrderCommandIsNotConstructed = errors.New(
	"AcceptOrderCommand must be created via NewAcceptOrderCommand constructor",
)

// AcceptOrderCommand represents a courier's attempt to claim an order.
// Any number of couriers may race this command for the same order; the
// handler resolves the race through a single store-level conditional write.
//
// The idempotency key is optional. When present, a retry with the same key
// and the same order/courier pair replays the stored outcome byte for byte
// instead of re-running the acceptance protocol.
//
// Example:
//
//	cmd, err := NewAcceptOrderCommand(orderID, courierID, req.Header.Get("Idempotency-Key"))
//	if err != nil {
//	    return fmt.Errorf("invalid acceptance request: %w", err)
//	}
//
//	handler := NewAcceptOrderCommandHandler(uowFactory, canceler, clock, maxActive)
//	result, err := handler.Handle(ctx, cmd)
//	if err == nil && !result.Assigned {
//	    // another courier won; respond with a neutral "already taken"
//	}
type AcceptOrderCommand struct { //nolint:recvcheck //using for validation
	orderID        kernel.UUID
	courierID      kernel.UUID
	idempotencyKey string

	guard guard.ConstructorGuard
}

// NewAcceptOrderCommand creates a command for a courier to claim an order.
// Validates both identifiers; the idempotency key may be empty.
func NewAcceptOrderCommand(orderID, courierID kernel.UUID, idempotencyKey string) (AcceptOrderCommand, error) {
	acceptCommand := AcceptOrderCommand{
		idempotencyKey: idempotencyKey,
		guard:          guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		acceptCommand.setOrderID(orderID),
		acceptCommand.setCourierID(courierID),
	); err != nil {
		return AcceptOrderCommand{}, err
	}

	return acceptCommand, nil
}

// Validate ensures the command was created through the constructor.
// Returns ErrAcceptOrderCommandIsNotConstructed if validation fails.
func (c AcceptOrderCommand) Validate() error {
	return c.guard.Validate(ErrAcceptOrderCommandIsNotConstructed)
}

// OrderID returns the identifier of the order being claimed.
func (c AcceptOrderCommand) OrderID() kernel.UUID {
	return c.orderID
}

// CourierID returns the identifier of the claiming courier.
func (c AcceptOrderCommand) CourierID() kernel.UUID {
	return c.courierID
}

// IdempotencyKey returns the client-supplied retry token, or the empty string.
func (c AcceptOrderCommand) IdempotencyKey() string {
	return c.idempotencyKey
}

func (c *AcceptOrderCommand) setOrderID(orderID kernel.UUID) error {
	if err := orderID.Validate(); err != nil {
		return err
	}

	c.orderID = orderID
	return nil
}

func (c *AcceptOrderCommand) setCourierID(courierID kernel.UUID) error {
	if err := courierID.Validate(); err != nil {
		return err
	}

	c.courierID = courierID
	return nil
}
