package commands_test

import (
	"testing"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/domain/model/kernel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRefuseOrderCommand_Valid(t *testing.T) {
	orderID := kernel.NewUUID()
	courierID := kernel.NewUUID()

	command, err := commands.NewRefuseOrderCommand(orderID, courierID)

	require.NoError(t, err)
	require.NoError(t, command.Validate())
	assert.True(t, command.OrderID().IsEqual(orderID))
	assert.True(t, command.CourierID().IsEqual(courierID))
}

func TestNewRefuseOrderCommand_ZeroOrderID(t *testing.T) {
	var zero kernel.UUID

	_, err := commands.NewRefuseOrderCommand(zero, kernel.NewUUID())

	require.Error(t, err)
}

func TestNewRefuseOrderCommand_ZeroCourierID(t *testing.T) {
	var zero kernel.UUID

	_, err := commands.NewRefuseOrderCommand(kernel.NewUUID(), zero)

	require.Error(t, err)
}

func TestRefuseOrderCommand_NotConstructedViaConstructor(t *testing.T) {
	command := commands.RefuseOrderCommand{}

	err := command.Validate()

	require.Error(t, err)
	assert.ErrorIs(t, err, commands.ErrRefuseOrderCommandIsNotConstructed)
}
