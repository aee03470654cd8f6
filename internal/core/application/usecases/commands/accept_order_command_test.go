package commands_test

import (
	"testing"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/domain/model/kernel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAcceptOrderCommand_Success(t *testing.T) {
	orderID := kernel.NewUUID()
	courierID := kernel.NewUUID()

	cmd, err := commands.NewAcceptOrderCommand(orderID, courierID, "retry-1")

	require.NoError(t, err)
	assert.NoError(t, cmd.Validate())
	assert.True(t, cmd.OrderID().IsEqual(orderID))
	assert.True(t, cmd.CourierID().IsEqual(courierID))
	assert.Equal(t, "retry-1", cmd.IdempotencyKey())
}

func TestNewAcceptOrderCommand_EmptyKeyIsAllowed(t *testing.T) {
	cmd, err := commands.NewAcceptOrderCommand(kernel.NewUUID(), kernel.NewUUID(), "")

	require.NoError(t, err)
	assert.Empty(t, cmd.IdempotencyKey())
}

func TestNewAcceptOrderCommand_ValidationErrors(t *testing.T) {
	_, err := commands.NewAcceptOrderCommand(kernel.UUID{}, kernel.NewUUID(), "")
	require.Error(t, err)

	_, err = commands.NewAcceptOrderCommand(kernel.NewUUID(), kernel.UUID{}, "")
	require.Error(t, err)
}

func TestAcceptOrderCommand_Validate_NotConstructed(t *testing.T) {
	var cmd commands.AcceptOrderCommand
	require.ErrorIs(t, cmd.Validate(), commands.ErrAcceptOrderCommandIsNotConstructed)
}
