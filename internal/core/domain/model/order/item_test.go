package order_test

import (
	"testing"

	"dispatch/internal/core/domain/model/order"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewItem(t *testing.T) {
	t.Run("should create valid item", func(t *testing.T) {
		item, err := order.NewItem("Pad Thai", 1250, 2)

		require.NoError(t, err)
		assert.Equal(t, "Pad Thai", item.Name())
		assert.Equal(t, int64(1250), item.UnitPrice())
		assert.Equal(t, 2, item.Quantity())
		assert.Equal(t, int64(2500), item.Total())
	})

	t.Run("should allow zero unit price", func(t *testing.T) {
		item, err := order.NewItem("Free sauce", 0, 1)

		require.NoError(t, err)
		assert.Equal(t, int64(0), item.Total())
	})

	t.Run("should fail with empty name", func(t *testing.T) {
		_, err := order.NewItem("", 500, 1)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "item name")
	})

	t.Run("should fail with negative unit price", func(t *testing.T) {
		_, err := order.NewItem("Soup", -100, 1)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "item unit price")
		assert.Contains(t, err.Error(), "-100 is negative")
	})

	t.Run("should fail with zero quantity", func(t *testing.T) {
		_, err := order.NewItem("Soup", 100, 0)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "item quantity")
		assert.Contains(t, err.Error(), "0 is not greater than 0")
	})

	t.Run("should handle multiple validation errors", func(t *testing.T) {
		_, err := order.NewItem("", -1, -1)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "item name")
		assert.Contains(t, err.Error(), "item unit price")
		assert.Contains(t, err.Error(), "item quantity")
	})
}
