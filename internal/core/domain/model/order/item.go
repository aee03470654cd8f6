package order

import (
	"errors"
	"fmt"

	"dispatch/internal/pkg/errs"
)

// Item is a value object describing one line of an order: a named product,
// its unit price in minor currency units, and a quantity. Items are created
// together with the order and persisted in the same transaction.
type Item struct {
	name      string
	unitPrice int64
	quantity  int
}

// NewItem creates a validated order line.
// The name must be non-empty, the unit price non-negative, and the
// quantity positive.
func NewItem(name string, unitPrice int64, quantity int) (Item, error) {
	var item Item

	if err := errors.Join(
		item.setName(name),
		item.setUnitPrice(unitPrice),
		item.setQuantity(quantity),
	); err != nil {
		return Item{}, err
	}

	return item, nil
}

// Name returns the product name of the line.
func (i Item) Name() string {
	return i.name
}

// UnitPrice returns the price of a single unit in minor currency units.
func (i Item) UnitPrice() int64 {
	return i.unitPrice
}

// Quantity returns how many units the line covers.
func (i Item) Quantity() int {
	return i.quantity
}

// Total returns the line total: unit price times quantity.
func (i Item) Total() int64 {
	return i.unitPrice * int64(i.quantity)
}

func (i *Item) setName(name string) error {
	if name == "" {
		return errs.NewValueIsRequiredError("item name")
	}
	i.name = name
	return nil
}

func (i *Item) setUnitPrice(unitPrice int64) error {
	if unitPrice < 0 {
		return errs.NewValueIsInvalidErrorWithCause("item unit price",
			fmt.Errorf("%d is negative", unitPrice))
	}
	i.unitPrice = unitPrice
	return nil
}

func (i *Item) setQuantity(quantity int) error {
	if quantity <= 0 {
		return errs.NewValueIsInvalidErrorWithCause("item quantity",
			fmt.Errorf("%d is not greater than 0", quantity))
	}
	i.quantity = quantity
	return nil
}
