// Package orderrepo provides data transfer objects and mapping functions for order persistence.
// This package implements the repository pattern for the order domain aggregate, handling
// the conversion between domain entities and database representations.
package orderrepo

import (
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// OrderDTO represents the database structure for persisting order aggregates.
// Status is stored by name rather than ordinal so rows stay readable and the
// enum can grow without renumbering. The ignored courier set is a text array;
// it only ever grows, so array semantics are sufficient.
type OrderDTO struct {
	ID                     uuid.UUID      `gorm:"type:uuid;primaryKey"`
	RestaurantID           uuid.UUID      `gorm:"type:uuid;index"`
	CustomerPhone          string         `gorm:"index"`
	ClientToken            string         `gorm:"index"`
	CourierID              *uuid.UUID     `gorm:"type:uuid;index"`
	TotalPrice             int64          ``
	Status                 string         `gorm:"index"`
	IgnoredBy              pq.StringArray `gorm:"type:text[]"`
	AwaitingManualDispatch bool           `gorm:"index"`
	CreatedAt              time.Time      `gorm:"index"`
	AssignedAt             *time.Time     ``
	Items                  []ItemDTO      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the database table name for order entities.
// Overrides GORM's default naming convention to use "orders".
func (OrderDTO) TableName() string {
	return "orders"
}

// ItemDTO represents one persisted order line. Lines are written together
// with their order and never modified afterward.
type ItemDTO struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	OrderID   uuid.UUID `gorm:"type:uuid;index"`
	Name      string    ``
	UnitPrice int64     ``
	Quantity  int       ``
}

// TableName specifies the database table name for order line entities.
func (ItemDTO) TableName() string {
	return "order_items"
}

// fromDomain converts an order domain aggregate to its database representation.
func fromDomain(aggregate *order.Order) OrderDTO {
	var courierID *uuid.UUID
	if id := aggregate.Courier(); id != nil {
		raw := id.Bytes()
		courierID = &raw
	}

	ignored := aggregate.IgnoredBy()
	ignoredBy := make(pq.StringArray, 0, len(ignored))
	for _, id := range ignored {
		ignoredBy = append(ignoredBy, id.String())
	}

	items := aggregate.Items()
	itemDTOs := make([]ItemDTO, 0, len(items))
	for _, item := range items {
		itemDTOs = append(itemDTOs, ItemDTO{
			OrderID:   aggregate.ID().Bytes(),
			Name:      item.Name(),
			UnitPrice: item.UnitPrice(),
			Quantity:  item.Quantity(),
		})
	}

	return OrderDTO{
		ID:                     aggregate.ID().Bytes(),
		RestaurantID:           aggregate.RestaurantID().Bytes(),
		CustomerPhone:          aggregate.CustomerPhone(),
		ClientToken:            aggregate.ClientToken(),
		CourierID:              courierID,
		TotalPrice:             aggregate.TotalPrice(),
		Status:                 aggregate.Status().String(),
		IgnoredBy:              ignoredBy,
		AwaitingManualDispatch: aggregate.AwaitingManualDispatch(),
		CreatedAt:              aggregate.CreatedAt(),
		AssignedAt:             aggregate.AssignedAt(),
		Items:                  itemDTOs,
	}
}

// toDomain converts a database DTO to an order domain aggregate.
// Reconstructs the complete aggregate including status, courier assignment,
// and the ignored courier set using RestoreOrder.
func toDomain(dto OrderDTO) (*order.Order, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}

	restaurantID, err := kernel.UUIDFromBytes(dto.RestaurantID[:])
	if err != nil {
		return nil, err
	}

	var courierID *kernel.UUID
	if dto.CourierID != nil {
		cID, courierErr := kernel.UUIDFromBytes((*dto.CourierID)[:])
		if courierErr != nil {
			return nil, courierErr
		}

		courierID = &cID
	}

	status, err := order.StatusFromString(dto.Status)
	if err != nil {
		return nil, err
	}

	ignoredBy := make([]kernel.UUID, 0, len(dto.IgnoredBy))
	for _, raw := range dto.IgnoredBy {
		ignoredID, ignoredErr := kernel.UUIDFromString(raw)
		if ignoredErr != nil {
			return nil, ignoredErr
		}
		ignoredBy = append(ignoredBy, ignoredID)
	}

	items := make([]order.Item, 0, len(dto.Items))
	for _, itemDTO := range dto.Items {
		item, itemErr := order.NewItem(itemDTO.Name, itemDTO.UnitPrice, itemDTO.Quantity)
		if itemErr != nil {
			return nil, itemErr
		}
		items = append(items, item)
	}

	return order.RestoreOrder(
		id,
		restaurantID,
		dto.CustomerPhone,
		dto.ClientToken,
		items,
		status,
		courierID,
		ignoredBy,
		dto.AwaitingManualDispatch,
		dto.CreatedAt,
		dto.AssignedAt,
	)
}
