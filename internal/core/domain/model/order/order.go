package order

import (
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

var (
	// ErrOrderIsNotConstructed is returned when an Order instance was not created
	// through the NewOrder or RestoreOrder factory methods.
	ErrOrderIsNotConstructed = errors.New("Order must be created via NewOrder or RestoreOrder constructor")

	// ErrInvalidTransition is returned when a requested status change is not
	// reachable from the current status, or the actor's role may not set it.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrActorForbidden is returned when a Restaurant or Courier actor does not
	// own the order it is trying to modify.
	ErrActorForbidden = errors.New("actor is not permitted to modify this order")

	// ErrCourierAlreadyAssigned is returned by Assign when the order already
	// carries a courier. Concurrent callers racing through the store-level
	// conditional write observe this as zero affected rows instead.
	ErrCourierAlreadyAssigned = errors.New("order already has a courier assigned")
)

// Order represents a delivery order in the system. It is the aggregate root that
// manages the order lifecycle from creation through dispatch and assignment to
// completion.
//
// Order follows these invariants:
//   - Must have a valid unique identifier and restaurant identifier
//   - Must contain at least one line item; the total price is the item sum
//   - Status transitions follow the forward-path-plus-Rejected state machine
//   - A courier is assigned exactly while status is Delivery or Delivered
//   - The ignoredBy set only ever grows; a courier in it is never re-offered
//   - Can only be created through NewOrder or RestoreOrder
//
// The struct uses private fields to ensure encapsulation and maintains its
// invariants through validated methods. Lifecycle boundary crossings raise
// domain events collected on the aggregate (see DomainEvent).
type Order struct {
	// id is the unique identifier for the order
	id kernel.UUID

	// restaurantID identifies the restaurant fulfilling the order
	restaurantID kernel.UUID

	// customerPhone is the ordering customer's phone number, part of the
	// duplicate-suppression correlation key
	customerPhone string

	// clientToken is an optional client-supplied token that overrides the
	// derived correlation key for duplicate suppression
	clientToken string

	// items are the order lines; never empty
	items []Item

	// totalPrice is the sum of all line totals in minor currency units
	totalPrice int64

	// status is the current state in the order lifecycle
	status Status

	// courierID is the assigned courier's ID (nil if unassigned, set at most once)
	courierID *kernel.UUID

	// ignoredBy holds couriers that refused or timed out on this order;
	// it grows monotonically and never shrinks
	ignoredBy []kernel.UUID

	// awaitingManualDispatch is set when automatic escalation exhausted the
	// eligible courier pool; surfaced to operators
	awaitingManualDispatch bool

	// createdAt is when the order was submitted
	createdAt time.Time

	// assignedAt is when a courier won the order (nil until then)
	assignedAt *time.Time

	// events holds domain events raised since the last PopEvents call
	events []DomainEvent

	// guard ensures the order was created via a constructor
	guard guard.ConstructorGuard
}

// NewOrder creates a new Order in Pending status with validation. This is the
// only way to create a fresh order, ensuring all business invariants hold.
//
// The clientToken may be empty; when present it becomes the duplicate-suppression
// correlation key instead of the derived (phone, restaurant, total) key.
// The total price is computed from the items.
func NewOrder(
	id kernel.UUID,
	restaurantID kernel.UUID,
	customerPhone string,
	clientToken string,
	items []Item,
	createdAt time.Time,
) (*Order, error) {
	o := &Order{
		status:      Pending,
		clientToken: clientToken,
		createdAt:   createdAt,
		guard:       guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		o.setID(id),
		o.setRestaurantID(restaurantID),
		o.setCustomerPhone(customerPhone),
		o.setItems(items),
	); err != nil {
		return nil, err
	}

	return o, nil
}

// RestoreOrder reconstructs an Order aggregate from persistent storage.
// Unlike NewOrder it accepts the full persisted state, including status,
// courier assignment, the ignoredBy set, and the manual-dispatch flag.
// The restored order behaves identically to one created through normal
// domain operations; no events are raised during restoration.
func RestoreOrder(
	id kernel.UUID,
	restaurantID kernel.UUID,
	customerPhone string,
	clientToken string,
	items []Item,
	status Status,
	courierID *kernel.UUID,
	ignoredBy []kernel.UUID,
	awaitingManualDispatch bool,
	createdAt time.Time,
	assignedAt *time.Time,
) (*Order, error) {
	o := &Order{
		clientToken:            clientToken,
		awaitingManualDispatch: awaitingManualDispatch,
		createdAt:              createdAt,
		assignedAt:             assignedAt,
		guard:                  guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		o.setID(id),
		o.setRestaurantID(restaurantID),
		o.setCustomerPhone(customerPhone),
		o.setItems(items),
		o.setStatus(status),
	); err != nil {
		return nil, err
	}

	if courierID != nil {
		if err := courierID.Validate(); err != nil {
			return nil, err
		}
		id := *courierID
		o.courierID = &id
	}

	if err := status.ValidateCanHaveCourier(o.courierID != nil); err != nil {
		return nil, err
	}

	o.ignoredBy = make([]kernel.UUID, len(ignoredBy))
	copy(o.ignoredBy, ignoredBy)

	return o, nil
}

// Validate ensures the Order instance was properly constructed.
func (o *Order) Validate() error {
	if o == nil {
		return ErrOrderIsNotConstructed
	}
	return o.guard.Validate(ErrOrderIsNotConstructed)
}

// IsEqual compares two orders by their unique identifiers.
func (o *Order) IsEqual(other *Order) bool {
	return other != nil && o.id.IsEqual(other.id)
}

// ID returns the order's unique identifier.
func (o *Order) ID() kernel.UUID {
	return o.id
}

// RestaurantID returns the identifier of the restaurant fulfilling the order.
func (o *Order) RestaurantID() kernel.UUID {
	return o.restaurantID
}

// CustomerPhone returns the ordering customer's phone number.
func (o *Order) CustomerPhone() string {
	return o.customerPhone
}

// ClientToken returns the client-supplied duplicate-suppression token,
// or the empty string when none was provided.
func (o *Order) ClientToken() string {
	return o.clientToken
}

// Items returns a copy of the order lines.
func (o *Order) Items() []Item {
	out := make([]Item, len(o.items))
	copy(out, o.items)
	return out
}

// TotalPrice returns the order total in minor currency units.
func (o *Order) TotalPrice() int64 {
	return o.totalPrice
}

// Status returns the current status of the order.
func (o *Order) Status() Status {
	return o.status
}

// Courier returns the assigned courier's ID, or nil if unassigned.
func (o *Order) Courier() *kernel.UUID {
	return o.courierID
}

// CreatedAt returns when the order was submitted.
func (o *Order) CreatedAt() time.Time {
	return o.createdAt
}

// AssignedAt returns when a courier won the order, or nil if unassigned.
func (o *Order) AssignedAt() *time.Time {
	return o.assignedAt
}

// TransitionTo applies a status transition requested by an actor, enforcing
// the state machine, the role permission table, and ownership.
//
// Failure modes:
//   - ErrInvalidTransition if the target is not in the actor's allowed set,
//     or is not reachable from the current status
//   - ErrActorForbidden if a Restaurant or Courier actor does not own the order
//
// On success the status changes and a domain event is raised for the
// boundaries the notification layer consumes (Ready, Delivery, Delivered).
// A transition into Delivery additionally requires a courier to already be
// assigned; assignment itself happens through Assign or the store-level
// conditional write, not through TransitionTo.
func (o *Order) TransitionTo(target Status, actor Actor, at time.Time) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if err := target.Validate(); err != nil {
		return err
	}
	if err := actor.Role().Validate(); err != nil {
		return err
	}

	if !actor.Role().MaySet(target) {
		return fmt.Errorf("%w: role %s may not set %s", ErrInvalidTransition, actor.Role(), target)
	}
	if !o.status.CanTransitionTo(target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.status, target)
	}
	if err := o.checkOwnership(actor); err != nil {
		return err
	}
	if err := target.ValidateCanHaveCourier(o.courierID != nil); err != nil {
		return fmt.Errorf("%w: %s without courier assignment", ErrInvalidTransition, target)
	}

	o.status = target
	o.raiseTransitionEvent(target, at)
	return nil
}

// Assign sets the courier and moves the order into Delivery. It is the
// in-memory counterpart of the acceptance gate's conditional write and
// enforces the same predicate: the order must be Pending, Accepted, or Ready
// and must not yet carry a courier.
//
// Returns ErrCourierAlreadyAssigned when a courier is already set. Callers
// racing through the store observe the lost race as zero affected rows and
// never reach this method.
func (o *Order) Assign(courierID kernel.UUID, at time.Time) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if err := courierID.Validate(); err != nil {
		return err
	}
	if o.courierID != nil {
		return ErrCourierAlreadyAssigned
	}
	if err := o.status.ValidateAssign(); err != nil {
		return err
	}

	o.courierID = &courierID
	o.status = Delivery
	o.assignedAt = &at
	o.awaitingManualDispatch = false
	o.raiseTransitionEvent(Delivery, at)
	return nil
}

// MarkIgnoredBy records that a courier refused or timed out on this order.
// The set grows monotonically; marking the same courier twice is a no-op.
func (o *Order) MarkIgnoredBy(courierID kernel.UUID) {
	if o.IsIgnoredBy(courierID) {
		return
	}
	o.ignoredBy = append(o.ignoredBy, courierID)
}

// IsIgnoredBy reports whether the courier previously refused or timed out
// on this order.
func (o *Order) IsIgnoredBy(courierID kernel.UUID) bool {
	for _, id := range o.ignoredBy {
		if id.IsEqual(courierID) {
			return true
		}
	}
	return false
}

// IgnoredBy returns a copy of the set of couriers that refused or timed out.
func (o *Order) IgnoredBy() []kernel.UUID {
	out := make([]kernel.UUID, len(o.ignoredBy))
	copy(out, o.ignoredBy)
	return out
}

// RequireManualDispatch flags the order for operator attention after
// automatic escalation exhausted the eligible courier pool.
func (o *Order) RequireManualDispatch() {
	o.awaitingManualDispatch = true
}

// ResetManualDispatch clears the operator flag so automatic dispatch may
// try again, typically after an operator reset or a pool change.
func (o *Order) ResetManualDispatch() {
	o.awaitingManualDispatch = false
}

// AwaitingManualDispatch reports whether the order is parked for operators.
func (o *Order) AwaitingManualDispatch() bool {
	return o.awaitingManualDispatch
}

// CorrelationKey returns the duplicate-suppression key for the order:
// the client token when present, otherwise phone, restaurant, and total
// price joined.
func (o *Order) CorrelationKey() string {
	if o.clientToken != "" {
		return o.clientToken
	}
	return fmt.Sprintf("%s|%s|%d", o.customerPhone, o.restaurantID, o.totalPrice)
}

// DuplicateLockKey hashes the correlation key into the signed 64-bit space
// used by the store's transaction-scoped advisory lock.
func (o *Order) DuplicateLockKey() int64 {
	return DuplicateLockKeyFor(o.CorrelationKey())
}

// DuplicateLockKeyFor hashes an arbitrary correlation key the same way
// DuplicateLockKey does, for callers that only have the key material.
func DuplicateLockKeyFor(correlationKey string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(correlationKey))
	return int64(h.Sum64()) //nolint:gosec // deliberate wrap into the advisory lock key space
}

// PopEvents returns the domain events raised since the last call and clears
// the aggregate's event list. Called after a successful commit so the events
// can be published fire-and-forget.
func (o *Order) PopEvents() []DomainEvent {
	events := o.events
	o.events = nil
	return events
}

// raiseTransitionEvent records the domain event matching a newly entered status.
func (o *Order) raiseTransitionEvent(target Status, at time.Time) {
	base := baseEvent{orderID: o.id, occurredAt: at}

	switch target { //nolint:exhaustive // only notification-relevant boundaries raise events
	case Ready:
		o.events = append(o.events, ReadyEvent{baseEvent: base})
	case Delivery:
		if o.courierID != nil {
			o.events = append(o.events, DeliveryStartedEvent{baseEvent: base, courierID: *o.courierID})
		}
	case Delivered:
		o.events = append(o.events, DeliveredEvent{baseEvent: base})
	}
}

// checkOwnership verifies that Restaurant and Courier actors operate on their
// own orders. Admin and System actors are exempt.
func (o *Order) checkOwnership(actor Actor) error {
	switch actor.Role() { //nolint:exhaustive // Admin and System skip ownership checks
	case RoleRestaurant:
		if !actor.ID().IsEqual(o.restaurantID) {
			return fmt.Errorf("%w: restaurant %s does not own order %s", ErrActorForbidden, actor.ID(), o.id)
		}
	case RoleCourier:
		if o.courierID == nil || !actor.ID().IsEqual(*o.courierID) {
			return fmt.Errorf("%w: courier %s is not assigned to order %s", ErrActorForbidden, actor.ID(), o.id)
		}
	}
	return nil
}

func (o *Order) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	o.id = id
	return nil
}

func (o *Order) setRestaurantID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return errs.NewValueIsRequiredErrorWithCause("restaurant id", err)
	}
	o.restaurantID = id
	return nil
}

func (o *Order) setCustomerPhone(phone string) error {
	if phone == "" {
		return errs.NewValueIsRequiredError("customer phone")
	}
	o.customerPhone = phone
	return nil
}

func (o *Order) setItems(items []Item) error {
	if len(items) == 0 {
		return errs.NewValueIsRequiredError("order items")
	}

	o.items = make([]Item, len(items))
	copy(o.items, items)

	var total int64
	for _, item := range o.items {
		total += item.Total()
	}
	o.totalPrice = total
	return nil
}

func (o *Order) setStatus(status Status) error {
	if err := status.Validate(); err != nil {
		return err
	}
	o.status = status
	return nil
}
