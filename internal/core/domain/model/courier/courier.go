package courier

import (
	"errors"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

// Domain errors for courier operations.
var (
	// ErrNameIsRequired is returned when attempting to create a courier without a name.
	ErrNameIsRequired = errs.NewValueIsRequiredError("name")
	// ErrCourierIsNotConstructed is returned when using an improperly initialized Courier.
	ErrCourierIsNotConstructed = errors.New("Courier must be created via NewCourier constructor")
)

// Courier represents a delivery worker competing for orders. It is an
// aggregate root managing courier identity, duty status, and the engagement
// clock that drives fair dispatch ranking.
//
// Business rules:
//   - A courier must have a valid UUID and a non-empty name
//   - Only Available or Busy couriers receive dispatch offers
//   - A courier at the MaxActiveOrders cap is ineligible even when Available;
//     the cap itself is a dispatch policy, not aggregate state
//   - The engagement clock (lastEngagedAt) is touched whenever the courier is
//     offered a job or completes one; a courier with no history ranks as
//     infinitely idle and is preferred by the fairness policy
type Courier struct {
	// id uniquely identifies the courier
	id kernel.UUID
	// name is the human-readable name of the courier
	name string
	// status is the courier's duty state
	status Status
	// lastEngagedAt is when the courier was last offered or completed a job;
	// nil means never (infinite idle time)
	lastEngagedAt *time.Time
	// lastSeen is when the courier last reported in
	lastSeen time.Time
	// guard ensures the courier was properly constructed
	guard guard.ConstructorGuard
}

// NewCourier creates a new Courier in Available status.
// This is the only way to create a valid fresh Courier instance; the
// engagement clock starts empty so new couriers rank first for offers.
func NewCourier(id kernel.UUID, name string, now time.Time) (*Courier, error) {
	c := &Courier{
		status:   Available,
		lastSeen: now,
		guard:    guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		c.setID(id),
		c.setName(name),
	); err != nil {
		return nil, err
	}

	return c, nil
}

// RestoreCourier reconstructs a Courier aggregate from persistent storage,
// including its duty status and engagement clock. The restored courier
// behaves identically to one created through normal domain operations.
func RestoreCourier(
	id kernel.UUID,
	name string,
	status Status,
	lastEngagedAt *time.Time,
	lastSeen time.Time,
) (*Courier, error) {
	c := &Courier{
		lastSeen: lastSeen,
		guard:    guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		c.setID(id),
		c.setName(name),
		c.setStatus(status),
	); err != nil {
		return nil, err
	}

	if lastEngagedAt != nil {
		t := *lastEngagedAt
		c.lastEngagedAt = &t
	}

	return c, nil
}

// IsEqual compares two couriers by their unique identifiers.
func (c *Courier) IsEqual(other *Courier) bool {
	if other == nil {
		return false
	}
	return c.id.IsEqual(other.id)
}

// Validate checks if the Courier was properly constructed.
func (c *Courier) Validate() error {
	if c == nil {
		return ErrCourierIsNotConstructed
	}
	return c.guard.Validate(ErrCourierIsNotConstructed)
}

// ID returns the unique identifier of the courier.
func (c *Courier) ID() kernel.UUID {
	return c.id
}

// Name returns the human-readable name of the courier.
func (c *Courier) Name() string {
	return c.name
}

// Status returns the courier's duty state.
func (c *Courier) Status() Status {
	return c.status
}

// LastEngagedAt returns when the courier was last offered or completed a job.
// Nil means never: the courier ranks as infinitely idle.
func (c *Courier) LastEngagedAt() *time.Time {
	return c.lastEngagedAt
}

// LastSeen returns when the courier last reported in.
func (c *Courier) LastSeen() time.Time {
	return c.lastSeen
}

// AcceptsOffers reports whether the courier's duty state permits dispatch
// offers. The capacity cap is checked separately against the active order count.
func (c *Courier) AcceptsOffers() bool {
	return c.status.AcceptsOffers()
}

// IdleTime returns how long the courier has gone without being offered or
// completing a job, measured at now. Couriers with no engagement history
// report an idle time since their registration (lastSeen), which combined
// with the nil clock still ranks them first.
func (c *Courier) IdleTime(now time.Time) time.Duration {
	if c.lastEngagedAt == nil {
		return now.Sub(c.lastSeen)
	}
	return now.Sub(*c.lastEngagedAt)
}

// TouchEngaged advances the engagement clock, resetting the courier's idle
// time. Called when the courier receives an offer or completes a delivery.
func (c *Courier) TouchEngaged(at time.Time) {
	t := at
	c.lastEngagedAt = &t
}

// MarkAvailable puts the courier on duty with no load recorded.
func (c *Courier) MarkAvailable(at time.Time) {
	c.status = Available
	c.lastSeen = at
}

// MarkBusy records that the courier currently carries at least one order.
// Busy couriers remain eligible for offers while under the capacity cap.
func (c *Courier) MarkBusy(at time.Time) {
	c.status = Busy
	c.lastSeen = at
}

// MarkOffline takes the courier off duty; offline couriers never receive offers.
func (c *Courier) MarkOffline(at time.Time) {
	c.status = Offline
	c.lastSeen = at
}

func (c *Courier) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	c.id = id
	return nil
}

func (c *Courier) setName(name string) error {
	if name == "" {
		return ErrNameIsRequired
	}
	c.name = name
	return nil
}

func (c *Courier) setStatus(status Status) error {
	if err := status.Validate(); err != nil {
		return err
	}
	c.status = status
	return nil
}
