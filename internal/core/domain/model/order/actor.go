package order

import (
	"fmt"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
)

// Role identifies the kind of party requesting a status transition.
// It is a closed enum: transition permissions are decided by an explicit
// table keyed on the role, never by string comparison.
type Role int

const (
	// RoleUnknown represents an invalid or undefined role.
	RoleUnknown Role = iota

	// RoleRestaurant is the restaurant fulfilling the order.
	// May move the order to Accepted, Ready, or Rejected.
	RoleRestaurant

	// RoleCourier is the delivery worker carrying the order.
	// May move the order to Delivery or Delivered.
	RoleCourier

	// RoleAdmin is an operator with full override permissions.
	RoleAdmin

	// RoleSystem is an internal caller (webhooks, jobs) with full permissions.
	RoleSystem
)

// getRoleStrings returns a map of Role values to their string representations.
func getRoleStrings() map[Role]string {
	return map[Role]string{
		RoleUnknown:    "Unknown",
		RoleRestaurant: "Restaurant",
		RoleCourier:    "Courier",
		RoleAdmin:      "Admin",
		RoleSystem:     "System",
	}
}

// String returns the human-readable name of the role.
func (r Role) String() string {
	if str, ok := getRoleStrings()[r]; ok {
		return str
	}
	return "Unknown"
}

// RoleFromString parses a role name as used in API payloads.
func RoleFromString(name string) (Role, error) {
	for role, str := range getRoleStrings() {
		if role != RoleUnknown && str == name {
			return role, nil
		}
	}
	return RoleUnknown, errs.NewValueIsInvalidErrorWithCause(
		"role is invalid",
		fmt.Errorf("%q is not a valid role name", name),
	)
}

// Validate checks if the Role value is a valid, known role.
func (r Role) Validate() error {
	switch r {
	case RoleRestaurant, RoleCourier, RoleAdmin, RoleSystem:
		return nil
	case RoleUnknown:
		fallthrough
	default:
		return errs.NewValueIsInvalidErrorWithCause("role is invalid", fmt.Errorf("%d is not a valid role", r))
	}
}

// allowedTargets is the permission table mapping each role to the statuses
// it may set. Admin and System carry the full set as an operational override.
func allowedTargets(role Role) map[Status]struct{} {
	switch role { //nolint:exhaustive // RoleUnknown has no permissions
	case RoleRestaurant:
		return map[Status]struct{}{Accepted: {}, Ready: {}, Rejected: {}}
	case RoleCourier:
		return map[Status]struct{}{Delivery: {}, Delivered: {}}
	case RoleAdmin, RoleSystem:
		return map[Status]struct{}{
			Pending: {}, Accepted: {}, Ready: {}, Delivery: {}, Delivered: {}, Rejected: {},
		}
	default:
		return nil
	}
}

// MaySet reports whether the role is permitted to set the target status,
// independent of whether the transition is reachable from the current one.
func (r Role) MaySet(target Status) bool {
	_, ok := allowedTargets(r)[target]
	return ok
}

// Actor is the identity on whose behalf a transition is applied.
// For Restaurant and Courier roles the ID must match the order's
// restaurant or assigned courier; Admin and System carry no ownership check.
type Actor struct {
	role Role
	id   kernel.UUID
}

// NewActor creates an actor with an identity, used for Restaurant and Courier
// callers whose ownership of the order is verified on every transition.
func NewActor(role Role, id kernel.UUID) (Actor, error) {
	if err := role.Validate(); err != nil {
		return Actor{}, err
	}
	if err := id.Validate(); err != nil {
		return Actor{}, err
	}
	return Actor{role: role, id: id}, nil
}

// NewSystemActor creates an actor for Admin or System callers, which are not
// tied to a particular restaurant or courier.
func NewSystemActor(role Role) (Actor, error) {
	if role != RoleAdmin && role != RoleSystem {
		return Actor{}, errs.NewValueIsInvalidErrorWithCause(
			"role is invalid",
			fmt.Errorf("%s actor requires an identity", role.String()),
		)
	}
	return Actor{role: role}, nil
}

// Role returns the actor's role.
func (a Actor) Role() Role {
	return a.role
}

// ID returns the actor's identity. The zero UUID is returned for
// Admin and System actors created via NewSystemActor.
func (a Actor) ID() kernel.UUID {
	return a.id
}
