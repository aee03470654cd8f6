package order

import (
	"fmt"

	"dispatch/internal/pkg/errs"
)

// Status represents the lifecycle state of an order.
// It implements a state machine with defined transitions to ensure
// orders follow the correct fulfillment workflow.
//
// State transitions:
//
//	Pending ──> Accepted ──> Ready ──> Delivery ──> Delivered
//	    │           │          │           │
//	    └───────────┴──────────┴───────────┴──> Rejected
//
// Delivered and Rejected are terminal: no further transition is ever
// valid from them. Status is a value object that validates transitions
// and provides string representations for persistence and display.
type Status int

const (
	// Unknown represents an invalid or undefined status.
	// This value (0) helps catch uninitialized Status values.
	Unknown Status = iota

	// Pending is the initial status when an order is first created.
	// Orders in this status are waiting for the restaurant to confirm them.
	Pending

	// Accepted indicates the restaurant has confirmed the order and is preparing it.
	Accepted

	// Ready indicates the restaurant has finished preparing the order
	// and it is waiting to be picked up.
	Ready

	// Delivery indicates a courier has taken the order and is delivering it.
	// Entering this status requires a courier assignment.
	Delivery

	// Delivered indicates the order reached the customer.
	// This is a terminal state with no further transitions allowed.
	Delivered

	// Rejected indicates the order was cancelled before completion.
	// Reachable from any non-terminal status; terminal itself.
	Rejected
)

// getStatusStrings returns a map of Status values to their string representations.
func getStatusStrings() map[Status]string {
	return map[Status]string{
		Unknown:   "Unknown",
		Pending:   "Pending",
		Accepted:  "Accepted",
		Ready:     "Ready",
		Delivery:  "Delivery",
		Delivered: "Delivered",
		Rejected:  "Rejected",
	}
}

// getValidStatusStrings returns a map of only valid Status values.
func getValidStatusStrings() map[Status]string {
	//nolint:exhaustive // Unknown is intentionally excluded as it's invalid
	return map[Status]string{
		Pending:   "Pending",
		Accepted:  "Accepted",
		Ready:     "Ready",
		Delivery:  "Delivery",
		Delivered: "Delivered",
		Rejected:  "Rejected",
	}
}

// Validate checks if the Status value is valid.
// Unknown (0) and any other values are invalid.
func (s Status) Validate() error {
	if _, ok := getValidStatusStrings()[s]; !ok {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%d is not a valid status", s))
	}
	return nil
}

// String returns the human-readable name of the status.
// Implements the fmt.Stringer interface and is safe to call on any
// Status value, including invalid ones.
func (s Status) String() string {
	if str, ok := getStatusStrings()[s]; ok {
		return str
	}
	return "Unknown"
}

// StatusFromString parses a status name as used in API payloads.
// The comparison is exact; unknown names yield an error.
func StatusFromString(name string) (Status, error) {
	for status, str := range getValidStatusStrings() {
		if str == name {
			return status, nil
		}
	}
	return Unknown, errs.NewValueIsInvalidErrorWithCause(
		"status is invalid",
		fmt.Errorf("%q is not a valid status name", name),
	)
}

// IsTerminal reports whether the status permits no further transitions.
// Delivered and Rejected are the terminal states.
func (s Status) IsTerminal() bool {
	return s == Delivered || s == Rejected
}

// next returns the single forward-path successor of the status,
// or Unknown when the status has none.
func (s Status) next() Status {
	switch s { //nolint:exhaustive // terminal and Unknown statuses have no successor
	case Pending:
		return Accepted
	case Accepted:
		return Ready
	case Ready:
		return Delivery
	case Delivery:
		return Delivered
	default:
		return Unknown
	}
}

// CanTransitionTo reports whether target is reachable from the current status
// under the forward-path-plus-Rejected rule: each status reaches only its
// immediate successor, and Rejected is reachable from any non-terminal status.
func (s Status) CanTransitionTo(target Status) bool {
	if s.IsTerminal() {
		return false
	}
	if target == Rejected {
		return true
	}
	return s.next() == target
}

// AllowedTransitions returns every status reachable from the current one.
// Used to drive UI affordances; the result is empty for terminal statuses.
func (s Status) AllowedTransitions() []Status {
	if s.IsTerminal() {
		return nil
	}

	allowed := make([]Status, 0, 2)
	if next := s.next(); next != Unknown {
		allowed = append(allowed, next)
	}
	allowed = append(allowed, Rejected)
	return allowed
}

// ValidateAssign checks if the status allows a courier to take the order.
// Assignment is permitted while the order is Pending, Accepted, or Ready.
// This mirrors the predicate of the store-level conditional write used by
// the acceptance gate, without performing the transition.
func (s Status) ValidateAssign() error {
	if s != Pending && s != Accepted && s != Ready {
		return errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to assign", s.String()),
		)
	}
	return nil
}

// ValidateCanHaveCourier validates the consistency between order status and
// courier assignment: an order carries a courier exactly while it is in
// Delivery or Delivered.
func (s Status) ValidateCanHaveCourier(courier bool) error {
	if courier && s != Delivery && s != Delivered {
		return errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to have a courier", s.String()),
		)
	}

	if !courier && (s == Delivery || s == Delivered) {
		return errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to have no courier", s.String()),
		)
	}

	return nil
}
