package courier

import (
	"fmt"

	"dispatch/internal/pkg/errs"
)

// Status represents a courier's duty state. It decides whether the courier
// may receive dispatch offers at all; per-courier capacity is checked
// separately against the active order count.
type Status int

const (
	// Unknown represents an invalid or undefined status.
	// This value (0) helps catch uninitialized Status values.
	Unknown Status = iota

	// Available means the courier is on duty with no particular load recorded.
	Available

	// Busy means the courier currently carries at least one order.
	// Busy couriers remain eligible for offers while under the capacity cap.
	Busy

	// Offline means the courier is off duty and never receives offers.
	Offline
)

// getStatusStrings returns a map of Status values to their string representations.
func getStatusStrings() map[Status]string {
	return map[Status]string{
		Unknown:   "Unknown",
		Available: "Available",
		Busy:      "Busy",
		Offline:   "Offline",
	}
}

// Validate checks if the Status value is valid.
func (s Status) Validate() error {
	switch s {
	case Available, Busy, Offline:
		return nil
	case Unknown:
		fallthrough
	default:
		return errs.NewValueIsInvalidErrorWithCause("status is invalid",
			fmt.Errorf("%d is not a valid courier status", s))
	}
}

// String returns the human-readable name of the status.
// Safe to call on any Status value, including invalid ones.
func (s Status) String() string {
	if str, ok := getStatusStrings()[s]; ok {
		return str
	}
	return "Unknown"
}

// StatusFromString parses a courier status name as used in API payloads.
func StatusFromString(name string) (Status, error) {
	for status, str := range getStatusStrings() {
		if status != Unknown && str == name {
			return status, nil
		}
	}
	return Unknown, errs.NewValueIsInvalidErrorWithCause(
		"status is invalid",
		fmt.Errorf("%q is not a valid courier status name", name),
	)
}

// AcceptsOffers reports whether the duty state permits dispatch offers.
// Available and Busy couriers may be offered work; Offline never.
func (s Status) AcceptsOffers() bool {
	return s == Available || s == Busy
}
