package services

import (
	"errors"
	"sort"

	"dispatch/internal/core/domain/model/courier"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
)

// ErrNoEligibleCouriers is returned when no courier in the pool can be
// offered the order. This occurs when every courier is offline, at the
// capacity cap, or already refused or timed out on the order.
var ErrNoEligibleCouriers = errors.New("no eligible couriers")

// CourierSelector is a domain service that filters and ranks the courier pool
// for a dispatch round.
//
// Eligibility rules:
//   - The courier's duty status accepts offers (Available, or Busy under cap)
//   - The courier's active order count is below maxActiveOrders
//   - The courier is not in the order's ignoredBy set
//
// Fairness policy: eligible couriers are ranked by idle time descending.
// The courier who has gone longest without being offered or completing a job
// is ranked first; couriers with no engagement history rank before all others.
//
// Example usage:
//
//	selector := services.NewCourierSelector()
//	ranked, err := selector.RankEligible(order, pool, activeCounts, 2)
//	if errors.Is(err, services.ErrNoEligibleCouriers) {
//	    // park the order for manual dispatch
//	    return
//	}
//	// offer to ranked[0], escalate down the slice on refusal/timeout
type CourierSelector struct{}

// NewCourierSelector creates a new CourierSelector instance.
func NewCourierSelector() CourierSelector {
	return CourierSelector{}
}

// RankEligible returns the couriers eligible to receive the order, ranked by
// the fairness policy. activeCounts maps courier IDs to their current number
// of orders in Delivery; couriers absent from the map count as zero.
//
// Returns ErrNoEligibleCouriers when the filtered set is empty, and
// validation errors when the order or a courier is improperly constructed.
func (s CourierSelector) RankEligible(
	o *order.Order,
	couriers []*courier.Courier,
	activeCounts map[kernel.UUID]int,
	maxActiveOrders int,
) ([]*courier.Courier, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}

	eligible := make([]*courier.Courier, 0, len(couriers))
	for _, c := range couriers {
		if err := c.Validate(); err != nil {
			return nil, err
		}

		if !c.AcceptsOffers() {
			continue
		}
		if activeCounts[c.ID()] >= maxActiveOrders {
			continue
		}
		if o.IsIgnoredBy(c.ID()) {
			continue
		}

		eligible = append(eligible, c)
	}

	if len(eligible) == 0 {
		return nil, ErrNoEligibleCouriers
	}

	// Idle time descending: the older the engagement clock, the longer the
	// idle time. A nil clock means no history at all and ranks first.
	sort.SliceStable(eligible, func(i, j int) bool {
		ei, ej := eligible[i].LastEngagedAt(), eligible[j].LastEngagedAt()
		switch {
		case ei == nil && ej == nil:
			return false
		case ei == nil:
			return true
		case ej == nil:
			return false
		default:
			return ei.Before(*ej)
		}
	})

	return eligible, nil
}
