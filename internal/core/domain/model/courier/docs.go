// Package courier implements the Courier aggregate: a delivery worker
// competing for orders.
//
// A courier has a duty status (Available, Busy, Offline) and an engagement
// clock recording when it was last offered or completed a job. The dispatch
// fairness policy ranks eligible couriers by idle time descending, so the
// clock is the aggregate's central piece of state; couriers with no history
// rank first. The MaxActiveOrders capacity cap is a dispatch policy applied
// against the courier's active order count, not aggregate state.
package courier
