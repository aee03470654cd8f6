// Package order implements the Order aggregate and its lifecycle state machine.
//
// An order progresses Pending -> Accepted -> Ready -> Delivery -> Delivered,
// with Rejected reachable from any non-terminal status. Transitions are
// requested by actors (Restaurant, Courier, Admin, System) and checked against
// an explicit role permission table plus ownership of the order.
//
// The aggregate also carries the dispatch-facing state: the monotonically
// growing ignoredBy set of couriers that refused or timed out, the
// manual-dispatch flag raised when escalation exhausts the pool, and the
// duplicate-suppression correlation key used by order creation.
//
// Lifecycle boundary crossings raise domain events (Ready, Delivery started,
// Delivered) that the notification layer consumes fire-and-forget.
package order
