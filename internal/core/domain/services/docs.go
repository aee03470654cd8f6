// Package services contains stateless domain services that coordinate
// behavior across aggregates.
//
// CourierSelector implements the dispatch eligibility filter and the
// idle-time-descending fairness ranking over the courier pool. It is pure
// domain logic: the escalation loop, offers, and timers live in the
// dispatch coordinator, which consumes the ranked candidate list.
package services
