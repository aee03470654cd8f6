// Package memory provides in-process implementations of ports backed by
// plain data structures, suitable for single-instance deployments and tests.
package memory

import (
	"context"
	"sync"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"
)

// OfferStore keeps pending dispatch offers in a mutex-guarded map keyed by
// order ID. Safe for concurrent use.
type OfferStore struct {
	mu     sync.Mutex
	offers map[kernel.UUID]ports.DispatchOffer
}

// NewOfferStore creates an empty in-memory offer store.
func NewOfferStore() *OfferStore {
	return &OfferStore{
		offers: make(map[kernel.UUID]ports.DispatchOffer),
	}
}

// Put records the active offer for an order, replacing any previous one.
func (s *OfferStore) Put(_ context.Context, offer ports.DispatchOffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.offers[offer.OrderID] = offer
	return nil
}

// Get returns the active offer for an order, or nil when the order has none.
func (s *OfferStore) Get(_ context.Context, orderID kernel.UUID) (*ports.DispatchOffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	offer, ok := s.offers[orderID]
	if !ok {
		return nil, nil //nolint:nilnil // absence is a valid, expected outcome
	}

	return &offer, nil
}

// Delete clears the active offer for an order. Deleting an absent offer is a no-op.
func (s *OfferStore) Delete(_ context.Context, orderID kernel.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.offers, orderID)
	return nil
}
