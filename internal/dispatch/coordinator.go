// Package dispatch implements the coordinator that proposes unassigned
// orders to couriers one at a time and escalates on refusal or timeout.
//
// The coordinator holds the single-active-offer invariant: for any order at
// most one courier holds a pending offer at any instant. Escalation walks
// the fairness ranking iteratively, so one dispatch round visits each
// courier at most once regardless of pool size. Offers never assign
// anything; assignment happens only through the acceptance gate, which
// informs the coordinator after the fact.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"dispatch/internal/core/domain/model/courier"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/clock"
)

// errNotDispatchable marks orders that need no offer: already assigned,
// terminal, or parked for manual dispatch.
var errNotDispatchable = errors.New("order is not dispatchable")

// Coordinator owns the offer lifecycle for unassigned orders: selection,
// notification, the expiry timer, and escalation.
//
// Timers are process-local; the offer store is injected so single-instance
// deployments can keep it in memory. Running several coordinators against
// the same store without electing an owner is a known scaling limitation.
type Coordinator struct {
	uowFactory ports.UnitOfWorkFactory
	selector   services.CourierSelector
	offers     ports.OfferStore
	notifier   ports.Notifier
	clock      clock.Clock
	logger     *slog.Logger

	offerTTL        time.Duration
	maxActiveOrders int

	mu          sync.Mutex
	timers      map[kernel.UUID]*time.Timer
	dispatching map[kernel.UUID]struct{}
}

// NewCoordinator creates a dispatch coordinator. offerTTL is how long a
// courier may sit on an offer before it times out and escalates;
// maxActiveOrders is the per-courier cap on concurrent orders in delivery.
func NewCoordinator(
	uowFactory ports.UnitOfWorkFactory,
	offers ports.OfferStore,
	notifier ports.Notifier,
	clk clock.Clock,
	logger *slog.Logger,
	offerTTL time.Duration,
	maxActiveOrders int,
) *Coordinator {
	return &Coordinator{
		uowFactory:      uowFactory,
		selector:        services.NewCourierSelector(),
		offers:          offers,
		notifier:        notifier,
		clock:           clk,
		logger:          logger.With("component", "dispatch_coordinator"),
		offerTTL:        offerTTL,
		maxActiveOrders: maxActiveOrders,
		timers:          make(map[kernel.UUID]*time.Timer),
		dispatching:     make(map[kernel.UUID]struct{}),
	}
}

// Dispatch runs one dispatch round for an order: rank the eligible couriers
// and offer to the best one, walking down the ranking past couriers that
// cannot be notified. Returns whether an offer went out.
//
// An order that already has an active offer is left alone; an order with no
// eligible couriers is parked for manual dispatch. Neither is an error.
func (c *Coordinator) Dispatch(ctx context.Context, orderID kernel.UUID) (bool, error) {
	if !c.beginRound(orderID) {
		return false, nil
	}
	defer c.endRound(orderID)

	existing, err := c.offers.Get(ctx, orderID)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	target, candidates, err := c.rankCandidates(ctx, orderID)
	if err != nil {
		switch {
		case errors.Is(err, errNotDispatchable):
			return false, nil
		case errors.Is(err, services.ErrNoEligibleCouriers):
			if parkErr := c.parkForManual(ctx, orderID, nil); parkErr != nil {
				return false, parkErr
			}
			c.logger.Info("courier pool exhausted, order parked for manual dispatch",
				"order_id", orderID.String())
			return false, nil
		default:
			return false, err
		}
	}

	return c.offerDownRanking(ctx, target, candidates)
}

// Refuse records a courier's explicit refusal. The courier joins the order's
// ignored set permanently; when the refusal concerns the active offer, the
// timer is cancelled and the next dispatch round starts immediately.
// Returns whether a new offer went out.
func (c *Coordinator) Refuse(ctx context.Context, orderID, courierID kernel.UUID) (bool, error) {
	offer, err := c.offers.Get(ctx, orderID)
	if err != nil {
		return false, err
	}

	if err = c.markIgnored(ctx, orderID, courierID); err != nil {
		return false, err
	}

	if offer == nil || !offer.CourierID.IsEqual(courierID) {
		// stale refusal: the offer already moved on, nothing to escalate
		return false, nil
	}

	c.cancelTimer(orderID)
	if err = c.offers.Delete(ctx, orderID); err != nil {
		return false, err
	}

	c.logger.Info("offer refused, escalating",
		"order_id", orderID.String(), "courier_id", courierID.String())

	return c.Dispatch(ctx, orderID)
}

// OrderTaken clears the offer state after a courier won the order through
// the acceptance gate and broadcasts the outcome to the rest of the fleet.
func (c *Coordinator) OrderTaken(orderID, winnerID kernel.UUID) {
	c.cancelTimer(orderID)

	ctx := context.Background()
	if err := c.offers.Delete(ctx, orderID); err != nil {
		c.logger.Warn("failed to clear offer for taken order",
			"order_id", orderID.String(), "error", err)
	}

	go func() {
		if err := c.notifier.BroadcastTaken(ctx, orderID, winnerID); err != nil {
			c.logger.Warn("taken broadcast failed",
				"order_id", orderID.String(), "error", err)
		}
	}()
}

// OrderClosed clears all dispatch state for an order that reached a terminal
// status.
func (c *Coordinator) OrderClosed(orderID kernel.UUID) {
	c.cancelTimer(orderID)

	if err := c.offers.Delete(context.Background(), orderID); err != nil {
		c.logger.Warn("failed to clear offer for closed order",
			"order_id", orderID.String(), "error", err)
	}
}

// SweepUnassigned runs a dispatch round for every order still awaiting
// automatic dispatch. Orders with an active offer are skipped inside
// Dispatch, so the sweep is safe to run on a tight schedule.
func (c *Coordinator) SweepUnassigned(ctx context.Context) error {
	orderIDs, err := c.unassignedOrderIDs(ctx)
	if err != nil {
		return err
	}

	for _, orderID := range orderIDs {
		if _, err := c.Dispatch(ctx, orderID); err != nil {
			c.logger.Error("dispatch round failed",
				"order_id", orderID.String(), "error", err)
		}
	}

	return nil
}

// Stop cancels every pending offer timer. Offers themselves stay in the
// store; a restarted coordinator resumes them through the sweep.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for orderID, timer := range c.timers {
		timer.Stop()
		delete(c.timers, orderID)
	}
}

// rankCandidates loads the order and the on-duty pool and applies the
// fairness ranking. Read-only; the transaction is rolled back.
func (c *Coordinator) rankCandidates(
	ctx context.Context,
	orderID kernel.UUID,
) (*order.Order, []*courier.Courier, error) {
	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, nil, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	target, err := uow.OrderRepository().Get(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	if target.Courier() != nil || target.Status().IsTerminal() || target.AwaitingManualDispatch() {
		return nil, nil, errNotDispatchable
	}

	pool, err := uow.CourierRepository().GetAllOnDuty(ctx)
	if err != nil {
		return nil, nil, err
	}

	activeCounts, err := uow.OrderRepository().CountActiveByCourier(ctx)
	if err != nil {
		return nil, nil, err
	}

	ranked, err := c.selector.RankEligible(target, pool, activeCounts, c.maxActiveOrders)
	if err != nil {
		return nil, nil, err
	}

	return target, ranked, nil
}

// offerDownRanking proposes the order to the best candidate, walking down
// the ranking past couriers that cannot be reached. A failed send counts as
// a refusal: the courier is ignored permanently and never re-offered.
func (c *Coordinator) offerDownRanking(
	ctx context.Context,
	target *order.Order,
	candidates []*courier.Courier,
) (bool, error) {
	now := c.clock.Now()
	unreachable := make([]kernel.UUID, 0)

	for _, candidate := range candidates {
		summary := ports.OfferSummary{
			OrderID:      target.ID(),
			RestaurantID: target.RestaurantID(),
			TotalPrice:   target.TotalPrice(),
			ExpiresAt:    now.Add(c.offerTTL),
		}

		if err := c.notifier.Send(ctx, candidate.ID(), summary); err != nil {
			c.logger.Warn("offer delivery failed, escalating to next courier",
				"order_id", target.ID().String(),
				"courier_id", candidate.ID().String(),
				"error", err)
			unreachable = append(unreachable, candidate.ID())
			continue
		}

		if err := c.recordOffer(ctx, target.ID(), candidate.ID(), unreachable, now); err != nil {
			return false, err
		}

		if err := c.offers.Put(ctx, ports.DispatchOffer{
			OrderID:   target.ID(),
			CourierID: candidate.ID(),
			OfferedAt: now,
		}); err != nil {
			return false, err
		}

		c.startTimer(target.ID())
		c.logger.Info("offer sent",
			"order_id", target.ID().String(), "courier_id", candidate.ID().String())
		return true, nil
	}

	if err := c.parkForManual(ctx, target.ID(), unreachable); err != nil {
		return false, err
	}
	c.logger.Info("no courier reachable, order parked for manual dispatch",
		"order_id", target.ID().String())
	return false, nil
}

// recordOffer persists the bookkeeping of a successful offer: the offered
// courier's engagement clock advances and any couriers skipped for delivery
// failures join the ignored set.
func (c *Coordinator) recordOffer(
	ctx context.Context,
	orderID, courierID kernel.UUID,
	unreachable []kernel.UUID,
	now time.Time,
) error {
	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	offered, err := uow.CourierRepository().Get(ctx, courierID)
	if err != nil {
		return err
	}
	offered.TouchEngaged(now)
	if err = uow.CourierRepository().Update(ctx, offered); err != nil {
		return err
	}

	if len(unreachable) > 0 {
		target, getErr := uow.OrderRepository().Get(ctx, orderID)
		if getErr != nil {
			return getErr
		}
		for _, id := range unreachable {
			target.MarkIgnoredBy(id)
		}
		if err = uow.OrderRepository().Update(ctx, target); err != nil {
			return err
		}
	}

	return uow.Commit(ctx)
}

// markIgnored adds a courier to an order's ignored set. Skipped when the
// order already left the dispatchable window.
func (c *Coordinator) markIgnored(ctx context.Context, orderID, courierID kernel.UUID) error {
	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	target, err := uow.OrderRepository().Get(ctx, orderID)
	if err != nil {
		return err
	}

	if target.Courier() != nil || target.Status().IsTerminal() {
		return nil
	}

	target.MarkIgnoredBy(courierID)
	if err = uow.OrderRepository().Update(ctx, target); err != nil {
		return err
	}

	return uow.Commit(ctx)
}

// parkForManual flags an order for operator attention, recording any
// couriers that became ignored during the final round.
func (c *Coordinator) parkForManual(ctx context.Context, orderID kernel.UUID, ignored []kernel.UUID) error {
	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	target, err := uow.OrderRepository().Get(ctx, orderID)
	if err != nil {
		return err
	}

	if target.Courier() != nil || target.Status().IsTerminal() {
		return nil
	}

	for _, id := range ignored {
		target.MarkIgnoredBy(id)
	}
	target.RequireManualDispatch()

	if err = uow.OrderRepository().Update(ctx, target); err != nil {
		return err
	}

	return uow.Commit(ctx)
}

// unassignedOrderIDs lists orders awaiting automatic dispatch.
func (c *Coordinator) unassignedOrderIDs(ctx context.Context) ([]kernel.UUID, error) {
	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	orders, err := uow.OrderRepository().GetAllUnassigned(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]kernel.UUID, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID())
	}

	return ids, nil
}

// handleTimeout fires when a courier sat on an offer past the TTL. The
// courier is treated exactly like a refuser: ignored permanently, next
// round starts immediately.
func (c *Coordinator) handleTimeout(orderID kernel.UUID) {
	ctx := context.Background()
	c.clearTimer(orderID)

	offer, err := c.offers.Get(ctx, orderID)
	if err != nil {
		c.logger.Error("offer lookup failed on timeout",
			"order_id", orderID.String(), "error", err)
		return
	}
	if offer == nil {
		return
	}

	if err = c.offers.Delete(ctx, orderID); err != nil {
		c.logger.Error("offer cleanup failed on timeout",
			"order_id", orderID.String(), "error", err)
		return
	}

	if err = c.markIgnored(ctx, orderID, offer.CourierID); err != nil {
		c.logger.Error("failed to record offer timeout",
			"order_id", orderID.String(),
			"courier_id", offer.CourierID.String(),
			"error", err)
		return
	}

	c.logger.Info("offer timed out, escalating",
		"order_id", orderID.String(), "courier_id", offer.CourierID.String())

	if _, err = c.Dispatch(ctx, orderID); err != nil {
		c.logger.Error("escalation dispatch failed",
			"order_id", orderID.String(), "error", err)
	}
}

// beginRound claims the per-order dispatch slot, preventing two concurrent
// rounds from double-offering the same order.
func (c *Coordinator) beginRound(orderID kernel.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, busy := c.dispatching[orderID]; busy {
		return false
	}
	c.dispatching[orderID] = struct{}{}
	return true
}

func (c *Coordinator) endRound(orderID kernel.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.dispatching, orderID)
}

func (c *Coordinator) startTimer(orderID kernel.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if timer, ok := c.timers[orderID]; ok {
		timer.Stop()
	}
	c.timers[orderID] = time.AfterFunc(c.offerTTL, func() {
		c.handleTimeout(orderID)
	})
}

// cancelTimer stops and forgets the timer for an order.
func (c *Coordinator) cancelTimer(orderID kernel.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if timer, ok := c.timers[orderID]; ok {
		timer.Stop()
		delete(c.timers, orderID)
	}
}

// clearTimer forgets the timer entry without stopping it, used from inside
// the timer callback itself.
func (c *Coordinator) clearTimer(orderID kernel.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.timers, orderID)
}
