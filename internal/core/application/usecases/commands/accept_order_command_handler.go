package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/clock"
)

// ErrCourierCapacityExceeded is returned when a courier already carries the
// maximum number of concurrent active orders and tries to claim another.
var ErrCourierCapacityExceeded = errors.New("courier is at the active order limit")

// AcceptOrderResult reports the outcome of an acceptance attempt.
// Its JSON form is what the idempotency ledger stores and replays, so the
// field set and ordering must stay stable across releases.
type AcceptOrderResult struct {
	Assigned   bool       `json:"assigned"`
	OrderID    string     `json:"order_id"`
	CourierID  string     `json:"courier_id"`
	Status     string     `json:"status,omitempty"`
	AssignedAt *time.Time `json:"assigned_at,omitempty"`

	// Replayed marks results served from the ledger. Not serialized, so a
	// replay still matches the original response byte for byte.
	Replayed bool `json:"-"`
}

// AcceptOrderCommandHandler implements the acceptance gate.
//
// Correctness under concurrency comes from one place: the repository's
// conditional courier assignment, which matches the order row only while it
// is claimable and unassigned. Everything before it is advisory screening
// and everything after it reacts to whether the write matched a row. Losing
// the race is an expected outcome reported as Assigned=false, never an error.
//
// With an idempotency key, the outcome is recorded in the same transaction
// as the assignment, so a crash between the two cannot desynchronize them.
type AcceptOrderCommandHandler struct {
	uowFactory      UoWFactory
	canceler        DispatchCanceler
	clock           clock.Clock
	maxActiveOrders int
}

// NewAcceptOrderCommandHandler creates a handler for courier acceptance.
// maxActiveOrders is the per-courier cap on concurrent orders in delivery.
func NewAcceptOrderCommandHandler(
	uowFactory UoWFactory,
	canceler DispatchCanceler,
	clk clock.Clock,
	maxActiveOrders int,
) AcceptOrderCommandHandler {
	return AcceptOrderCommandHandler{
		uowFactory:      uowFactory,
		canceler:        canceler,
		clock:           clk,
		maxActiveOrders: maxActiveOrders,
	}
}

// Handle processes a courier's claim on an order.
//
// Steps, in order: replay lookup in the ledger, existence checks for both
// parties, rejection of terminal orders, the capacity gate, the conditional
// write, courier bookkeeping on a win, and the ledger record. All inside one transaction; dispatch-state
// cleanup runs after commit.
func (h AcceptOrderCommandHandler) Handle(ctx context.Context, cmd AcceptOrderCommand) (AcceptOrderResult, error) {
	if err := cmd.Validate(); err != nil {
		return AcceptOrderResult{}, err
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return AcceptOrderResult{}, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	if cmd.IdempotencyKey() != "" {
		replayed, found, err := h.lookupReplay(ctx, uow, cmd)
		if err != nil {
			return AcceptOrderResult{}, err
		}
		if found {
			return replayed, nil
		}
	}

	orderRepo := uow.OrderRepository()
	courierRepo := uow.CourierRepository()

	claimed, err := orderRepo.Get(ctx, cmd.OrderID())
	if err != nil {
		return AcceptOrderResult{}, err
	}
	if claimed.Status().IsTerminal() {
		return AcceptOrderResult{}, fmt.Errorf(
			"%w: %s order cannot be accepted", order.ErrInvalidTransition, claimed.Status())
	}

	claimant, err := courierRepo.Get(ctx, cmd.CourierID())
	if err != nil {
		return AcceptOrderResult{}, err
	}

	activeCounts, err := orderRepo.CountActiveByCourier(ctx)
	if err != nil {
		return AcceptOrderResult{}, err
	}
	if activeCounts[cmd.CourierID()] >= h.maxActiveOrders {
		return AcceptOrderResult{}, fmt.Errorf("%w: courier %s", ErrCourierCapacityExceeded, cmd.CourierID())
	}

	now := h.clock.Now()

	assigned, err := orderRepo.AssignCourier(ctx, cmd.OrderID(), cmd.CourierID(), now)
	if err != nil {
		return AcceptOrderResult{}, err
	}

	result := AcceptOrderResult{
		Assigned:  assigned,
		OrderID:   cmd.OrderID().String(),
		CourierID: cmd.CourierID().String(),
	}
	if assigned {
		result.Status = order.Delivery.String()
		result.AssignedAt = &now

		claimant.TouchEngaged(now)
		claimant.MarkBusy(now)
		if err = courierRepo.Update(ctx, claimant); err != nil {
			return AcceptOrderResult{}, err
		}
	}

	if cmd.IdempotencyKey() != "" {
		if err = h.recordOutcome(ctx, uow, cmd, result, now); err != nil {
			return AcceptOrderResult{}, err
		}
	}

	if err = uow.Commit(ctx); err != nil {
		return AcceptOrderResult{}, err
	}

	if assigned && h.canceler != nil {
		h.canceler.OrderTaken(cmd.OrderID(), cmd.CourierID())
	}

	return result, nil
}

// lookupReplay checks the ledger for a prior outcome under the command's key.
// A record scoped to a different order/courier pair does not match; the
// request then proceeds as a fresh acceptance attempt.
func (h AcceptOrderCommandHandler) lookupReplay(
	ctx context.Context,
	uow UoW,
	cmd AcceptOrderCommand,
) (AcceptOrderResult, bool, error) {
	record, err := uow.IdempotencyRepository().Get(ctx, cmd.IdempotencyKey())
	if err != nil {
		return AcceptOrderResult{}, false, err
	}
	if record == nil || !record.OrderID.IsEqual(cmd.OrderID()) || !record.CourierID.IsEqual(cmd.CourierID()) {
		return AcceptOrderResult{}, false, nil
	}

	var result AcceptOrderResult
	if err = json.Unmarshal(record.Response, &result); err != nil {
		return AcceptOrderResult{}, false, err
	}
	result.Replayed = true

	return result, true, nil
}

// recordOutcome stores the serialized result in the ledger within the
// current transaction.
func (h AcceptOrderCommandHandler) recordOutcome(
	ctx context.Context,
	uow UoW,
	cmd AcceptOrderCommand,
	result AcceptOrderResult,
	now time.Time,
) error {
	response, err := json.Marshal(result)
	if err != nil {
		return err
	}

	return uow.IdempotencyRepository().Put(ctx, ports.IdempotencyRecord{
		Key:       cmd.IdempotencyKey(),
		OrderID:   cmd.OrderID(),
		CourierID: cmd.CourierID(),
		Response:  response,
		CreatedAt: now,
	})
}
