package commands_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/domain/model/courier"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStatusOrderRepo struct{ mock.Mock }

func (m *MockStatusOrderRepo) Add(_ context.Context, _ *order.Order) error {
	return errors.New("not implemented in mock")
}
func (m *MockStatusOrderRepo) Update(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}
func (m *MockStatusOrderRepo) Get(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}
func (m *MockStatusOrderRepo) AssignCourier(_ context.Context, _, _ kernel.UUID, _ time.Time) (bool, error) {
	return false, errors.New("not implemented in mock")
}
func (m *MockStatusOrderRepo) FindDuplicateOf(_ context.Context, _ *order.Order, _ time.Time) (*order.Order, error) {
	return nil, errors.New("not implemented in mock")
}
func (m *MockStatusOrderRepo) GetAllUnassigned(_ context.Context) ([]*order.Order, error) {
	return nil, errors.New("not implemented in mock")
}
func (m *MockStatusOrderRepo) GetAwaitingManualDispatch(_ context.Context) ([]*order.Order, error) {
	return nil, errors.New("not implemented in mock")
}
func (m *MockStatusOrderRepo) CountActiveByCourier(ctx context.Context) (map[kernel.UUID]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[kernel.UUID]int), args.Error(1)
}

type MockStatusCourierRepo struct{ mock.Mock }

func (m *MockStatusCourierRepo) Add(_ context.Context, _ *courier.Courier) error {
	return errors.New("not implemented in mock")
}
func (m *MockStatusCourierRepo) Update(ctx context.Context, c *courier.Courier) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}
func (m *MockStatusCourierRepo) Get(ctx context.Context, id kernel.UUID) (*courier.Courier, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*courier.Courier), args.Error(1)
}
func (m *MockStatusCourierRepo) GetAllOnDuty(_ context.Context) ([]*courier.Courier, error) {
	return nil, errors.New("not implemented in mock")
}
func (m *MockStatusCourierRepo) GetAll(_ context.Context) ([]*courier.Courier, error) {
	return nil, errors.New("not implemented in mock")
}

type MockStatusUoW struct{ mock.Mock }

func (m *MockStatusUoW) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
func (m *MockStatusUoW) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
func (m *MockStatusUoW) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStatusUoW) OrderRepository() ports.OrderRepository {
	args := m.Called()
	return args.Get(0).(ports.OrderRepository)
}

func (m *MockStatusUoW) CourierRepository() ports.CourierRepository {
	args := m.Called()
	return args.Get(0).(ports.CourierRepository)
}

type MockStatusUoWFactory struct{ mock.Mock }

func (m *MockStatusUoWFactory) Create() commands.OrderCourierUoW {
	args := m.Called()
	return args.Get(0).(commands.OrderCourierUoW)
}

// chanPublisher captures published events so goroutine delivery can be awaited.
type chanPublisher struct {
	events chan order.DomainEvent
}

func newChanPublisher() *chanPublisher {
	return &chanPublisher{events: make(chan order.DomainEvent, 8)}
}

func (p *chanPublisher) Publish(_ context.Context, event order.DomainEvent) error {
	p.events <- event
	return nil
}

func statusFixture(t *testing.T, restaurantID kernel.UUID) *order.Order {
	t.Helper()
	o, err := order.NewOrder(
		kernel.NewUUID(), restaurantID, "+15550100", "", orderItems(t),
		time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return o
}

func TestUpdateOrderStatusCommandHandler_Handle_RestaurantAccepts(t *testing.T) {
	ctx := t.Context()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	restaurantID := kernel.NewUUID()
	aggregate := statusFixture(t, restaurantID)
	actor, err := order.NewActor(order.RoleRestaurant, restaurantID)
	require.NoError(t, err)
	cmd, err := commands.NewUpdateOrderStatusCommand(aggregate.ID(), order.Accepted, actor)
	require.NoError(t, err)

	repo := new(MockStatusOrderRepo)
	uow := new(MockStatusUoW)
	mock.InOrder(
		uow.On("Begin", ctx).Return(nil).Once(),
		uow.On("OrderRepository").Return(repo).Once(),
		repo.On("Get", mock.Anything, aggregate.ID()).Return(aggregate, nil).Once(),
		repo.On("Update", mock.Anything, aggregate).Return(nil).Once(),
		uow.On("Commit", ctx).Return(nil).Once(),
		uow.On("Rollback", ctx).Return(nil).Once(),
	)

	factory := new(MockStatusUoWFactory)
	factory.On("Create").Return(uow).Once()

	canceler := new(MockDispatchCanceler)

	h := commands.NewUpdateOrderStatusCommandHandler(factory, newChanPublisher(), canceler, clock.NewFixed(now))
	updated, err := h.Handle(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, order.Accepted, updated.Status())
	canceler.AssertNotCalled(t, "OrderClosed", mock.Anything)

	repo.AssertExpectations(t)
	uow.AssertExpectations(t)
	factory.AssertExpectations(t)
}

func TestUpdateOrderStatusCommandHandler_Handle_ReadyPublishesEvent(t *testing.T) {
	ctx := t.Context()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	restaurantID := kernel.NewUUID()
	aggregate := statusFixture(t, restaurantID)
	systemActor, err := order.NewSystemActor(order.RoleSystem)
	require.NoError(t, err)
	require.NoError(t, aggregate.TransitionTo(order.Accepted, systemActor, now))
	aggregate.PopEvents()

	actor, err := order.NewActor(order.RoleRestaurant, restaurantID)
	require.NoError(t, err)
	cmd, err := commands.NewUpdateOrderStatusCommand(aggregate.ID(), order.Ready, actor)
	require.NoError(t, err)

	repo := new(MockStatusOrderRepo)
	uow := new(MockStatusUoW)
	mock.InOrder(
		uow.On("Begin", ctx).Return(nil).Once(),
		uow.On("OrderRepository").Return(repo).Once(),
		repo.On("Get", mock.Anything, aggregate.ID()).Return(aggregate, nil).Once(),
		repo.On("Update", mock.Anything, aggregate).Return(nil).Once(),
		uow.On("Commit", ctx).Return(nil).Once(),
		uow.On("Rollback", ctx).Return(nil).Once(),
	)

	factory := new(MockStatusUoWFactory)
	factory.On("Create").Return(uow).Once()

	publisher := newChanPublisher()

	h := commands.NewUpdateOrderStatusCommandHandler(factory, publisher, new(MockDispatchCanceler), clock.NewFixed(now))
	_, err = h.Handle(ctx, cmd)
	require.NoError(t, err)

	select {
	case event := <-publisher.events:
		assert.Equal(t, "order.ready", event.EventName())
		assert.True(t, event.OrderID().IsEqual(aggregate.ID()))
	case <-time.After(time.Second):
		t.Fatal("expected a published event")
	}
}

func TestUpdateOrderStatusCommandHandler_Handle_TerminalClearsDispatchState(t *testing.T) {
	ctx := t.Context()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	restaurantID := kernel.NewUUID()
	aggregate := statusFixture(t, restaurantID)
	actor, err := order.NewActor(order.RoleRestaurant, restaurantID)
	require.NoError(t, err)
	cmd, err := commands.NewUpdateOrderStatusCommand(aggregate.ID(), order.Rejected, actor)
	require.NoError(t, err)

	repo := new(MockStatusOrderRepo)
	uow := new(MockStatusUoW)
	mock.InOrder(
		uow.On("Begin", ctx).Return(nil).Once(),
		uow.On("OrderRepository").Return(repo).Once(),
		repo.On("Get", mock.Anything, aggregate.ID()).Return(aggregate, nil).Once(),
		repo.On("Update", mock.Anything, aggregate).Return(nil).Once(),
		uow.On("Commit", ctx).Return(nil).Once(),
		uow.On("Rollback", ctx).Return(nil).Once(),
	)

	factory := new(MockStatusUoWFactory)
	factory.On("Create").Return(uow).Once()

	canceler := new(MockDispatchCanceler)
	canceler.On("OrderClosed", aggregate.ID()).Once()

	h := commands.NewUpdateOrderStatusCommandHandler(factory, newChanPublisher(), canceler, clock.NewFixed(now))
	updated, err := h.Handle(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, order.Rejected, updated.Status())

	canceler.AssertExpectations(t)
	repo.AssertExpectations(t)
	uow.AssertExpectations(t)
}

func TestUpdateOrderStatusCommandHandler_Handle_DeliveredReleasesCourier(t *testing.T) {
	ctx := t.Context()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	deliverer, err := courier.NewCourier(kernel.NewUUID(), "Sam", now.Add(-time.Hour))
	require.NoError(t, err)
	deliverer.MarkBusy(now.Add(-30 * time.Minute))

	courierID := deliverer.ID()
	assignedAt := now.Add(-20 * time.Minute)
	aggregate, err := order.RestoreOrder(
		kernel.NewUUID(), kernel.NewUUID(), "+15550100", "", orderItems(t),
		order.Delivery, &courierID, nil, false, now.Add(-time.Hour), &assignedAt)
	require.NoError(t, err)

	actor, err := order.NewActor(order.RoleCourier, courierID)
	require.NoError(t, err)
	cmd, err := commands.NewUpdateOrderStatusCommand(aggregate.ID(), order.Delivered, actor)
	require.NoError(t, err)

	orderRepo := new(MockStatusOrderRepo)
	courierRepo := new(MockStatusCourierRepo)
	uow := new(MockStatusUoW)
	mock.InOrder(
		uow.On("Begin", ctx).Return(nil).Once(),
		uow.On("OrderRepository").Return(orderRepo).Once(),
		orderRepo.On("Get", mock.Anything, aggregate.ID()).Return(aggregate, nil).Once(),
		orderRepo.On("Update", mock.Anything, aggregate).Return(nil).Once(),
		uow.On("CourierRepository").Return(courierRepo).Once(),
		courierRepo.On("Get", mock.Anything, courierID).Return(deliverer, nil).Once(),
		uow.On("OrderRepository").Return(orderRepo).Once(),
		orderRepo.On("CountActiveByCourier", mock.Anything).Return(map[kernel.UUID]int{}, nil).Once(),
		courierRepo.On("Update", mock.Anything, deliverer).Return(nil).Once(),
		uow.On("Commit", ctx).Return(nil).Once(),
		uow.On("Rollback", ctx).Return(nil).Once(),
	)

	factory := new(MockStatusUoWFactory)
	factory.On("Create").Return(uow).Once()

	canceler := new(MockDispatchCanceler)
	canceler.On("OrderClosed", aggregate.ID()).Once()

	h := commands.NewUpdateOrderStatusCommandHandler(factory, newChanPublisher(), canceler, clock.NewFixed(now))
	updated, err := h.Handle(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, order.Delivered, updated.Status())

	// completing the delivery resets the idle clock and frees the courier
	require.NotNil(t, deliverer.LastEngagedAt())
	assert.Equal(t, now, *deliverer.LastEngagedAt())
	assert.Equal(t, courier.Available, deliverer.Status())

	orderRepo.AssertExpectations(t)
	courierRepo.AssertExpectations(t)
	uow.AssertExpectations(t)
	canceler.AssertExpectations(t)
}

func TestUpdateOrderStatusCommandHandler_Handle_DeliveredKeepsBusyCourierBusy(t *testing.T) {
	ctx := t.Context()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	deliverer, err := courier.NewCourier(kernel.NewUUID(), "Sam", now.Add(-time.Hour))
	require.NoError(t, err)
	deliverer.MarkBusy(now.Add(-30 * time.Minute))

	courierID := deliverer.ID()
	assignedAt := now.Add(-20 * time.Minute)
	aggregate, err := order.RestoreOrder(
		kernel.NewUUID(), kernel.NewUUID(), "+15550100", "", orderItems(t),
		order.Delivery, &courierID, nil, false, now.Add(-time.Hour), &assignedAt)
	require.NoError(t, err)

	actor, err := order.NewActor(order.RoleCourier, courierID)
	require.NoError(t, err)
	cmd, err := commands.NewUpdateOrderStatusCommand(aggregate.ID(), order.Delivered, actor)
	require.NoError(t, err)

	orderRepo := new(MockStatusOrderRepo)
	courierRepo := new(MockStatusCourierRepo)
	uow := new(MockStatusUoW)
	mock.InOrder(
		uow.On("Begin", ctx).Return(nil).Once(),
		uow.On("OrderRepository").Return(orderRepo).Once(),
		orderRepo.On("Get", mock.Anything, aggregate.ID()).Return(aggregate, nil).Once(),
		orderRepo.On("Update", mock.Anything, aggregate).Return(nil).Once(),
		uow.On("CourierRepository").Return(courierRepo).Once(),
		courierRepo.On("Get", mock.Anything, courierID).Return(deliverer, nil).Once(),
		uow.On("OrderRepository").Return(orderRepo).Once(),
		orderRepo.On("CountActiveByCourier", mock.Anything).
			Return(map[kernel.UUID]int{courierID: 1}, nil).Once(),
		courierRepo.On("Update", mock.Anything, deliverer).Return(nil).Once(),
		uow.On("Commit", ctx).Return(nil).Once(),
		uow.On("Rollback", ctx).Return(nil).Once(),
	)

	factory := new(MockStatusUoWFactory)
	factory.On("Create").Return(uow).Once()

	canceler := new(MockDispatchCanceler)
	canceler.On("OrderClosed", aggregate.ID()).Once()

	h := commands.NewUpdateOrderStatusCommandHandler(factory, newChanPublisher(), canceler, clock.NewFixed(now))
	_, err = h.Handle(ctx, cmd)
	require.NoError(t, err)

	// another delivery is still in flight, so only the clock moves
	require.NotNil(t, deliverer.LastEngagedAt())
	assert.Equal(t, now, *deliverer.LastEngagedAt())
	assert.Equal(t, courier.Busy, deliverer.Status())

	courierRepo.AssertExpectations(t)
	uow.AssertExpectations(t)
}

func TestUpdateOrderStatusCommandHandler_Handle_UnreachableTransition(t *testing.T) {
	ctx := t.Context()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	aggregate := statusFixture(t, kernel.NewUUID())
	actor, err := order.NewSystemActor(order.RoleAdmin)
	require.NoError(t, err)
	cmd, err := commands.NewUpdateOrderStatusCommand(aggregate.ID(), order.Delivered, actor)
	require.NoError(t, err)

	repo := new(MockStatusOrderRepo)
	uow := new(MockStatusUoW)
	mock.InOrder(
		uow.On("Begin", ctx).Return(nil).Once(),
		uow.On("OrderRepository").Return(repo).Once(),
		repo.On("Get", mock.Anything, aggregate.ID()).Return(aggregate, nil).Once(),
		uow.On("Rollback", ctx).Return(nil).Once(),
	)

	factory := new(MockStatusUoWFactory)
	factory.On("Create").Return(uow).Once()

	h := commands.NewUpdateOrderStatusCommandHandler(
		factory, newChanPublisher(), new(MockDispatchCanceler), clock.NewFixed(now))
	_, err = h.Handle(ctx, cmd)
	require.ErrorIs(t, err, order.ErrInvalidTransition)

	repo.AssertExpectations(t)
	uow.AssertExpectations(t)
}

func TestUpdateOrderStatusCommandHandler_Handle_ForeignRestaurantForbidden(t *testing.T) {
	ctx := t.Context()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	aggregate := statusFixture(t, kernel.NewUUID())
	actor, err := order.NewActor(order.RoleRestaurant, kernel.NewUUID()) // not the owner
	require.NoError(t, err)
	cmd, err := commands.NewUpdateOrderStatusCommand(aggregate.ID(), order.Accepted, actor)
	require.NoError(t, err)

	repo := new(MockStatusOrderRepo)
	uow := new(MockStatusUoW)
	mock.InOrder(
		uow.On("Begin", ctx).Return(nil).Once(),
		uow.On("OrderRepository").Return(repo).Once(),
		repo.On("Get", mock.Anything, aggregate.ID()).Return(aggregate, nil).Once(),
		uow.On("Rollback", ctx).Return(nil).Once(),
	)

	factory := new(MockStatusUoWFactory)
	factory.On("Create").Return(uow).Once()

	h := commands.NewUpdateOrderStatusCommandHandler(
		factory, newChanPublisher(), new(MockDispatchCanceler), clock.NewFixed(now))
	_, err = h.Handle(ctx, cmd)
	require.ErrorIs(t, err, order.ErrActorForbidden)

	repo.AssertExpectations(t)
	uow.AssertExpectations(t)
}

func TestUpdateOrderStatusCommandHandler_Handle_ValidationError(t *testing.T) {
	ctx := t.Context()
	cmd := commands.UpdateOrderStatusCommand{} // not constructed properly
	h := commands.NewUpdateOrderStatusCommandHandler(
		new(MockStatusUoWFactory), newChanPublisher(), nil, clock.NewSystem())
	_, err := h.Handle(ctx, cmd)
	require.Error(t, err)
}
