package orderrepo_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"dispatch/internal/adapters/out/postgres/orderrepo"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/errs"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	postgresdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// MockAggregateTracker is a mock implementation of aggregateTracker interface.
type MockAggregateTracker struct {
	mock.Mock
}

func (m *MockAggregateTracker) TrackAggregate(id kernel.UUID, aggregate any) {
	m.Called(id, aggregate)
}

// OrderRepositoryIntegrationTestSuite provides integration tests for
// OrderRepository using PostgreSQL containers, covering the conditional
// courier assignment and the duplicate lookup in particular.
type OrderRepositoryIntegrationTestSuite struct {
	suite.Suite
	container  *postgres.PostgresContainer
	db         *gorm.DB
	repository *orderrepo.GormOrderRepository
	tracker    *MockAggregateTracker
}

func (suite *OrderRepositoryIntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	suite.Require().NoError(err)
	suite.container = container

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	suite.Require().NoError(err)

	db, err := gorm.Open(postgresdriver.Open(connStr), &gorm.Config{})
	suite.Require().NoError(err)
	suite.db = db

	suite.Require().NoError(db.AutoMigrate(&orderrepo.OrderDTO{}, &orderrepo.ItemDTO{}))
}

func (suite *OrderRepositoryIntegrationTestSuite) SetupTest() {
	suite.Require().NoError(suite.db.Exec("TRUNCATE TABLE orders CASCADE").Error)

	suite.tracker = new(MockAggregateTracker)
	suite.repository = orderrepo.NewGormOrderRepository(suite.db, suite.tracker)
}

func (suite *OrderRepositoryIntegrationTestSuite) TearDownSuite() {
	if suite.container != nil {
		suite.Require().NoError(suite.container.Terminate(context.Background()))
	}
}

func (suite *OrderRepositoryIntegrationTestSuite) testItems() []order.Item {
	first, err := order.NewItem("Pad Thai", 1250, 2)
	suite.Require().NoError(err)
	second, err := order.NewItem("Spring Rolls", 500, 1)
	suite.Require().NoError(err)
	return []order.Item{first, second}
}

func (suite *OrderRepositoryIntegrationTestSuite) createTestOrder() *order.Order {
	o, err := order.NewOrder(
		kernel.NewUUID(), kernel.NewUUID(), "+15550100", "",
		suite.testItems(), time.Now().UTC().Truncate(time.Microsecond))
	suite.Require().NoError(err)
	return o
}

func (suite *OrderRepositoryIntegrationTestSuite) addOrder(o *order.Order) {
	suite.tracker.On("TrackAggregate", o.ID(), o).Once()
	suite.Require().NoError(suite.repository.Add(context.Background(), o))
}

func (suite *OrderRepositoryIntegrationTestSuite) TestAdd_ValidOrder_Success() {
	ctx := context.Background()
	testOrder := suite.createTestOrder()

	suite.tracker.On("TrackAggregate", testOrder.ID(), testOrder).Once()

	err := suite.repository.Add(ctx, testOrder)
	suite.Require().NoError(err)

	var orderCount, itemCount int64
	suite.Require().NoError(suite.db.Model(&orderrepo.OrderDTO{}).Count(&orderCount).Error)
	suite.Require().NoError(suite.db.Model(&orderrepo.ItemDTO{}).Count(&itemCount).Error)
	suite.Equal(int64(1), orderCount)
	suite.Equal(int64(2), itemCount)

	suite.tracker.AssertExpectations(suite.T())
}

func (suite *OrderRepositoryIntegrationTestSuite) TestGet_RoundTripsFullState() {
	ctx := context.Background()

	courierID := kernel.NewUUID()
	ignored := []kernel.UUID{kernel.NewUUID(), kernel.NewUUID()}
	createdAt := time.Now().UTC().Truncate(time.Microsecond)
	assignedAt := createdAt.Add(10 * time.Minute)

	original, err := order.RestoreOrder(
		kernel.NewUUID(), kernel.NewUUID(), "+15550100", "tok-7", suite.testItems(),
		order.Delivery, &courierID, ignored, false, createdAt, &assignedAt)
	suite.Require().NoError(err)
	suite.addOrder(original)

	retrieved, err := suite.repository.Get(ctx, original.ID())
	suite.Require().NoError(err)

	suite.True(retrieved.ID().IsEqual(original.ID()))
	suite.True(retrieved.RestaurantID().IsEqual(original.RestaurantID()))
	suite.Equal("+15550100", retrieved.CustomerPhone())
	suite.Equal("tok-7", retrieved.ClientToken())
	suite.Equal(order.Delivery, retrieved.Status())
	suite.Require().NotNil(retrieved.Courier())
	suite.True(retrieved.Courier().IsEqual(courierID))
	suite.Equal(int64(3000), retrieved.TotalPrice())
	suite.Len(retrieved.Items(), 2)
	suite.ElementsMatch(ignored, retrieved.IgnoredBy())
	suite.Require().NotNil(retrieved.AssignedAt())
	suite.True(retrieved.AssignedAt().Equal(assignedAt))
}

func (suite *OrderRepositoryIntegrationTestSuite) TestGet_NonExistentOrder_ReturnsNotFoundError() {
	retrieved, err := suite.repository.Get(context.Background(), kernel.NewUUID())

	suite.Nil(retrieved)
	suite.Require().Error(err)

	var notFoundErr *errs.ObjectNotFoundError
	suite.Require().ErrorAs(err, &notFoundErr)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestUpdate_PersistsZeroValues() {
	ctx := context.Background()

	testOrder := suite.createTestOrder()
	testOrder.RequireManualDispatch()
	suite.addOrder(testOrder)

	// clearing the flag must survive the update despite being a zero value
	testOrder.ResetManualDispatch()
	testOrder.MarkIgnoredBy(kernel.NewUUID())
	suite.tracker.On("TrackAggregate", testOrder.ID(), testOrder).Once()
	suite.Require().NoError(suite.repository.Update(ctx, testOrder))

	retrieved, err := suite.repository.Get(ctx, testOrder.ID())
	suite.Require().NoError(err)
	suite.False(retrieved.AwaitingManualDispatch())
	suite.Len(retrieved.IgnoredBy(), 1)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestUpdate_NonExistentOrder_ReturnsNotFound() {
	err := suite.repository.Update(context.Background(), suite.createTestOrder())

	suite.Require().ErrorIs(err, gorm.ErrRecordNotFound)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestAssignCourier_FirstClaimWins() {
	ctx := context.Background()
	testOrder := suite.createTestOrder()
	suite.addOrder(testOrder)

	first := kernel.NewUUID()
	second := kernel.NewUUID()
	at := time.Now().UTC()

	won, err := suite.repository.AssignCourier(ctx, testOrder.ID(), first, at)
	suite.Require().NoError(err)
	suite.True(won)

	won, err = suite.repository.AssignCourier(ctx, testOrder.ID(), second, at)
	suite.Require().NoError(err)
	suite.False(won, "second claim must observe zero affected rows")

	retrieved, err := suite.repository.Get(ctx, testOrder.ID())
	suite.Require().NoError(err)
	suite.Equal(order.Delivery, retrieved.Status())
	suite.Require().NotNil(retrieved.Courier())
	suite.True(retrieved.Courier().IsEqual(first))
}

func (suite *OrderRepositoryIntegrationTestSuite) TestAssignCourier_ConcurrentClaims_ExactlyOneWins() {
	ctx := context.Background()
	testOrder := suite.createTestOrder()
	suite.addOrder(testOrder)

	const claimants = 10
	var wg sync.WaitGroup
	wins := make(chan kernel.UUID, claimants)

	for range claimants {
		courierID := kernel.NewUUID()
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := suite.repository.AssignCourier(ctx, testOrder.ID(), courierID, time.Now().UTC())
			suite.NoError(err)
			if won {
				wins <- courierID
			}
		}()
	}

	wg.Wait()
	close(wins)

	winners := make([]kernel.UUID, 0, 1)
	for id := range wins {
		winners = append(winners, id)
	}
	suite.Require().Len(winners, 1, "exactly one concurrent claim may win")

	retrieved, err := suite.repository.Get(ctx, testOrder.ID())
	suite.Require().NoError(err)
	suite.True(retrieved.Courier().IsEqual(winners[0]))
}

func (suite *OrderRepositoryIntegrationTestSuite) TestAssignCourier_RejectedOrder_NotClaimable() {
	ctx := context.Background()

	rejected, err := order.RestoreOrder(
		kernel.NewUUID(), kernel.NewUUID(), "+15550100", "", suite.testItems(),
		order.Rejected, nil, nil, false, time.Now().UTC(), nil)
	suite.Require().NoError(err)
	suite.addOrder(rejected)

	won, err := suite.repository.AssignCourier(ctx, rejected.ID(), kernel.NewUUID(), time.Now().UTC())
	suite.Require().NoError(err)
	suite.False(won)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestFindDuplicateOf_ClientTokenMatchesWithoutWindow() {
	ctx := context.Background()

	old := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)
	prior, err := order.NewOrder(
		kernel.NewUUID(), kernel.NewUUID(), "+15550100", "tok-1", suite.testItems(), old)
	suite.Require().NoError(err)
	suite.addOrder(prior)

	candidate, err := order.NewOrder(
		kernel.NewUUID(), kernel.NewUUID(), "+15559999", "tok-1", suite.testItems(), time.Now().UTC())
	suite.Require().NoError(err)

	since := time.Now().UTC().Add(-10 * time.Second)
	duplicate, err := suite.repository.FindDuplicateOf(ctx, candidate, since)
	suite.Require().NoError(err)
	suite.Require().NotNil(duplicate)
	suite.True(duplicate.ID().IsEqual(prior.ID()))
}

func (suite *OrderRepositoryIntegrationTestSuite) TestFindDuplicateOf_DerivedKeyHonorsWindow() {
	ctx := context.Background()
	restaurantID := kernel.NewUUID()

	recent := time.Now().UTC().Add(-5 * time.Second).Truncate(time.Microsecond)
	prior, err := order.NewOrder(
		kernel.NewUUID(), restaurantID, "+15550100", "", suite.testItems(), recent)
	suite.Require().NoError(err)
	suite.addOrder(prior)

	candidate, err := order.NewOrder(
		kernel.NewUUID(), restaurantID, "+15550100", "", suite.testItems(), time.Now().UTC())
	suite.Require().NoError(err)

	// inside the window the prior order matches
	duplicate, err := suite.repository.FindDuplicateOf(ctx, candidate, time.Now().UTC().Add(-10*time.Second))
	suite.Require().NoError(err)
	suite.Require().NotNil(duplicate)
	suite.True(duplicate.ID().IsEqual(prior.ID()))

	// a cutoff after the prior order excludes it
	duplicate, err = suite.repository.FindDuplicateOf(ctx, candidate, time.Now().UTC().Add(-time.Second))
	suite.Require().NoError(err)
	suite.Nil(duplicate)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestFindDuplicateOf_DifferentTotalIsNotDuplicate() {
	ctx := context.Background()
	restaurantID := kernel.NewUUID()

	prior, err := order.NewOrder(
		kernel.NewUUID(), restaurantID, "+15550100", "", suite.testItems(), time.Now().UTC())
	suite.Require().NoError(err)
	suite.addOrder(prior)

	item, err := order.NewItem("Soup", 700, 1)
	suite.Require().NoError(err)
	candidate, err := order.NewOrder(
		kernel.NewUUID(), restaurantID, "+15550100", "", []order.Item{item}, time.Now().UTC())
	suite.Require().NoError(err)

	duplicate, err := suite.repository.FindDuplicateOf(ctx, candidate, time.Now().UTC().Add(-time.Minute))
	suite.Require().NoError(err)
	suite.Nil(duplicate)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestGetAllUnassigned_FiltersCorrectly() {
	ctx := context.Background()

	unassigned := suite.createTestOrder()
	suite.addOrder(unassigned)

	parked := suite.createTestOrder()
	parked.RequireManualDispatch()
	suite.addOrder(parked)

	assigned := suite.createTestOrder()
	suite.addOrder(assigned)
	won, err := suite.repository.AssignCourier(ctx, assigned.ID(), kernel.NewUUID(), time.Now().UTC())
	suite.Require().NoError(err)
	suite.Require().True(won)

	orders, err := suite.repository.GetAllUnassigned(ctx)
	suite.Require().NoError(err)
	suite.Require().Len(orders, 1)
	suite.True(orders[0].ID().IsEqual(unassigned.ID()))
}

func (suite *OrderRepositoryIntegrationTestSuite) TestGetAwaitingManualDispatch() {
	ctx := context.Background()

	parked := suite.createTestOrder()
	parked.RequireManualDispatch()
	suite.addOrder(parked)

	flowing := suite.createTestOrder()
	suite.addOrder(flowing)

	orders, err := suite.repository.GetAwaitingManualDispatch(ctx)
	suite.Require().NoError(err)
	suite.Require().Len(orders, 1)
	suite.True(orders[0].ID().IsEqual(parked.ID()))
}

func (suite *OrderRepositoryIntegrationTestSuite) TestCountActiveByCourier() {
	ctx := context.Background()

	courierA := kernel.NewUUID()
	courierB := kernel.NewUUID()

	for _, courierID := range []kernel.UUID{courierA, courierA, courierB} {
		o := suite.createTestOrder()
		suite.addOrder(o)
		won, err := suite.repository.AssignCourier(ctx, o.ID(), courierID, time.Now().UTC())
		suite.Require().NoError(err)
		suite.Require().True(won)
	}

	idle := suite.createTestOrder()
	suite.addOrder(idle)

	counts, err := suite.repository.CountActiveByCourier(ctx)
	suite.Require().NoError(err)
	suite.Len(counts, 2)
	suite.Equal(2, counts[courierA])
	suite.Equal(1, counts[courierB])
}

func TestOrderRepositoryIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(OrderRepositoryIntegrationTestSuite))
}
