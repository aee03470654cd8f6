package cmd

import (
	"log/slog"

	"dispatch/internal/adapters/in/http"
	"dispatch/internal/adapters/out/amqpnotify"
	"dispatch/internal/adapters/out/lognotify"
	"dispatch/internal/adapters/out/memory"
	"dispatch/internal/adapters/out/postgres"
	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/application/usecases/queries"
	"dispatch/internal/core/ports"
	"dispatch/internal/dispatch"
	"dispatch/internal/jobs"
	"dispatch/internal/pkg/clock"

	"gorm.io/gorm"
)

// CompositionRoot wires adapters, the dispatch coordinator, and use case
// handlers together. It is the single place where concrete types meet.
type CompositionRoot struct {
	config      Config
	gormDB      *gorm.DB
	uowFactory  postgres.GormUnitOfWorkFactory
	appClock    clock.Clock
	logger      *slog.Logger
	amqpClient  *amqpnotify.Client
	publisher   ports.EventPublisher
	coordinator *dispatch.Coordinator
}

// NewCompositionRoot builds the object graph. When the configuration names
// an AMQP broker the notification path runs over it; otherwise offers and
// events only reach the log.
func NewCompositionRoot(config Config, gormDB *gorm.DB, logger *slog.Logger) (CompositionRoot, error) {
	appClock := clock.NewSystem()

	var (
		notifier   ports.Notifier
		publisher  ports.EventPublisher
		amqpClient *amqpnotify.Client
	)

	if config.AmqpURL != "" {
		client, err := amqpnotify.Dial(config.AmqpURL)
		if err != nil {
			return CompositionRoot{}, err
		}
		if err = client.DeclareTopology(); err != nil {
			client.Close()
			return CompositionRoot{}, err
		}
		amqpClient = client
		notifier = amqpnotify.NewNotifier(client)
		publisher = amqpnotify.NewEventPublisher(client)
	} else {
		notifier = lognotify.NewNotifier(logger)
		publisher = lognotify.NewEventPublisher(logger)
	}

	uowFactory := postgres.NewGormUnitOfWorkFactory(gormDB)
	coordinator := dispatch.NewCoordinator(
		uowFactory,
		memory.NewOfferStore(),
		notifier,
		appClock,
		logger,
		config.OfferTTL,
		config.MaxActiveOrders,
	)

	return CompositionRoot{
		config:      config,
		gormDB:      gormDB,
		uowFactory:  *uowFactory,
		appClock:    appClock,
		logger:      logger,
		amqpClient:  amqpClient,
		publisher:   publisher,
		coordinator: coordinator,
	}, nil
}

// Close releases resources owned by the root: timers and the broker
// connection.
func (c *CompositionRoot) Close() {
	c.coordinator.Stop()
	if c.amqpClient != nil {
		c.amqpClient.Close()
	}
}

// Coordinator exposes the dispatch coordinator for jobs and the HTTP layer.
func (c *CompositionRoot) Coordinator() *dispatch.Coordinator {
	return c.coordinator
}

func (c *CompositionRoot) CreateCreateOrderCommandHandler() commands.CreateOrderCommandHandler {
	var f commands.OrderUoWFactory = FuncOrderUoWFactory(func() commands.OrderUoW {
		return c.uowFactory.Create()
	})
	return commands.NewCreateOrderCommandHandler(f, c.appClock, c.config.DedupWindow)
}

func (c *CompositionRoot) CreateUpdateOrderStatusCommandHandler() commands.UpdateOrderStatusCommandHandler {
	var f commands.OrderCourierUoWFactory = FuncOrderCourierUoWFactory(func() commands.OrderCourierUoW {
		return c.uowFactory.Create()
	})
	return commands.NewUpdateOrderStatusCommandHandler(f, c.publisher, c.coordinator, c.appClock)
}

func (c *CompositionRoot) CreateAcceptOrderCommandHandler() commands.AcceptOrderCommandHandler {
	var f commands.UoWFactory = FuncUoWFactory(func() commands.UoW {
		return c.uowFactory.Create()
	})
	return commands.NewAcceptOrderCommandHandler(f, c.coordinator, c.appClock, c.config.MaxActiveOrders)
}

func (c *CompositionRoot) CreateRefuseOrderCommandHandler() commands.RefuseOrderCommandHandler {
	return commands.NewRefuseOrderCommandHandler(c.coordinator)
}

func (c *CompositionRoot) CreateCreateCourierCommandHandler() commands.CreateCourierCommandHandler {
	var f commands.CourierUoWFactory = FuncCourierUoWFactory(func() commands.CourierUoW {
		return c.uowFactory.Create()
	})
	return commands.NewCreateCourierCommandHandler(f, c.appClock)
}

func (c *CompositionRoot) CreateGetAllowedTransitionsQueryHandler() queries.GetAllowedTransitionsQueryHandler {
	return queries.NewGetAllowedTransitionsQueryHandler(c.gormDB)
}

func (c *CompositionRoot) CreateGetManualDispatchOrdersQueryHandler() queries.GetManualDispatchOrdersQueryHandler {
	return queries.NewGetManualDispatchOrdersQueryHandler(c.gormDB)
}

func (c *CompositionRoot) CreateGetAllCouriersQueryHandler() queries.GetAllCouriersQueryHandler {
	return queries.NewGetAllCouriersQueryHandler(c.gormDB)
}

// CreateHTTPServer assembles the HTTP server over the use case handlers.
func (c *CompositionRoot) CreateHTTPServer() *http.Server {
	return http.NewServer(
		c.CreateCreateOrderCommandHandler(),
		c.CreateUpdateOrderStatusCommandHandler(),
		c.CreateAcceptOrderCommandHandler(),
		c.CreateRefuseOrderCommandHandler(),
		c.CreateCreateCourierCommandHandler(),
		c.CreateGetAllowedTransitionsQueryHandler(),
		c.CreateGetManualDispatchOrdersQueryHandler(),
		c.CreateGetAllCouriersQueryHandler(),
		c.coordinator,
	)
}

// CreateJobManager assembles the scheduled jobs.
func (c *CompositionRoot) CreateJobManager() *jobs.JobManager {
	return jobs.NewJobManager(
		c.coordinator,
		&c.uowFactory,
		c.appClock,
		c.config.IdempotencyRetention,
		c.logger,
	)
}

// FuncCourierUoWFactory adapts a closure to the commands.CourierUoWFactory
// interface, bridging the concrete unit of work factory to the narrower
// views the handlers depend on.
type FuncCourierUoWFactory func() commands.CourierUoW

func (f FuncCourierUoWFactory) Create() commands.CourierUoW {
	return f()
}

// FuncOrderUoWFactory adapts a closure to commands.OrderUoWFactory.
type FuncOrderUoWFactory func() commands.OrderUoW

func (f FuncOrderUoWFactory) Create() commands.OrderUoW {
	return f()
}

// FuncOrderCourierUoWFactory adapts a closure to commands.OrderCourierUoWFactory.
type FuncOrderCourierUoWFactory func() commands.OrderCourierUoW

func (f FuncOrderCourierUoWFactory) Create() commands.OrderCourierUoW {
	return f()
}

// FuncUoWFactory adapts a closure to commands.UoWFactory.
type FuncUoWFactory func() commands.UoW

func (f FuncUoWFactory) Create() commands.UoW {
	return f()
}
