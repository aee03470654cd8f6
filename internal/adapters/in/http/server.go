// Package http exposes the order lifecycle and dispatch operations over a
// JSON REST API built on Echo.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/application/usecases/queries"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/errs"

	"github.com/labstack/echo/v4"
)

// idempotencyKeyHeader carries the client-supplied token that makes
// acceptance retries safe.
const idempotencyKeyHeader = "Idempotency-Key"

// Dispatcher starts a dispatch round for a freshly created order.
// Implemented by the dispatch coordinator.
type Dispatcher interface {
	Dispatch(ctx context.Context, orderID kernel.UUID) (bool, error)
}

// Server coordinates between HTTP handlers and application use cases.
type Server struct {
	// Command handlers
	createOrderHandler   commands.CreateOrderCommandHandler
	updateStatusHandler  commands.UpdateOrderStatusCommandHandler
	acceptOrderHandler   commands.AcceptOrderCommandHandler
	refuseOrderHandler   commands.RefuseOrderCommandHandler
	createCourierHandler commands.CreateCourierCommandHandler

	// Query handlers
	getAllowedTransitionsHandler queries.GetAllowedTransitionsQueryHandler
	getManualDispatchHandler     queries.GetManualDispatchOrdersQueryHandler
	getAllCouriersHandler        queries.GetAllCouriersQueryHandler

	dispatcher Dispatcher
}

// NewServer creates an HTTP server with the required command and query
// handlers. The dispatcher starts an offer round for new orders without
// waiting for the periodic sweep.
func NewServer(
	createOrderHandler commands.CreateOrderCommandHandler,
	updateStatusHandler commands.UpdateOrderStatusCommandHandler,
	acceptOrderHandler commands.AcceptOrderCommandHandler,
	refuseOrderHandler commands.RefuseOrderCommandHandler,
	createCourierHandler commands.CreateCourierCommandHandler,
	getAllowedTransitionsHandler queries.GetAllowedTransitionsQueryHandler,
	getManualDispatchHandler queries.GetManualDispatchOrdersQueryHandler,
	getAllCouriersHandler queries.GetAllCouriersQueryHandler,
	dispatcher Dispatcher,
) *Server {
	return &Server{
		createOrderHandler:           createOrderHandler,
		updateStatusHandler:          updateStatusHandler,
		acceptOrderHandler:           acceptOrderHandler,
		refuseOrderHandler:           refuseOrderHandler,
		createCourierHandler:         createCourierHandler,
		getAllowedTransitionsHandler: getAllowedTransitionsHandler,
		getManualDispatchHandler:     getManualDispatchHandler,
		getAllCouriersHandler:        getAllCouriersHandler,
		dispatcher:                   dispatcher,
	}
}

// RegisterRoutes mounts all API routes on the Echo instance.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api/v1")

	api.POST("/orders", s.CreateOrder)
	api.POST("/orders/:id/status", s.UpdateOrderStatus)
	api.GET("/orders/:id/transitions", s.GetAllowedTransitions)
	api.POST("/orders/:id/accept", s.AcceptOrder)
	api.POST("/orders/:id/refuse", s.RefuseOrder)
	api.GET("/orders/manual-dispatch", s.GetManualDispatchOrders)

	api.POST("/couriers", s.CreateCourier)
	api.GET("/couriers", s.GetCouriers)
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type orderItemRequest struct {
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

type createOrderRequest struct {
	RestaurantID  string             `json:"restaurant_id"`
	CustomerPhone string             `json:"customer_phone"`
	ClientToken   string             `json:"client_token"`
	Items         []orderItemRequest `json:"items"`
}

type createOrderResponse struct {
	OrderID    string `json:"order_id"`
	TotalPrice int64  `json:"total_price"`
	Duplicate  bool   `json:"duplicate"`
}

// CreateOrder handles POST /api/v1/orders - registers a new delivery order.
// Returns 201 for a new order and 200 when the duplicate guard matched a
// previously accepted one.
func (s *Server) CreateOrder(ctx echo.Context) error {
	var req createOrderRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	restaurantID, err := kernel.UUIDFromString(req.RestaurantID)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid restaurant_id: " + err.Error(),
		})
	}

	items := make([]order.Item, 0, len(req.Items))
	for _, it := range req.Items {
		item, itemErr := order.NewItem(it.Name, it.UnitPrice, it.Quantity)
		if itemErr != nil {
			return ctx.JSON(http.StatusBadRequest, errorResponse{
				Code:    http.StatusBadRequest,
				Message: "Invalid item: " + itemErr.Error(),
			})
		}
		items = append(items, item)
	}

	cmd, err := commands.NewCreateOrderCommand(
		kernel.NewUUID(), restaurantID, req.CustomerPhone, req.ClientToken, items)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid order data: " + err.Error(),
		})
	}

	result, err := s.createOrderHandler.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, errorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to create order",
		})
	}

	if result.Duplicate {
		return ctx.JSON(http.StatusOK, createOrderResponse{
			OrderID:    result.OrderID.String(),
			TotalPrice: result.TotalPrice,
			Duplicate:  true,
		})
	}

	if s.dispatcher != nil {
		orderID := result.OrderID
		go func() {
			_, _ = s.dispatcher.Dispatch(context.Background(), orderID)
		}()
	}

	return ctx.JSON(http.StatusCreated, createOrderResponse{
		OrderID:    result.OrderID.String(),
		TotalPrice: result.TotalPrice,
	})
}

type updateStatusRequest struct {
	Status  string `json:"status"`
	Role    string `json:"role"`
	ActorID string `json:"actor_id"`
}

type orderStatusResponse struct {
	OrderID   string  `json:"order_id"`
	Status    string  `json:"status"`
	CourierID *string `json:"courier_id,omitempty"`
}

// UpdateOrderStatus handles POST /api/v1/orders/:id/status - applies a
// lifecycle transition on behalf of a restaurant, courier, or operator.
func (s *Server) UpdateOrderStatus(ctx echo.Context) error {
	orderID, err := kernel.UUIDFromString(ctx.Param("id"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid order id: " + err.Error(),
		})
	}

	var req updateStatusRequest
	if err = ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	target, err := order.StatusFromString(req.Status)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid status: " + err.Error(),
		})
	}

	actor, err := s.buildActor(req.Role, req.ActorID)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid actor: " + err.Error(),
		})
	}

	cmd, err := commands.NewUpdateOrderStatusCommand(orderID, target, actor)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid transition request: " + err.Error(),
		})
	}

	updated, err := s.updateStatusHandler.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return s.transitionError(ctx, err)
	}

	resp := orderStatusResponse{
		OrderID: updated.ID().String(),
		Status:  updated.Status().String(),
	}
	if courierID := updated.Courier(); courierID != nil {
		id := courierID.String()
		resp.CourierID = &id
	}

	return ctx.JSON(http.StatusOK, resp)
}

// transitionError maps domain transition failures onto HTTP statuses:
// unreachable transition is a conflict, ownership failure is forbidden,
// unknown order is not found.
func (s *Server) transitionError(ctx echo.Context, err error) error {
	switch {
	case errors.Is(err, order.ErrInvalidTransition):
		return ctx.JSON(http.StatusConflict, errorResponse{
			Code:    http.StatusConflict,
			Message: err.Error(),
		})
	case errors.Is(err, order.ErrActorForbidden):
		return ctx.JSON(http.StatusForbidden, errorResponse{
			Code:    http.StatusForbidden,
			Message: err.Error(),
		})
	case errors.Is(err, errs.ErrObjectNotFound):
		return ctx.JSON(http.StatusNotFound, errorResponse{
			Code:    http.StatusNotFound,
			Message: err.Error(),
		})
	default:
		return ctx.JSON(http.StatusInternalServerError, errorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to update order status",
		})
	}
}

func (s *Server) buildActor(roleName, actorID string) (order.Actor, error) {
	role, err := order.RoleFromString(roleName)
	if err != nil {
		return order.Actor{}, err
	}

	if role == order.RoleAdmin || role == order.RoleSystem {
		return order.NewSystemActor(role)
	}

	id, err := kernel.UUIDFromString(actorID)
	if err != nil {
		return order.Actor{}, err
	}
	return order.NewActor(role, id)
}

// GetAllowedTransitions handles GET /api/v1/orders/:id/transitions -
// returns the statuses reachable from the order's current one.
func (s *Server) GetAllowedTransitions(ctx echo.Context) error {
	orderID, err := kernel.UUIDFromString(ctx.Param("id"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid order id: " + err.Error(),
		})
	}

	query, err := queries.NewGetAllowedTransitionsQuery(orderID)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid query: " + err.Error(),
		})
	}

	result, err := s.getAllowedTransitionsHandler.Handle(ctx.Request().Context(), query)
	if err != nil {
		if errors.Is(err, errs.ErrObjectNotFound) {
			return ctx.JSON(http.StatusNotFound, errorResponse{
				Code:    http.StatusNotFound,
				Message: err.Error(),
			})
		}
		return ctx.JSON(http.StatusInternalServerError, errorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to retrieve allowed transitions",
		})
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"order_id": result.OrderID.String(),
		"current":  result.Current,
		"allowed":  result.Allowed,
	})
}

type acceptOrderRequest struct {
	CourierID string `json:"courier_id"`
}

// AcceptOrder handles POST /api/v1/orders/:id/accept - a courier's claim on
// an order. The race is resolved by the store; losing it yields a neutral
// 200 with assigned=false rather than an error. An Idempotency-Key header
// makes retries replay the original outcome byte for byte.
func (s *Server) AcceptOrder(ctx echo.Context) error {
	orderID, err := kernel.UUIDFromString(ctx.Param("id"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid order id: " + err.Error(),
		})
	}

	var req acceptOrderRequest
	if err = ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	courierID, err := kernel.UUIDFromString(req.CourierID)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid courier_id: " + err.Error(),
		})
	}

	cmd, err := commands.NewAcceptOrderCommand(orderID, courierID, ctx.Request().Header.Get(idempotencyKeyHeader))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid acceptance request: " + err.Error(),
		})
	}

	result, err := s.acceptOrderHandler.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrCourierCapacityExceeded):
			return ctx.JSON(http.StatusConflict, errorResponse{
				Code:    http.StatusConflict,
				Message: err.Error(),
			})
		case errors.Is(err, order.ErrInvalidTransition):
			return ctx.JSON(http.StatusConflict, errorResponse{
				Code:    http.StatusConflict,
				Message: err.Error(),
			})
		case errors.Is(err, errs.ErrObjectNotFound):
			return ctx.JSON(http.StatusNotFound, errorResponse{
				Code:    http.StatusNotFound,
				Message: err.Error(),
			})
		default:
			return ctx.JSON(http.StatusInternalServerError, errorResponse{
				Code:    http.StatusInternalServerError,
				Message: "Failed to process acceptance",
			})
		}
	}

	return ctx.JSON(http.StatusOK, result)
}

type refuseOrderRequest struct {
	CourierID string `json:"courier_id"`
}

// RefuseOrder handles POST /api/v1/orders/:id/refuse - a courier declining
// an offered order. The courier never sees this order again; the pending
// offer, if theirs, escalates immediately.
func (s *Server) RefuseOrder(ctx echo.Context) error {
	orderID, err := kernel.UUIDFromString(ctx.Param("id"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid order id: " + err.Error(),
		})
	}

	var req refuseOrderRequest
	if err = ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	courierID, err := kernel.UUIDFromString(req.CourierID)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid courier_id: " + err.Error(),
		})
	}

	cmd, err := commands.NewRefuseOrderCommand(orderID, courierID)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid refusal request: " + err.Error(),
		})
	}

	result, err := s.refuseOrderHandler.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		if errors.Is(err, errs.ErrObjectNotFound) {
			return ctx.JSON(http.StatusNotFound, errorResponse{
				Code:    http.StatusNotFound,
				Message: err.Error(),
			})
		}
		return ctx.JSON(http.StatusInternalServerError, errorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to process refusal",
		})
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"escalated": result.Escalated,
	})
}

type manualDispatchOrderResponse struct {
	OrderID       string    `json:"order_id"`
	RestaurantID  string    `json:"restaurant_id"`
	CustomerPhone string    `json:"customer_phone"`
	TotalPrice    int64     `json:"total_price"`
	CreatedAt     time.Time `json:"created_at"`
}

// GetManualDispatchOrders handles GET /api/v1/orders/manual-dispatch -
// lists orders parked for operator attention.
func (s *Server) GetManualDispatchOrders(ctx echo.Context) error {
	orders, err := s.getManualDispatchHandler.Handle(
		ctx.Request().Context(), queries.NewGetManualDispatchOrdersQuery())
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, errorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to retrieve orders",
		})
	}

	response := make([]manualDispatchOrderResponse, len(orders))
	for i, o := range orders {
		response[i] = manualDispatchOrderResponse{
			OrderID:       o.ID.String(),
			RestaurantID:  o.RestaurantID.String(),
			CustomerPhone: o.CustomerPhone,
			TotalPrice:    o.TotalPrice,
			CreatedAt:     o.CreatedAt,
		}
	}

	return ctx.JSON(http.StatusOK, response)
}

type createCourierRequest struct {
	Name string `json:"name"`
}

// CreateCourier handles POST /api/v1/couriers - registers a new courier.
func (s *Server) CreateCourier(ctx echo.Context) error {
	var req createCourierRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	cmd, err := commands.NewCreateCourierCommand(req.Name)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid courier data: " + err.Error(),
		})
	}

	courierID, err := s.createCourierHandler.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, errorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to create courier",
		})
	}

	return ctx.JSON(http.StatusCreated, map[string]any{
		"courier_id": courierID.String(),
	})
}

type courierResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Status        string     `json:"status"`
	LastEngagedAt *time.Time `json:"last_engaged_at,omitempty"`
}

// GetCouriers handles GET /api/v1/couriers - retrieves the fleet.
func (s *Server) GetCouriers(ctx echo.Context) error {
	couriers, err := s.getAllCouriersHandler.Handle(
		ctx.Request().Context(), queries.NewGetAllCouriersQuery())
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, errorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to retrieve couriers",
		})
	}

	response := make([]courierResponse, len(couriers))
	for i, c := range couriers {
		response[i] = courierResponse{
			ID:            c.ID.String(),
			Name:          c.Name,
			Status:        c.Status,
			LastEngagedAt: c.LastEngagedAt,
		}
	}

	return ctx.JSON(http.StatusOK, response)
}
