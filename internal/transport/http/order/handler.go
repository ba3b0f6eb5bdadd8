package order

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/byteristo/internal/dto"
	"github.com/Additional-Code/byteristo/internal/entity"
	"github.com/Additional-Code/byteristo/internal/presentation/http/response"
	service "github.com/Additional-Code/byteristo/internal/service/order"
	"github.com/Additional-Code/byteristo/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/byteristo/transport/http/order")

// Handler exposes order endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/api/orders")
	g.GET("", h.list)
	g.GET("/", h.list)
	g.POST("", h.create)
	g.POST("/", h.create)
	g.GET("/:id", h.getByID)
	g.PUT("/:id/status", h.updateStatus)
	g.PUT("/:id/items/:item_id/status", h.updateItemStatus)
	g.POST("/:id/pay", h.pay)
	g.DELETE("/:id", h.delete)
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	in := service.ListInput{
		Status: c.QueryParam("status"),
		Type:   c.QueryParam("order_type"),
	}
	if raw := c.QueryParam("table_number"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return b.WithError(errorbank.BadRequest("table_number must be an integer", errorbank.WithCause(err))).Build()
		}
		in.TableNumber = &n
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.list", trace.WithAttributes(
		attribute.String("filter.status", in.Status),
		attribute.String("filter.order_type", in.Type),
	))
	defer span.End()

	orders, err := h.svc.List(ctx, in)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.NewOrders(orders)).WithField("count", len(orders)).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)
	id := c.Param("id")

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.getByID", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	order, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.NewOrder(order)).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var payload dto.CreateOrderRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("Invalid request payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.create", trace.WithAttributes(
		attribute.Int("order.table_number", payload.TableNumber),
		attribute.Int("order.items", len(payload.Items)),
	))
	defer span.End()

	order, err := h.svc.Create(ctx, toCreateInput(payload))
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusCreated).
		WithMessage("Order created successfully").
		WithData(dto.NewOrder(order)).
		Build()
}

func (h *Handler) updateStatus(c echo.Context) error {
	b := response.New(c)
	id := c.Param("id")

	var payload dto.StatusRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("Invalid request payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.updateStatus", trace.WithAttributes(
		attribute.String("order.id", id),
		attribute.String("order.status", payload.Status),
	))
	defer span.End()

	order, err := h.svc.UpdateStatus(ctx, id, payload.Status)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithMessage("Order status updated successfully").WithData(dto.NewOrder(order)).Build()
}

func (h *Handler) updateItemStatus(c echo.Context) error {
	b := response.New(c)
	id, itemID := c.Param("id"), c.Param("item_id")

	var payload dto.StatusRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("Invalid request payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.updateItemStatus", trace.WithAttributes(
		attribute.String("order.id", id),
		attribute.String("order.item_id", itemID),
		attribute.String("item.status", payload.Status),
	))
	defer span.End()

	order, err := h.svc.UpdateItemStatus(ctx, id, itemID, payload.Status)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithMessage("Order item status updated successfully").WithData(dto.NewOrder(order)).Build()
}

func (h *Handler) pay(c echo.Context) error {
	b := response.New(c)
	id := c.Param("id")

	var payload dto.PayRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&payload); err != nil {
			return b.WithError(errorbank.BadRequest("Invalid request payload", errorbank.WithCause(err))).Build()
		}
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.pay", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	order, payment, err := h.svc.Pay(ctx, id, service.PayInput{
		Method: payload.PaymentMethod,
		Amount: payload.Amount(),
	})
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithMessage("Payment processed successfully").
		WithData(dto.NewOrder(order)).
		WithField("payment_info", dto.PaymentInfo{
			Method: payment.Method,
			Amount: dto.NewMoney(payment.Amount),
			Change: dto.NewMoney(payment.Change),
		}).
		Build()
}

func (h *Handler) delete(c echo.Context) error {
	b := response.New(c)
	id := c.Param("id")

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.delete", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	if err := h.svc.Delete(ctx, id); err != nil {
		return b.WithError(err).Build()
	}

	return b.WithMessage("Order deleted successfully").Build()
}

func toCreateInput(p dto.CreateOrderRequest) service.CreateInput {
	in := service.CreateInput{
		TableNumber:         p.TableNumber,
		Type:                entity.OrderType(p.OrderType),
		CustomerName:        p.CustomerName,
		SpecialInstructions: p.SpecialInstructions,
		Items:               make([]service.ItemInput, 0, len(p.Items)),
	}
	for _, item := range p.Items {
		in.Items = append(in.Items, service.ItemInput{
			MenuItemID:          item.MenuItemID,
			MenuItemName:        item.MenuItemName,
			Quantity:            item.Quantity,
			UnitPrice:           item.UnitPrice,
			TotalPrice:          item.TotalPrice,
			SpecialInstructions: item.SpecialInstructions,
			PreparationTime:     item.PreparationTime,
		})
	}
	return in
}
