package menu

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/byteristo/internal/dto"
	"github.com/Additional-Code/byteristo/internal/presentation/http/response"
	service "github.com/Additional-Code/byteristo/internal/service/menu"
	"github.com/Additional-Code/byteristo/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/byteristo/transport/http/menu")

// Handler exposes menu endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a menu Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/api/menu")
	g.GET("", h.list)
	g.GET("/", h.list)
	g.POST("", h.create)
	g.POST("/", h.create)
	g.GET("/available", h.available)
	g.GET("/:id", h.getByID)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	in := service.ListInput{Category: c.QueryParam("category")}
	if raw := c.QueryParam("available"); raw != "" {
		available, err := strconv.ParseBool(raw)
		if err != nil {
			return b.WithError(errorbank.BadRequest("available must be true or false", errorbank.WithCause(err))).Build()
		}
		in.Available = &available
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "menu.list", trace.WithAttributes(attribute.String("filter.category", in.Category)))
	defer span.End()

	items, err := h.svc.List(ctx, in)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewMenuItems(items)).WithField("count", len(items)).Build()
}

func (h *Handler) available(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "menu.available")
	defer span.End()

	items, err := h.svc.Available(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewMenuItems(items)).WithField("count", len(items)).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)
	id := c.Param("id")

	ctx, span := httpTracer.Start(c.Request().Context(), "menu.getByID", trace.WithAttributes(attribute.String("menu.id", id)))
	defer span.End()

	item, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewMenuItem(item)).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	if c.Request().ContentLength == 0 {
		return b.WithError(errorbank.BadRequest("No data provided")).Build()
	}
	var payload dto.CreateMenuItemRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("Invalid request payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "menu.create", trace.WithAttributes(attribute.String("menu.name", payload.Name)))
	defer span.End()

	item, err := h.svc.Create(ctx, service.CreateInput{
		Name:            payload.Name,
		Description:     payload.Description,
		Price:           payload.Price,
		Category:        payload.Category,
		IsAvailable:     payload.IsAvailable,
		PreparationTime: payload.PreparationTime,
		Allergens:       payload.Allergens,
		NutritionalInfo: payload.NutritionalInfo,
	})
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusCreated).
		WithMessage("Menu item created successfully").
		WithData(dto.NewMenuItem(item)).
		Build()
}

func (h *Handler) update(c echo.Context) error {
	b := response.New(c)
	id := c.Param("id")

	var payload dto.UpdateMenuItemRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&payload); err != nil {
			return b.WithError(errorbank.BadRequest("Invalid request payload", errorbank.WithCause(err))).Build()
		}
	}
	patch, err := toPatch(payload)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "menu.update", trace.WithAttributes(attribute.String("menu.id", id)))
	defer span.End()

	item, err := h.svc.Update(ctx, id, patch)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithMessage("Menu item updated successfully").WithData(dto.NewMenuItem(item)).Build()
}

func (h *Handler) delete(c echo.Context) error {
	b := response.New(c)
	id := c.Param("id")

	ctx, span := httpTracer.Start(c.Request().Context(), "menu.delete", trace.WithAttributes(attribute.String("menu.id", id)))
	defer span.End()

	if err := h.svc.Delete(ctx, id); err != nil {
		return b.WithError(err).Build()
	}
	return b.WithMessage("Menu item deleted successfully").Build()
}

// toPatch keeps only the keys present in the body. Non-nullable columns
// reject an explicit null.
func toPatch(req dto.UpdateMenuItemRequest) (service.Patch, error) {
	var (
		patch    service.Patch
		problems []string
	)
	has := func(key string) bool { return req.Present[key] }
	required := func(key string, ok bool) bool {
		if !has(key) {
			return false
		}
		if !ok {
			problems = append(problems, key+" must not be null")
			return false
		}
		return true
	}

	if required("name", req.Name != nil) {
		patch.Name = service.Some(*req.Name)
	}
	if has("description") {
		patch.Description = service.Some(req.Description)
	}
	if required("price", req.Price != nil) {
		patch.Price = service.Some(*req.Price)
	}
	if required("category", req.Category != nil) {
		patch.Category = service.Some(*req.Category)
	}
	if required("is_available", req.IsAvailable != nil) {
		patch.IsAvailable = service.Some(*req.IsAvailable)
	}
	if required("preparation_time", req.PreparationTime != nil) {
		patch.PreparationTime = service.Some(*req.PreparationTime)
	}
	if has("allergens") {
		patch.Allergens = service.Some(req.Allergens)
	}
	if has("nutritional_info") {
		patch.NutritionalInfo = service.Some(req.NutritionalInfo)
	}

	if len(problems) > 0 {
		return service.Patch{}, errorbank.BadRequest("Validation error", errorbank.WithDetail("errors", problems))
	}
	return patch, nil
}
