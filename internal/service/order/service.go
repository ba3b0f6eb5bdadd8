package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/byteristo/internal/cache"
	"github.com/Additional-Code/byteristo/internal/catalog"
	"github.com/Additional-Code/byteristo/internal/config"
	"github.com/Additional-Code/byteristo/internal/entity"
	"github.com/Additional-Code/byteristo/internal/notifier"
	repo "github.com/Additional-Code/byteristo/internal/repository/order"
	"github.com/Additional-Code/byteristo/pkg/errorbank"
)

var (
	serviceTracer = otel.Tracer("github.com/Additional-Code/byteristo/service/order")
	serviceMeter  = otel.Meter("github.com/Additional-Code/byteristo/service/order")
)

// Event types published on the order stream.
const (
	EventCreated      = "order.created"
	EventDeleted      = "order.deleted"
	eventStatusPrefix = "order.status."
)

// StatusEvent names the event emitted when an order reaches status.
func StatusEvent(status entity.OrderStatus) string {
	return eventStatusPrefix + string(status)
}

// Store is the persistence the engine relies on.
type Store interface {
	Create(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, id string) (*entity.Order, error)
	List(ctx context.Context, filter repo.Filter) ([]*entity.Order, error)
	Mutate(ctx context.Context, id string, fn repo.MutateFunc) (*entity.Order, error)
	Delete(ctx context.Context, id string, guard func(*entity.Order) error) (*entity.Order, error)
}

// Availability answers the advisory catalog check.
type Availability interface {
	Check(ctx context.Context, ids []string) (catalog.Result, bool)
}

// Notifier receives lifecycle events. Implementations must not block.
type Notifier interface {
	Notify(ctx context.Context, eventType string, order *entity.Order)
}

// Options tunes the engine.
type Options struct {
	Location          *time.Location
	DefaultPrepTime   time.Duration
	CompletionBuffer  time.Duration
	StrictTransitions bool
	CacheTTL          time.Duration
	// Clock and NumberGenerator are replaceable in tests.
	Clock           func() time.Time
	NumberGenerator func(now time.Time) string
}

// Service implements the order lifecycle.
type Service struct {
	store    Store
	catalog  Availability
	notifier Notifier
	cache    cache.Store
	logger   *zap.Logger
	opts     Options

	created     metric.Int64Counter
	transitions metric.Int64Counter
	payments    metric.Int64Counter
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Advisor    *catalog.Advisor
	Notifier   *notifier.Notifier
	Cache      cache.Store
	Config     config.Config
	Logger     *zap.Logger
}

// NewService wires a new Service instance from the Fx graph.
func NewService(p Params) *Service {
	return New(p.Repository, p.Advisor, p.Notifier, p.Cache, Options{
		Location:          p.Config.Orders.Location,
		DefaultPrepTime:   p.Config.Orders.DefaultPrepTime,
		CompletionBuffer:  p.Config.Orders.CompletionBuffer,
		StrictTransitions: p.Config.Orders.StrictTransitions,
		CacheTTL:          p.Config.Cache.DefaultTTL,
	}, p.Logger)
}

// New builds a Service from explicit collaborators. Nil cache and notifier
// are allowed.
func New(store Store, availability Availability, n Notifier, c cache.Store, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.DefaultPrepTime <= 0 {
		opts.DefaultPrepTime = 15 * time.Minute
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.NumberGenerator == nil {
		opts.NumberGenerator = GenerateNumber
	}

	s := &Service{
		store:    store,
		catalog:  availability,
		notifier: n,
		cache:    c,
		logger:   logger,
		opts:     opts,
	}
	s.initMetrics()
	return s
}

func (s *Service) initMetrics() {
	var err error
	if s.created, err = serviceMeter.Int64Counter("orders.created",
		metric.WithDescription("Orders successfully created")); err != nil {
		s.logger.Warn("orders.created counter unavailable", zap.Error(err))
	}
	if s.transitions, err = serviceMeter.Int64Counter("orders.status_transitions",
		metric.WithDescription("Order status changes by target status")); err != nil {
		s.logger.Warn("orders.status_transitions counter unavailable", zap.Error(err))
	}
	if s.payments, err = serviceMeter.Int64Counter("orders.payments",
		metric.WithDescription("Orders settled")); err != nil {
		s.logger.Warn("orders.payments counter unavailable", zap.Error(err))
	}
}

// GenerateNumber returns ORD-<YYYYMMDD>-<1000..9999>.
func GenerateNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%s-%d", now.Format("20060102"), 1000+rand.IntN(9000))
}

func (s *Service) now() time.Time {
	return s.opts.Clock().In(s.opts.Location)
}

// Create validates the submission, consults the catalog and persists the
// order with its items in one transaction.
func (s *Service) Create(ctx context.Context, in CreateInput) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Create", trace.WithAttributes(
		attribute.Int("order.table_number", in.TableNumber),
		attribute.Int("order.items", len(in.Items)),
	))
	defer span.End()

	if err := in.Validate(); err != nil {
		span.SetStatus(codes.Error, "invalid input")
		return nil, err
	}

	ids := in.MenuItemIDs()
	var (
		available catalog.Result
		checked   bool
	)
	if s.catalog != nil {
		available, checked = s.catalog.Check(ctx, ids)
	}
	if checked {
		if missing := available.Missing(ids); len(missing) > 0 {
			span.SetStatus(codes.Error, "unavailable items")
			return nil, errorbank.BadRequest("Some menu items are not available",
				errorbank.WithDetail("unavailable_items", missing))
		}
	}

	now := s.now()
	totals := ComputeTotals(in.Items)
	order := &entity.Order{
		ID:                      uuid.NewString(),
		Number:                  s.opts.NumberGenerator(now),
		TableNumber:             in.TableNumber,
		CustomerName:            in.CustomerName,
		Status:                  entity.OrderConfirmed,
		Type:                    in.Type,
		TotalAmount:             totals.Total,
		TaxAmount:               totals.Tax,
		DiscountAmount:          totals.Discount,
		FinalAmount:             totals.Final,
		SpecialInstructions:     in.SpecialInstructions,
		EstimatedCompletionTime: EstimateCompletion(now, s.prepHints(in.Items, available, checked), s.opts.DefaultPrepTime, s.opts.CompletionBuffer),
		CreatedAt:               now,
		UpdatedAt:               now,
		Items:                   make([]*entity.OrderItem, 0, len(in.Items)),
	}
	for i, item := range in.Items {
		order.Items = append(order.Items, &entity.OrderItem{
			ID:                  uuid.NewString(),
			OrderID:             order.ID,
			Position:            i,
			MenuItemID:          item.MenuItemID,
			MenuItemName:        item.MenuItemName,
			Quantity:            item.Quantity,
			UnitPrice:           *item.UnitPrice,
			TotalPrice:          *item.TotalPrice,
			SpecialInstructions: item.SpecialInstructions,
			Status:              entity.ItemPreparing,
			CreatedAt:           now,
			UpdatedAt:           now,
		})
	}
	span.SetAttributes(attribute.String("order.number", order.Number))

	if err := s.store.Create(ctx, order); err != nil {
		if errors.Is(err, repo.ErrIntegrity) {
			span.SetStatus(codes.Error, "integrity violation")
			s.logger.Warn("order rejected by database constraints", zap.String("number", order.Number), zap.Error(err))
			return nil, errorbank.Integrity("Database integrity error", errorbank.WithCause(err))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		s.logger.Error("create order failed", zap.Error(err))
		return nil, errorbank.Internal("Error creating order", errorbank.WithCause(err))
	}

	s.logger.Info("order created",
		zap.String("id", order.ID),
		zap.String("number", order.Number),
		zap.String("final_amount", order.FinalAmount.StringFixed(2)),
	)
	s.count(ctx, s.created)
	s.remember(ctx, order)
	s.notify(ctx, EventCreated, order)
	return order, nil
}

func (s *Service) prepHints(items []ItemInput, available catalog.Result, checked bool) []time.Duration {
	hints := make([]time.Duration, 0, len(items))
	for _, item := range items {
		minutes := 0
		switch {
		case item.PreparationTime != nil:
			minutes = *item.PreparationTime
		case checked:
			if entry, ok := available.Lookup(item.MenuItemID); ok {
				minutes = entry.PreparationTime
			}
		}
		hints = append(hints, time.Duration(minutes)*time.Minute)
	}
	return hints
}

// Get returns an order with its items, reading through the cache.
func (s *Service) Get(ctx context.Context, id string) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Get", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	if order, err := s.getFromCache(ctx, id); err == nil {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return order, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("orders cache read failed", zap.String("id", id), zap.Error(err))
	}

	order, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, s.storeError(span, err, "Error fetching order")
	}
	s.localize(order)
	s.remember(ctx, order)
	return order, nil
}

// ListInput carries the optional listing filters. Status accepts "active".
type ListInput struct {
	Status      string
	TableNumber *int
	Type        string
}

// StatusActive is the synthetic filter for orders still in the kitchen flow.
const StatusActive = "active"

// List returns orders matching the filters, newest first.
func (s *Service) List(ctx context.Context, in ListInput) ([]*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.List")
	defer span.End()

	var filter repo.Filter
	switch {
	case in.Status == "":
	case in.Status == StatusActive:
		filter.Statuses = entity.ActiveOrderStatuses
	default:
		status, err := ParseOrderStatus(in.Status)
		if err != nil {
			return nil, err
		}
		filter.Statuses = []entity.OrderStatus{status}
	}
	if in.Type != "" {
		t := entity.OrderType(in.Type)
		if !t.Valid() {
			return nil, errorbank.BadRequest("order_type must be one of: " + joinTypes())
		}
		filter.Type = t
	}
	filter.TableNumber = in.TableNumber

	orders, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, s.storeError(span, err, "Error fetching orders")
	}
	for _, o := range orders {
		s.localize(o)
	}
	return orders, nil
}

// UpdateStatus moves the order to target and cascades to pending items.
func (s *Service) UpdateStatus(ctx context.Context, id, rawStatus string) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.UpdateStatus", trace.WithAttributes(
		attribute.String("order.id", id),
		attribute.String("order.status", rawStatus),
	))
	defer span.End()

	if err := checkID(id); err != nil {
		return nil, err
	}

	// The status is judged only once the order is known to exist.
	order, err := s.store.Mutate(ctx, id, func(o *entity.Order) error {
		target, err := ParseOrderStatus(rawStatus)
		if err != nil {
			return err
		}
		if err := CheckTransition(s.opts.StrictTransitions, o.Status, target); err != nil {
			return err
		}
		ApplyOrderStatus(o, target, s.now())
		return nil
	})
	if err != nil {
		return nil, s.storeError(span, err, "Error updating order status")
	}

	s.localize(order)
	s.logger.Info("order status updated", zap.String("id", id), zap.String("status", string(order.Status)))
	s.count(ctx, s.transitions, attribute.String("status", string(order.Status)))
	s.remember(ctx, order)
	s.notify(ctx, StatusEvent(order.Status), order)
	return order, nil
}

// UpdateItemStatus moves one item and rolls the order up to ready when every
// item is ready or served.
func (s *Service) UpdateItemStatus(ctx context.Context, id, itemID, rawStatus string) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.UpdateItemStatus", trace.WithAttributes(
		attribute.String("order.id", id),
		attribute.String("order.item_id", itemID),
		attribute.String("item.status", rawStatus),
	))
	defer span.End()

	if err := checkID(id); err != nil {
		return nil, err
	}
	if err := checkUUID(itemID, "Invalid ID format"); err != nil {
		return nil, err
	}
	var (
		status   entity.ItemStatus
		rolledUp bool
	)
	order, err := s.store.Mutate(ctx, id, func(o *entity.Order) error {
		item := o.Item(itemID)
		if item == nil {
			return repo.ErrItemNotFound
		}
		var err error
		if status, err = ParseItemStatus(rawStatus); err != nil {
			return err
		}
		rolledUp = ApplyItemStatus(o, item, status, s.now())
		return nil
	})
	if err != nil {
		return nil, s.storeError(span, err, "Error updating order item status")
	}

	s.localize(order)
	s.logger.Info("order item status updated",
		zap.String("id", id),
		zap.String("item_id", itemID),
		zap.String("status", string(status)),
		zap.Bool("rolled_up", rolledUp),
	)
	if rolledUp {
		s.count(ctx, s.transitions, attribute.String("status", string(order.Status)))
	}
	s.remember(ctx, order)
	s.notify(ctx, StatusEvent(order.Status), order)
	return order, nil
}

// PayInput carries the optional payment fields. Amount is the raw text the
// caller sent, validated as a decimal.
type PayInput struct {
	Method string
	Amount *string
}

// Pay settles a ready or delivered order.
func (s *Service) Pay(ctx context.Context, id string, in PayInput) (*entity.Order, Payment, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Pay", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	if err := checkID(id); err != nil {
		return nil, Payment{}, err
	}

	var payment Payment
	order, err := s.store.Mutate(ctx, id, func(o *entity.Order) error {
		p, err := Settle(o, in.Method, in.Amount)
		if err != nil {
			return err
		}
		payment = p
		o.Status = entity.OrderPayed
		o.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, Payment{}, s.storeError(span, err, "Error processing payment")
	}

	s.localize(order)
	s.logger.Info("order payed",
		zap.String("id", id),
		zap.String("method", payment.Method),
		zap.String("amount", payment.Amount.StringFixed(2)),
	)
	s.count(ctx, s.payments, attribute.String("method", payment.Method))
	s.count(ctx, s.transitions, attribute.String("status", string(entity.OrderPayed)))
	s.remember(ctx, order)
	s.notify(ctx, StatusEvent(entity.OrderPayed), order)
	return order, payment, nil
}

// Delete removes a pending or cancelled order and its items.
func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Delete", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	order, err := s.store.Delete(ctx, id, CheckDeletable)
	if err != nil {
		return s.storeError(span, err, "Error deleting order")
	}

	s.localize(order)
	s.logger.Info("order deleted", zap.String("id", id), zap.String("number", order.Number))
	s.forget(ctx, id)
	s.notify(ctx, EventDeleted, order)
	return nil
}

func checkID(id string) error {
	return checkUUID(id, "Invalid order ID format")
}

func checkUUID(id, message string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errorbank.BadRequest(message, errorbank.WithCause(err))
	}
	return nil
}

func (s *Service) storeError(span trace.Span, err error, message string) error {
	var appErr *errorbank.AppError
	switch {
	case errors.As(err, &appErr):
		span.SetStatus(codes.Error, string(appErr.Kind()))
		return appErr
	case errors.Is(err, repo.ErrNotFound):
		span.SetStatus(codes.Error, "not found")
		return errorbank.NotFound("Order not found")
	case errors.Is(err, repo.ErrItemNotFound):
		span.SetStatus(codes.Error, "not found")
		return errorbank.NotFound("Order item not found")
	case errors.Is(err, repo.ErrConflict):
		span.SetStatus(codes.Error, "conflict")
		return errorbank.Conflict("Order was modified by another request, retry", errorbank.WithCause(err))
	case errors.Is(err, repo.ErrIntegrity):
		span.SetStatus(codes.Error, "integrity violation")
		return errorbank.Integrity("Database integrity error", errorbank.WithCause(err))
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		s.logger.Error(message, zap.Error(err))
		return errorbank.Internal(message, errorbank.WithCause(err))
	}
}

// localize presents timestamps in the service time zone.
func (s *Service) localize(o *entity.Order) {
	if o == nil {
		return
	}
	loc := s.opts.Location
	o.CreatedAt = o.CreatedAt.In(loc)
	o.UpdatedAt = o.UpdatedAt.In(loc)
	if !o.EstimatedCompletionTime.IsZero() {
		o.EstimatedCompletionTime = o.EstimatedCompletionTime.In(loc)
	}
	for _, item := range o.Items {
		item.CreatedAt = item.CreatedAt.In(loc)
		item.UpdatedAt = item.UpdatedAt.In(loc)
	}
}

func (s *Service) count(ctx context.Context, counter metric.Int64Counter, attrs ...attribute.KeyValue) {
	if counter == nil {
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (s *Service) notify(ctx context.Context, eventType string, order *entity.Order) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, eventType, order)
}

func cacheKey(id string) string {
	return "orders:" + id
}

func (s *Service) getFromCache(ctx context.Context, id string) (*entity.Order, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	raw, err := s.cache.Get(ctx, cacheKey(id))
	if err != nil {
		return nil, err
	}
	var order entity.Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, err
	}
	s.localize(&order)
	return &order, nil
}

func (s *Service) remember(ctx context.Context, order *entity.Order) {
	if s.cache == nil || order == nil {
		return
	}
	raw, err := json.Marshal(order)
	if err == nil {
		err = s.cache.Set(ctx, cacheKey(order.ID), raw, s.opts.CacheTTL)
	}
	if err != nil {
		s.logger.Warn("orders cache write failed", zap.String("id", order.ID), zap.Error(err))
	}
}

func (s *Service) forget(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cacheKey(id)); err != nil {
		s.logger.Warn("orders cache evict failed", zap.String("id", id), zap.Error(err))
	}
}
