package menu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/byteristo/internal/cache"
	"github.com/Additional-Code/byteristo/internal/config"
	"github.com/Additional-Code/byteristo/internal/entity"
	repo "github.com/Additional-Code/byteristo/internal/repository/menu"
	"github.com/Additional-Code/byteristo/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/byteristo/service/menu")

// Module provides the menu service to Fx.
var Module = fx.Provide(NewService)

const availableCacheKey = "menu:available"

// Store is the persistence the menu service relies on.
type Store interface {
	Create(ctx context.Context, item *entity.MenuItem) error
	GetByID(ctx context.Context, id string) (*entity.MenuItem, error)
	List(ctx context.Context, filter repo.Filter) ([]*entity.MenuItem, error)
	Update(ctx context.Context, item *entity.MenuItem, columns ...string) error
	Delete(ctx context.Context, id string) error
}

// Service validates and stores catalog entries.
type Service struct {
	store    Store
	cache    cache.Store
	cacheTTL time.Duration
	logger   *zap.Logger
	clock    func() time.Time
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Cache      cache.Store
	Config     config.Config
	Logger     *zap.Logger
}

// NewService wires a new Service instance from the Fx graph.
func NewService(p Params) *Service {
	return New(p.Repository, p.Cache, p.Config.Cache.DefaultTTL, p.Logger)
}

// New builds a Service. A nil cache disables caching.
func New(store Store, c cache.Store, ttl time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, cache: c, cacheTTL: ttl, logger: logger, clock: time.Now}
}

// CreateInput describes a new menu item.
type CreateInput struct {
	Name            string
	Description     *string
	Price           *decimal.Decimal
	Category        string
	IsAvailable     *bool
	PreparationTime *int
	Allergens       []string
	NutritionalInfo map[string]any
}

// ListInput narrows the listing.
type ListInput struct {
	Category  string
	Available *bool
}

// List returns menu items ordered by category and name.
func (s *Service) List(ctx context.Context, in ListInput) ([]*entity.MenuItem, error) {
	ctx, span := serviceTracer.Start(ctx, "MenuService.List")
	defer span.End()

	items, err := s.store.List(ctx, repo.Filter{Category: in.Category, Available: in.Available})
	if err != nil {
		return nil, s.storeError(span, err, "Error fetching menu items")
	}
	return items, nil
}

// Available returns orderable items, reading through the cache.
func (s *Service) Available(ctx context.Context) ([]*entity.MenuItem, error) {
	ctx, span := serviceTracer.Start(ctx, "MenuService.Available")
	defer span.End()

	if s.cache != nil {
		raw, err := s.cache.Get(ctx, availableCacheKey)
		if err == nil {
			var items []*entity.MenuItem
			if err := json.Unmarshal(raw, &items); err == nil {
				span.SetAttributes(attribute.Bool("cache.hit", true))
				return items, nil
			}
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("menu cache read failed", zap.Error(err))
		}
	}

	available := true
	items, err := s.store.List(ctx, repo.Filter{Available: &available})
	if err != nil {
		return nil, s.storeError(span, err, "Error fetching available menu items")
	}

	if s.cache != nil {
		raw, err := json.Marshal(items)
		if err == nil {
			err = s.cache.Set(ctx, availableCacheKey, raw, s.cacheTTL)
		}
		if err != nil {
			s.logger.Warn("menu cache write failed", zap.Error(err))
		}
	}
	return items, nil
}

// Get fetches one menu item.
func (s *Service) Get(ctx context.Context, id string) (*entity.MenuItem, error) {
	ctx, span := serviceTracer.Start(ctx, "MenuService.Get", trace.WithAttributes(attribute.String("menu.id", id)))
	defer span.End()

	if err := checkID(id); err != nil {
		return nil, err
	}
	item, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, s.storeError(span, err, "Error fetching menu item")
	}
	return item, nil
}

// Create validates and stores a new menu item.
func (s *Service) Create(ctx context.Context, in CreateInput) (*entity.MenuItem, error) {
	ctx, span := serviceTracer.Start(ctx, "MenuService.Create", trace.WithAttributes(attribute.String("menu.name", in.Name)))
	defer span.End()

	var problems []string
	if in.Price == nil {
		problems = append(problems, "price is required")
	}
	if in.PreparationTime == nil {
		problems = append(problems, "preparation_time is required")
	}
	if len(problems) > 0 {
		return nil, errorbank.BadRequest("Validation error", errorbank.WithDetail("errors", problems))
	}

	now := s.clock()
	item := &entity.MenuItem{
		ID:              uuid.NewString(),
		Name:            in.Name,
		Description:     in.Description,
		Price:           *in.Price,
		Category:        in.Category,
		IsAvailable:     true,
		PreparationTime: *in.PreparationTime,
		Allergens:       in.Allergens,
		NutritionalInfo: in.NutritionalInfo,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if in.IsAvailable != nil {
		item.IsAvailable = *in.IsAvailable
	}
	if err := Validate(item); err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, item); err != nil {
		return nil, s.storeError(span, err, "Error creating menu item")
	}

	s.logger.Info("menu item created", zap.String("id", item.ID), zap.String("name", item.Name))
	s.invalidate(ctx)
	return item, nil
}

// Update applies a partial update. Only fields present in the patch change.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (*entity.MenuItem, error) {
	ctx, span := serviceTracer.Start(ctx, "MenuService.Update", trace.WithAttributes(attribute.String("menu.id", id)))
	defer span.End()

	if err := checkID(id); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, errorbank.BadRequest("No data provided")
	}

	item, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, s.storeError(span, err, "Error updating menu item")
	}

	columns := patch.Apply(item)
	if err := Validate(item); err != nil {
		return nil, err
	}
	item.UpdatedAt = s.clock()
	columns = append(columns, "updated_at")

	if err := s.store.Update(ctx, item, columns...); err != nil {
		return nil, s.storeError(span, err, "Error updating menu item")
	}

	s.logger.Info("menu item updated", zap.String("id", id), zap.Strings("columns", columns))
	s.invalidate(ctx)
	return item, nil
}

// Delete removes a menu item.
func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, span := serviceTracer.Start(ctx, "MenuService.Delete", trace.WithAttributes(attribute.String("menu.id", id)))
	defer span.End()

	if err := checkID(id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return s.storeError(span, err, "Error deleting menu item")
	}

	s.logger.Info("menu item deleted", zap.String("id", id))
	s.invalidate(ctx)
	return nil
}

// Validate checks the invariants of a menu item.
func Validate(item *entity.MenuItem) error {
	var problems []string
	if n := utf8.RuneCountInString(strings.TrimSpace(item.Name)); n < 1 || n > 100 {
		problems = append(problems, "name must be between 1 and 100 characters")
	}
	if item.Price.IsNegative() {
		problems = append(problems, "price must not be negative")
	}
	if !slices.Contains(entity.MenuCategories, item.Category) {
		problems = append(problems, fmt.Sprintf("category must be one of: %s", strings.Join(entity.MenuCategories, ", ")))
	}
	if item.PreparationTime < 1 {
		problems = append(problems, "preparation_time must be at least 1")
	}
	if len(problems) == 0 {
		return nil
	}
	return errorbank.BadRequest("Validation error", errorbank.WithDetail("errors", problems))
}

func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errorbank.BadRequest("Invalid menu item ID format", errorbank.WithCause(err))
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, availableCacheKey); err != nil {
		s.logger.Warn("menu cache evict failed", zap.Error(err))
	}
}

func (s *Service) storeError(span trace.Span, err error, message string) error {
	if errors.Is(err, repo.ErrNotFound) {
		span.SetStatus(codes.Error, "not found")
		return errorbank.NotFound("Menu item not found")
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "repository error")
	s.logger.Error(message, zap.Error(err))
	return errorbank.Internal(message, errorbank.WithCause(err))
}
