package menu

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"

	"github.com/Additional-Code/byteristo/internal/database"
	"github.com/Additional-Code/byteristo/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/byteristo/repository/menu")

// Module provides the menu repository to Fx.
var Module = fx.Provide(NewRepository)

// ErrNotFound is returned when a menu item is missing.
var ErrNotFound = errors.New("menu item not found")

// Filter narrows List results.
type Filter struct {
	Category  string
	Available *bool
}

// Repository stores catalog entries.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{writer: conns.Writer, reader: conns.Reader}
}

// Create inserts a menu item.
func (r *Repository) Create(ctx context.Context, item *entity.MenuItem) error {
	ctx, span := repoTracer.Start(ctx, "MenuRepository.Create", trace.WithAttributes(attribute.String("menu.name", item.Name)))
	defer span.End()

	if _, err := r.writer.NewInsert().Model(item).Exec(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return err
	}
	return nil
}

// GetByID fetches a menu item.
func (r *Repository) GetByID(ctx context.Context, id string) (*entity.MenuItem, error) {
	ctx, span := repoTracer.Start(ctx, "MenuRepository.GetByID", trace.WithAttributes(attribute.String("menu.id", id)))
	defer span.End()

	item := new(entity.MenuItem)
	err := r.reader.NewSelect().Model(item).Where("mi.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return item, nil
}

// List returns menu items ordered by category then name.
func (r *Repository) List(ctx context.Context, filter Filter) ([]*entity.MenuItem, error) {
	ctx, span := repoTracer.Start(ctx, "MenuRepository.List")
	defer span.End()

	items := make([]*entity.MenuItem, 0)
	q := r.reader.NewSelect().Model(&items).Order("mi.category ASC", "mi.name ASC")
	if filter.Category != "" {
		q = q.Where("mi.category = ?", filter.Category)
	}
	if filter.Available != nil {
		q = q.Where("mi.is_available = ?", *filter.Available)
	}

	if err := q.Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return items, nil
}

// Update writes the named columns of item.
func (r *Repository) Update(ctx context.Context, item *entity.MenuItem, columns ...string) error {
	ctx, span := repoTracer.Start(ctx, "MenuRepository.Update", trace.WithAttributes(
		attribute.String("menu.id", item.ID),
		attribute.StringSlice("menu.columns", columns),
	))
	defer span.End()

	if len(columns) == 0 {
		return nil
	}
	res, err := r.writer.NewUpdate().Model(item).Column(columns...).WherePK().Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a menu item.
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, span := repoTracer.Start(ctx, "MenuRepository.Delete", trace.WithAttributes(attribute.String("menu.id", id)))
	defer span.End()

	res, err := r.writer.NewDelete().Model((*entity.MenuItem)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
