package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/byteristo/internal/database"
	"github.com/Additional-Code/byteristo/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/byteristo/repository/order")

var (
	// ErrNotFound is returned when an order is missing.
	ErrNotFound = errors.New("order not found")
	// ErrItemNotFound is returned when an item does not belong to the order.
	ErrItemNotFound = errors.New("order item not found")
	// ErrIntegrity wraps constraint violations such as a duplicate order number.
	ErrIntegrity = errors.New("order integrity violation")
	// ErrConflict is returned when the order changed between read and write.
	ErrConflict = errors.New("order was modified concurrently")
)

// Filter narrows List results. Zero values mean "any".
type Filter struct {
	Statuses    []entity.OrderStatus
	TableNumber *int
	Type        entity.OrderType
}

// MutateFunc edits a loaded order in place. Only status and timestamp
// changes on the order and its items are persisted.
type MutateFunc func(order *entity.Order) error

// Repository encapsulates read/write access for orders.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// Create persists a new order and its items in one transaction.
func (r *Repository) Create(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Create", trace.WithAttributes(
		attribute.String("order.number", order.Number),
		attribute.Int("order.items", len(order.Items)),
	))
	defer span.End()

	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(order).Exec(ctx); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		if len(order.Items) == 0 {
			return nil
		}
		if _, err := tx.NewInsert().Model(&order.Items).Exec(ctx); err != nil {
			return fmt.Errorf("insert order items: %w", err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return translate(err)
	}
	return nil
}

// GetByID fetches an order with its items using the read replica when available.
func (r *Repository) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByID", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	order, err := load(ctx, r.reader, id, false)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			span.RecordError(err)
		}
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

// List returns orders matching the filter, newest first, with nested items.
func (r *Repository) List(ctx context.Context, filter Filter) ([]*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.List")
	defer span.End()

	orders := make([]*entity.Order, 0)
	q := r.reader.NewSelect().
		Model(&orders).
		Relation("Items", orderItems).
		OrderExpr("o.created_at DESC").
		OrderExpr("o.id DESC")

	if len(filter.Statuses) > 0 {
		q = q.Where("o.status IN (?)", bun.In(filter.Statuses))
	}
	if filter.TableNumber != nil {
		q = q.Where("o.table_number = ?", *filter.TableNumber)
	}
	if filter.Type != "" {
		q = q.Where("o.order_type = ?", filter.Type)
	}

	if err := q.Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("orders.count", len(orders)))
	return orders, nil
}

// Mutate loads the order inside a transaction, applies fn and writes back the
// changed item rows and the order row. The order row is guarded by its version
// so a concurrent writer yields ErrConflict instead of a lost update. Errors
// returned by fn abort the transaction and are returned unchanged.
func (r *Repository) Mutate(ctx context.Context, id string, fn MutateFunc) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Mutate", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	var updated *entity.Order
	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current, err := load(ctx, tx, id, true)
		if err != nil {
			return err
		}

		next := current.Clone()
		if err := fn(next); err != nil {
			return err
		}
		if err := save(ctx, tx, current, next); err != nil {
			return err
		}

		updated = next
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, "mutate failed")
		span.RecordError(err)
		return nil, translate(err)
	}
	return updated, nil
}

// save writes the item rows whose status changed and the order row guarded
// by current.Version. A row that moved on since current was read yields
// ErrConflict. On success next carries the bumped version.
func save(ctx context.Context, db bun.IDB, current, next *entity.Order) error {
	for _, item := range next.Items {
		if prev := current.Item(item.ID); prev != nil && prev.Status == item.Status {
			continue
		}
		if _, err := db.NewUpdate().
			Model(item).
			Column("status", "updated_at").
			WherePK().
			Exec(ctx); err != nil {
			return fmt.Errorf("update order item %s: %w", item.ID, err)
		}
	}

	next.Version = current.Version + 1
	res, err := db.NewUpdate().
		Model(next).
		Column("status", "updated_at", "version").
		WherePK().
		Where("version = ?", current.Version).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if n == 0 {
		next.Version = current.Version
		return ErrConflict
	}
	return nil
}

// Delete removes the order and its items in one transaction once guard
// accepts the current state. The deleted order is returned.
func (r *Repository) Delete(ctx context.Context, id string, guard func(*entity.Order) error) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Delete", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	var deleted *entity.Order
	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current, err := load(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(current); err != nil {
				return err
			}
		}

		if _, err := tx.NewDelete().
			Model((*entity.OrderItem)(nil)).
			Where("order_id = ?", id).
			Exec(ctx); err != nil {
			return fmt.Errorf("delete order items: %w", err)
		}
		if _, err := tx.NewDelete().
			Model(current).
			WherePK().
			Exec(ctx); err != nil {
			return fmt.Errorf("delete order: %w", err)
		}

		deleted = current
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, "delete failed")
		span.RecordError(err)
		return nil, translate(err)
	}
	return deleted, nil
}

func load(ctx context.Context, db bun.IDB, id string, lock bool) (*entity.Order, error) {
	order := new(entity.Order)
	q := db.NewSelect().
		Model(order).
		Relation("Items", orderItems).
		Where("o.id = ?", id)
	if lock && db.Dialect().Name() != dialect.SQLite {
		q = q.For("UPDATE")
	}

	err := q.Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func orderItems(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Order("position ASC")
}

// translate folds driver constraint errors into ErrIntegrity.
func translate(err error) error {
	if err == nil || !isIntegrityViolation(err) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrIntegrity, err)
}

func isIntegrityViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) && pgErr.IntegrityViolation() {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1062, 1451, 1452:
			return true
		}
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.Code == sqlite3.ErrConstraint {
		return true
	}
	return false
}
