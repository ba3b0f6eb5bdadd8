package migration

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/pressly/goose/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/byteristo/internal/config"
	"github.com/Additional-Code/byteristo/internal/database"
)

//go:embed sql/*.sql
var migrationsFS embed.FS

const migrationsDir = "sql"

// Module provides the migrator to Fx.
var Module = fx.Provide(New)

// AutoMigrate applies pending migrations on start when DB_AUTO_MIGRATE is set.
var AutoMigrate = fx.Module("migration",
	fx.Provide(New),
	fx.Invoke(func(lc fx.Lifecycle, cfg config.Config, m *Migrator) {
		if !cfg.Database.AutoMigrate {
			return
		}
		lc.Append(fx.Hook{OnStart: m.Up})
	}),
)

// goose keeps dialect and filesystem in package globals.
var gooseMu sync.Mutex

// Migrator applies the embedded goose migrations to the writer connection.
type Migrator struct {
	db      *sql.DB
	dialect string
	logger  *zap.Logger
}

// New constructs a goose-backed migrator.
func New(cfg config.Config, conns *database.Connections, logger *zap.Logger) (*Migrator, error) {
	dialect, err := gooseDialect(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}
	return &Migrator{db: conns.Writer.DB, dialect: dialect, logger: logger}, nil
}

// Apply runs every pending migration against db. Used by tests and tooling
// that manage their own connections.
func Apply(ctx context.Context, db *sql.DB, driver string) error {
	dialect, err := gooseDialect(driver)
	if err != nil {
		return err
	}
	m := &Migrator{db: db, dialect: dialect, logger: zap.NewNop()}
	return m.Up(ctx)
}

// Up applies all pending migrations.
func (m *Migrator) Up(ctx context.Context) error {
	err := m.withGoose(func() error {
		return goose.UpContext(ctx, m.db, migrationsDir)
	})
	if err != nil {
		if isNoMigrationErr(err) {
			m.logger.Info("no migrations to apply")
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}

	m.logger.Info("migrations applied")
	return nil
}

// Down rolls back migrations. Steps <=0 defaults to 1; all=true rolls everything back.
func (m *Migrator) Down(ctx context.Context, steps int, all bool) error {
	if all {
		err := m.withGoose(func() error {
			return goose.DownToContext(ctx, m.db, migrationsDir, 0)
		})
		if err != nil && !isNoMigrationErr(err) {
			return fmt.Errorf("rollback migrations: %w", err)
		}
		m.logger.Info("migrations rolled back", zap.String("mode", "all"))
		return nil
	}

	if steps <= 0 {
		steps = 1
	}

	for i := 0; i < steps; i++ {
		err := m.withGoose(func() error {
			return goose.DownContext(ctx, m.db, migrationsDir)
		})
		if err != nil {
			if isNoMigrationErr(err) {
				m.logger.Info("no migrations to rollback")
				return nil
			}
			return fmt.Errorf("rollback migrations: %w", err)
		}
	}

	m.logger.Info("migrations rolled back", zap.Int("steps", steps))
	return nil
}

func (m *Migrator) withGoose(fn func() error) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(m.dialect); err != nil {
		return err
	}
	return fn()
}

func gooseDialect(driver string) (string, error) {
	switch driver {
	case "postgres", "pg":
		return "postgres", nil
	case "mysql":
		return "mysql", nil
	case "sqlite", "sqlite3":
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("unsupported goose dialect for driver %s", driver)
	}
}

func isNoMigrationErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, goose.ErrNoNextVersion) || errors.Is(err, goose.ErrNoMigrationFiles) {
		return true
	}

	return strings.Contains(err.Error(), "no migrations")
}
