package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/schema"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/byteristo/internal/config"
)

const pingTimeout = 5 * time.Second

// Connections bundles writer and reader bun instances. Order and menu writes
// always go through Writer; Reader serves listings and lookups.
type Connections struct {
	Writer *bun.DB
	Reader *bun.DB
}

// Single wraps one bun handle as both writer and reader.
func Single(db *bun.DB) *Connections {
	return &Connections{Writer: db, Reader: db}
}

// Ping checks both pools. The reader is skipped when it shares the writer.
func (c *Connections) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := c.Writer.PingContext(ctx); err != nil {
		return fmt.Errorf("ping writer: %w", err)
	}
	if c.Reader != c.Writer {
		if err := c.Reader.PingContext(ctx); err != nil {
			return fmt.Errorf("ping reader: %w", err)
		}
	}
	return nil
}

// Close releases both pools.
func (c *Connections) Close() error {
	err := c.Writer.Close()
	if c.Reader != c.Writer {
		err = errors.Join(err, c.Reader.Close())
	}
	return err
}

// Module registers the database connections with Fx.
var Module = fx.Provide(New)

// New opens the writer pool and, when DB_READER_DSN differs, a separate reader
// pool. Both are verified on start and closed on stop.
func New(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*Connections, error) {
	dial, err := selectDialect(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}

	writer, err := open(dial, cfg.Database, cfg.Database.WriterDSN)
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}
	if dial.Name() == dialect.SQLite {
		// sqlite serialises writers; a single connection avoids SQLITE_BUSY.
		writer.SetMaxOpenConns(1)
	}

	conns := Single(writer)
	if dsn := cfg.Database.ReaderDSN; dsn != "" && dsn != cfg.Database.WriterDSN {
		if conns.Reader, err = open(dial, cfg.Database, dsn); err != nil {
			_ = writer.Close()
			return nil, fmt.Errorf("open reader: %w", err)
		}
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := conns.Ping(ctx); err != nil {
				return err
			}
			logger.Info("database connected",
				zap.String("driver", cfg.Database.Driver),
				zap.Bool("replica", conns.Reader != conns.Writer),
			)
			return nil
		},
		OnStop: func(context.Context) error {
			return conns.Close()
		},
	})

	return conns, nil
}

func selectDialect(driver string) (schema.Dialect, error) {
	switch driver {
	case "postgres", "pg":
		return pgdialect.New(), nil
	case "mysql":
		return mysqldialect.New(), nil
	case "sqlite", "sqlite3":
		return sqlitedialect.New(), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

func open(dial schema.Dialect, cfg config.Database, dsn string) (*bun.DB, error) {
	if dsn == "" {
		return nil, errors.New("empty DSN")
	}

	var (
		sqldb *sql.DB
		err   error
	)
	switch dial.Name() {
	case dialect.PG:
		sqldb = sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	case dialect.MySQL:
		sqldb, err = sql.Open("mysql", withParseTime(dsn))
	case dialect.SQLite:
		sqldb, err = sql.Open("sqlite3", dsn)
	default:
		err = fmt.Errorf("unsupported dialect: %s", dial.Name())
	}
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxConnLifetime > 0 {
		sqldb.SetConnMaxLifetime(cfg.MaxConnLifetime)
	}
	return bun.NewDB(sqldb, dial), nil
}

// withParseTime makes mysql DATETIME columns scan into time.Time.
func withParseTime(dsn string) string {
	switch {
	case strings.Contains(dsn, "parseTime="):
		return dsn
	case strings.Contains(dsn, "?"):
		return dsn + "&parseTime=true"
	default:
		return dsn + "?parseTime=true"
	}
}
