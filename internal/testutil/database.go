// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/Additional-Code/byteristo/internal/database"
	"github.com/Additional-Code/byteristo/internal/migration"
)

var dbSeq atomic.Int64

// NewDatabase opens an isolated in-memory sqlite database with every
// migration applied. It is closed when the test ends.
func NewDatabase(t testing.TB) *database.Connections {
	t.Helper()

	dsn := fmt.Sprintf("file:byteristo_test_%d?mode=memory&cache=shared&_fk=1", dbSeq.Add(1))
	sqldb, err := sql.Open("sqlite3", dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	require.NoError(t, migration.Apply(context.Background(), sqldb, "sqlite"))

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	return database.Single(db)
}
