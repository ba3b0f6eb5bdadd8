package migration_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Additional-Code/byteristo/internal/config"
	"github.com/Additional-Code/byteristo/internal/database"
	"github.com/Additional-Code/byteristo/internal/migration"
	"github.com/Additional-Code/byteristo/internal/testutil"
)

func tableExists(t *testing.T, conns *database.Connections, name string) bool {
	t.Helper()
	var n int
	err := conns.Writer.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	require.NoError(t, err)
	return n == 1
}

func TestUpDownRoundTrip(t *testing.T) {
	conns := testutil.NewDatabase(t)
	cfg := config.Config{Database: config.Database{Driver: "sqlite"}}
	m, err := migration.New(cfg, conns, zaptest.NewLogger(t))
	require.NoError(t, err)
	ctx := context.Background()

	assert.True(t, tableExists(t, conns, "orders"))
	assert.True(t, tableExists(t, conns, "menu_items"))

	require.NoError(t, m.Up(ctx))

	require.NoError(t, m.Down(ctx, 1, false))
	assert.False(t, tableExists(t, conns, "orders"))
	assert.True(t, tableExists(t, conns, "menu_items"))

	require.NoError(t, m.Down(ctx, 0, true))
	assert.False(t, tableExists(t, conns, "menu_items"))

	require.NoError(t, m.Up(ctx))
	assert.True(t, tableExists(t, conns, "order_items"))
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	conns := testutil.NewDatabase(t)

	for _, driver := range []string{"pg", "postgres", "mysql", "sqlite"} {
		_, err := migration.New(config.Config{Database: config.Database{Driver: driver}}, conns, zaptest.NewLogger(t))
		assert.NoError(t, err, driver)
	}
	_, err := migration.New(config.Config{Database: config.Database{Driver: "oracle"}}, conns, zaptest.NewLogger(t))
	assert.Error(t, err)
}
