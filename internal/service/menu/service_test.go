package menu

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Additional-Code/byteristo/internal/cache"
	"github.com/Additional-Code/byteristo/internal/entity"
	repo "github.com/Additional-Code/byteristo/internal/repository/menu"
	"github.com/Additional-Code/byteristo/internal/testutil"
	"github.com/Additional-Code/byteristo/pkg/errorbank"
)

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func minutes(n int) *int { return &n }

func newService(t *testing.T, c cache.Store) *Service {
	t.Helper()
	return New(repo.NewRepository(testutil.NewDatabase(t)), c, 0, zaptest.NewLogger(t))
}

func pizza() CreateInput {
	return CreateInput{
		Name:            "Pizza Margherita",
		Price:           price("8.50"),
		Category:        "main",
		PreparationTime: minutes(15),
		Allergens:       []string{"gluten", "dairy"},
	}
}

func TestCreateDefaultsAndRoundTrip(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, pizza())
	require.NoError(t, err)
	assert.True(t, created.IsAvailable)
	_, err = uuid.Parse(created.ID)
	require.NoError(t, err)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pizza Margherita", got.Name)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("8.50")))
	assert.Equal(t, 15, got.PreparationTime)
	assert.Equal(t, []string{"gluten", "dairy"}, got.Allergens)
}

func TestCreateValidation(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Name: "Soup", Category: "main"})
	require.Error(t, err)
	assert.Equal(t, []string{"price is required", "preparation_time is required"}, errorbank.From(err).Details()["errors"])

	bad := pizza()
	bad.Name = strings.Repeat("x", 101)
	bad.Price = price("-1")
	bad.Category = "snack"
	bad.PreparationTime = minutes(0)
	_, err = svc.Create(ctx, bad)
	require.Error(t, err)
	appErr := errorbank.From(err)
	assert.Equal(t, errorbank.KindBadRequest, appErr.Kind())
	assert.Equal(t, "Validation error", appErr.Message())
	assert.Len(t, appErr.Details()["errors"], 4)

	items, err := svc.List(ctx, ListInput{})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestListFiltersAndOrdering(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()

	unavailable := false
	for _, in := range []CreateInput{
		{Name: "Tiramisu", Price: price("6.00"), Category: "dessert", PreparationTime: minutes(5)},
		{Name: "Spaghetti Carbonara", Price: price("12.00"), Category: "main", PreparationTime: minutes(20)},
		{Name: "Lasagne", Price: price("13.00"), Category: "main", PreparationTime: minutes(30), IsAvailable: &unavailable},
		{Name: "Caprese", Price: price("9.00"), Category: "appetizer", PreparationTime: minutes(5)},
	} {
		_, err := svc.Create(ctx, in)
		require.NoError(t, err)
	}

	all, err := svc.List(ctx, ListInput{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Caprese", "Tiramisu", "Lasagne", "Spaghetti Carbonara"}, names(all))

	mains, err := svc.List(ctx, ListInput{Category: "main"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Lasagne", "Spaghetti Carbonara"}, names(mains))

	off, err := svc.List(ctx, ListInput{Available: &unavailable})
	require.NoError(t, err)
	assert.Equal(t, []string{"Lasagne"}, names(off))

	available, err := svc.Available(ctx)
	require.NoError(t, err)
	assert.Len(t, available, 3)
}

func TestUpdateTouchesOnlyPresentFields(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, pizza())
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, Patch{
		Price:       Some(decimal.RequireFromString("9.50")),
		IsAvailable: Some(false),
	})
	require.NoError(t, err)
	assert.False(t, updated.IsAvailable)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("9.50")))
	assert.False(t, got.IsAvailable)
	assert.Equal(t, "Pizza Margherita", got.Name)
	assert.Equal(t, 15, got.PreparationTime)
}

func TestUpdateErrors(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, pizza())
	require.NoError(t, err)

	_, err = svc.Update(ctx, created.ID, Patch{})
	require.Error(t, err)
	assert.Equal(t, "No data provided", errorbank.From(err).Message())

	_, err = svc.Update(ctx, created.ID, Patch{Category: Some("brunch")})
	require.Error(t, err)
	assert.Equal(t, "Validation error", errorbank.From(err).Message())

	_, err = svc.Update(ctx, uuid.NewString(), Patch{Name: Some("Calzone")})
	require.Error(t, err)
	assert.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())

	_, err = svc.Update(ctx, "abc", Patch{Name: Some("Calzone")})
	require.Error(t, err)
	assert.Equal(t, "Invalid menu item ID format", errorbank.From(err).Message())
}

func TestDelete(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, pizza())
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.Get(ctx, created.ID)
	assert.True(t, errorbank.Is(err, errorbank.KindNotFound))

	err = svc.Delete(ctx, created.ID)
	assert.True(t, errorbank.Is(err, errorbank.KindNotFound))
}

func TestAvailableCacheInvalidatedOnWrite(t *testing.T) {
	store := cache.NewMemoryStore()
	svc := newService(t, store)
	ctx := context.Background()

	created, err := svc.Create(ctx, pizza())
	require.NoError(t, err)

	first, err := svc.Available(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)
	_, err = store.Get(ctx, availableCacheKey)
	require.NoError(t, err)

	_, err = svc.Update(ctx, created.ID, Patch{IsAvailable: Some(false)})
	require.NoError(t, err)
	_, err = store.Get(ctx, availableCacheKey)
	assert.ErrorIs(t, err, cache.ErrCacheMiss)

	second, err := svc.Available(ctx)
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestPatchApply(t *testing.T) {
	item := &entity.MenuItem{Name: "Old", Category: "main", PreparationTime: 10}
	cols := Patch{Name: Some("New"), Description: Some[*string](nil)}.Apply(item)

	assert.Equal(t, []string{"name", "description"}, cols)
	assert.Equal(t, "New", item.Name)
	assert.Nil(t, item.Description)
	assert.Equal(t, 10, item.PreparationTime)
	assert.True(t, Patch{}.Empty())
	assert.False(t, Patch{IsAvailable: Some(false)}.Empty())
}

func names(items []*entity.MenuItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Name)
	}
	return out
}
