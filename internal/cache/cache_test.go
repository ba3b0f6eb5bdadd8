package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Get(ctx, "orders:1")
	assert.ErrorIs(t, err, ErrCacheMiss)

	value := []byte(`{"id":"1"}`)
	require.NoError(t, store.Set(ctx, "orders:1", value, time.Minute))
	value[0] = 'X'

	got, err := store.Get(ctx, "orders:1")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"1"}`, string(got))
	got[0] = 'Y'
	again, err := store.Get(ctx, "orders:1")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"1"}`, string(again))

	require.NoError(t, store.Set(ctx, "menu:available", []byte("[]"), 0))
	_, err = store.Get(ctx, "menu:available")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "menu:available"))
	_, err = store.Get(ctx, "menu:available")
	assert.ErrorIs(t, err, ErrCacheMiss)

	assert.Error(t, store.Set(ctx, "", nil, 0))
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "orders:2", []byte("{}"), 20*time.Millisecond))
	assert.Eventually(t, func() bool {
		_, err := store.Get(ctx, "orders:2")
		return errors.Is(err, ErrCacheMiss)
	}, time.Second, 10*time.Millisecond)
}

func TestNoopStore(t *testing.T) {
	ctx := context.Background()
	var s Store = noopStore{}

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.NoError(t, s.Delete(ctx, "k"))
}
