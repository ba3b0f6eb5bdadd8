package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/byteristo/internal/config"
)

// Store represents a generic cache backend. Callers treat every error as a
// miss; the cache is never the source of truth.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ErrCacheMiss indicates the key is absent from the cache.
var ErrCacheMiss = errors.New("cache miss")

// Module provides the cache store to the Fx graph.
var Module = fx.Provide(NewStore)

// NewStore initialises the configured cache store (redis, memory or noop).
func NewStore(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Store, error) {
	switch cfg.Cache.Driver {
	case "noop":
		logger.Info("cache disabled; using noop store")
		return noopStore{}, nil
	case "memory":
		logger.Info("using in-process cache store")
		return NewMemoryStore(), nil
	case "redis":
		return newRedisStore(lc, cfg.Cache, logger), nil
	default:
		return nil, fmt.Errorf("unsupported cache driver: %s", cfg.Cache.Driver)
	}
}

type noopStore struct{}

func (noopStore) Get(context.Context, string) ([]byte, error) {
	return nil, ErrCacheMiss
}

func (noopStore) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}

func (noopStore) Delete(context.Context, string) error {
	return nil
}

// MemoryStore is a process-local Store backed by go-cache.
type MemoryStore struct {
	items *gocache.Cache
}

// memoryJanitor is how often expired entries are swept.
const memoryJanitor = time.Minute

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: gocache.New(gocache.NoExpiration, memoryJanitor)}
}

// Get returns a copy of the stored value.
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.items.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	return bytes.Clone(v.([]byte)), nil
}

// Set stores value; ttl <= 0 keeps it until deleted.
func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errors.New("cache key is required")
	}
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	m.items.Set(key, bytes.Clone(value), ttl)
	return nil
}

// Delete removes key.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.items.Delete(key)
	return nil
}
