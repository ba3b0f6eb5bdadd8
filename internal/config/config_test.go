package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 3002, cfg.HTTP.Orders.Port)
	assert.Equal(t, 3001, cfg.HTTP.Menu.Port)
	assert.Equal(t, 3000, cfg.HTTP.Gateway.Port)
	assert.Equal(t, "Europe/Rome", cfg.Orders.Location.String())
	assert.Equal(t, 15*time.Minute, cfg.Orders.DefaultPrepTime)
	assert.Equal(t, 5*time.Minute, cfg.Orders.CompletionBuffer)
	assert.False(t, cfg.Orders.StrictTransitions)
	assert.Equal(t, 5*time.Second, cfg.Catalog.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, "order_events", cfg.Messaging.Topic())
	assert.Equal(t, cfg.Database.WriterDSN, cfg.Database.ReaderDSN)
}

func TestNewOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "8080")
	t.Setenv("ORDERS_TIMEZONE", "UTC")
	t.Setenv("ORDERS_DEFAULT_PREP_TIME", "20m")
	t.Setenv("ORDERS_STRICT_TRANSITIONS", "true")
	t.Setenv("CATALOG_URL", "http://menu:3001/")
	t.Setenv("CATALOG_TIMEOUT", "2")
	t.Setenv("MESSAGING_DRIVER", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("KAFKA_TOPIC", "orders")
	t.Setenv("OBS_PROMETHEUS_PATH", "prom")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Orders.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Orders.Address())
	assert.Equal(t, time.UTC.String(), cfg.Orders.Location.String())
	assert.Equal(t, 20*time.Minute, cfg.Orders.DefaultPrepTime)
	assert.True(t, cfg.Orders.StrictTransitions)
	assert.Equal(t, "http://menu:3001", cfg.Catalog.URL)
	assert.Equal(t, 2*time.Second, cfg.Catalog.Timeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Messaging.Kafka.Brokers)
	assert.Equal(t, "orders", cfg.Messaging.Topic())
	assert.Equal(t, "/prom", cfg.Observability.PrometheusPath)
}

func TestNewRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"timezone":       {"ORDERS_TIMEZONE": "Mars/Olympus"},
		"port":           {"MENU_HTTP_PORT": "-1"},
		"cache driver":   {"CACHE_DRIVER": "memcached"},
		"messaging":      {"MESSAGING_DRIVER": "nats"},
		"gateway secret": {"GATEWAY_AUTH_ENABLED": "true"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := New()
			assert.Error(t, err)
		})
	}
}

func TestDisabledBackendsFallBackToNoop(t *testing.T) {
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("MESSAGING_ENABLED", "false")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "noop", cfg.Cache.Driver)
	assert.Equal(t, "noop", cfg.Messaging.Driver)
}

func TestForService(t *testing.T) {
	cfg := Config{Observability: Observability{ServiceName: "byteristo"}}

	named := cfg.ForService("menu-inventory")
	assert.Equal(t, "byteristo-menu-inventory", named.Observability.ServiceName)
	assert.Equal(t, "byteristo-menu-inventory", named.ForService("menu-inventory").Observability.ServiceName)
	assert.Equal(t, "byteristo", cfg.Observability.ServiceName)
}
