package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/byteristo/internal/config"
)

const (
	serviceVersion  = "0.1.0"
	shutdownTimeout = 10 * time.Second
)

// Manager owns the tracing and metrics providers of one executable.
type Manager struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	metrics        *promMetrics
	cfg            config.Observability
	logger         *zap.Logger
}

// Module exposes the observability manager to Fx.
var Module = fx.Provide(NewManager)

// NewManager configures tracing and metrics providers and installs them as
// the otel globals on start.
func NewManager(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*Manager, error) {
	mgr, err := newManager(context.Background(), cfg.Observability, logger)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			mgr.install()
			return nil
		},
		OnStop: mgr.Shutdown,
	})

	return mgr, nil
}

func newManager(ctx context.Context, cfg config.Observability, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	resource, err := sdkresource.New(ctx,
		sdkresource.WithFromEnv(),
		sdkresource.WithHost(),
		sdkresource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(serviceVersion),
			attribute.String("service.environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, err
	}

	mgr := &Manager{cfg: cfg, logger: logger}

	if cfg.EnableTracing {
		if err := mgr.initTracing(ctx, resource); err != nil {
			return nil, err
		}
	}
	if cfg.EnableMetrics {
		if err := mgr.initMetrics(resource); err != nil {
			return nil, err
		}
	}
	return mgr, nil
}

func (m *Manager) install() {
	if tp := m.tracerProvider; tp != nil {
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
	}
	if mp := m.meterProvider; mp != nil {
		otel.SetMeterProvider(mp)
	}
}

// Shutdown flushes and stops the providers.
func (m *Manager) Shutdown(ctx context.Context) error {
	deadlineCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var shutdownErr error
	if tp := m.tracerProvider; tp != nil {
		shutdownErr = errors.Join(shutdownErr, tp.Shutdown(deadlineCtx))
	}
	if mp := m.meterProvider; mp != nil {
		shutdownErr = errors.Join(shutdownErr, mp.Shutdown(deadlineCtx))
	}
	return shutdownErr
}

// TracingEnabled reports whether tracing is active.
func (m *Manager) TracingEnabled() bool {
	return m != nil && m.tracerProvider != nil && m.cfg.EnableTracing
}

// MetricsEnabled reports whether metrics are active.
func (m *Manager) MetricsEnabled() bool {
	return m != nil && m.meterProvider != nil && m.cfg.EnableMetrics
}

// MetricsHandler exposes the Prometheus scrape handler, or nil.
func (m *Manager) MetricsHandler() http.Handler {
	if m == nil || m.metrics == nil {
		return nil
	}
	return m.metrics.handler
}

// PrometheusPath returns the configured metrics endpoint path.
func (m *Manager) PrometheusPath() string {
	return m.cfg.PrometheusPath
}

// ObserveRequest records one served HTTP request.
func (m *Manager) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil || m.metrics == nil {
		return
	}
	m.metrics.observe(method, route, status, elapsed)
}
