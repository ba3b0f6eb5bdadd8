package observability

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	stdoutmetric "go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	"go.uber.org/zap"
)

// promMetrics is the per-process Prometheus registry. otel instruments and
// the HTTP request histogram share it.
type promMetrics struct {
	registry *prometheus.Registry
	handler  http.Handler
	requests *prometheus.HistogramVec
}

func newPromMetrics(service string) (*promMetrics, error) {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   "byteristo",
		Subsystem:   "http",
		Name:        "request_duration_seconds",
		Help:        "Latency of served HTTP requests.",
		Buckets:     prometheus.DefBuckets,
		ConstLabels: prometheus.Labels{"service": service},
	}, []string{"method", "route", "status"})

	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		requests,
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return &promMetrics{
		registry: registry,
		handler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		requests: requests,
	}, nil
}

func (p *promMetrics) observe(method, route string, status int, elapsed time.Duration) {
	p.requests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

func (m *Manager) initMetrics(resource *sdkresource.Resource) error {
	switch strings.ToLower(m.cfg.MetricsExporter) {
	case "prometheus":
		metrics, err := newPromMetrics(m.cfg.ServiceName)
		if err != nil {
			return err
		}
		exporter, err := promexporter.New(promexporter.WithRegisterer(metrics.registry))
		if err != nil {
			return err
		}
		m.metrics = metrics
		m.meterProvider = sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(exporter),
			sdkmetric.WithResource(resource),
		)
	case "stdout":
		exporter, err := stdoutmetric.New(stdoutmetric.WithPrettyPrint(), stdoutmetric.WithWriter(os.Stdout))
		if err != nil {
			return err
		}
		reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(30*time.Second))
		m.meterProvider = sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(reader),
			sdkmetric.WithResource(resource),
		)
	default:
		m.logger.Warn("unsupported metrics exporter; metrics disabled", zap.String("exporter", m.cfg.MetricsExporter))
	}
	return nil
}
