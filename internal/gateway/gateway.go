package gateway

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/byteristo/internal/config"
	"github.com/Additional-Code/byteristo/internal/presentation/http/response"
	"github.com/Additional-Code/byteristo/pkg/errorbank"
)

const serviceName = "api-gateway"

// Module registers the gateway routes on the shared Echo instance.
var Module = fx.Options(
	fx.Provide(New),
	fx.Invoke(Register),
)

// Gateway routes client traffic to the menu and order services.
type Gateway struct {
	routes    []Route
	transport http.RoundTripper
	client    *http.Client
	cfg       config.Gateway
	logger    *zap.Logger
	started   time.Time
}

// New builds a Gateway from configuration.
func New(cfg config.Config, logger *zap.Logger) (*Gateway, error) {
	routes, err := Routes(cfg.Gateway)
	if err != nil {
		return nil, err
	}
	transport := NewTransport(cfg.Gateway.Timeout)
	return &Gateway{
		routes:    routes,
		transport: transport,
		client:    &http.Client{Transport: transport, Timeout: probeTimeout},
		cfg:       cfg.Gateway,
		logger:    logger.Named("gateway"),
		started:   time.Now(),
	}, nil
}

// Register installs auth, the proxies and the gateway's own endpoints.
func Register(e *echo.Echo, g *Gateway) {
	if g.cfg.AuthEnabled {
		e.Use(Auth(g.cfg.JWTSecret, "/", "/health"))
	}
	for _, route := range g.routes {
		e.Use(Proxy(route, g.transport, g.logger))
	}

	e.GET("/", g.root)
	e.GET("/health", g.health)
	e.RouteNotFound("/*", func(c echo.Context) error {
		return response.New(c).WithError(errorbank.NotFound("Route not found")).Build()
	})
}

func (g *Gateway) root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"service":   "ByteRisto API Gateway",
		"status":    Healthy,
		"timestamp": time.Now().UTC(),
		"endpoints": map[string]string{
			"health": "/health",
			"menu":   "/api/menu",
			"orders": "/api/orders",
		},
	})
}

func (g *Gateway) health(c echo.Context) error {
	services := Probe(c.Request().Context(), g.client, g.routes)
	return c.JSON(http.StatusOK, map[string]any{
		"status":    Healthy,
		"service":   serviceName,
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(g.started).Seconds(),
		"services":  services,
	})
}
