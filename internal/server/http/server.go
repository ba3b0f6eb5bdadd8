package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/byteristo/internal/config"
	"github.com/Additional-Code/byteristo/internal/database"
	"github.com/Additional-Code/byteristo/internal/observability"
)

// Service identifies which executable the HTTP server belongs to.
type Service string

const (
	Orders  Service = "order-management"
	Menu    Service = "menu-inventory"
	Gateway Service = "api-gateway"
)

// Listener returns the address this service binds to.
func (s Service) Listener(cfg config.Config) config.HTTP {
	switch s {
	case Menu:
		return cfg.HTTP.Menu
	case Gateway:
		return cfg.HTTP.Gateway
	default:
		return cfg.HTTP.Orders
	}
}

// Module exposes the HTTP server lifecycle for svc to Fx.
func Module(svc Service) fx.Option {
	return fx.Module("http_server",
		fx.Supply(svc),
		fx.Provide(NewEcho),
		fx.Invoke(Run),
	)
}

// Params collects the router dependencies. The database is absent in the
// gateway, which serves its own health check.
type Params struct {
	fx.In

	Service Service
	Config  config.Config
	Obs     *observability.Manager `optional:"true"`
	Conns   *database.Connections  `optional:"true"`
	Logger  *zap.Logger
}

// NewEcho configures the Echo router with the shared middleware stack.
func NewEcho(p Params) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code < http.StatusInternalServerError {
			p.Logger.Debug("http request rejected", zap.Int("status", he.Code), zap.Error(err))
		} else {
			p.Logger.Error("http request failed", zap.Error(err))
		}
		c.Echo().DefaultHTTPErrorHandler(err, c)
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	if p.Obs.TracingEnabled() {
		e.Use(otelecho.Middleware(p.Config.Observability.ServiceName))
	}
	e.Use(AccessLog(p.Logger, p.Obs))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
	}))

	if p.Service != Gateway {
		e.GET("/health", healthHandler(p.Service, p.Conns))
	}

	if p.Obs.MetricsEnabled() && p.Obs.MetricsHandler() != nil {
		e.GET(p.Config.Observability.PrometheusPath, echo.WrapHandler(p.Obs.MetricsHandler()))
	}

	return e
}

func healthHandler(svc Service, conns *database.Connections) echo.HandlerFunc {
	return func(c echo.Context) error {
		body := map[string]string{"status": "healthy", "service": string(svc)}
		if conns == nil {
			return c.JSON(http.StatusOK, body)
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := conns.Ping(ctx); err != nil {
			body["status"] = "unhealthy"
			body["database"] = "down"
			return c.JSON(http.StatusServiceUnavailable, body)
		}
		body["database"] = "up"
		return c.JSON(http.StatusOK, body)
	}
}

// Run starts the HTTP server and ties it to the Fx lifecycle.
func Run(lc fx.Lifecycle, svc Service, cfg config.Config, e *echo.Echo, logger *zap.Logger) {
	addr := svc.Listener(cfg).Address()

	server := &http.Server{
		Addr:              addr,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting HTTP server", zap.String("service", string(svc)), zap.String("addr", addr))
			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping HTTP server", zap.String("service", string(svc)))
			return server.Shutdown(ctx)
		},
	})
}
