package gateway

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/Additional-Code/byteristo/internal/config"
	"github.com/Additional-Code/byteristo/internal/presentation/http/response"
	"github.com/Additional-Code/byteristo/pkg/errorbank"
)

// Route maps a path prefix onto an upstream service.
type Route struct {
	Prefix   string
	Name     string
	Upstream *url.URL
}

// Routes builds the routing table from configuration.
func Routes(cfg config.Gateway) ([]Route, error) {
	menu, err := url.Parse(strings.TrimRight(cfg.MenuURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse menu url: %w", err)
	}
	orders, err := url.Parse(strings.TrimRight(cfg.OrderURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse order url: %w", err)
	}
	return []Route{
		{Prefix: "/api/menu", Name: "menu-service", Upstream: menu},
		{Prefix: "/api/orders", Name: "order-service", Upstream: orders},
	}, nil
}

// Match reports whether path belongs to the route.
func (r Route) Match(path string) bool {
	if !strings.HasPrefix(path, r.Prefix) {
		return false
	}
	rest := path[len(r.Prefix):]
	return rest == "" || rest[0] == '/'
}

// NewTransport returns the upstream transport. timeout bounds the wait for
// response headers.
func NewTransport(timeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: timeout,
	}
}

// Proxy forwards requests matching route to its upstream. Transport failures
// answer 503.
func Proxy(route Route, transport http.RoundTripper, logger *zap.Logger) echo.MiddlewareFunc {
	return middleware.ProxyWithConfig(middleware.ProxyConfig{
		Skipper: func(c echo.Context) bool {
			return !route.Match(c.Request().URL.Path)
		},
		Balancer:  middleware.NewRoundRobinBalancer([]*middleware.ProxyTarget{{Name: route.Name, URL: route.Upstream}}),
		Transport: transport,
		ErrorHandler: func(c echo.Context, err error) error {
			logger.Warn("upstream request failed",
				zap.String("upstream", route.Name),
				zap.String("path", c.Request().URL.Path),
				zap.Error(err),
			)
			return response.New(c).
				WithError(errorbank.Unavailable("Service unavailable", errorbank.WithCause(err), errorbank.WithDetail("service", route.Name))).
				Build()
		},
	})
}
