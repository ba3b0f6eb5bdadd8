package http

import (
	"time"

	echo "github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Additional-Code/byteristo/internal/observability"
)

// AccessLog logs every request and feeds the request latency histogram.
func AccessLog(logger *zap.Logger, obs *observability.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			elapsed := time.Since(start)
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.String("route", route),
				zap.Int("status", res.Status),
				zap.Duration("latency", elapsed),
				zap.String("request_id", res.Header().Get(echo.HeaderXRequestID)),
				zap.String("remote_ip", c.RealIP()),
			}
			switch {
			case res.Status >= 500:
				logger.Error("http request", fields...)
			case res.Status >= 400:
				logger.Warn("http request", fields...)
			default:
				logger.Info("http request", fields...)
			}

			obs.ObserveRequest(req.Method, route, res.Status, elapsed)
			return nil
		}
	}
}
