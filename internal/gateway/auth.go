package gateway

import (
	"context"
	"errors"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/byteristo/internal/presentation/http/response"
	"github.com/Additional-Code/byteristo/pkg/errorbank"
)

// Principal is the caller identified by a bearer token.
type Principal struct {
	Subject string
	Role    string
}

type principalKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored in ctx, if any.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ParseToken validates an HS256 token and extracts its principal.
func ParseToken(token, secret string) (*Principal, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}

	tok, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid || c.Subject == "" {
		return nil, errors.New("invalid claims")
	}
	return &Principal{Subject: c.Subject, Role: strings.ToLower(c.Role)}, nil
}

// Auth rejects requests without a valid bearer token. Paths in public bypass
// the check.
func Auth(secret string, public ...string) echo.MiddlewareFunc {
	allow := make(map[string]struct{}, len(public))
	for _, p := range public {
		allow[p] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := allow[c.Request().URL.Path]; ok {
				return next(c)
			}

			header := c.Request().Header.Get(echo.HeaderAuthorization)
			scheme, token, found := strings.Cut(header, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") {
				return unauthorized(c, errors.New("missing bearer token"))
			}
			p, err := ParseToken(strings.TrimSpace(token), secret)
			if err != nil {
				return unauthorized(c, err)
			}

			req := c.Request()
			c.SetRequest(req.WithContext(WithPrincipal(req.Context(), p)))
			return next(c)
		}
	}
}

func unauthorized(c echo.Context, err error) error {
	return response.New(c).
		WithError(errorbank.Unauthorized("Unauthorized", errorbank.WithCause(err))).
		Build()
}
