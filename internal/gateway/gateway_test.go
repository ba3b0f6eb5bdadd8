package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Additional-Code/byteristo/internal/config"
)

const testSecret = "kitchen-secret"

func upstream(t *testing.T, name string, healthStatus int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(healthStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"service": name,
			"path":    r.URL.Path,
			"query":   r.URL.RawQuery,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func deadURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

func newEcho(t *testing.T, gw config.Gateway) *echo.Echo {
	t.Helper()
	if gw.Timeout == 0 {
		gw.Timeout = 2 * time.Second
	}
	g, err := New(config.Config{Gateway: gw}, zaptest.NewLogger(t))
	require.NoError(t, err)

	e := echo.New()
	Register(e, g)
	return e
}

func serve(e *echo.Echo, method, target, token string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestProxyForwardsByPrefix(t *testing.T) {
	menu := upstream(t, "menu", http.StatusOK)
	orders := upstream(t, "orders", http.StatusOK)
	e := newEcho(t, config.Gateway{MenuURL: menu.URL, OrderURL: orders.URL})

	rec, body := serve(e, http.MethodGet, "/api/menu/available?category=main", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "menu", body["service"])
	assert.Equal(t, "/api/menu/available", body["path"])
	assert.Equal(t, "category=main", body["query"])

	rec, body = serve(e, http.MethodGet, "/api/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "orders", body["service"])
}

func TestProxyUnreachableUpstream(t *testing.T) {
	menu := upstream(t, "menu", http.StatusOK)
	e := newEcho(t, config.Gateway{MenuURL: menu.URL, OrderURL: deadURL(t)})

	rec, body := serve(e, http.MethodGet, "/api/orders/abc", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Service unavailable", body["message"])
	errBody := body["error"].(map[string]any)
	assert.Equal(t, "unavailable", errBody["kind"])
	assert.Equal(t, "order-service", errBody["details"].(map[string]any)["service"])
}

func TestHealthReportsEachService(t *testing.T) {
	menu := upstream(t, "menu", http.StatusOK)
	orders := upstream(t, "orders", http.StatusInternalServerError)
	e := newEcho(t, config.Gateway{MenuURL: menu.URL, OrderURL: orders.URL})

	rec, body := serve(e, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "api-gateway", body["service"])
	assert.Equal(t, map[string]any{
		"menu-service":  "healthy",
		"order-service": "unhealthy",
	}, body["services"])

	e = newEcho(t, config.Gateway{MenuURL: deadURL(t), OrderURL: orders.URL})
	_, body = serve(e, http.MethodGet, "/health", "")
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "unavailable", body["services"].(map[string]any)["menu-service"])
}

func TestUnknownRoute(t *testing.T) {
	e := newEcho(t, config.Gateway{MenuURL: deadURL(t), OrderURL: deadURL(t)})

	rec, body := serve(e, http.MethodGet, "/api/payments", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route not found", body["message"])

	rec, body = serve(e, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
}

func TestRouteMatch(t *testing.T) {
	r := Route{Prefix: "/api/menu"}
	assert.True(t, r.Match("/api/menu"))
	assert.True(t, r.Match("/api/menu/available"))
	assert.False(t, r.Match("/api/menus"))
	assert.False(t, r.Match("/api/orders"))
}

func sign(t *testing.T, method jwt.SigningMethod, key any, c claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, c).SignedString(key)
	require.NoError(t, err)
	return tok
}

func validClaims() claims {
	return claims{
		Role: "Waiter",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "staff-17",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestParseToken(t *testing.T) {
	p, err := ParseToken(sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims()), testSecret)
	require.NoError(t, err)
	assert.Equal(t, &Principal{Subject: "staff-17", Role: "waiter"}, p)

	_, err = ParseToken(sign(t, jwt.SigningMethodHS256, []byte("other"), validClaims()), testSecret)
	assert.Error(t, err)

	_, err = ParseToken(sign(t, jwt.SigningMethodHS512, []byte(testSecret), validClaims()), testSecret)
	assert.Error(t, err)

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	_, err = ParseToken(sign(t, jwt.SigningMethodHS256, []byte(testSecret), expired), testSecret)
	assert.Error(t, err)

	anonymous := validClaims()
	anonymous.Subject = ""
	_, err = ParseToken(sign(t, jwt.SigningMethodHS256, []byte(testSecret), anonymous), testSecret)
	assert.Error(t, err)

	_, err = ParseToken("whatever", "")
	assert.Error(t, err)
}

func TestAuthMiddleware(t *testing.T) {
	e := echo.New()
	e.Use(Auth(testSecret, "/health"))
	e.GET("/health", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/whoami", func(c echo.Context) error {
		p, ok := FromContext(c.Request().Context())
		if !ok {
			return c.NoContent(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusOK, map[string]string{"subject": p.Subject, "role": p.Role})
	})

	rec, _ := serve(e, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body := serve(e, http.MethodGet, "/whoami", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", body["message"])

	rec, _ = serve(e, http.MethodGet, "/whoami", "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body = serve(e, http.MethodGet, "/whoami", sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims()))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "staff-17", body["subject"])
	assert.Equal(t, "waiter", body["role"])
}

func TestGatewayAuthGuardsProxiedRoutes(t *testing.T) {
	menu := upstream(t, "menu", http.StatusOK)
	e := newEcho(t, config.Gateway{MenuURL: menu.URL, OrderURL: menu.URL, AuthEnabled: true, JWTSecret: testSecret})

	rec, _ := serve(e, http.MethodGet, "/api/menu", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body := serve(e, http.MethodGet, "/api/menu", sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims()))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "menu", body["service"])
}
