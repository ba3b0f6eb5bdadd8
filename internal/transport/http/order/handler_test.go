package order

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	repo "github.com/Additional-Code/byteristo/internal/repository/order"
	service "github.com/Additional-Code/byteristo/internal/service/order"
	"github.com/Additional-Code/byteristo/internal/testutil"
)

const orderBody = `{
	"table_number": 12,
	"order_type": "dine_in",
	"customer_name": "Giulia",
	"items": [
		{"menu_item_id": "m1", "menu_item_name": "Pizza Margherita", "quantity": 2, "unit_price": 8.5, "total_price": 17.0},
		{"menu_item_id": "m2", "menu_item_name": "Caprese", "quantity": 1, "unit_price": "9.00", "total_price": "9.00"}
	]
}`

func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	store := repo.NewRepository(testutil.NewDatabase(t))
	svc := service.New(store, nil, nil, nil, service.Options{}, zaptest.NewLogger(t))

	e := echo.New()
	Register(e, NewHandler(svc))
	return e
}

type envelope struct {
	Success     bool            `json:"success"`
	Message     string          `json:"message"`
	Count       *int            `json:"count"`
	Data        json.RawMessage `json:"data"`
	PaymentInfo map[string]any  `json:"payment_info"`
	Error       struct {
		Kind    string         `json:"kind"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type orderData struct {
	ID          string  `json:"id"`
	OrderNumber string  `json:"order_number"`
	Status      string  `json:"status"`
	FinalAmount float64 `json:"final_amount"`
	Items       []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"items"`
}

func do(t *testing.T, e *echo.Echo, method, target string, body io.Reader) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func decodeOrder(t *testing.T, env envelope) orderData {
	t.Helper()
	var o orderData
	require.NoError(t, json.Unmarshal(env.Data, &o))
	return o
}

func createOrder(t *testing.T, e *echo.Echo) orderData {
	t.Helper()
	code, env := do(t, e, http.MethodPost, "/api/orders", strings.NewReader(orderBody))
	require.Equal(t, http.StatusCreated, code, env.Message)
	return decodeOrder(t, env)
}

func status(s string) io.Reader {
	return strings.NewReader(fmt.Sprintf(`{"status": %q}`, s))
}

func TestCreateOrder(t *testing.T) {
	e := newServer(t)

	code, env := do(t, e, http.MethodPost, "/api/orders", strings.NewReader(orderBody))
	require.Equal(t, http.StatusCreated, code)
	assert.True(t, env.Success)
	assert.Equal(t, "Order created successfully", env.Message)

	o := decodeOrder(t, env)
	assert.Equal(t, "confirmed", o.Status)
	assert.Equal(t, 26.0, o.FinalAmount)
	require.Len(t, o.Items, 2)
	assert.Equal(t, "preparing", o.Items[0].Status)
}

func TestCreateOrderRejectsBadInput(t *testing.T) {
	e := newServer(t)

	code, env := do(t, e, http.MethodPost, "/api/orders", strings.NewReader(`{"table_number": "twelve"`))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid request payload", env.Message)

	code, env = do(t, e, http.MethodPost, "/api/orders", strings.NewReader(`{"table_number": 1, "order_type": "dine_in", "items": []}`))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Success)
	assert.Equal(t, "Validation error", env.Message)
	assert.Equal(t, "bad_request", env.Error.Kind)
	assert.Contains(t, env.Error.Details["errors"], "items must contain at least one item")
}

func TestListOrders(t *testing.T) {
	e := newServer(t)
	first := createOrder(t, e)
	createOrder(t, e)

	code, env := do(t, e, http.MethodGet, "/api/orders", nil)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, env.Count)
	assert.Equal(t, 2, *env.Count)

	code, env = do(t, e, http.MethodGet, "/api/orders?table_number=12&status=active", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, *env.Count)

	_, _ = do(t, e, http.MethodPut, "/api/orders/"+first.ID+"/status", status("cancelled"))
	code, env = do(t, e, http.MethodGet, "/api/orders?status=cancelled", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, *env.Count)

	code, env = do(t, e, http.MethodGet, "/api/orders?table_number=twelve", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "table_number must be an integer", env.Message)

	code, _ = do(t, e, http.MethodGet, "/api/orders?status=lost", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestGetOrder(t *testing.T) {
	e := newServer(t)
	created := createOrder(t, e)

	code, env := do(t, e, http.MethodGet, "/api/orders/"+created.ID, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, created.OrderNumber, decodeOrder(t, env).OrderNumber)

	code, env = do(t, e, http.MethodGet, "/api/orders/nope", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Order not found", env.Message)

	code, env = do(t, e, http.MethodPut, "/api/orders/nope/status", status("ready"))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid order ID format", env.Message)

	code, env = do(t, e, http.MethodGet, "/api/orders/7f0d52f4-9f0e-4c1c-b7a9-3f7fb0a2a001", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Order not found", env.Message)
}

func TestStatusUpdates(t *testing.T) {
	e := newServer(t)
	created := createOrder(t, e)

	code, env := do(t, e, http.MethodPut, "/api/orders/"+created.ID+"/items/"+created.Items[0].ID+"/status", status("ready"))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Order item status updated successfully", env.Message)
	assert.Equal(t, "confirmed", decodeOrder(t, env).Status)

	code, env = do(t, e, http.MethodPut, "/api/orders/"+created.ID+"/items/"+created.Items[1].ID+"/status", status("served"))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", decodeOrder(t, env).Status)

	code, env = do(t, e, http.MethodPut, "/api/orders/"+created.ID+"/status", status("delivered"))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Order status updated successfully", env.Message)
	assert.Equal(t, "delivered", decodeOrder(t, env).Status)

	code, env = do(t, e, http.MethodPut, "/api/orders/"+created.ID+"/status", status("lost"))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Message, "Invalid status")

	code, env = do(t, e, http.MethodPut, "/api/orders/"+created.ID+"/status", strings.NewReader(`{}`))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Status is required", env.Message)
}

func TestPayOrder(t *testing.T) {
	e := newServer(t)
	created := createOrder(t, e)

	code, env := do(t, e, http.MethodPost, "/api/orders/"+created.ID+"/pay", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Order must be ready or delivered to be paid. Current status: confirmed", env.Message)

	_, _ = do(t, e, http.MethodPut, "/api/orders/"+created.ID+"/status", status("ready"))

	code, env = do(t, e, http.MethodPost, "/api/orders/"+created.ID+"/pay", strings.NewReader(`{"payment_amount": "ten"}`))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid payment amount", env.Message)

	code, env = do(t, e, http.MethodPost, "/api/orders/"+created.ID+"/pay", strings.NewReader(`{"payment_method": "card", "payment_amount": 30}`))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Payment processed successfully", env.Message)
	assert.Equal(t, "payed", decodeOrder(t, env).Status)
	assert.Equal(t, map[string]any{"method": "card", "amount": 26.0, "change": 4.0}, env.PaymentInfo)
}

func TestDeleteOrder(t *testing.T) {
	e := newServer(t)
	created := createOrder(t, e)

	code, env := do(t, e, http.MethodDelete, "/api/orders/"+created.ID, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Can only delete pending or cancelled orders", env.Message)

	_, _ = do(t, e, http.MethodPut, "/api/orders/"+created.ID+"/status", status("pending"))
	code, env = do(t, e, http.MethodDelete, "/api/orders/"+created.ID, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Order deleted successfully", env.Message)

	code, _ = do(t, e, http.MethodGet, "/api/orders/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = do(t, e, http.MethodDelete, "/api/orders/nope", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Order not found", env.Message)
}
