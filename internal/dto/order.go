package dto

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Additional-Code/byteristo/internal/entity"
)

// CreateOrderRequest is the body of POST /api/orders.
type CreateOrderRequest struct {
	TableNumber         int                      `json:"table_number"`
	OrderType           string                   `json:"order_type"`
	CustomerName        *string                  `json:"customer_name"`
	SpecialInstructions *string                  `json:"special_instructions"`
	Items               []CreateOrderItemRequest `json:"items"`
}

// CreateOrderItemRequest is one submitted line. PreparationTime is an
// optional hint in minutes.
type CreateOrderItemRequest struct {
	MenuItemID          string           `json:"menu_item_id"`
	MenuItemName        string           `json:"menu_item_name"`
	Quantity            int              `json:"quantity"`
	UnitPrice           *decimal.Decimal `json:"unit_price"`
	TotalPrice          *decimal.Decimal `json:"total_price"`
	SpecialInstructions *string          `json:"special_instructions"`
	PreparationTime     *int             `json:"preparation_time"`
}

// StatusRequest is the body of both status update endpoints.
type StatusRequest struct {
	Status string `json:"status"`
}

// PayRequest is the body of POST /api/orders/:id/pay. The amount is kept raw
// so that non-numeric input can be reported as a validation failure.
type PayRequest struct {
	PaymentMethod string          `json:"payment_method"`
	PaymentAmount json.RawMessage `json:"payment_amount"`
}

// Amount returns the supplied amount as text, or nil when it was omitted.
func (r PayRequest) Amount() *string {
	raw := bytes.TrimSpace(r.PaymentAmount)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		return &s
	}
	s = string(raw)
	return &s
}

// OrderResponse is the canonical order representation on the wire and in
// published events.
type OrderResponse struct {
	ID                      string              `json:"id"`
	OrderNumber             string              `json:"order_number"`
	TableNumber             int                 `json:"table_number"`
	CustomerName            *string             `json:"customer_name"`
	Status                  string              `json:"status"`
	OrderType               string              `json:"order_type"`
	TotalAmount             Money               `json:"total_amount"`
	TaxAmount               Money               `json:"tax_amount"`
	DiscountAmount          Money               `json:"discount_amount"`
	FinalAmount             Money               `json:"final_amount"`
	SpecialInstructions     *string             `json:"special_instructions"`
	EstimatedCompletionTime *time.Time          `json:"estimated_completion_time"`
	CreatedAt               time.Time           `json:"created_at"`
	UpdatedAt               time.Time           `json:"updated_at"`
	Items                   []OrderItemResponse `json:"items"`
}

// OrderItemResponse is one line of an OrderResponse.
type OrderItemResponse struct {
	ID                  string    `json:"id"`
	OrderID             string    `json:"order_id"`
	MenuItemID          string    `json:"menu_item_id"`
	MenuItemName        string    `json:"menu_item_name"`
	Quantity            int       `json:"quantity"`
	UnitPrice           Money     `json:"unit_price"`
	TotalPrice          Money     `json:"total_price"`
	SpecialInstructions *string   `json:"special_instructions"`
	Status              string    `json:"status"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// PaymentInfo summarises a settled payment.
type PaymentInfo struct {
	Method string `json:"method"`
	Amount Money  `json:"amount"`
	Change Money  `json:"change"`
}

// OrderEvent is the envelope published for every order lifecycle event.
type OrderEvent struct {
	EventType string        `json:"event_type"`
	Timestamp time.Time     `json:"timestamp"`
	Data      OrderResponse `json:"data"`
}

// NewOrder maps an order entity onto its response shape.
func NewOrder(o *entity.Order) OrderResponse {
	resp := OrderResponse{
		ID:                  o.ID,
		OrderNumber:         o.Number,
		TableNumber:         o.TableNumber,
		CustomerName:        o.CustomerName,
		Status:              string(o.Status),
		OrderType:           string(o.Type),
		TotalAmount:         NewMoney(o.TotalAmount),
		TaxAmount:           NewMoney(o.TaxAmount),
		DiscountAmount:      NewMoney(o.DiscountAmount),
		FinalAmount:         NewMoney(o.FinalAmount),
		SpecialInstructions: o.SpecialInstructions,
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
		Items:               make([]OrderItemResponse, 0, len(o.Items)),
	}
	if !o.EstimatedCompletionTime.IsZero() {
		eta := o.EstimatedCompletionTime
		resp.EstimatedCompletionTime = &eta
	}
	for _, item := range o.Items {
		resp.Items = append(resp.Items, NewOrderItem(item))
	}
	return resp
}

// NewOrderItem maps an order item entity onto its response shape.
func NewOrderItem(item *entity.OrderItem) OrderItemResponse {
	return OrderItemResponse{
		ID:                  item.ID,
		OrderID:             item.OrderID,
		MenuItemID:          item.MenuItemID,
		MenuItemName:        item.MenuItemName,
		Quantity:            item.Quantity,
		UnitPrice:           NewMoney(item.UnitPrice),
		TotalPrice:          NewMoney(item.TotalPrice),
		SpecialInstructions: item.SpecialInstructions,
		Status:              string(item.Status),
		CreatedAt:           item.CreatedAt,
		UpdatedAt:           item.UpdatedAt,
	}
}

// NewOrders maps a slice of orders.
func NewOrders(orders []*entity.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, NewOrder(o))
	}
	return out
}
