package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Order is a customer's placed request, tracked through the order lifecycle.
type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID                      string          `bun:"id,pk"`
	Number                  string          `bun:"order_number,notnull,unique"`
	TableNumber             int             `bun:"table_number,notnull"`
	CustomerName            *string         `bun:"customer_name"`
	Status                  OrderStatus     `bun:"status,notnull"`
	Type                    OrderType       `bun:"order_type,notnull"`
	TotalAmount             decimal.Decimal `bun:"total_amount,type:decimal(10,2),notnull"`
	TaxAmount               decimal.Decimal `bun:"tax_amount,type:decimal(10,2),notnull"`
	DiscountAmount          decimal.Decimal `bun:"discount_amount,type:decimal(10,2),notnull"`
	FinalAmount             decimal.Decimal `bun:"final_amount,type:decimal(10,2),notnull"`
	SpecialInstructions     *string         `bun:"special_instructions"`
	EstimatedCompletionTime time.Time       `bun:"estimated_completion_time,nullzero"`
	Version                 int64           `bun:"version,notnull"`
	CreatedAt               time.Time       `bun:"created_at,notnull"`
	UpdatedAt               time.Time       `bun:"updated_at,notnull"`

	Items []*OrderItem `bun:"rel:has-many,join:id=order_id"`
}

// OrderItem is one line of an order. The menu item name is captured at order
// time and never refreshed from the catalog.
type OrderItem struct {
	bun.BaseModel `bun:"table:order_items,alias:oi"`

	ID                  string          `bun:"id,pk"`
	OrderID             string          `bun:"order_id,notnull"`
	Position            int             `bun:"position,notnull"`
	MenuItemID          string          `bun:"menu_item_id,notnull"`
	MenuItemName        string          `bun:"menu_item_name,notnull"`
	Quantity            int             `bun:"quantity,notnull"`
	UnitPrice           decimal.Decimal `bun:"unit_price,type:decimal(10,2),notnull"`
	TotalPrice          decimal.Decimal `bun:"total_price,type:decimal(10,2),notnull"`
	SpecialInstructions *string         `bun:"special_instructions"`
	Status              ItemStatus      `bun:"status,notnull"`
	CreatedAt           time.Time       `bun:"created_at,notnull"`
	UpdatedAt           time.Time       `bun:"updated_at,notnull"`
}

// Item returns the line with the given id, or nil.
func (o *Order) Item(id string) *OrderItem {
	for _, item := range o.Items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

// Clone returns a deep copy of the order and its items.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	cp := *o
	cp.Items = make([]*OrderItem, len(o.Items))
	for i, item := range o.Items {
		it := *item
		cp.Items[i] = &it
	}
	return &cp
}
