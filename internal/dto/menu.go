package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Additional-Code/byteristo/internal/entity"
)

// CreateMenuItemRequest is the body of POST /api/menu.
type CreateMenuItemRequest struct {
	Name            string           `json:"name"`
	Description     *string          `json:"description"`
	Price           *decimal.Decimal `json:"price"`
	Category        string           `json:"category"`
	IsAvailable     *bool            `json:"is_available"`
	PreparationTime *int             `json:"preparation_time"`
	Allergens       []string         `json:"allergens"`
	NutritionalInfo map[string]any   `json:"nutritional_info"`
}

// UpdateMenuItemRequest is the body of PUT /api/menu/:id. Only keys present
// in the body are applied; Present records which ones were sent.
type UpdateMenuItemRequest struct {
	Name            *string          `json:"name"`
	Description     *string          `json:"description"`
	Price           *decimal.Decimal `json:"price"`
	Category        *string          `json:"category"`
	IsAvailable     *bool            `json:"is_available"`
	PreparationTime *int             `json:"preparation_time"`
	Allergens       []string         `json:"allergens"`
	NutritionalInfo map[string]any   `json:"nutritional_info"`

	Present map[string]bool `json:"-"`
}

// UnmarshalJSON decodes the fields and remembers which keys were present, so
// that an explicit null can clear a nullable column.
func (r *UpdateMenuItemRequest) UnmarshalJSON(data []byte) error {
	type plain UpdateMenuItemRequest
	var fields plain
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}

	*r = UpdateMenuItemRequest(fields)
	r.Present = make(map[string]bool, len(keys))
	for k := range keys {
		r.Present[k] = true
	}
	return nil
}

// MenuItemResponse is the wire representation of a menu item.
type MenuItemResponse struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Description     *string        `json:"description"`
	Price           Money          `json:"price"`
	Category        string         `json:"category"`
	IsAvailable     bool           `json:"is_available"`
	PreparationTime int            `json:"preparation_time"`
	Allergens       []string       `json:"allergens"`
	NutritionalInfo map[string]any `json:"nutritional_info"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// NewMenuItem maps a menu item entity onto its response shape.
func NewMenuItem(item *entity.MenuItem) MenuItemResponse {
	resp := MenuItemResponse{
		ID:              item.ID,
		Name:            item.Name,
		Description:     item.Description,
		Price:           NewMoney(item.Price),
		Category:        item.Category,
		IsAvailable:     item.IsAvailable,
		PreparationTime: item.PreparationTime,
		Allergens:       item.Allergens,
		NutritionalInfo: item.NutritionalInfo,
		CreatedAt:       item.CreatedAt,
		UpdatedAt:       item.UpdatedAt,
	}
	if resp.Allergens == nil {
		resp.Allergens = []string{}
	}
	if resp.NutritionalInfo == nil {
		resp.NutritionalInfo = map[string]any{}
	}
	return resp
}

// NewMenuItems maps a slice of menu items.
func NewMenuItems(items []*entity.MenuItem) []MenuItemResponse {
	out := make([]MenuItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewMenuItem(item))
	}
	return out
}
