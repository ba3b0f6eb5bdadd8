package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// MenuCategories lists the accepted menu item categories.
var MenuCategories = []string{"appetizer", "main", "dessert", "beverage", "side"}

// MenuItem is a catalog entry served by the menu service.
type MenuItem struct {
	bun.BaseModel `bun:"table:menu_items,alias:mi"`

	ID              string          `bun:"id,pk"`
	Name            string          `bun:"name,notnull"`
	Description     *string         `bun:"description"`
	Price           decimal.Decimal `bun:"price,type:decimal(10,2),notnull"`
	Category        string          `bun:"category,notnull"`
	IsAvailable     bool            `bun:"is_available,notnull"`
	PreparationTime int             `bun:"preparation_time,notnull"`
	Allergens       []string        `bun:"allergens,type:text,json_use_number"`
	NutritionalInfo map[string]any  `bun:"nutritional_info,type:text,json_use_number"`
	CreatedAt       time.Time       `bun:"created_at,notnull"`
	UpdatedAt       time.Time       `bun:"updated_at,notnull"`
}
