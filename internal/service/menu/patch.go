package menu

import (
	"github.com/shopspring/decimal"

	"github.com/Additional-Code/byteristo/internal/entity"
)

// Field is an optional value in a partial update.
type Field[T any] struct {
	Set   bool
	Value T
}

// Some marks v as present.
func Some[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// Patch lists the fields a partial update touches. Unset fields are left
// untouched.
type Patch struct {
	Name            Field[string]
	Description     Field[*string]
	Price           Field[decimal.Decimal]
	Category        Field[string]
	IsAvailable     Field[bool]
	PreparationTime Field[int]
	Allergens       Field[[]string]
	NutritionalInfo Field[map[string]any]
}

// Empty reports whether no field is set.
func (p Patch) Empty() bool {
	return len(p.Apply(&entity.MenuItem{})) == 0
}

// Apply copies the set fields onto item and returns the touched columns.
func (p Patch) Apply(item *entity.MenuItem) []string {
	var cols []string
	if p.Name.Set {
		item.Name = p.Name.Value
		cols = append(cols, "name")
	}
	if p.Description.Set {
		item.Description = p.Description.Value
		cols = append(cols, "description")
	}
	if p.Price.Set {
		item.Price = p.Price.Value
		cols = append(cols, "price")
	}
	if p.Category.Set {
		item.Category = p.Category.Value
		cols = append(cols, "category")
	}
	if p.IsAvailable.Set {
		item.IsAvailable = p.IsAvailable.Value
		cols = append(cols, "is_available")
	}
	if p.PreparationTime.Set {
		item.PreparationTime = p.PreparationTime.Value
		cols = append(cols, "preparation_time")
	}
	if p.Allergens.Set {
		item.Allergens = p.Allergens.Value
		cols = append(cols, "allergens")
	}
	if p.NutritionalInfo.Set {
		item.NutritionalInfo = p.NutritionalInfo.Value
		cols = append(cols, "nutritional_info")
	}
	return cols
}
