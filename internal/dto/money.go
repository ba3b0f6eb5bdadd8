package dto

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money renders a decimal as a JSON number with two fraction digits and
// accepts either a number or a numeric string on input.
type Money struct {
	decimal.Decimal
}

// NewMoney wraps d.
func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

// MarshalJSON writes the amount as a bare number, e.g. 12.50.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.StringFixed(2)), nil
}

// UnmarshalJSON reads 12.5 or "12.5".
func (m *Money) UnmarshalJSON(data []byte) error {
	if err := m.Decimal.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("invalid amount %s: %w", data, err)
	}
	return nil
}
