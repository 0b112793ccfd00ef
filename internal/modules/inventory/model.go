package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StockLevel is the coarse quantity category of a product.
type StockLevel string

const (
	StockHigh   StockLevel = "high"
	StockMedium StockLevel = "medium"
	StockLow    StockLevel = "low"
	StockEmpty  StockLevel = "empty"
)

// Valid reports whether l is one of the known stock levels.
func (l StockLevel) Valid() bool {
	switch l {
	case StockHigh, StockMedium, StockLow, StockEmpty:
		return true
	}
	return false
}

// ParseStockLevel accepts a stock level in any letter case.
func ParseStockLevel(s string) (StockLevel, error) {
	l := StockLevel(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("%w: unknown stock level %q", ErrValidation, s)
	}
	return l, nil
}

// Product is a household item tracked in the inventory.
// IsOnShoppingList is derived; only the shopping-list rule changes it.
type Product struct {
	ID               uuid.UUID  `json:"id"`
	Name             string     `json:"name"`
	StockLevel       StockLevel `json:"stock_level"`
	IsOnShoppingList bool       `json:"is_on_shopping_list"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// ProductPatch carries the caller-editable fields of a product. Nil fields are left as they are.
type ProductPatch struct {
	Name       *string     `json:"name,omitempty"`
	StockLevel *StockLevel `json:"stock_level,omitempty"`
}
