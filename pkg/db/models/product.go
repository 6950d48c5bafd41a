package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry. Quantity and price are non-negative at all
// times; every mutation path re-checks the bounds rather than trusting
// construction-time validation.
type Product struct {
	ID       string
	Name     string
	Quantity int
	Price    decimal.Decimal
}

// Validate reports whether the product satisfies the catalog invariants.
func (p Product) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("product id required")
	}
	if p.Name == "" {
		return fmt.Errorf("product name required")
	}
	if p.Quantity < 0 {
		return fmt.Errorf("quantity cannot be negative")
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("price cannot be negative")
	}
	return nil
}
