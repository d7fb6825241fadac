package types

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is one line of a session cart. Items are unique by ProductID;
// re-adding a product increments the quantity of the existing line.
type CartItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
}

// Cart is the persisted shape of a session cart. Insertion order of Items
// is preserved for display.
type Cart struct {
	Items []CartItem `json:"items"`
}

func (c Cart) Count() int {
	total := 0
	for _, it := range c.Items {
		total += it.Quantity
	}
	return total
}

func (c Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range c.Items {
		sum = sum.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum.Round(2)
}
