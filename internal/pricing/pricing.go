// Package pricing holds the deterministic money arithmetic for checkout.
// Every intermediate result is rounded to the currency minor unit before it
// is combined further, so persisted amounts can be compared for equality
// during reconciliation.
package pricing

import "github.com/shopspring/decimal"

// Policy carries the storefront pricing constants. Amounts are major units.
type Policy struct {
	FreeShippingThreshold decimal.Decimal
	BaseShippingPrice     decimal.Decimal
	TaxRate               decimal.Decimal
	Currency              string
}

func DefaultPolicy() Policy {
	return Policy{
		FreeShippingThreshold: decimal.NewFromInt(150),
		BaseShippingPrice:     decimal.NewFromInt(10),
		TaxRate:               decimal.RequireFromString("0.0725"),
		Currency:              "usd",
	}
}

// ShippingCost is zero at or above the free-shipping threshold, otherwise the
// base shipping price rounded to two decimal places.
func (p Policy) ShippingCost(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		return decimal.Zero.Round(2)
	}
	return p.BaseShippingPrice.Round(2)
}

// Tax is computed on the shipping-inclusive base. Charging tax on shipping is
// a policy choice that financial reports depend on; do not change it.
func (p Policy) Tax(subtotal, shipping decimal.Decimal) decimal.Decimal {
	return subtotal.Add(shipping).Mul(p.TaxRate).Round(2)
}

// Total sums the rounded components and subtracts the discount, clamping at
// zero. A discount larger than the order is discarded, never carried over.
func Total(subtotal, shipping, tax, discount decimal.Decimal) decimal.Decimal {
	total := subtotal.Add(shipping).Add(tax).Sub(discount).Round(2)
	if total.IsNegative() {
		return decimal.Zero.Round(2)
	}
	return total
}

// MinorUnits converts a major-unit amount to an integer number of minor
// units, rounding half up. decimal's Round is half-away-from-zero, which is
// half-up for the non-negative amounts that reach the payment boundary.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// FromMinorUnits is the inverse conversion, used when reading processor
// event amounts.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(decimal.NewFromInt(100)).Round(2)
}
