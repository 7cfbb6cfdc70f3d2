// Package pricing derives cart and order totals from line items.
package pricing

import "github.com/shopspring/decimal"

var (
	// FreeShippingThreshold is the subtotal from which shipping is free.
	FreeShippingThreshold = decimal.NewFromInt(100)
	// ShippingFee is charged below FreeShippingThreshold.
	ShippingFee = decimal.NewFromInt(10)
	// TaxRate is applied to the discounted subtotal.
	TaxRate = decimal.RequireFromString("0.115")

	hundred = decimal.NewFromInt(100)
)

// Line is a priced quantity of one product.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
	// DiscountPercentage is in [0, 100]; zero means no discount.
	DiscountPercentage decimal.Decimal
}

// Effective returns the unit price after the line discount.
func (l Line) Effective() decimal.Decimal {
	if l.DiscountPercentage.IsZero() {
		return l.UnitPrice
	}
	return l.UnitPrice.Mul(hundred.Sub(l.DiscountPercentage)).Div(hundred)
}

// Amount is the line total before shipping and tax.
func (l Line) Amount() decimal.Decimal {
	return l.Effective().Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Totals is the full price breakdown of a set of lines. Values are exact;
// call Rounded before displaying or transmitting them.
type Totals struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Calculate computes totals for lines. It is deterministic and has no side
// effects. An empty set of lines still pays shipping, callers reject empty
// carts before pricing them.
func Calculate(lines []Line) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Amount())
	}

	shipping := ShippingFee
	if subtotal.GreaterThanOrEqual(FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(TaxRate)

	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal.Add(shipping).Add(tax),
	}
}

// Rounded returns t with every amount rounded half away from zero to cents.
// Total is rounded from the exact value, so it may differ by a cent from the
// sum of the rounded parts.
func (t Totals) Rounded() Totals {
	return Totals{
		Subtotal: t.Subtotal.Round(2),
		Shipping: t.Shipping.Round(2),
		Tax:      t.Tax.Round(2),
		Total:    t.Total.Round(2),
	}
}

// Equal reports whether both breakdowns carry the same amounts.
func (t Totals) Equal(o Totals) bool {
	return t.Subtotal.Equal(o.Subtotal) &&
		t.Shipping.Equal(o.Shipping) &&
		t.Tax.Equal(o.Tax) &&
		t.Total.Equal(o.Total)
}
