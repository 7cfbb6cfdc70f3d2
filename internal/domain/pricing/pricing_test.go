package pricing

import (
	"math/rand/v2"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDecimal(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "%s: want %s, got %s", field, want, got)
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name     string
		lines    []Line
		subtotal string
		shipping string
		tax      string
		total    string
	}{
		{
			name:     "free shipping at exactly 100",
			lines:    []Line{{UnitPrice: d("20.00"), Quantity: 5}},
			subtotal: "100", shipping: "0", tax: "11.5", total: "111.5",
		},
		{
			name:     "shipping charged at 99.99",
			lines:    []Line{{UnitPrice: d("99.99"), Quantity: 1}},
			subtotal: "99.99", shipping: "10", tax: "11.49885", total: "121.48885",
		},
		{
			name: "discount applied before quantity",
			lines: []Line{
				{UnitPrice: d("50"), Quantity: 2, DiscountPercentage: d("10")},
				{UnitPrice: d("5"), Quantity: 1},
			},
			subtotal: "95", shipping: "10", tax: "10.925", total: "115.925",
		},
		{
			name:     "full discount",
			lines:    []Line{{UnitPrice: d("30"), Quantity: 3, DiscountPercentage: d("100")}},
			subtotal: "0", shipping: "10", tax: "0", total: "10",
		},
		{
			name:     "no lines",
			subtotal: "0", shipping: "10", tax: "0", total: "10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(tt.lines)
			assertDecimal(t, tt.subtotal, got.Subtotal, "subtotal")
			assertDecimal(t, tt.shipping, got.Shipping, "shipping")
			assertDecimal(t, tt.tax, got.Tax, "tax")
			assertDecimal(t, tt.total, got.Total, "total")
		})
	}
}

func TestTotals_Rounded(t *testing.T) {
	got := Calculate([]Line{{UnitPrice: d("99.99"), Quantity: 1}}).Rounded()
	assertDecimal(t, "99.99", got.Subtotal, "subtotal")
	assertDecimal(t, "11.50", got.Tax, "tax")
	assertDecimal(t, "121.49", got.Total, "total")

	// Rounding happens once at the end, not per line.
	lines := make([]Line, 3)
	for i := range lines {
		lines[i] = Line{UnitPrice: d("0.335"), Quantity: 1}
	}
	assertDecimal(t, "1.01", Calculate(lines).Rounded().Subtotal, "subtotal")
}

func TestTotals_Equal(t *testing.T) {
	a := Calculate([]Line{{UnitPrice: d("20"), Quantity: 5}}).Rounded()
	b := Totals{Subtotal: d("100.00"), Shipping: d("0"), Tax: d("11.50"), Total: d("111.50")}
	assert.True(t, a.Equal(b))

	b.Tax = d("11.49")
	assert.False(t, a.Equal(b))
}

func TestCalculate_Deterministic(t *testing.T) {
	lines := []Line{
		{UnitPrice: d("12.34"), Quantity: 3, DiscountPercentage: d("15")},
		{UnitPrice: d("7.5"), Quantity: 2},
	}
	first := Calculate(lines)
	for range 10 {
		require.True(t, first.Equal(Calculate(lines)))
	}
}

// Increasing any line's quantity never decreases the merchandise amount
// (subtotal plus tax), and never decreases the total unless the bump crosses
// the free shipping threshold.
func TestCalculate_MonotonicInQuantity(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for iter := range 500 {
		n := 1 + rng.IntN(4)
		lines := make([]Line, n)
		for i := range lines {
			lines[i] = Line{
				UnitPrice:          decimal.New(int64(1+rng.IntN(15000)), -2),
				Quantity:           1 + rng.IntN(5),
				DiscountPercentage: decimal.NewFromInt(int64(rng.IntN(4) * 25)),
			}
		}
		before := Calculate(lines)

		idx := rng.IntN(n)
		lines[idx].Quantity += 1 + rng.IntN(3)
		after := Calculate(lines)

		require.True(t, after.Subtotal.Add(after.Tax).GreaterThanOrEqual(before.Subtotal.Add(before.Tax)),
			"iteration %d: merchandise amount decreased", iter)
		if after.Shipping.Equal(before.Shipping) {
			require.True(t, after.Total.GreaterThanOrEqual(before.Total),
				"iteration %d: total decreased from %s to %s", iter, before.Total, after.Total)
		}
	}
}

func TestCalculate_ThresholdCrossing(t *testing.T) {
	lines := []Line{{UnitPrice: d("1"), Quantity: 99}}
	below := Calculate(lines)
	assertDecimal(t, "10", below.Shipping, "shipping")

	lines[0].Quantity = 100
	above := Calculate(lines)
	assertDecimal(t, "0", above.Shipping, "shipping")

	// Waived shipping makes the larger cart cheaper, by less than the fee.
	assertDecimal(t, "120.385", below.Total, "total below")
	assertDecimal(t, "111.5", above.Total, "total above")
	assert.True(t, above.Total.Add(ShippingFee).GreaterThan(below.Total))
}
