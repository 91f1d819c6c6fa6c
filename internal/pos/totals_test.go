package pos

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
)

func TestComputeTotalsEmptyCart(t *testing.T) {
	totals := ComputeTotals(nil, price("0.07"))

	if !totals.Subtotal.IsZero() || !totals.Tax.IsZero() || !totals.Total.IsZero() {
		t.Errorf("Empty cart totals must be zero, got %s/%s/%s", totals.Subtotal, totals.Tax, totals.Total)
	}
}

func TestComputeTotalsKnownReceipt(t *testing.T) {
	lines := []Line{
		{SKU: "PARA-500", UnitPrice: price("2.50"), Quantity: 1},
		{SKU: "AMOX-250", UnitPrice: price("6.90"), Quantity: 2},
	}

	totals := ComputeTotals(lines, price("0.07"))

	if !totals.Subtotal.Equal(price("16.30")) {
		t.Errorf("Subtotal = %s, want 16.30", totals.Subtotal)
	}
	if !totals.Tax.Equal(price("1.14")) {
		t.Errorf("Tax = %s, want 1.14", totals.Tax)
	}
	if !totals.Total.Equal(price("17.44")) {
		t.Errorf("Total = %s, want 17.44", totals.Total)
	}
}

func TestComputeTotalsZeroTaxRate(t *testing.T) {
	lines := []Line{{UnitPrice: price("9.99"), Quantity: 3}}

	totals := ComputeTotals(lines, decimal.Zero)

	if !totals.Tax.IsZero() {
		t.Errorf("Tax = %s, want 0", totals.Tax)
	}
	if !totals.Total.Equal(totals.Subtotal) {
		t.Errorf("Total %s != subtotal %s at zero tax", totals.Total, totals.Subtotal)
	}
}

func TestComputeTotalsRoundsHalfAwayFromZero(t *testing.T) {
	// 0.50 * 0.05 = 0.025 which rounds up to 0.03
	lines := []Line{{UnitPrice: price("0.50"), Quantity: 1}}

	totals := ComputeTotals(lines, price("0.05"))

	if !totals.Tax.Equal(price("0.03")) {
		t.Errorf("Tax = %s, want 0.03", totals.Tax)
	}
	if !totals.Total.Equal(price("0.53")) {
		t.Errorf("Total = %s, want 0.53", totals.Total)
	}
}

func TestProperty_TotalsAreDeterministicAndConsistent(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("same lines and rate always produce the same totals and total = round(subtotal + tax)", prop.ForAll(
		func(prices []float64, quantities []int, rate float64) bool {
			n := len(prices)
			if len(quantities) < n {
				n = len(quantities)
			}

			lines := make([]Line, 0, n)
			for i := 0; i < n; i++ {
				lines = append(lines, Line{
					UnitPrice: decimal.NewFromFloat(prices[i]).Round(2),
					Quantity:  quantities[i],
				})
			}
			taxRate := decimal.NewFromFloat(rate).Round(4)

			first := ComputeTotals(lines, taxRate)
			second := ComputeTotals(lines, taxRate)

			if !first.Subtotal.Equal(second.Subtotal) || !first.Tax.Equal(second.Tax) || !first.Total.Equal(second.Total) {
				t.Logf("FAIL: recomputation differed")
				return false
			}

			if first.Subtotal.IsNegative() || first.Tax.IsNegative() || first.Total.IsNegative() {
				t.Logf("FAIL: negative totals %s/%s/%s", first.Subtotal, first.Tax, first.Total)
				return false
			}

			expectedTotal := first.Subtotal.Add(first.Tax).Round(2)
			if !first.Total.Equal(expectedTotal) {
				t.Logf("FAIL: total %s != round(subtotal + tax) %s", first.Total, expectedTotal)
				return false
			}
			return true
		},
		gen.SliceOf(gen.Float64Range(0.01, 999.99)),
		gen.SliceOf(gen.IntRange(1, 50)),
		gen.Float64Range(0, 0.5),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
