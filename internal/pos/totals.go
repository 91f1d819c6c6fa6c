package pos

import (
	"pharmacy-ms/internal/money"

	"github.com/shopspring/decimal"
)

// TotalsSnapshot is derived from the cart on every mutation and is never
// persisted on its own; the committed sale carries the final copy.
type TotalsSnapshot struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// ComputeTotals maps cart lines and a tax rate to subtotal, tax and
// total. The subtotal is an exact sum of unrounded line totals; tax and
// total are each rounded independently:
//
//	tax   = Round2(subtotal * taxRate)
//	total = Round2(subtotal + tax)
//
// The total is derived from the already-rounded tax, not from the
// unrounded product, which keeps reporting consistent. Pure and
// deterministic; an empty cart yields all zeros.
func ComputeTotals(lines []Line, taxRate decimal.Decimal) TotalsSnapshot {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(money.LineTotal(line.UnitPrice, line.Quantity))
	}

	tax := money.Round2(subtotal.Mul(taxRate))
	total := money.Round2(subtotal.Add(tax))

	return TotalsSnapshot{Subtotal: subtotal, Tax: tax, Total: total}
}
