package money

import "github.com/shopspring/decimal"

// Round2 rounds a monetary amount to 2 decimal places using round half
// away from zero, so 1.141 becomes 1.14 and 1.145 becomes 1.15. This is
// the single rounding rule used for tax and total amounts everywhere in
// the system; line totals and subtotals are never rounded.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// LineTotal computes unitPrice multiplied by quantity exactly, with no
// intermediate rounding.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}
