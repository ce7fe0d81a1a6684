package checkout

import (
	"github.com/shopspring/decimal"

	"vetpos/internal/models"
)

var hundred = decimal.NewFromInt(100)

// ComputeTotals derives the full checkout breakdown from the cart, the
// discount and the tax rate. Pure: no state is touched, so it can be
// recomputed as often as the inputs change.
//
// Order of operations is fixed: discount first, then tax on the
// discounted base. A fixed discount larger than the subtotal is
// clamped so the taxable base never goes negative.
func ComputeTotals(lines []models.CartLine, discount models.Discount, taxRatePercent decimal.Decimal) models.Totals {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	subtotal = subtotal.Round(2)

	var discountAmount decimal.Decimal
	switch discount.Kind {
	case models.DiscountPercentage:
		discountAmount = subtotal.Mul(discount.Value).Div(hundred)
	case models.DiscountFixed:
		discountAmount = discount.Value
	default:
		discountAmount = decimal.Zero
	}
	if discountAmount.GreaterThan(subtotal) {
		discountAmount = subtotal
	}
	// Round each stage before the next so the displayed lines always
	// add up exactly: subtotal - discount = taxable, taxable + tax =
	// total, to the cent.
	discountAmount = discountAmount.Round(2)

	taxable := subtotal.Sub(discountAmount)
	tax := taxable.Mul(taxRatePercent).Div(hundred).Round(2)

	return models.Totals{
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		TaxableAmount:  taxable,
		TaxAmount:      tax,
		Total:          taxable.Add(tax),
	}
}
