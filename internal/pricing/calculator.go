package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/db/models"
)

var (
	hundred = decimal.NewFromInt(100)
)

// LineInput carries one order line through the tax computation.
type LineInput struct {
	UnitPrice       decimal.Decimal
	Qty             decimal.Decimal
	DiscountPercent decimal.Decimal
	Tax             *models.Tax
}

// LineAmounts is the computed money breakdown for one line.
type LineAmounts struct {
	Subtotal     decimal.Decimal
	SubtotalIncl decimal.Decimal
	Tax          decimal.Decimal
}

// Calculator turns a line's raw price/quantity/discount into tax-exclusive
// and tax-inclusive subtotals.
type Calculator interface {
	ComputeLine(input LineInput) LineAmounts
}

type calculator struct{}

// NewCalculator builds the default tax calculator.
func NewCalculator() Calculator {
	return &calculator{}
}

// ComputeLine applies the discount to the unit price first, then the tax to
// the discounted amount scaled by quantity. Price-included taxes are backed
// out of the gross instead of added on top.
func (c *calculator) ComputeLine(input LineInput) LineAmounts {
	discounted := input.UnitPrice.Mul(decimal.NewFromInt(1).Sub(input.DiscountPercent.Div(hundred)))
	base := discounted.Mul(input.Qty)

	if input.Tax == nil || !input.Tax.Active || input.Tax.Percent.IsZero() {
		return LineAmounts{
			Subtotal:     base,
			SubtotalIncl: base,
			Tax:          decimal.Zero,
		}
	}

	rate := input.Tax.Percent.Div(hundred)
	if input.Tax.PriceInclude {
		excl := base.Div(decimal.NewFromInt(1).Add(rate))
		return LineAmounts{
			Subtotal:     excl,
			SubtotalIncl: base,
			Tax:          base.Sub(excl),
		}
	}

	tax := base.Mul(rate)
	return LineAmounts{
		Subtotal:     base,
		SubtotalIncl: base.Add(tax),
		Tax:          tax,
	}
}

// DiscountPercentFromAmount converts a flat discount amount into the percent
// form stored on order lines. Zero-priced lines get no discount rather than a
// division error.
func DiscountPercentFromAmount(price, qty, discountAmount decimal.Decimal) decimal.Decimal {
	if price.Sign() <= 0 || discountAmount.Sign() <= 0 {
		return decimal.Zero
	}
	gross := price.Mul(qty)
	if gross.IsZero() {
		return decimal.Zero
	}
	return discountAmount.Div(gross).Mul(hundred)
}
