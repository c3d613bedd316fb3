package orders

import (
	"fmt"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/GARAGE-POS/odoo-plugin-sub000/pkg/errors"
)

var decimalHundred = decimal.NewFromInt(100)

// ReconcileFigures is attached to reconciliation rejections so the caller
// sees both sides of the mismatch.
type ReconcileFigures struct {
	ComputedLineTotal  string `json:"computed_line_total"`
	ComputedGrandTotal string `json:"computed_grand_total"`
	DeclaredGrandTotal string `json:"declared_grand_total"`
	DeclaredPaid       string `json:"declared_amount_paid"`
	CheckoutSum        string `json:"checkout_sum,omitempty"`
	Tolerance          string `json:"tolerance"`
}

// Reconciler cross-checks externally declared aggregates against locally
// computed values before any resolver or persistence work begins.
type Reconciler interface {
	Validate(order *ExternalOrder, rounding decimal.Decimal) error
}

type reconciler struct {
	toleranceMultiplier decimal.Decimal
}

// NewReconciler builds a reconciler. The multiplier scales the currency
// rounding into the acceptance band for totals and paid amounts.
func NewReconciler(toleranceMultiplier int) (Reconciler, error) {
	if toleranceMultiplier <= 0 {
		return nil, fmt.Errorf("tolerance multiplier must be positive, got %d", toleranceMultiplier)
	}
	return &reconciler{toleranceMultiplier: decimal.NewFromInt(int64(toleranceMultiplier))}, nil
}

// Validate recomputes the line total from raw items, adds tax (percent when
// declared, flat amount otherwise), and compares against the declared grand
// total. Payment consistency accepts either a paid amount within tolerance
// or an explicit outstanding balance.
func (r *reconciler) Validate(order *ExternalOrder, rounding decimal.Decimal) error {
	tolerance := rounding.Mul(r.toleranceMultiplier)

	lineTotal := decimal.Zero
	for _, item := range order.Items {
		lineTotal = lineTotal.Add(item.Price.Mul(item.Qty).Sub(item.DiscountAmount))
	}

	grand := lineTotal
	if order.Declared.TaxPercent.Sign() > 0 {
		grand = grand.Add(lineTotal.Mul(order.Declared.TaxPercent).Div(decimalHundred))
	} else {
		grand = grand.Add(order.Declared.Tax)
	}

	declaredGrand := order.Declared.GrandOrTotal()
	figures := ReconcileFigures{
		ComputedLineTotal:  lineTotal.String(),
		ComputedGrandTotal: grand.String(),
		DeclaredGrandTotal: declaredGrand.String(),
		DeclaredPaid:       order.Declared.AmountPaid.String(),
		Tolerance:          tolerance.String(),
	}

	if grand.Sub(declaredGrand).Abs().GreaterThan(tolerance) {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("order total mismatch: computed %s, declared %s", grand.String(), declaredGrand.String())).
			WithDetails(figures)
	}

	paidDiff := order.Declared.AmountPaid.Sub(declaredGrand).Abs()
	if paidDiff.GreaterThan(tolerance) && !order.Declared.BalanceAmount.GreaterThan(rounding) {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("amount paid %s does not settle total %s and no balance is declared",
				order.Declared.AmountPaid.String(), declaredGrand.String())).
			WithDetails(figures)
	}

	if len(order.Checkouts) > 0 {
		checkoutSum := decimal.Zero
		for _, checkout := range order.Checkouts {
			checkoutSum = checkoutSum.Add(checkout.Amount)
		}
		if checkoutSum.Sub(order.Declared.AmountPaid).Abs().GreaterThan(rounding) {
			figures.CheckoutSum = checkoutSum.String()
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("checkout entries sum to %s but AmountPaid is %s",
					checkoutSum.String(), order.Declared.AmountPaid.String())).
				WithDetails(figures)
		}
	}

	return nil
}
