package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExternalItem is one normalized line from an incoming order payload.
type ExternalItem struct {
	Name           string
	ProductID      string
	LegacyCode     string
	Price          decimal.Decimal
	Qty            decimal.Decimal
	DiscountAmount decimal.Decimal
}

// ExternalCheckout is one normalized settlement entry from an incoming
// order payload.
type ExternalCheckout struct {
	PaymentMode int
	Amount      decimal.Decimal
	CardType    string
	Reference   string
}

// DeclaredAmounts carries the aggregate figures the source system declared
// alongside the raw lines. Reconciliation compares them against locally
// computed values before anything is persisted.
type DeclaredAmounts struct {
	AmountTotal    decimal.Decimal
	GrandTotal     decimal.Decimal
	Tax            decimal.Decimal
	TaxPercent     decimal.Decimal
	AmountDiscount decimal.Decimal
	AmountPaid     decimal.Decimal
	BalanceAmount  decimal.Decimal
}

// GrandOrTotal returns the declared grand total, falling back to the plain
// declared total when the source omitted one.
func (d DeclaredAmounts) GrandOrTotal() decimal.Decimal {
	if !d.GrandTotal.IsZero() {
		return d.GrandTotal
	}
	return d.AmountTotal
}

// ExternalOrder is the validated, normalized view of one incoming order. It
// is never persisted; it only drives reconciliation and assembly.
type ExternalOrder struct {
	ExternalID   string
	Source       string
	Date         *time.Time
	PartnerRef   string
	CustomerCode string
	Items        []ExternalItem
	Checkouts    []ExternalCheckout
	Declared     DeclaredAmounts
}

// BatchDefaults are the envelope-level fallbacks a bulk submission may carry
// for orders that omit their own partner reference.
type BatchDefaults struct {
	PartnerRef   string
	CustomerCode string
}
