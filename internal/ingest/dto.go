package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GARAGE-POS/odoo-plugin-sub000/internal/orders"
	pkgerrors "github.com/GARAGE-POS/odoo-plugin-sub000/pkg/errors"
)

// FlexibleID accepts both string and numeric JSON values; the source system
// is inconsistent about how it serializes order identifiers.
type FlexibleID string

func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return err
	}
	*f = FlexibleID(n.String())
	return nil
}

func (f FlexibleID) String() string {
	return string(f)
}

// OrderItemPayload is one line item as the source system sends it.
type OrderItemPayload struct {
	ItemName       string          `json:"ItemName"`
	ItemID         FlexibleID      `json:"ItemID"`
	ProductID      FlexibleID      `json:"ProductID"`
	Price          decimal.Decimal `json:"Price"`
	Quantity       decimal.Decimal `json:"Quantity"`
	DiscountAmount decimal.Decimal `json:"DiscountAmount"`
}

// CheckoutDetailPayload is one settlement entry as the source system sends it.
type CheckoutDetailPayload struct {
	PaymentMode int             `json:"PaymentMode"`
	AmountPaid  decimal.Decimal `json:"AmountPaid"`
	CardType    string          `json:"CardType"`
	ReferenceID FlexibleID      `json:"ReferenceID"`
}

// OrderPayload is the raw single-order webhook body.
type OrderPayload struct {
	OrderID         FlexibleID              `json:"OrderID"`
	OrderItems      []OrderItemPayload      `json:"OrderItems"`
	CheckoutDetails []CheckoutDetailPayload `json:"CheckoutDetails"`
	AmountTotal     decimal.Decimal         `json:"AmountTotal"`
	GrandTotal      decimal.Decimal         `json:"GrandTotal"`
	Tax             decimal.Decimal         `json:"Tax"`
	TaxPercent      decimal.Decimal         `json:"TaxPercent"`
	AmountDiscount  decimal.Decimal         `json:"AmountDiscount"`
	AmountPaid      decimal.Decimal         `json:"AmountPaid"`
	BalanceAmount   decimal.Decimal         `json:"BalanceAmount"`
	OrderDate       string                  `json:"OrderDate,omitempty"`
	PartnerID       string                  `json:"PartnerID,omitempty"`
	CustomerCode    string                  `json:"CustomerCode,omitempty"`
	APIKey          string                  `json:"api_key,omitempty"`
	IdempotencyKey  string                  `json:"idempotency_key,omitempty"`
}

// BulkPayload is the bulk webhook envelope. Legacy senders post a bare array
// instead; the gateway normalizes that form into this one.
type BulkPayload struct {
	ConfigRef   string         `json:"config_ref,omitempty"`
	PartnerID   string         `json:"partner_id,omitempty"`
	CustomerRef string         `json:"customer_ref,omitempty"`
	Orders      []OrderPayload `json:"orders"`
	APIKey      string         `json:"api_key,omitempty"`
}

// Validate checks the fields the pipeline cannot proceed without.
func (p *OrderPayload) Validate() error {
	var missing []string
	if strings.TrimSpace(p.OrderID.String()) == "" {
		missing = append(missing, "OrderID")
	}
	if len(p.OrderItems) == 0 {
		missing = append(missing, "OrderItems")
	}
	if len(p.CheckoutDetails) == 0 {
		missing = append(missing, "CheckoutDetails")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", ")))
	}
	return nil
}

// orderDateLayouts are tried in order when parsing the optional OrderDate.
var orderDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseOrderDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range orderDateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			parsed = parsed.UTC()
			return &parsed
		}
	}
	return nil
}

// toExternal converts a validated payload into the normalized form the
// reconciliation and assembly stages consume.
func (p *OrderPayload) toExternal(source string) *orders.ExternalOrder {
	items := make([]orders.ExternalItem, 0, len(p.OrderItems))
	for _, item := range p.OrderItems {
		items = append(items, orders.ExternalItem{
			Name:           item.ItemName,
			ProductID:      item.ProductID.String(),
			LegacyCode:     item.ItemID.String(),
			Price:          item.Price,
			Qty:            item.Quantity,
			DiscountAmount: item.DiscountAmount,
		})
	}

	checkouts := make([]orders.ExternalCheckout, 0, len(p.CheckoutDetails))
	for _, detail := range p.CheckoutDetails {
		checkouts = append(checkouts, orders.ExternalCheckout{
			PaymentMode: detail.PaymentMode,
			Amount:      detail.AmountPaid,
			CardType:    detail.CardType,
			Reference:   detail.ReferenceID.String(),
		})
	}

	return &orders.ExternalOrder{
		ExternalID:   p.OrderID.String(),
		Source:       source,
		Date:         parseOrderDate(p.OrderDate),
		PartnerRef:   p.PartnerID,
		CustomerCode: p.CustomerCode,
		Items:        items,
		Checkouts:    checkouts,
		Declared: orders.DeclaredAmounts{
			AmountTotal:    p.AmountTotal,
			GrandTotal:     p.GrandTotal,
			Tax:            p.Tax,
			TaxPercent:     p.TaxPercent,
			AmountDiscount: p.AmountDiscount,
			AmountPaid:     p.AmountPaid,
			BalanceAmount:  p.BalanceAmount,
		},
	}
}

// OrderResult is the success payload for a processed order.
type OrderResult struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	ExternalOrderID string              `json:"external_order_id"`
	Amount          decimal.Decimal     `json:"amount"`
	TaxPercent      decimal.Decimal     `json:"tax_percent"`
	State           string              `json:"state"`
	Steps           []orders.StepResult `json:"steps,omitempty"`
	Replayed        bool                `json:"replayed,omitempty"`
}

// BulkOrderResult is one entry in a bulk submission's per-order breakdown.
type BulkOrderResult struct {
	ExternalOrderID string           `json:"external_order_id"`
	Status          string           `json:"status"`
	OrderRef        string           `json:"order_ref,omitempty"`
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	TaxPercent      *decimal.Decimal `json:"tax_percent,omitempty"`
	Error           string           `json:"error,omitempty"`
}

// BulkResult aggregates a bulk submission's outcome.
type BulkResult struct {
	ConfigRefUsed string            `json:"config_ref_used"`
	Total         int               `json:"total"`
	Successful    int               `json:"successful"`
	Failed        int               `json:"failed"`
	Results       []BulkOrderResult `json:"results"`
}
