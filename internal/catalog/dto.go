package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductSummary is one row of the product listing.
type ProductSummary struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	LegacyCode *string         `json:"legacy_code,omitempty"`
	ListPrice  decimal.Decimal `json:"list_price"`
	Active     bool            `json:"active"`
}

// ProductList wraps a page of products with the total row count.
type ProductList struct {
	Products []ProductSummary `json:"products"`
	Total    int64            `json:"total"`
}

// VendorSummary is one row of the vendor listing.
type VendorSummary struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Email  *string   `json:"email,omitempty"`
	Phone  *string   `json:"phone,omitempty"`
	Active bool      `json:"active"`
}

// VendorList wraps a page of vendors with the total row count.
type VendorList struct {
	Vendors []VendorSummary `json:"vendors"`
	Total   int64           `json:"total"`
}

// UOMSummary is one row of the unit-of-measure listing.
type UOMSummary struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Category string    `json:"category"`
	Active   bool      `json:"active"`
}

// UOMList wraps a page of units with the total row count.
type UOMList struct {
	UOMs  []UOMSummary `json:"uoms"`
	Total int64        `json:"total"`
}
