package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLine snapshots one resolved line of an ingested order. Immutable once
// the order leaves draft.
type OrderLine struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID         uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Name              string          `gorm:"column:name;not null"`
	Qty               decimal.Decimal `gorm:"column:qty;type:numeric(12,4);not null"`
	UnitPrice         decimal.Decimal `gorm:"column:unit_price;type:numeric(14,4);not null"`
	DiscountPercent   decimal.Decimal `gorm:"column:discount_percent;type:numeric(7,4);not null"`
	PriceSubtotal     decimal.Decimal `gorm:"column:price_subtotal;type:numeric(14,4);not null"`
	PriceSubtotalIncl decimal.Decimal `gorm:"column:price_subtotal_incl;type:numeric(14,4);not null"`
	TaxID             *uuid.UUID      `gorm:"column:tax_id;type:uuid"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
