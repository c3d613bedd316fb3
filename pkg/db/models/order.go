package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/enums"
)

// Order is the durable aggregate created from one external POS order. The
// (external_id, external_source) pair is unique so a replayed delivery can
// never create a second order even without an idempotency key.
type Order struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string           `gorm:"column:name;not null"`
	ExternalID     string           `gorm:"column:external_id;not null;uniqueIndex:orders_external_uidx"`
	ExternalSource string           `gorm:"column:external_source;not null;uniqueIndex:orders_external_uidx"`
	SessionID      uuid.UUID        `gorm:"column:session_id;type:uuid;not null;index"`
	PartnerID      *uuid.UUID       `gorm:"column:partner_id;type:uuid"`
	State          enums.OrderState `gorm:"column:state;type:text;not null;default:'draft'"`
	AmountTotal    decimal.Decimal  `gorm:"column:amount_total;type:numeric(14,4);not null"`
	AmountTax      decimal.Decimal  `gorm:"column:amount_tax;type:numeric(14,4);not null"`
	AmountPaid     decimal.Decimal  `gorm:"column:amount_paid;type:numeric(14,4);not null"`
	AmountReturn   decimal.Decimal  `gorm:"column:amount_return;type:numeric(14,4);not null"`
	ToInvoice      bool             `gorm:"column:to_invoice;not null;default:false"`
	External       bool             `gorm:"column:external;not null;default:false"`
	Note           *string          `gorm:"column:note"`
	DateOrder      time.Time        `gorm:"column:date_order;not null"`
	Lines          []OrderLine      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payments       []Payment        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
