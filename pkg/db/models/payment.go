package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment records one settlement entry against an order.
type Payment struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	MethodID  uuid.UUID       `gorm:"column:method_id;type:uuid;not null"`
	Amount    decimal.Decimal `gorm:"column:amount;type:numeric(14,4);not null"`
	CardType  *string         `gorm:"column:card_type"`
	Reference *string         `gorm:"column:reference"`
	PaidAt    time.Time       `gorm:"column:paid_at;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
