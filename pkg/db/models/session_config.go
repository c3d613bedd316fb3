package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SessionConfig is the point-of-sale configuration sessions are opened
// against. MovementType and SourceLocationID together decide whether
// finalization may post inventory movements.
type SessionConfig struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name              string          `gorm:"column:name;not null"`
	CompanyID         uuid.UUID       `gorm:"column:company_id;type:uuid;not null"`
	Currency          string          `gorm:"column:currency;not null;default:'SAR'"`
	Rounding          decimal.Decimal `gorm:"column:rounding;type:numeric(12,6);not null"`
	FallbackMethodID  *uuid.UUID      `gorm:"column:fallback_method_id;type:uuid"`
	DefaultPartnerID  *uuid.UUID      `gorm:"column:default_partner_id;type:uuid"`
	MovementType      *string         `gorm:"column:movement_type"`
	SourceLocationID  *uuid.UUID      `gorm:"column:source_location_id;type:uuid"`
	IntegrationUserID uuid.UUID       `gorm:"column:integration_user_id;type:uuid;not null"`
	Active            bool            `gorm:"column:active;not null;default:true"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// InventoryOriginValid reports whether finalization may attempt an inventory
// movement for sessions under this config.
func (c SessionConfig) InventoryOriginValid() bool {
	return c.MovementType != nil && *c.MovementType != "" && c.SourceLocationID != nil
}
