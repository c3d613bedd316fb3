package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the local catalog item external line references resolve to.
// LegacyCode carries the identifier the source system used before migration.
type Product struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string          `gorm:"column:name;not null;index"`
	LegacyCode     *string         `gorm:"column:legacy_code;index"`
	CompanyID      uuid.UUID       `gorm:"column:company_id;type:uuid;not null"`
	ListPrice      decimal.Decimal `gorm:"column:list_price;type:numeric(14,4);not null"`
	Active         bool            `gorm:"column:active;not null;default:true"`
	SaleOK         bool            `gorm:"column:sale_ok;not null;default:true"`
	AvailableInPOS bool            `gorm:"column:available_in_pos;not null;default:true"`
	TaxID          *uuid.UUID      `gorm:"column:tax_id;type:uuid"`
	UOMID          *uuid.UUID      `gorm:"column:uom_id;type:uuid"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
