package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tax is a percentage tax applied to order lines. PriceInclude marks taxes
// already baked into the unit price.
type Tax struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string          `gorm:"column:name;not null"`
	Percent      decimal.Decimal `gorm:"column:percent;type:numeric(7,4);not null"`
	PriceInclude bool            `gorm:"column:price_include;not null;default:false"`
	CompanyID    uuid.UUID       `gorm:"column:company_id;type:uuid;not null"`
	Active       bool            `gorm:"column:active;not null;default:true"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
