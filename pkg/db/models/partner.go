package models

import (
	"time"

	"github.com/google/uuid"
)

// Partner is a customer or vendor record. CustomerCode is the external
// customer reference orders may carry; invoicing is only enabled when an
// order resolves to a partner.
type Partner struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string    `gorm:"column:name;not null"`
	CustomerCode *string   `gorm:"column:customer_code;index"`
	Email        *string   `gorm:"column:email"`
	Phone        *string   `gorm:"column:phone"`
	IsVendor     bool      `gorm:"column:is_vendor;not null;default:false"`
	Active       bool      `gorm:"column:active;not null;default:true"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
