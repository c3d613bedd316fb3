package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentMethod is a configured settlement channel. JournalName is what the
// external CardType / payment-mode strings are matched against; a method
// without a journal cannot settle anything.
type PaymentMethod struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ConfigID    uuid.UUID  `gorm:"column:config_id;type:uuid;not null;index"`
	Name        string     `gorm:"column:name;not null"`
	JournalName *string    `gorm:"column:journal_name"`
	IsCash      bool       `gorm:"column:is_cash;not null;default:false"`
	Active      bool       `gorm:"column:active;not null;default:true"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
