package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/enums"
)

// Session is the bounded collection window orders are grouped into before
// being posted to accounting.
type Session struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ConfigID  uuid.UUID          `gorm:"column:config_id;type:uuid;not null;index"`
	Name      string             `gorm:"column:name;not null"`
	State     enums.SessionState `gorm:"column:state;type:text;not null;default:'opening_control'"`
	UserID    uuid.UUID          `gorm:"column:user_id;type:uuid;not null"`
	OpenedAt  time.Time          `gorm:"column:opened_at;not null"`
	ClosedAt  *time.Time         `gorm:"column:closed_at"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
