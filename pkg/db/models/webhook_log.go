package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/enums"
)

// WebhookLog is the durable record of one webhook delivery. It doubles as the
// idempotency record: the unique nullable key is what guarantees at-most-once
// processing per delivery.
type WebhookLog struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	IdempotencyKey  *string             `gorm:"column:idempotency_key;uniqueIndex:webhook_logs_idempotency_key_uidx"`
	ExternalOrderID string              `gorm:"column:external_order_id;index"`
	Payload         string              `gorm:"column:payload;not null"`
	Status          enums.WebhookStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	ResponseBody    *string             `gorm:"column:response_body"`
	ErrorText       *string             `gorm:"column:error_text"`
	OrderID         *uuid.UUID          `gorm:"column:order_id;type:uuid"`
	Success         bool                `gorm:"column:success;not null;default:false"`
	Attempts        int                 `gorm:"column:attempts;not null;default:0"`
	RemoteAddr      *string             `gorm:"column:remote_addr"`
	UserAgent       *string             `gorm:"column:user_agent"`
	ReceivedAt      time.Time           `gorm:"column:received_at;not null"`
	ProcessedAt     *time.Time          `gorm:"column:processed_at"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
