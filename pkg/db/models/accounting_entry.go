package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountingEntry is one per-journal posting created when a session closes.
// Rows stay unposted until the close batch commits.
type AccountingEntry struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SessionID uuid.UUID       `gorm:"column:session_id;type:uuid;not null;index"`
	Journal   string          `gorm:"column:journal;not null"`
	Amount    decimal.Decimal `gorm:"column:amount;type:numeric(14,4);not null"`
	Posted    bool            `gorm:"column:posted;not null;default:false"`
	PostedAt  *time.Time      `gorm:"column:posted_at"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
