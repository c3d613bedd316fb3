package models

import (
	"time"

	"github.com/google/uuid"
)

// APICredential authenticates webhook senders. The raw key is never stored;
// KeyHash holds an Argon2id hash and KeyPrefix the first characters used to
// narrow the lookup before verifying.
type APICredential struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string     `gorm:"column:name;not null"`
	KeyPrefix    string     `gorm:"column:key_prefix;not null;index"`
	KeyHash      string     `gorm:"column:key_hash;not null"`
	Active       bool       `gorm:"column:active;not null;default:true"`
	RequestCount int        `gorm:"column:request_count;not null;default:0"`
	LastUsedAt   *time.Time `gorm:"column:last_used_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
