package credentials

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/db/models"
)

// Repository defines persistence operations for API credentials.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActiveByPrefix(ctx context.Context, prefix string) ([]models.APICredential, error)
	Create(ctx context.Context, credential *models.APICredential) (*models.APICredential, error)
	BumpUsage(ctx context.Context, id uuid.UUID) error
}

// Authenticator verifies raw API keys against stored credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, rawKey string) (*models.APICredential, error)
}
