package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/db/models"
)

// Repository defines payment-method lookups used by the resolver.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListActiveByConfig(ctx context.Context, configID uuid.UUID) ([]models.PaymentMethod, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentMethod, error)
}
