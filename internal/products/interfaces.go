package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/db/models"
)

// Repository defines catalog lookups used by the resolver.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindByLegacyCode(ctx context.Context, code string) (*models.Product, error)
	FindSellableByExactName(ctx context.Context, companyID uuid.UUID, name string) (*models.Product, error)
	FindSellableByFuzzyName(ctx context.Context, companyID uuid.UUID, name string) (*models.Product, error)
	FindTax(ctx context.Context, id uuid.UUID) (*models.Tax, error)
}
