package products

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a products repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindByLegacyCode(ctx context.Context, code string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("legacy_code = ?", code).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindSellableByExactName(ctx context.Context, companyID uuid.UUID, name string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND name = ? AND active = ? AND sale_ok = ? AND available_in_pos = ?",
			companyID, name, true, true, true).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindSellableByFuzzyName(ctx context.Context, companyID uuid.UUID, name string) (*models.Product, error) {
	var product models.Product
	pattern := "%" + strings.ToLower(strings.TrimSpace(name)) + "%"
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND LOWER(name) LIKE ? AND active = ? AND sale_ok = ? AND available_in_pos = ?",
			companyID, pattern, true, true, true).
		Order("name ASC").
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindTax(ctx context.Context, id uuid.UUID) (*models.Tax, error) {
	var tax models.Tax
	if err := r.db.WithContext(ctx).First(&tax, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tax, nil
}
