package catalog

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/db/models"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListProducts(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})
	if filters.ActiveOnly {
		query = query.Where("active = ?", true)
	}
	if q := strings.TrimSpace(filters.Query); q != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(q)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.Product
	err := query.
		Order("name ASC").
		Limit(params.Limit).
		Offset(params.Offset).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repository) ListVendors(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.Partner, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Partner{}).
		Where("is_vendor = ?", true)
	if filters.ActiveOnly {
		query = query.Where("active = ?", true)
	}
	if q := strings.TrimSpace(filters.Query); q != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(q)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.Partner
	err := query.
		Order("name ASC").
		Limit(params.Limit).
		Offset(params.Offset).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repository) ListUOMs(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.UOM, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.UOM{})
	if filters.ActiveOnly {
		query = query.Where("active = ?", true)
	}
	if q := strings.TrimSpace(filters.Query); q != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(q)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.UOM
	err := query.
		Order("name ASC").
		Limit(params.Limit).
		Offset(params.Offset).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
