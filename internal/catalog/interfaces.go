package catalog

import (
	"context"

	"gorm.io/gorm"

	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/db/models"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/pagination"
)

// ListFilters narrow the read-only catalog listings.
type ListFilters struct {
	ActiveOnly bool
	Query      string
}

// Repository defines the read-only listing queries behind the catalog
// endpoints.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListProducts(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.Product, int64, error)
	ListVendors(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.Partner, int64, error)
	ListUOMs(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.UOM, int64, error)
}

// Service exposes the catalog listings with normalized pagination.
type Service interface {
	ListProducts(ctx context.Context, params pagination.Params, filters ListFilters) (*ProductList, error)
	ListVendors(ctx context.Context, params pagination.Params, filters ListFilters) (*VendorList, error)
	ListUOMs(ctx context.Context, params pagination.Params, filters ListFilters) (*UOMList, error)
}
