package catalog

import (
	"context"
	"fmt"

	pkgerrors "github.com/GARAGE-POS/odoo-plugin-sub000/pkg/errors"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/pagination"
)

type service struct {
	repo Repository
}

// NewService builds the catalog listing service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListProducts(ctx context.Context, params pagination.Params, filters ListFilters) (*ProductList, error) {
	items, total, err := s.repo.ListProducts(ctx, params.Normalize(), filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list products")
	}

	list := &ProductList{
		Products: make([]ProductSummary, 0, len(items)),
		Total:    total,
	}
	for _, item := range items {
		list.Products = append(list.Products, ProductSummary{
			ID:         item.ID,
			Name:       item.Name,
			LegacyCode: item.LegacyCode,
			ListPrice:  item.ListPrice,
			Active:     item.Active,
		})
	}
	return list, nil
}

func (s *service) ListVendors(ctx context.Context, params pagination.Params, filters ListFilters) (*VendorList, error) {
	items, total, err := s.repo.ListVendors(ctx, params.Normalize(), filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list vendors")
	}

	list := &VendorList{
		Vendors: make([]VendorSummary, 0, len(items)),
		Total:   total,
	}
	for _, item := range items {
		list.Vendors = append(list.Vendors, VendorSummary{
			ID:     item.ID,
			Name:   item.Name,
			Email:  item.Email,
			Phone:  item.Phone,
			Active: item.Active,
		})
	}
	return list, nil
}

func (s *service) ListUOMs(ctx context.Context, params pagination.Params, filters ListFilters) (*UOMList, error) {
	items, total, err := s.repo.ListUOMs(ctx, params.Normalize(), filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list units")
	}

	list := &UOMList{
		UOMs:  make([]UOMSummary, 0, len(items)),
		Total: total,
	}
	for _, item := range items {
		list.UOMs = append(list.UOMs, UOMSummary{
			ID:       item.ID,
			Name:     item.Name,
			Category: item.Category,
			Active:   item.Active,
		})
	}
	return list, nil
}
