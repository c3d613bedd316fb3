package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/db/models"
	pkgerrors "github.com/GARAGE-POS/odoo-plugin-sub000/pkg/errors"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/logger"
)

// ItemRef is the external reference carried by one incoming order line.
// ProductID beats LegacyCode beats Name when more than one is supplied.
type ItemRef struct {
	ProductID  string
	LegacyCode string
	Name       string
}

// Resolver maps external item references onto exactly one catalog product.
type Resolver interface {
	Resolve(ctx context.Context, companyID uuid.UUID, ref ItemRef) (*models.Product, error)
	TaxFor(ctx context.Context, companyID uuid.UUID, product *models.Product) (*models.Tax, error)
}

type resolver struct {
	repo Repository
	logg *logger.Logger
}

// NewResolver builds the product resolver.
func NewResolver(repo Repository, logg *logger.Logger) (Resolver, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &resolver{repo: repo, logg: logg}, nil
}

// Resolve walks the lookup chain: direct id, legacy code, exact sellable
// name, then fuzzy name as a last resort. Every hit still passes through the
// sellability checks so an id lookup cannot smuggle in an unsellable product.
func (r *resolver) Resolve(ctx context.Context, companyID uuid.UUID, ref ItemRef) (*models.Product, error) {
	if ref.ProductID != "" {
		if id, err := uuid.Parse(ref.ProductID); err == nil {
			product, err := r.repo.FindByID(ctx, id)
			if err != nil && err != gorm.ErrRecordNotFound {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: product by id")
			}
			if product != nil {
				return product, r.validateSellable(product, companyID)
			}
		}
	}

	if code := strings.TrimSpace(ref.LegacyCode); code != "" {
		product, err := r.repo.FindByLegacyCode(ctx, code)
		if err != nil && err != gorm.ErrRecordNotFound {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: product by legacy code")
		}
		if product != nil {
			return product, r.validateSellable(product, companyID)
		}
	}

	name := strings.TrimSpace(ref.Name)
	if name != "" {
		product, err := r.repo.FindSellableByExactName(ctx, companyID, name)
		if err != nil && err != gorm.ErrRecordNotFound {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: product by name")
		}
		if product != nil {
			return product, nil
		}

		product, err = r.repo.FindSellableByFuzzyName(ctx, companyID, name)
		if err != nil && err != gorm.ErrRecordNotFound {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: product by fuzzy name")
		}
		if product != nil {
			lctx := r.logg.WithFields(ctx, map[string]any{
				"requested_name": name,
				"matched_name":   product.Name,
				"product_id":     product.ID,
			})
			r.logg.Warn(lctx, "product resolved by fuzzy name match")
			return product, nil
		}
	}

	return nil, pkgerrors.New(pkgerrors.CodeNotFound,
		fmt.Sprintf("product not found: ItemName=%q, ItemID=%q", ref.Name, ref.ProductID))
}

func (r *resolver) validateSellable(product *models.Product, companyID uuid.UUID) error {
	switch {
	case !product.Active:
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("product %q is inactive", product.Name))
	case !product.SaleOK:
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("product %q is not marked sellable", product.Name))
	case !product.AvailableInPOS:
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("product %q is not available in POS", product.Name))
	case product.CompanyID != companyID:
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("product %q belongs to a different company", product.Name))
	}
	return nil
}

// TaxFor loads the product's tax when one is configured and company-scoped.
func (r *resolver) TaxFor(ctx context.Context, companyID uuid.UUID, product *models.Product) (*models.Tax, error) {
	if product == nil || product.TaxID == nil {
		return nil, nil
	}
	tax, err := r.repo.FindTax(ctx, *product.TaxID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: tax lookup")
	}
	if tax.CompanyID != companyID {
		return nil, nil
	}
	return tax, nil
}
