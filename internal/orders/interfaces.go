package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/db/models"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/enums"
)

// Repository defines persistence operations for order aggregates.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByExternal(ctx context.Context, externalID, source string) (*models.Order, error)
	UpdateState(ctx context.Context, id uuid.UUID, state enums.OrderState) error
}

// PartnerLookup resolves customer references carried by incoming orders.
type PartnerLookup interface {
	WithTx(tx *gorm.DB) PartnerLookup
	FindPartnerByID(ctx context.Context, id uuid.UUID) (*models.Partner, error)
	FindPartnerByCustomerCode(ctx context.Context, code string) (*models.Partner, error)
}

// InventoryPoster posts stock movements for finalized orders. Consumed as a
// collaborator; the bridge itself does not own inventory valuation.
type InventoryPoster interface {
	PostMovement(ctx context.Context, tx *gorm.DB, order *models.Order, config *models.SessionConfig) error
}

// CostComputer recomputes line costs after an order is paid.
type CostComputer interface {
	ComputeCosts(ctx context.Context, tx *gorm.DB, order *models.Order) error
}

// InvoiceGenerator issues an invoice for a finalized order with a partner.
type InvoiceGenerator interface {
	GenerateInvoice(ctx context.Context, tx *gorm.DB, order *models.Order) error
}
