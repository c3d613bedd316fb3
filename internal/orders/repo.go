package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/db/models"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create persists the order graph in one pass; gorm cascades the Lines and
// Payments associations.
func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	for i := range order.Lines {
		if order.Lines[i].ID == uuid.Nil {
			order.Lines[i].ID = uuid.New()
		}
	}
	for i := range order.Payments {
		if order.Payments[i].ID == uuid.Nil {
			order.Payments[i].ID = uuid.New()
		}
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Preload("Payments").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByExternal(ctx context.Context, externalID, source string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("external_id = ? AND external_source = ?", externalID, source).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) UpdateState(ctx context.Context, id uuid.UUID, state enums.OrderState) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("state", state).Error
}

type partnerLookup struct {
	db *gorm.DB
}

// NewPartnerLookup builds the partner lookup used during assembly.
func NewPartnerLookup(db *gorm.DB) PartnerLookup {
	return &partnerLookup{db: db}
}

func (r *partnerLookup) WithTx(tx *gorm.DB) PartnerLookup {
	if tx == nil {
		return r
	}
	return &partnerLookup{db: tx}
}

func (r *partnerLookup) FindPartnerByID(ctx context.Context, id uuid.UUID) (*models.Partner, error) {
	var partner models.Partner
	err := r.db.WithContext(ctx).
		Where("id = ? AND active = ?", id, true).
		First(&partner).Error
	if err != nil {
		return nil, err
	}
	return &partner, nil
}

func (r *partnerLookup) FindPartnerByCustomerCode(ctx context.Context, code string) (*models.Partner, error) {
	var partner models.Partner
	err := r.db.WithContext(ctx).
		Where("customer_code = ? AND active = ?", code, true).
		First(&partner).Error
	if err != nil {
		return nil, err
	}
	return &partner, nil
}
