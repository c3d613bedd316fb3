package accounting

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/db/models"
)

// JournalTotal is the settled amount of one journal over a session.
type JournalTotal struct {
	Journal string          `gorm:"column:journal"`
	Total   decimal.Decimal `gorm:"column:total"`
}

// Repository manages persistence for session accounting entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateEntries(ctx context.Context, entries []models.AccountingEntry) error
	PaymentTotalsBySession(ctx context.Context, sessionID uuid.UUID) ([]JournalTotal, error)
	ListUnposted(ctx context.Context, sessionID uuid.UUID) ([]models.AccountingEntry, error)
	DeleteUnposted(ctx context.Context, sessionID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an accounting repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateEntries(ctx context.Context, entries []models.AccountingEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for i := range entries {
		if entries[i].ID == uuid.Nil {
			entries[i].ID = uuid.New()
		}
	}
	return r.db.WithContext(ctx).Create(&entries).Error
}

// PaymentTotalsBySession sums the session's payments per journal. Methods
// without a journal name fall back to the method name.
func (r *repository) PaymentTotalsBySession(ctx context.Context, sessionID uuid.UUID) ([]JournalTotal, error) {
	var totals []JournalTotal
	err := r.db.WithContext(ctx).
		Raw(`SELECT COALESCE(pm.journal_name, pm.name) AS journal, SUM(p.amount) AS total
			FROM payments p
			JOIN orders o ON o.id = p.order_id
			JOIN payment_methods pm ON pm.id = p.method_id
			WHERE o.session_id = ?
			GROUP BY COALESCE(pm.journal_name, pm.name)
			ORDER BY journal`, sessionID).
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	return totals, nil
}

func (r *repository) ListUnposted(ctx context.Context, sessionID uuid.UUID) ([]models.AccountingEntry, error) {
	var entries []models.AccountingEntry
	if err := r.db.WithContext(ctx).
		Where("session_id = ? AND posted = ?", sessionID, false).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) DeleteUnposted(ctx context.Context, sessionID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("session_id = ? AND posted = ?", sessionID, false).
		Delete(&models.AccountingEntry{}).Error
}
