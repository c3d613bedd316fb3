package sessions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/db/models"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/enums"
)

// Repository defines persistence operations for sessions and their configs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindConfig(ctx context.Context, id uuid.UUID) (*models.SessionConfig, error)
	FindDefaultConfig(ctx context.Context) (*models.SessionConfig, error)
	FindOpenByConfig(ctx context.Context, configID uuid.UUID) (*models.Session, error)
	FindClosingByConfig(ctx context.Context, configID uuid.UUID) (*models.Session, error)
	Create(ctx context.Context, session *models.Session) (*models.Session, error)
	UpdateState(ctx context.Context, id uuid.UUID, state enums.SessionState, closedAt *time.Time) error
	CountOrdersInState(ctx context.Context, sessionID uuid.UUID, state enums.OrderState) (int64, error)
	MarkPaidOrdersDone(ctx context.Context, sessionID uuid.UUID) (int64, error)
	LastOrderDate(ctx context.Context, sessionID uuid.UUID) (*time.Time, error)
	ListOpenSessions(ctx context.Context) ([]models.Session, error)
}

// AccountingPoster is the boundary to the accounting collaborator. Session
// close posts the session's accounting entries; the forced-close fallback
// only discards an empty unposted batch.
type AccountingPoster interface {
	PostSessionClose(ctx context.Context, tx *gorm.DB, session *models.Session) error
	DiscardEmptyBatch(ctx context.Context, tx *gorm.DB, session *models.Session) error
}
