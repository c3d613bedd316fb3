package sessions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/db/models"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a sessions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindConfig(ctx context.Context, id uuid.UUID) (*models.SessionConfig, error) {
	var config models.SessionConfig
	if err := r.db.WithContext(ctx).First(&config, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &config, nil
}

func (r *repository) FindDefaultConfig(ctx context.Context) (*models.SessionConfig, error) {
	var config models.SessionConfig
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("created_at ASC").
		First(&config).Error
	if err != nil {
		return nil, err
	}
	return &config, nil
}

func (r *repository) FindOpenByConfig(ctx context.Context, configID uuid.UUID) (*models.Session, error) {
	var session models.Session
	err := r.db.WithContext(ctx).
		Where("config_id = ? AND state IN ?", configID, []enums.SessionState{
			enums.SessionStateOpened,
			enums.SessionStateOpeningControl,
		}).
		Order("opened_at DESC").
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repository) FindClosingByConfig(ctx context.Context, configID uuid.UUID) (*models.Session, error) {
	var session models.Session
	err := r.db.WithContext(ctx).
		Where("config_id = ? AND state = ?", configID, enums.SessionStateClosingControl).
		Order("opened_at DESC").
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repository) Create(ctx context.Context, session *models.Session) (*models.Session, error) {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

func (r *repository) UpdateState(ctx context.Context, id uuid.UUID, state enums.SessionState, closedAt *time.Time) error {
	updates := map[string]any{"state": state}
	if closedAt != nil {
		updates["closed_at"] = *closedAt
	}
	return r.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) CountOrdersInState(ctx context.Context, sessionID uuid.UUID, state enums.OrderState) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("session_id = ? AND state = ?", sessionID, state).
		Count(&count).Error
	return count, err
}

func (r *repository) MarkPaidOrdersDone(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("session_id = ? AND state = ?", sessionID, enums.OrderStatePaid).
		Update("state", enums.OrderStateDone)
	return result.RowsAffected, result.Error
}

func (r *repository) LastOrderDate(ctx context.Context, sessionID uuid.UUID) (*time.Time, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("date_order DESC").
		First(&order).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &order.DateOrder, nil
}

func (r *repository) ListOpenSessions(ctx context.Context) ([]models.Session, error) {
	var sessions []models.Session
	err := r.db.WithContext(ctx).
		Where("state IN ?", []enums.SessionState{
			enums.SessionStateOpened,
			enums.SessionStateOpeningControl,
		}).
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}
