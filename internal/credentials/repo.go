package credentials

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a credentials repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindActiveByPrefix(ctx context.Context, prefix string) ([]models.APICredential, error) {
	var credentials []models.APICredential
	err := r.db.WithContext(ctx).
		Where("key_prefix = ? AND active = ?", prefix, true).
		Find(&credentials).Error
	if err != nil {
		return nil, err
	}
	return credentials, nil
}

func (r *repository) Create(ctx context.Context, credential *models.APICredential) (*models.APICredential, error) {
	if credential.ID == uuid.Nil {
		credential.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(credential).Error; err != nil {
		return nil, err
	}
	return credential, nil
}

func (r *repository) BumpUsage(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.APICredential{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"request_count": gorm.Expr("request_count + 1"),
			"last_used_at":  now,
		}).Error
}
