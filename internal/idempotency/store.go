package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/db"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/db/models"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/enums"
)

// Store defines the durable webhook-delivery ledger that backs at-most-once
// processing.
type Store interface {
	WithTx(tx *gorm.DB) Store
	GetOrCreate(ctx context.Context, key string, externalOrderID, payload string) (*models.WebhookLog, bool, error)
	CreateUnkeyed(ctx context.Context, externalOrderID, payload string) (*models.WebhookLog, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkCompleted(ctx context.Context, id uuid.UUID, orderID uuid.UUID, responseBody string) error
	MarkFailed(ctx context.Context, id uuid.UUID, errText string) error
	FindByKey(ctx context.Context, key string) (*models.WebhookLog, error)
	CleanupStale(ctx context.Context, timeout time.Duration) (int64, error)
	Purge(ctx context.Context, retention time.Duration) (int64, error)
}

type store struct {
	db *gorm.DB
}

// NewStore builds an idempotency store bound to the provided DB.
func NewStore(conn *gorm.DB) Store {
	return &store{db: conn}
}

func (s *store) WithTx(tx *gorm.DB) Store {
	if tx == nil {
		return s
	}
	return &store{db: tx}
}

// GetOrCreate acquires an exclusive lock on the row for key when one exists,
// otherwise inserts a fresh pending record. A concurrent insert losing the
// unique-constraint race falls back to locating the winner's row, so two
// deliveries with the same key can never both observe "created".
func (s *store) GetOrCreate(ctx context.Context, key string, externalOrderID, payload string) (*models.WebhookLog, bool, error) {
	if key == "" {
		return nil, false, fmt.Errorf("idempotency key required")
	}

	existing, err := s.lockByKey(ctx, key)
	if err == nil {
		return existing, false, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, false, err
	}

	record := &models.WebhookLog{
		ID:              uuid.New(),
		IdempotencyKey:  &key,
		ExternalOrderID: externalOrderID,
		Payload:         payload,
		Status:          enums.WebhookStatusPending,
		ReceivedAt:      time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		if db.IsUniqueViolation(err, "webhook_logs_idempotency_key_uidx") {
			winner, findErr := s.lockByKey(ctx, key)
			if findErr != nil {
				return nil, false, findErr
			}
			return winner, false, nil
		}
		return nil, false, err
	}
	return record, true, nil
}

// CreateUnkeyed records a delivery that carried no idempotency key. The row
// still serves as the audit log; only the dedupe guarantee is absent.
func (s *store) CreateUnkeyed(ctx context.Context, externalOrderID, payload string) (*models.WebhookLog, error) {
	record := &models.WebhookLog{
		ID:              uuid.New(),
		ExternalOrderID: externalOrderID,
		Payload:         payload,
		Status:          enums.WebhookStatusPending,
		ReceivedAt:      time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (s *store) lockByKey(ctx context.Context, key string) (*models.WebhookLog, error) {
	query := s.db.WithContext(ctx)
	// sqlite has no row locks; the unique index still closes the race there.
	if query.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var record models.WebhookLog
	if err := query.Where("idempotency_key = ?", key).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *store) FindByKey(ctx context.Context, key string) (*models.WebhookLog, error) {
	var record models.WebhookLog
	err := s.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *store) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).
		Model(&models.WebhookLog{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":   enums.WebhookStatusProcessing,
			"attempts": gorm.Expr("attempts + 1"),
		}).Error
}

func (s *store) MarkCompleted(ctx context.Context, id uuid.UUID, orderID uuid.UUID, responseBody string) error {
	now := time.Now().UTC()
	updates := map[string]any{
		"status":        enums.WebhookStatusCompleted,
		"success":       true,
		"response_body": responseBody,
		"error_text":    nil,
		"processed_at":  now,
	}
	if orderID != uuid.Nil {
		updates["order_id"] = orderID
	}
	return s.db.WithContext(ctx).
		Model(&models.WebhookLog{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (s *store) MarkFailed(ctx context.Context, id uuid.UUID, errText string) error {
	now := time.Now().UTC()
	return s.db.WithContext(ctx).
		Model(&models.WebhookLog{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       enums.WebhookStatusFailed,
			"success":      false,
			"error_text":   errText,
			"processed_at": now,
		}).Error
}

// CleanupStale forces any record stuck in processing longer than timeout to
// failed so its key becomes retryable again.
func (s *store) CleanupStale(ctx context.Context, timeout time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-timeout)
	result := s.db.WithContext(ctx).
		Model(&models.WebhookLog{}).
		Where("status = ? AND received_at < ?", enums.WebhookStatusProcessing, cutoff).
		Updates(map[string]any{
			"status":     enums.WebhookStatusFailed,
			"success":    false,
			"error_text": fmt.Sprintf("processing exceeded %s, reclaimed by sweep", timeout),
		})
	return result.RowsAffected, result.Error
}

// Purge deletes terminal records older than the retention window. Processing
// records are never purged.
func (s *store) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	result := s.db.WithContext(ctx).
		Where("status IN ? AND received_at < ?", []enums.WebhookStatus{
			enums.WebhookStatusCompleted,
			enums.WebhookStatusFailed,
		}, cutoff).
		Delete(&models.WebhookLog{})
	return result.RowsAffected, result.Error
}
