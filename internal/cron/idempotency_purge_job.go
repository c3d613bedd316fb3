package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/logger"
)

const defaultLogRetention = 30 * 24 * time.Hour

type idempotencyPurgeStore interface {
	Purge(ctx context.Context, retention time.Duration) (int64, error)
}

// IdempotencyPurgeJobParams configure the terminal-record purge.
type IdempotencyPurgeJobParams struct {
	Logger    *logger.Logger
	Store     idempotencyPurgeStore
	Retention time.Duration
}

// NewIdempotencyPurgeJob deletes completed and failed webhook records past
// the retention window. Processing records are never purged.
func NewIdempotencyPurgeJob(params IdempotencyPurgeJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("idempotency store required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultLogRetention
	}
	return &idempotencyPurgeJob{
		logg:      params.Logger,
		store:     params.Store,
		retention: retention,
	}, nil
}

type idempotencyPurgeJob struct {
	logg      *logger.Logger
	store     idempotencyPurgeStore
	retention time.Duration
}

func (j *idempotencyPurgeJob) Name() string { return "idempotency-purge" }

func (j *idempotencyPurgeJob) Run(ctx context.Context) error {
	deleted, err := j.store.Purge(ctx, j.retention)
	if err != nil {
		return fmt.Errorf("idempotency purge: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"retention":    j.retention.String(),
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "idempotency purge complete")
	return nil
}
