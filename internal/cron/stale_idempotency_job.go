package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/logger"
)

const defaultProcessingTimeout = 10 * time.Minute

type staleIdempotencyStore interface {
	CleanupStale(ctx context.Context, timeout time.Duration) (int64, error)
}

// StaleIdempotencyJobParams configure the stuck-record sweep.
type StaleIdempotencyJobParams struct {
	Logger  *logger.Logger
	Store   staleIdempotencyStore
	Timeout time.Duration
}

// NewStaleIdempotencyJob reclaims webhook deliveries wedged in processing,
// making their keys eligible for retry.
func NewStaleIdempotencyJob(params StaleIdempotencyJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("idempotency store required")
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultProcessingTimeout
	}
	return &staleIdempotencyJob{
		logg:    params.Logger,
		store:   params.Store,
		timeout: timeout,
	}, nil
}

type staleIdempotencyJob struct {
	logg    *logger.Logger
	store   staleIdempotencyStore
	timeout time.Duration
}

func (j *staleIdempotencyJob) Name() string { return "stale-idempotency-sweep" }

func (j *staleIdempotencyJob) Run(ctx context.Context) error {
	reclaimed, err := j.store.CleanupStale(ctx, j.timeout)
	if err != nil {
		return fmt.Errorf("stale idempotency sweep: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"timeout":        j.timeout.String(),
		"rows_reclaimed": reclaimed,
	})
	j.logg.Info(logCtx, "stale idempotency sweep complete")
	return nil
}
