package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/logger"
)

const defaultIdleTimeout = time.Hour

type idleSessionCloser interface {
	CloseIdleSessions(ctx context.Context, idleTimeout time.Duration) (int, error)
}

// IdleSessionJobParams configure the idle session sweep.
type IdleSessionJobParams struct {
	Logger      *logger.Logger
	Sessions    idleSessionCloser
	IdleTimeout time.Duration
}

// NewIdleSessionJob closes sessions whose most recent order predates the
// idle threshold. Sessions still holding draft orders are skipped.
func NewIdleSessionJob(params IdleSessionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session manager required")
	}
	idleTimeout := params.IdleTimeout
	if idleTimeout <= 0 {
		idleTimeout = defaultIdleTimeout
	}
	return &idleSessionJob{
		logg:        params.Logger,
		sessions:    params.Sessions,
		idleTimeout: idleTimeout,
	}, nil
}

type idleSessionJob struct {
	logg        *logger.Logger
	sessions    idleSessionCloser
	idleTimeout time.Duration
}

func (j *idleSessionJob) Name() string { return "idle-session-close" }

func (j *idleSessionJob) Run(ctx context.Context) error {
	closed, err := j.sessions.CloseIdleSessions(ctx, j.idleTimeout)
	if err != nil {
		return fmt.Errorf("idle session close: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"idle_timeout":    j.idleTimeout.String(),
		"sessions_closed": closed,
	})
	j.logg.Info(logCtx, "idle session close complete")
	return nil
}
