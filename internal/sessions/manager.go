package sessions

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/db/models"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/enums"
	pkgerrors "github.com/GARAGE-POS/odoo-plugin-sub000/pkg/errors"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/logger"
)

// Manager is the only component allowed to transition session state.
type Manager interface {
	AcquireForConfig(ctx context.Context, tx *gorm.DB, config *models.SessionConfig) (*models.Session, error)
	CloseSession(ctx context.Context, tx *gorm.DB, session *models.Session) error
	CloseIdleSessions(ctx context.Context, idleTimeout time.Duration) (int, error)
}

type manager struct {
	repo       Repository
	accounting AccountingPoster
	logg       *logger.Logger
}

// NewManager builds the session lifecycle manager.
func NewManager(repo Repository, accounting AccountingPoster, logg *logger.Logger) (Manager, error) {
	if repo == nil {
		return nil, fmt.Errorf("sessions repository required")
	}
	if accounting == nil {
		return nil, fmt.Errorf("accounting poster required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &manager{repo: repo, accounting: accounting, logg: logg}, nil
}

// AcquireForConfig returns the session automated ingestion should attach
// orders to: an existing open-family session if one exists, otherwise a new
// session opened under the configuration's integration user. A session
// wedged in closing_control is closed (forced if necessary) before a new one
// is opened.
func (m *manager) AcquireForConfig(ctx context.Context, tx *gorm.DB, config *models.SessionConfig) (*models.Session, error) {
	if config == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session configuration required")
	}
	repo := m.repo.WithTx(tx)

	session, err := repo.FindOpenByConfig(ctx, config.ID)
	if err == nil {
		return session, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find open session")
	}

	wedged, err := repo.FindClosingByConfig(ctx, config.ID)
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find closing session")
	}
	if wedged != nil {
		if closeErr := m.completeClose(ctx, tx, wedged); closeErr != nil {
			if forceErr := m.forceClose(ctx, tx, wedged, closeErr); forceErr != nil {
				return nil, forceErr
			}
		}
	}

	now := time.Now().UTC()
	created, err := repo.Create(ctx, &models.Session{
		ConfigID: config.ID,
		Name:     fmt.Sprintf("%s/%s", config.Name, now.Format("20060102-150405")),
		State:    enums.SessionStateOpened,
		UserID:   config.IntegrationUserID,
		OpenedAt: now,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create session")
	}

	lctx := m.logg.WithSessionID(ctx, created.ID.String())
	m.logg.Info(lctx, "opened new ingestion session")
	return created, nil
}

// CloseSession runs the standard close path and escalates to the forced
// close when it fails. Draft orders always block closing.
func (m *manager) CloseSession(ctx context.Context, tx *gorm.DB, session *models.Session) error {
	if session == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "session required")
	}
	if session.State == enums.SessionStateClosed {
		return nil
	}

	repo := m.repo.WithTx(tx)
	drafts, err := repo.CountOrdersInState(ctx, session.ID, enums.OrderStateDraft)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count draft orders")
	}
	if drafts > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("session %s holds %d draft orders and cannot be closed", session.Name, drafts))
	}

	if err := m.completeClose(ctx, tx, session); err != nil {
		return m.forceClose(ctx, tx, session, err)
	}
	return nil
}

// completeClose is the standard path: closing_control, accounting posting,
// then closed.
func (m *manager) completeClose(ctx context.Context, tx *gorm.DB, session *models.Session) error {
	repo := m.repo.WithTx(tx)

	if session.State != enums.SessionStateClosingControl {
		if err := repo.UpdateState(ctx, session.ID, enums.SessionStateClosingControl, nil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: session to closing_control")
		}
		session.State = enums.SessionStateClosingControl
	}

	if err := m.accounting.PostSessionClose(ctx, tx, session); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accounting: post session close")
	}

	now := time.Now().UTC()
	if err := repo.UpdateState(ctx, session.ID, enums.SessionStateClosed, &now); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: session to closed")
	}
	session.State = enums.SessionStateClosed
	session.ClosedAt = &now
	return nil
}

// forceClose is the lossy fallback used when the standard close path fails:
// paid orders become done, an empty unposted accounting batch is discarded,
// and the session is set to closed directly. Every forced close logs the
// close error that triggered it.
func (m *manager) forceClose(ctx context.Context, tx *gorm.DB, session *models.Session, cause error) error {
	repo := m.repo.WithTx(tx)

	moved, err := repo.MarkPaidOrdersDone(ctx, session.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: mark paid orders done")
	}

	if err := m.accounting.DiscardEmptyBatch(ctx, tx, session); err != nil {
		lctx := m.logg.WithSessionID(ctx, session.ID.String())
		m.logg.Warn(lctx, "could not discard empty accounting batch during forced close")
	}

	now := time.Now().UTC()
	if err := repo.UpdateState(ctx, session.ID, enums.SessionStateClosed, &now); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: force session to closed")
	}
	session.State = enums.SessionStateClosed
	session.ClosedAt = &now

	lctx := m.logg.WithFields(ctx, map[string]any{
		"session_id":    session.ID,
		"session_name":  session.Name,
		"orders_moved":  moved,
		"close_failure": cause.Error(),
	})
	m.logg.Warn(lctx, "session force-closed after standard close failed")
	return nil
}

// CloseIdleSessions closes every open session whose most recent order (or
// start, if it has none) predates the idle threshold. Sessions still holding
// draft orders are skipped and the skip is logged.
func (m *manager) CloseIdleSessions(ctx context.Context, idleTimeout time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-idleTimeout)

	open, err := m.repo.ListOpenSessions(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list open sessions")
	}

	closed := 0
	var errs []error
	for i := range open {
		session := open[i]
		lctx := m.logg.WithSessionID(ctx, session.ID.String())

		lastActivity := session.OpenedAt
		if last, err := m.repo.LastOrderDate(ctx, session.ID); err != nil {
			m.logg.Error(lctx, "could not determine session activity", err)
			errs = append(errs, err)
			continue
		} else if last != nil {
			lastActivity = *last
		}
		if lastActivity.After(cutoff) {
			continue
		}

		drafts, err := m.repo.CountOrdersInState(ctx, session.ID, enums.OrderStateDraft)
		if err != nil {
			m.logg.Error(lctx, "could not count draft orders", err)
			errs = append(errs, err)
			continue
		}
		if drafts > 0 {
			m.logg.Warn(m.logg.WithField(lctx, "draft_orders", drafts),
				"skipping idle close, session holds draft orders")
			continue
		}

		if err := m.CloseSession(ctx, nil, &session); err != nil {
			m.logg.Error(lctx, "idle session close failed", err)
			errs = append(errs, err)
			continue
		}
		closed++
	}
	return closed, multierr.Combine(errs...)
}
