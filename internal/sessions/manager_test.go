package sessions

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/db/models"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/enums"
	pkgerrors "github.com/GARAGE-POS/odoo-plugin-sub000/pkg/errors"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/logger"
)

func setupSessionsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)

	configs := `
CREATE TABLE IF NOT EXISTS session_configs (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  company_id TEXT NOT NULL,
  currency TEXT NOT NULL DEFAULT 'SAR',
  rounding NUMERIC NOT NULL DEFAULT 0.01,
  fallback_method_id TEXT,
  default_partner_id TEXT,
  movement_type TEXT,
  source_location_id TEXT,
  integration_user_id TEXT NOT NULL,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	sessions := `
CREATE TABLE IF NOT EXISTS sessions (
  id TEXT PRIMARY KEY,
  config_id TEXT NOT NULL,
  name TEXT NOT NULL,
  state TEXT NOT NULL DEFAULT 'opening_control',
  user_id TEXT NOT NULL,
  opened_at DATETIME NOT NULL,
  closed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  external_id TEXT NOT NULL,
  external_source TEXT NOT NULL,
  session_id TEXT NOT NULL,
  partner_id TEXT,
  state TEXT NOT NULL DEFAULT 'draft',
  amount_total NUMERIC NOT NULL DEFAULT 0,
  amount_tax NUMERIC NOT NULL DEFAULT 0,
  amount_paid NUMERIC NOT NULL DEFAULT 0,
  amount_return NUMERIC NOT NULL DEFAULT 0,
  to_invoice INTEGER NOT NULL DEFAULT 0,
  external INTEGER NOT NULL DEFAULT 0,
  note TEXT,
  date_order DATETIME NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(configs).Error)
	require.NoError(t, db.Exec(sessions).Error)
	require.NoError(t, db.Exec(orders).Error)
	return db
}

type stubAccounting struct {
	postErr      error
	postCalls    int
	discardCalls int
	discardErr   error
}

func (s *stubAccounting) PostSessionClose(ctx context.Context, tx *gorm.DB, session *models.Session) error {
	s.postCalls++
	return s.postErr
}

func (s *stubAccounting) DiscardEmptyBatch(ctx context.Context, tx *gorm.DB, session *models.Session) error {
	s.discardCalls++
	return s.discardErr
}

func seedConfig(t *testing.T, db *gorm.DB) *models.SessionConfig {
	t.Helper()
	config := &models.SessionConfig{
		ID:                uuid.New(),
		Name:              "Shop Floor",
		CompanyID:         uuid.New(),
		Currency:          "SAR",
		Rounding:          decimal.NewFromFloat(0.01),
		IntegrationUserID: uuid.New(),
		Active:            true,
	}
	require.NoError(t, db.Create(config).Error)
	return config
}

func seedSession(t *testing.T, db *gorm.DB, config *models.SessionConfig, state enums.SessionState, openedAt time.Time) *models.Session {
	t.Helper()
	session := &models.Session{
		ID:       uuid.New(),
		ConfigID: config.ID,
		Name:     "Shop Floor/TEST",
		State:    state,
		UserID:   config.IntegrationUserID,
		OpenedAt: openedAt,
	}
	require.NoError(t, db.Create(session).Error)
	return session
}

func seedOrder(t *testing.T, db *gorm.DB, sessionID uuid.UUID, state enums.OrderState, dateOrder time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:             uuid.New(),
		Name:           "Order/" + uuid.NewString()[:8],
		ExternalID:     uuid.NewString(),
		ExternalSource: "karage",
		SessionID:      sessionID,
		State:          state,
		AmountTotal:    decimal.NewFromInt(100),
		AmountTax:      decimal.Zero,
		AmountPaid:     decimal.NewFromInt(100),
		AmountReturn:   decimal.Zero,
		DateOrder:      dateOrder,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func newTestManager(t *testing.T, db *gorm.DB, accounting AccountingPoster) Manager {
	t.Helper()
	if accounting == nil {
		accounting = &stubAccounting{}
	}
	logg := logger.New(logger.Options{ServiceName: "test"})
	mgr, err := NewManager(NewRepository(db), accounting, logg)
	require.NoError(t, err)
	return mgr
}

func TestAcquireReusesOpenSession(t *testing.T) {
	db := setupSessionsTestDB(t)
	config := seedConfig(t, db)
	existing := seedSession(t, db, config, enums.SessionStateOpened, time.Now().UTC())
	mgr := newTestManager(t, db, nil)

	got, err := mgr.AcquireForConfig(context.Background(), nil, config)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, got.ID)
}

func TestAcquireCreatesSessionWhenNoneOpen(t *testing.T) {
	db := setupSessionsTestDB(t)
	config := seedConfig(t, db)
	mgr := newTestManager(t, db, nil)

	got, err := mgr.AcquireForConfig(context.Background(), nil, config)
	require.NoError(t, err)
	assert.Equal(t, enums.SessionStateOpened, got.State)
	assert.Equal(t, config.IntegrationUserID, got.UserID)
	assert.Contains(t, got.Name, "Shop Floor/")
}

func TestAcquireCompletesWedgedClosingSession(t *testing.T) {
	db := setupSessionsTestDB(t)
	config := seedConfig(t, db)
	wedged := seedSession(t, db, config, enums.SessionStateClosingControl, time.Now().UTC().Add(-time.Hour))
	accounting := &stubAccounting{}
	mgr := newTestManager(t, db, accounting)

	got, err := mgr.AcquireForConfig(context.Background(), nil, config)
	require.NoError(t, err)
	assert.NotEqual(t, wedged.ID, got.ID)
	assert.Equal(t, 1, accounting.postCalls)

	var reloaded models.Session
	require.NoError(t, db.First(&reloaded, "id = ?", wedged.ID).Error)
	assert.Equal(t, enums.SessionStateClosed, reloaded.State)
	assert.NotNil(t, reloaded.ClosedAt)
}

func TestAcquireForceClosesWhenStandardCloseFails(t *testing.T) {
	db := setupSessionsTestDB(t)
	config := seedConfig(t, db)
	wedged := seedSession(t, db, config, enums.SessionStateClosingControl, time.Now().UTC().Add(-time.Hour))
	seedOrder(t, db, wedged.ID, enums.OrderStatePaid, time.Now().UTC().Add(-time.Hour))
	accounting := &stubAccounting{postErr: errors.New("posting blocked")}
	mgr := newTestManager(t, db, accounting)

	_, err := mgr.AcquireForConfig(context.Background(), nil, config)
	require.NoError(t, err)
	assert.Equal(t, 1, accounting.discardCalls)

	var reloaded models.Session
	require.NoError(t, db.First(&reloaded, "id = ?", wedged.ID).Error)
	assert.Equal(t, enums.SessionStateClosed, reloaded.State)

	// paid orders were swept to done before the forced close
	var count int64
	require.NoError(t, db.Model(&models.Order{}).
		Where("session_id = ? AND state = ?", wedged.ID, enums.OrderStateDone).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCloseSessionBlockedByDraftOrders(t *testing.T) {
	db := setupSessionsTestDB(t)
	config := seedConfig(t, db)
	session := seedSession(t, db, config, enums.SessionStateOpened, time.Now().UTC())
	seedOrder(t, db, session.ID, enums.OrderStateDraft, time.Now().UTC())
	mgr := newTestManager(t, db, nil)

	err := mgr.CloseSession(context.Background(), nil, session)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestCloseSessionStandardPath(t *testing.T) {
	db := setupSessionsTestDB(t)
	config := seedConfig(t, db)
	session := seedSession(t, db, config, enums.SessionStateOpened, time.Now().UTC())
	seedOrder(t, db, session.ID, enums.OrderStatePaid, time.Now().UTC())
	accounting := &stubAccounting{}
	mgr := newTestManager(t, db, accounting)

	require.NoError(t, mgr.CloseSession(context.Background(), nil, session))
	assert.Equal(t, enums.SessionStateClosed, session.State)
	assert.Equal(t, 1, accounting.postCalls)
	assert.Equal(t, 0, accounting.discardCalls)
}

func TestCloseIdleSessions(t *testing.T) {
	db := setupSessionsTestDB(t)
	config := seedConfig(t, db)

	idle := seedSession(t, db, config, enums.SessionStateOpened, time.Now().UTC().Add(-3*time.Hour))
	seedOrder(t, db, idle.ID, enums.OrderStateDone, time.Now().UTC().Add(-2*time.Hour))

	activeConfig := seedConfig(t, db)
	active := seedSession(t, db, activeConfig, enums.SessionStateOpened, time.Now().UTC().Add(-3*time.Hour))
	seedOrder(t, db, active.ID, enums.OrderStateDone, time.Now().UTC().Add(-5*time.Minute))

	blockedConfig := seedConfig(t, db)
	blocked := seedSession(t, db, blockedConfig, enums.SessionStateOpened, time.Now().UTC().Add(-3*time.Hour))
	seedOrder(t, db, blocked.ID, enums.OrderStateDraft, time.Now().UTC().Add(-2*time.Hour))

	mgr := newTestManager(t, db, nil)
	closed, err := mgr.CloseIdleSessions(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	var reloaded models.Session
	require.NoError(t, db.First(&reloaded, "id = ?", idle.ID).Error)
	assert.Equal(t, enums.SessionStateClosed, reloaded.State)

	reloaded = models.Session{}
	require.NoError(t, db.First(&reloaded, "id = ?", active.ID).Error)
	assert.Equal(t, enums.SessionStateOpened, reloaded.State)

	reloaded = models.Session{}
	require.NoError(t, db.First(&reloaded, "id = ?", blocked.ID).Error)
	assert.Equal(t, enums.SessionStateOpened, reloaded.State)
}

func TestCloseIdleSessionUsesOpenedAtWhenNoOrders(t *testing.T) {
	db := setupSessionsTestDB(t)
	config := seedConfig(t, db)
	empty := seedSession(t, db, config, enums.SessionStateOpened, time.Now().UTC().Add(-2*time.Hour))

	mgr := newTestManager(t, db, nil)
	closed, err := mgr.CloseIdleSessions(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	var reloaded models.Session
	require.NoError(t, db.First(&reloaded, "id = ?", empty.ID).Error)
	assert.Equal(t, enums.SessionStateClosed, reloaded.State)
}
