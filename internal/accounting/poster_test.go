package accounting

import (
	"context"
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
	pkgerrors "github.com/GARAGE-POS/odoo-plugin-sub000/pkg/errors"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/logger"
)

func setupAccountingTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)

	schemas := []string{`
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  external_id TEXT NOT NULL,
  external_source TEXT NOT NULL,
  session_id TEXT NOT NULL,
  state TEXT NOT NULL DEFAULT 'draft',
  amount_total NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS payments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  method_id TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  card_type TEXT,
  reference TEXT,
  paid_at DATETIME,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS payment_methods (
  id TEXT PRIMARY KEY,
  config_id TEXT NOT NULL,
  name TEXT NOT NULL,
  journal_name TEXT,
  is_cash INTEGER NOT NULL DEFAULT 0,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS accounting_entries (
  id TEXT PRIMARY KEY,
  session_id TEXT NOT NULL,
  journal TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  posted INTEGER NOT NULL DEFAULT 0,
  posted_at DATETIME,
  created_at DATETIME
);`}

	for _, schema := range schemas {
		require.NoError(t, db.Exec(schema).Error)
	}
	return db
}

func newTestPoster(t *testing.T, db *gorm.DB) *Poster {
	t.Helper()
	poster, err := NewPoster(NewRepository(db), logger.New(logger.Options{ServiceName: "test"}))
	require.NoError(t, err)
	return poster
}

func seedMethod(t *testing.T, db *gorm.DB, name string, journal *string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, db.Exec(
		`INSERT INTO payment_methods (id, config_id, name, journal_name, is_cash) VALUES (?, ?, ?, ?, 1)`,
		id, uuid.New(), name, journal).Error)
	return id
}

func seedPaidOrder(t *testing.T, db *gorm.DB, sessionID, methodID uuid.UUID, amount string) {
	t.Helper()
	orderID := uuid.New()
	require.NoError(t, db.Exec(
		`INSERT INTO orders (id, name, external_id, external_source, session_id, state, amount_total) VALUES (?, ?, ?, 'karage', ?, 'done', ?)`,
		orderID, "Shop/"+orderID.String()[:8], orderID.String()[:8], sessionID, amount).Error)
	require.NoError(t, db.Exec(
		`INSERT INTO payments (id, order_id, method_id, amount, paid_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New(), orderID, methodID, amount, time.Now().UTC()).Error)
}

func TestPostSessionCloseGroupsByJournal(t *testing.T) {
	db := setupAccountingTestDB(t)
	poster := newTestPoster(t, db)

	sessionID := uuid.New()
	cashJournal := "Cash"
	cash := seedMethod(t, db, "Cash", &cashJournal)
	card := seedMethod(t, db, "Card", nil)

	seedPaidOrder(t, db, sessionID, cash, "100")
	seedPaidOrder(t, db, sessionID, cash, "50")
	seedPaidOrder(t, db, sessionID, card, "75")

	session := &models.Session{ID: sessionID, Name: "Shop Floor/001"}
	require.NoError(t, poster.PostSessionClose(context.Background(), nil, session))

	var entries []models.AccountingEntry
	require.NoError(t, db.Order("journal ASC").Find(&entries).Error)
	require.Len(t, entries, 2)

	assert.Equal(t, "Card", entries[0].Journal)
	assert.True(t, entries[0].Amount.Equal(decimal.RequireFromString("75")))
	assert.Equal(t, "Cash", entries[1].Journal)
	assert.True(t, entries[1].Amount.Equal(decimal.RequireFromString("150")))
	for _, entry := range entries {
		assert.True(t, entry.Posted)
		assert.NotNil(t, entry.PostedAt)
		assert.Equal(t, sessionID, entry.SessionID)
	}
}

func TestPostSessionCloseWithoutPaymentsWritesNothing(t *testing.T) {
	db := setupAccountingTestDB(t)
	poster := newTestPoster(t, db)

	session := &models.Session{ID: uuid.New(), Name: "Shop Floor/002"}
	require.NoError(t, poster.PostSessionClose(context.Background(), nil, session))

	var count int64
	require.NoError(t, db.Model(&models.AccountingEntry{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDiscardEmptyBatchRemovesZeroEntries(t *testing.T) {
	db := setupAccountingTestDB(t)
	poster := newTestPoster(t, db)

	sessionID := uuid.New()
	require.NoError(t, db.Exec(
		`INSERT INTO accounting_entries (id, session_id, journal, amount, posted) VALUES (?, ?, 'Cash', 0, 0)`,
		uuid.New(), sessionID).Error)

	session := &models.Session{ID: sessionID, Name: "Shop Floor/003"}
	require.NoError(t, poster.DiscardEmptyBatch(context.Background(), nil, session))

	var count int64
	require.NoError(t, db.Model(&models.AccountingEntry{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDiscardEmptyBatchRefusesNonZeroAmounts(t *testing.T) {
	db := setupAccountingTestDB(t)
	poster := newTestPoster(t, db)

	sessionID := uuid.New()
	require.NoError(t, db.Exec(
		`INSERT INTO accounting_entries (id, session_id, journal, amount, posted) VALUES (?, ?, 'Cash', 42, 0)`,
		uuid.New(), sessionID).Error)

	session := &models.Session{ID: sessionID, Name: "Shop Floor/004"}
	err := poster.DiscardEmptyBatch(context.Background(), nil, session)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	var count int64
	require.NoError(t, db.Model(&models.AccountingEntry{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDiscardEmptyBatchKeepsPostedEntries(t *testing.T) {
	db := setupAccountingTestDB(t)
	poster := newTestPoster(t, db)

	sessionID := uuid.New()
	require.NoError(t, db.Exec(
		`INSERT INTO accounting_entries (id, session_id, journal, amount, posted, posted_at) VALUES (?, ?, 'Cash', 100, 1, ?)`,
		uuid.New(), sessionID, time.Now().UTC()).Error)

	session := &models.Session{ID: sessionID, Name: "Shop Floor/005"}
	require.NoError(t, poster.DiscardEmptyBatch(context.Background(), nil, session))

	var count int64
	require.NoError(t, db.Model(&models.AccountingEntry{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
