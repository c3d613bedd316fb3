package orders

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/db/models"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/enums"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
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
  updated_at DATETIME,
  CONSTRAINT orders_external_uidx UNIQUE (external_id, external_source)
);`, `
CREATE TABLE IF NOT EXISTS order_lines (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  qty NUMERIC NOT NULL,
  unit_price NUMERIC NOT NULL,
  discount_percent NUMERIC NOT NULL DEFAULT 0,
  price_subtotal NUMERIC NOT NULL,
  price_subtotal_incl NUMERIC NOT NULL,
  tax_id TEXT,
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
  paid_at DATETIME NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS partners (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  customer_code TEXT,
  email TEXT,
  phone TEXT,
  is_vendor INTEGER NOT NULL DEFAULT 0,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func draftOrder(sessionID uuid.UUID, externalID string) *models.Order {
	return &models.Order{
		Name:           "Shop Floor/" + externalID,
		ExternalID:     externalID,
		ExternalSource: "karage",
		SessionID:      sessionID,
		State:          enums.OrderStateDraft,
		AmountTotal:    dec("100"),
		AmountTax:      dec("0"),
		AmountPaid:     dec("100"),
		AmountReturn:   dec("0"),
		External:       true,
		DateOrder:      time.Now().UTC(),
		Lines: []models.OrderLine{
			{
				ProductID:         uuid.New(),
				Name:              "Oil Filter",
				Qty:               dec("1"),
				UnitPrice:         dec("100"),
				DiscountPercent:   dec("0"),
				PriceSubtotal:     dec("100"),
				PriceSubtotalIncl: dec("100"),
			},
		},
		Payments: []models.Payment{
			{
				MethodID: uuid.New(),
				Amount:   dec("100"),
				PaidAt:   time.Now().UTC(),
			},
		},
	}
}

func TestCreatePersistsOrderGraph(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	created, err := repo.Create(context.Background(), draftOrder(uuid.New(), "EXT-1"))
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)

	found, err := repo.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Len(t, found.Lines, 1)
	assert.Len(t, found.Payments, 1)
	assert.Equal(t, enums.OrderStateDraft, found.State)
	assert.True(t, found.AmountTotal.Equal(dec("100")))
}

func TestCreateRejectsDuplicateExternalPair(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	sessionID := uuid.New()

	_, err := repo.Create(context.Background(), draftOrder(sessionID, "EXT-2"))
	require.NoError(t, err)

	_, err = repo.Create(context.Background(), draftOrder(sessionID, "EXT-2"))
	require.Error(t, err)
}

func TestFindByExternal(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	created, err := repo.Create(context.Background(), draftOrder(uuid.New(), "EXT-3"))
	require.NoError(t, err)

	found, err := repo.FindByExternal(context.Background(), "EXT-3", "karage")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = repo.FindByExternal(context.Background(), "EXT-3", "other-source")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUpdateState(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	created, err := repo.Create(context.Background(), draftOrder(uuid.New(), "EXT-4"))
	require.NoError(t, err)

	require.NoError(t, repo.UpdateState(context.Background(), created.ID, enums.OrderStatePaid))

	found, err := repo.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatePaid, found.State)
}

func TestPartnerLookup(t *testing.T) {
	db := setupOrdersTestDB(t)
	lookup := NewPartnerLookup(db)

	code := "CUST-9"
	partner := &models.Partner{ID: uuid.New(), Name: "Walk-in", CustomerCode: &code, Active: true}
	require.NoError(t, db.Create(partner).Error)

	inactive := &models.Partner{ID: uuid.New(), Name: "Gone", Active: false}
	require.NoError(t, db.Create(inactive).Error)

	found, err := lookup.FindPartnerByID(context.Background(), partner.ID)
	require.NoError(t, err)
	assert.Equal(t, partner.ID, found.ID)

	found, err = lookup.FindPartnerByCustomerCode(context.Background(), "CUST-9")
	require.NoError(t, err)
	assert.Equal(t, partner.ID, found.ID)

	_, err = lookup.FindPartnerByID(context.Background(), inactive.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
