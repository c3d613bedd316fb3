package credentials

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/config"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/db/models"
	pkgerrors "github.com/GARAGE-POS/odoo-plugin-sub000/pkg/errors"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/logger"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/security"
)

func setupCredentialsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS api_credentials (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  key_prefix TEXT NOT NULL,
  key_hash TEXT NOT NULL,
  active INTEGER NOT NULL DEFAULT 1,
  request_count INTEGER NOT NULL DEFAULT 0,
  last_used_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func testArgonConfig() config.CredentialConfig {
	// minimal parameters keep the hash cheap in tests
	return config.CredentialConfig{
		ArgonMemoryKB:    8192,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func seedCredential(t *testing.T, db *gorm.DB, name, rawKey string, active bool) *models.APICredential {
	t.Helper()
	hash, err := security.HashAPIKey(rawKey, testArgonConfig())
	require.NoError(t, err)

	credential := &models.APICredential{
		ID:        uuid.New(),
		Name:      name,
		KeyPrefix: security.KeyPrefix(rawKey, prefixLength),
		KeyHash:   hash,
		Active:    active,
	}
	require.NoError(t, db.Create(credential).Error)
	return credential
}

func newTestAuthenticator(t *testing.T, db *gorm.DB) Authenticator {
	t.Helper()
	auth, err := NewAuthenticator(NewRepository(db), logger.New(logger.Options{ServiceName: "test"}))
	require.NoError(t, err)
	return auth
}

func TestAuthenticateValidKey(t *testing.T) {
	db := setupCredentialsTestDB(t)
	seeded := seedCredential(t, db, "karage-pos", "pk_live_abcdef123456", true)
	auth := newTestAuthenticator(t, db)

	credential, err := auth.Authenticate(context.Background(), "pk_live_abcdef123456")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, credential.ID)

	var reloaded models.APICredential
	require.NoError(t, db.First(&reloaded, "id = ?", seeded.ID).Error)
	assert.Equal(t, 1, reloaded.RequestCount)
	assert.NotNil(t, reloaded.LastUsedAt)
}

func TestAuthenticateWrongKeySamePrefix(t *testing.T) {
	db := setupCredentialsTestDB(t)
	seedCredential(t, db, "karage-pos", "pk_live_abcdef123456", true)
	auth := newTestAuthenticator(t, db)

	_, err := auth.Authenticate(context.Background(), "pk_live_abcdefWRONG")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestAuthenticateMissingKey(t *testing.T) {
	db := setupCredentialsTestDB(t)
	auth := newTestAuthenticator(t, db)

	_, err := auth.Authenticate(context.Background(), "  ")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
	assert.Equal(t, "missing API key", typed.Message())
}

func TestAuthenticateInactiveCredential(t *testing.T) {
	db := setupCredentialsTestDB(t)
	seedCredential(t, db, "revoked", "pk_live_revoked9999", false)
	auth := newTestAuthenticator(t, db)

	_, err := auth.Authenticate(context.Background(), "pk_live_revoked9999")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestAuthenticatePicksRightCredentialAmongPrefixCollisions(t *testing.T) {
	db := setupCredentialsTestDB(t)
	seedCredential(t, db, "first", "pk_live_one11111", true)
	wanted := seedCredential(t, db, "second", "pk_live_two22222", true)
	auth := newTestAuthenticator(t, db)

	credential, err := auth.Authenticate(context.Background(), "pk_live_two22222")
	require.NoError(t, err)
	assert.Equal(t, wanted.ID, credential.ID)
}
