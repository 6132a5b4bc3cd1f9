package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_SPREADSHEET_ID", "sheet-1")

	cfg, err := Load("webhook")
	require.NoError(t, err)

	assert.Equal(t, "webhook", cfg.Service.Name)
	assert.Equal(t, 8080, cfg.Service.Port)
	assert.Equal(t, StoreBackendSheets, cfg.Store.Backend)
	assert.Equal(t, "Sheet1", cfg.Store.SheetName)
	assert.Equal(t, "A1", cfg.Store.LiveCell)
	assert.Equal(t, "B1", cfg.Store.BackupCell)
	assert.Equal(t, "md5", cfg.Webhook.SignatureHash)
	assert.Equal(t, 256, cfg.Webhook.QueueSize)
	assert.True(t, cfg.Webhook.DedupeEnabled)
	assert.Equal(t, 500*time.Millisecond, cfg.Identity.RateLimitDelay)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("STORE_DOCUMENT_ID", "patrons-prod")
	t.Setenv("PORT", "9090")
	t.Setenv("WEBHOOK_RATE_LIMIT", "10")
	t.Setenv("IDENTITY_RATE_LIMIT_DELAY", "2s")

	cfg, err := Load("webhook")
	require.NoError(t, err)

	assert.Equal(t, StoreBackendRedis, cfg.Store.Backend)
	assert.Equal(t, "patrons-prod", cfg.Store.DocumentID)
	assert.Equal(t, 9090, cfg.Service.Port)
	assert.Equal(t, int64(10), cfg.Webhook.RateLimit)
	assert.Equal(t, 2*time.Second, cfg.Identity.RateLimitDelay)
}

func TestLoadSheetsRequiresSpreadsheetID(t *testing.T) {
	t.Setenv("STORE_BACKEND", "sheets")
	t.Setenv("STORE_SPREADSHEET_ID", "")

	_, err := Load("webhook")
	assert.ErrorContains(t, err, "STORE_SPREADSHEET_ID")
}

func TestValidateUnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")

	_, err := Load("webhook")
	assert.ErrorContains(t, err, "unknown store backend")
}

func TestValidateCellsMustDiffer(t *testing.T) {
	t.Setenv("STORE_SPREADSHEET_ID", "sheet-1")
	t.Setenv("STORE_LIVE_CELL", "A1")
	t.Setenv("STORE_BACKUP_CELL", "A1")

	_, err := Load("webhook")
	assert.ErrorContains(t, err, "must differ")
}

func TestValidateWebhook(t *testing.T) {
	t.Setenv("STORE_SPREADSHEET_ID", "sheet-1")
	t.Setenv("WEBHOOK_SECRET", "")

	cfg, err := Load("webhook")
	require.NoError(t, err)
	assert.Error(t, cfg.ValidateWebhook())

	cfg.Webhook.Secret = "s3cret"
	assert.NoError(t, cfg.ValidateWebhook())
}

func TestValidateIdentity(t *testing.T) {
	t.Setenv("STORE_SPREADSHEET_ID", "sheet-1")

	cfg, err := Load("patronctl")
	require.NoError(t, err)
	assert.Error(t, cfg.ValidateIdentity())

	cfg.Identity.AccessToken = "token"
	assert.NoError(t, cfg.ValidateIdentity())
}
