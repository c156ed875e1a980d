package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goog1e-app/line-notify/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8090", cfg.HTTP.Addr)
	assert.Equal(t, "https://notify-api.line.me/api/notify", cfg.Notify.Endpoint)
	assert.Equal(t, 30*time.Second, cfg.Notify.RequestTimeout)
	assert.Equal(t, 8, cfg.Notify.BroadcastLimit)
	assert.True(t, cfg.Notify.RevokeOnInvalid)
	assert.Len(t, cfg.Crypto.SecretKey, 32)
	assert.True(t, cfg.Auth.Enabled)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  addr: ":9000"
notify:
  endpoint: "http://127.0.0.1:1234/api/notify"
  request_timeout: 5s
  broadcast_limit: 2
storage:
  path: /tmp/notify.db
log:
  level: debug
`), 0o600))
	t.Setenv("LINE_NOTIFY_AUTH_USERNAME", "ops")
	t.Setenv("LINE_NOTIFY_CRYPTO_SECRET_KEY", "0123456789abcdef")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, "http://127.0.0.1:1234/api/notify", cfg.Notify.Endpoint)
	assert.Equal(t, 5*time.Second, cfg.Notify.RequestTimeout)
	assert.Equal(t, 2, cfg.Notify.BroadcastLimit)
	assert.Equal(t, "/tmp/notify.db", cfg.Storage.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "ops", cfg.Auth.Username)
	assert.Equal(t, "0123456789abcdef", cfg.Crypto.SecretKey)
}

func TestLoadRejectsBadSecretKey(t *testing.T) {
	t.Setenv("LINE_NOTIFY_CRYPTO_SECRET_KEY", "short")
	_, err := config.Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret_key")
}
