package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every LENDDESK_ env var that Load() reads.
var allConfigKeys = []string{
	"LENDDESK_API_BASE_URL",
	"LENDDESK_LISTEN_ADDR",
	"LENDDESK_DB_PATH",
	"LENDDESK_HTTP_TIMEOUT",
	"LENDDESK_SECRET_KEY",
}

// isolateConfigEnv saves and unsets all LENDDESK_ env vars so tests don't
// inherit values from the host environment (e.g. a running dev server).
// t.Cleanup restores original values after the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("LENDDESK_API_BASE_URL", "https://api.lending.test")
	t.Setenv("LENDDESK_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("LENDDESK_DB_PATH", "/tmp/test.db")
	t.Setenv("LENDDESK_HTTP_TIMEOUT", "10s")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "https://api.lending.test", cfg.APIBaseURL)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("LENDDESK_API_BASE_URL", "https://api.lending.test")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "lenddesk.db", cfg.DBPath)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Nil(t, cfg.SecretKey)
}

func TestLoad_MissingBaseURL(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LENDDESK_API_BASE_URL")
}

func TestLoad_InvalidTimeout(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("LENDDESK_API_BASE_URL", "https://api.lending.test")
	t.Setenv("LENDDESK_HTTP_TIMEOUT", "not-a-duration")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LENDDESK_HTTP_TIMEOUT")
}

func TestLoad_SecretKey_Valid(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("LENDDESK_API_BASE_URL", "https://api.lending.test")
	// 64 hex chars = 32 bytes
	t.Setenv("LENDDESK_SECRET_KEY", "0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Len(t, cfg.SecretKey, 32)
}

func TestLoad_SecretKey_TooShort(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("LENDDESK_API_BASE_URL", "https://api.lending.test")
	t.Setenv("LENDDESK_SECRET_KEY", "deadbeef")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LENDDESK_SECRET_KEY")
}

func TestLoad_SecretKey_NotHex(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("LENDDESK_API_BASE_URL", "https://api.lending.test")
	// 64 chars but not valid hex
	t.Setenv("LENDDESK_SECRET_KEY", "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LENDDESK_SECRET_KEY")
}
