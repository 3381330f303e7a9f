package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesDefaultConfig(t *testing.T) {
	dir := t.TempDir()

	cfg := New(dir, "1.2.3")

	_, err := os.Stat(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)

	assert.Equal(t, "1.2.3", cfg.Config.Version)
	assert.Equal(t, 8383, cfg.Config.Server.Port)
	assert.Equal(t, "", cfg.Config.Store.Backend)
	assert.Equal(t, 5, cfg.Config.Store.TimeoutSeconds)
	assert.Equal(t, "log/", cfg.Config.Logging.Path)
	assert.Equal(t, "1m", cfg.Config.Probe.Interval)
	assert.True(t, cfg.Config.RateLimit.Enabled)
}

func TestNew_ReadsExistingConfig(t *testing.T) {
	dir := t.TempDir()
	content := `
[server]
  host = "0.0.0.0"
  port = 9000

[store]
  backend = "valkey"

[valkey]
  address = "cache:6379"
  db = 2
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0644))

	cfg := New(dir, "dev")

	assert.Equal(t, "0.0.0.0", cfg.Config.Server.Host)
	assert.Equal(t, 9000, cfg.Config.Server.Port)
	assert.Equal(t, "valkey", cfg.Config.Store.Backend)
	assert.Equal(t, "cache:6379", cfg.Config.Valkey.Address)
	assert.Equal(t, 2, cfg.Config.Valkey.DB)
	// untouched sections keep their defaults
	assert.Equal(t, "DEBUG", cfg.Config.Logging.Level)
}

func TestNew_RestStoreFromEnvironment(t *testing.T) {
	t.Setenv("KV_REST_API_URL", "https://kv.example.com")
	t.Setenv("KV_REST_API_TOKEN", "secret")

	cfg := New(t.TempDir(), "dev")

	assert.Equal(t, "https://kv.example.com", cfg.Config.Store.Rest.URL)
	assert.Equal(t, "secret", cfg.Config.Store.Rest.Token)
}

func TestAppConfig_SetLogLevel(t *testing.T) {
	cfg := New(t.TempDir(), "dev")
	cfg.SetLogLevel("ERROR")
	assert.Equal(t, "ERROR", cfg.Config.Logging.Level)
}

func TestNewClientConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := NewClientConfig()
		require.NoError(t, err)

		assert.Equal(t, "http://127.0.0.1:8383", cfg.ServerURL)
		assert.Equal(t, 30*time.Second, cfg.PollInterval)
		assert.Equal(t, 1500*time.Millisecond, cfg.PushDebounce)
		assert.Equal(t, filepath.Join(".", "degustation-local.db"), cfg.LocalDatabasePath())
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("DEGUSTATION_SERVER_URL", "https://sync.example.com")
		t.Setenv("DEGUSTATION_POLL_INTERVAL", "5s")
		t.Setenv("DEGUSTATION_DATA_DIR", "/tmp/degustation")

		cfg, err := NewClientConfig()
		require.NoError(t, err)

		assert.Equal(t, "https://sync.example.com", cfg.ServerURL)
		assert.Equal(t, 5*time.Second, cfg.PollInterval)
		assert.Equal(t, "/tmp/degustation/degustation-local.db", cfg.LocalDatabasePath())
	})

	t.Run("invalid duration", func(t *testing.T) {
		t.Setenv("DEGUSTATION_PUSH_DEBOUNCE", "0s")

		_, err := NewClientConfig()
		assert.Error(t, err)
	})
}
