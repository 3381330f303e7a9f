package config

import (
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// ClientConfig configures the sync client CLI. All values come from the
// environment.
type ClientConfig struct {
	ServerURL      string        `env:"SERVER_URL" envDefault:"http://127.0.0.1:8383"`
	DataDir        string        `env:"DATA_DIR" envDefault:"."`
	CatalogPath    string        `env:"CATALOG"`
	PollInterval   time.Duration `env:"POLL_INTERVAL" envDefault:"30s"`
	PushDebounce   time.Duration `env:"PUSH_DEBOUNCE" envDefault:"1500ms"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"INFO"`
}

// LocalDatabasePath is the SQLite file holding the client's local storage.
func (c ClientConfig) LocalDatabasePath() string {
	return filepath.Join(c.DataDir, "degustation-local.db")
}

// NewClientConfig parses DEGUSTATION_* environment variables.
func NewClientConfig() (ClientConfig, error) {
	var cfg ClientConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "DEGUSTATION_"}); err != nil {
		return ClientConfig{}, errors.Wrap(err, "error getting env configs")
	}
	if cfg.PollInterval <= 0 || cfg.PushDebounce <= 0 || cfg.RequestTimeout <= 0 {
		return ClientConfig{}, errors.New("durations must be positive")
	}
	return cfg, nil
}
