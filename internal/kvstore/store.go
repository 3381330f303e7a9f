package kvstore

import (
	"time"

	"github.com/flurbudurbur/degustation/internal/database"
	"github.com/flurbudurbur/degustation/internal/domain"
	"github.com/flurbudurbur/degustation/internal/logger"
	"github.com/flurbudurbur/degustation/internal/valkey"
	"github.com/pkg/errors"
)

const (
	BackendMemory   = "memory"
	BackendRest     = "rest"
	BackendValkey   = "valkey"
	BackendDatabase = "database"
)

// Backend resolves the configured backend name, applying the auto rule:
// REST when both url and token are present, memory otherwise.
func Backend(cfg domain.StoreConfig) string {
	if cfg.Backend != "" {
		return cfg.Backend
	}
	if cfg.Rest.URL != "" && cfg.Rest.Token != "" {
		return BackendRest
	}
	return BackendMemory
}

// New builds the backing store selected by cfg. It returns the store and the
// name of the backend actually in use.
func New(cfg *domain.Config, log logger.Logger) (domain.KVStore, string, error) {
	l := log.With().Str("module", "kvstore").Logger()
	timeout := time.Duration(cfg.Store.TimeoutSeconds) * time.Second

	switch backend := Backend(cfg.Store); backend {
	case BackendMemory:
		l.Warn().Msg("Using the in-process memory store: room data is lost on restart and not shared between instances")
		return NewMemoryStore(), BackendMemory, nil

	case BackendRest:
		store, err := NewRestStore(cfg.Store.Rest, timeout)
		if err != nil {
			return nil, "", err
		}
		l.Info().Str("url", cfg.Store.Rest.URL).Msg("Using the REST key-value store")
		return store, BackendRest, nil

	case BackendValkey:
		store, err := valkey.NewService(cfg.Valkey)
		if err != nil {
			l.Warn().Err(err).Msg("Valkey unreachable, falling back to the in-process memory store")
			return NewMemoryStore(), BackendMemory, nil
		}
		l.Info().Str("address", cfg.Valkey.Address).Msg("Using the Valkey store")
		return store, BackendValkey, nil

	case BackendDatabase:
		db, err := database.NewDB(cfg, log)
		if err != nil {
			return nil, "", err
		}
		if err := db.Open(); err != nil {
			return nil, "", err
		}
		l.Info().Str("driver", db.Driver).Msg("Using the database store")
		return database.NewKVRepo(log, db), BackendDatabase, nil

	default:
		return nil, "", errors.Errorf("unknown store backend: %q", backend)
	}
}
