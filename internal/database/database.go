package database

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/flurbudurbur/degustation/internal/domain"
	"github.com/flurbudurbur/degustation/internal/logger"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	// pure Go SQLite, registered as "sqlite"
	_ "modernc.org/sqlite"
)

type DB struct {
	log     zerolog.Logger
	handler *gorm.DB
	ctx     context.Context
	cancel  func()

	Driver string
	DSN    string
}

// NewDB prepares the server-side database used by the "database" backing store.
func NewDB(cfg *domain.Config, log logger.Logger) (*DB, error) {
	db := newDB(log)

	switch cfg.Database.Type {
	case "sqlite", "":
		db.Driver = "sqlite"
		db.DSN = dataSourceName(cfg.ConfigPath, cfg.Database.Path)
	case "postgres", "postgresql":
		pg := cfg.Database.Postgres
		if pg.Host == "" || pg.Port == 0 || pg.Database == "" {
			return nil, errors.New("postgres configuration is incomplete")
		}
		db.DSN = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			pg.Host, pg.Port, pg.User, pg.Pass, pg.Database, pg.SslMode)
		db.Driver = "postgres"
	default:
		return nil, errors.Errorf("unsupported database type: %v", cfg.Database.Type)
	}

	return db, nil
}

// NewLocalDB prepares the SQLite file a client keeps its local storage in.
func NewLocalDB(path string, log logger.Logger) *DB {
	db := newDB(log)
	db.Driver = "sqlite"
	db.DSN = path
	return db
}

func newDB(log logger.Logger) *DB {
	db := &DB{
		log: log.With().Str("module", "database").Logger(),
	}
	db.ctx, db.cancel = context.WithCancel(context.Background())
	return db
}

func dataSourceName(configPath string, name string) string {
	if name == "" {
		name = "degustation.db"
	}
	if configPath != "" && !filepath.IsAbs(name) {
		return filepath.Join(configPath, name)
	}
	return name
}

func (db *DB) Open() error {
	if db.DSN == "" {
		return errors.New("database DSN is required but not configured")
	}

	gormConfig := &gorm.Config{
		Logger:                 newGormLogger(db.log),
		SkipDefaultTransaction: true,
	}

	var dialector gorm.Dialector
	switch db.Driver {
	case "sqlite":
		dialector = sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: db.DSN})
		db.log.Debug().Str("dsn", db.DSN).Msg("Using SQLite driver")
	case "postgres":
		dialector = postgres.Open(db.DSN)
		db.log.Debug().Msg("Using PostgreSQL driver")
	default:
		return errors.Errorf("unsupported database driver: %s", db.Driver)
	}

	gormDB, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		db.log.Error().Err(err).Str("driver", db.Driver).Msg("Failed to connect database")
		return errors.Wrap(err, "failed to connect database")
	}
	db.handler = gormDB

	if err := db.handler.AutoMigrate(&KVEntry{}, &LocalItem{}); err != nil {
		db.log.Error().Err(err).Msg("Failed to run database auto-migrations")
		return errors.Wrap(err, "failed to run database auto-migrations")
	}

	db.log.Debug().Msg("Database ready")
	return nil
}

func newGormLogger(log zerolog.Logger) gormlogger.Interface {
	level := gormlogger.Warn
	switch log.GetLevel() {
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		level = gormlogger.Error
	case zerolog.TraceLevel:
		level = gormlogger.Info
	case zerolog.Disabled:
		level = gormlogger.Silent
	}

	return gormlogger.New(&log, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

func (db *DB) Close() error {
	db.cancel()

	if db.handler == nil {
		return nil
	}
	sqlDB, err := db.handler.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get underlying *sql.DB")
	}
	return sqlDB.Close()
}

func (db *DB) Ping() error {
	if db.handler == nil {
		return errors.New("database handler is not initialized")
	}
	sqlDB, err := db.handler.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get underlying *sql.DB")
	}

	if err := sqlDB.PingContext(db.ctx); err != nil {
		db.log.Warn().Err(err).Msg("Database ping failed")
		return errors.Wrap(err, "database ping failed")
	}
	return nil
}

// Get returns the underlying GORM DB instance.
func (db *DB) Get() *gorm.DB {
	return db.handler
}
