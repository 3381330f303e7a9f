package domain

// ServerConfig holds server-related settings
type ServerConfig struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	BaseURL string `mapstructure:"base_url"`
}

// PostgresConfig holds PostgreSQL-specific settings
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Pass     string `mapstructure:"pass"`
	SslMode  string `mapstructure:"ssl_mode"`
}

// DatabaseConfig is only read when the database backing store is selected.
type DatabaseConfig struct {
	Type     string         `mapstructure:"type"`
	Path     string         `mapstructure:"path"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Path           string `mapstructure:"path"`
	Level          string `mapstructure:"level"`
	MaxFileSize    int    `mapstructure:"max_file_size"`
	MaxBackupCount int    `mapstructure:"max_backup_count"`
}

// RestStoreConfig points at an Upstash-style REST key-value service.
type RestStoreConfig struct {
	URL   string `mapstructure:"url"`
	Token string `mapstructure:"token"`
}

// StoreConfig selects the backing store for room documents.
type StoreConfig struct {
	// Backend is one of "", "memory", "rest", "valkey" or "database".
	// Empty means rest when both url and token are set, memory otherwise.
	Backend        string          `mapstructure:"backend"`
	TimeoutSeconds int             `mapstructure:"timeout_seconds"`
	Rest           RestStoreConfig `mapstructure:"rest"`
}

// ValkeyConfig holds Valkey-specific settings
type ValkeyConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RateLimitConfig holds per-IP rate limiting settings for the sync routes
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
	ExemptInternalIPs string  `mapstructure:"exempt_internal_ips"`
}

// ProbeConfig controls the periodic backing store health probe.
type ProbeConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Interval string `mapstructure:"interval"`
}

// Config holds the application's configuration, mapped from config.toml
type Config struct {
	Version    string
	ConfigPath string

	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Store     StoreConfig     `mapstructure:"store"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Database  DatabaseConfig  `mapstructure:"database"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Probe     ProbeConfig     `mapstructure:"probe"`
}

// ConfigUpdate is the body accepted by PATCH /api/config.
type ConfigUpdate struct {
	LogLevel *string `json:"log_level,omitempty"`
}
