package config

import (
	"bytes"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"github.com/flurbudurbur/degustation/internal/domain"
	"github.com/flurbudurbur/degustation/internal/logger"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

var configTemplate = `# config.toml

[server]
  # Hostname or IP address for the server to listen on.
  # Default: "{{ .host }}"
  host = "{{ .host }}"

  # Port for the server to listen on.
  # Default: 8383
  port = 8383

  # Base URL when served under a subdirectory (e.g. /degustation/).
  # Default: ""
  #base_url = ""

[logging]
  # Log file directory. Empty logs to stderr only.
  # Default: ""
  path = "log/"

  # Options: "ERROR", "WARN", "INFO", "DEBUG", "TRACE"
  # Default: "DEBUG"
  level = "DEBUG"

  # Maximum size of a log file in megabytes before it is rotated.
  # Default: 50
  max_file_size = 50

  # Maximum number of old log files to keep.
  # Default: 3
  max_backup_count = 3

[store]
  # Backing store for room documents.
  # Options: "" (auto), "memory", "rest", "valkey", "database"
  # Auto uses the REST store when url and token are set, otherwise the
  # in-process memory map. The memory map does not survive a restart and
  # is not shared between instances: development only.
  # Default: ""
  backend = ""

  # Timeout for a single backing store call.
  # Default: 5
  timeout_seconds = 5

  [store.rest]
    # Upstash-style REST endpoint. Also read from KV_REST_API_URL.
    #url = ""

    # Bearer token. Also read from KV_REST_API_TOKEN.
    #token = ""

[valkey]
  # Used when store.backend = "valkey".
  address = "localhost:6379"
  password = ""
  db = 0

[database]
  # Used when store.backend = "database".
  # Options: "sqlite", "postgres"
  type = "sqlite"

  # SQLite file, relative to the config directory.
  path = "degustation.db"

  [database.postgres]
    host = "localhost"
    port = 5432
    database = "degustation"
    user = "postgres"
    pass = "postgres"
    ssl_mode = "disable"

[rate_limit]
  # Per client IP token bucket on the sync routes.
  enabled = true
  requests_per_second = 5
  burst = 20
  exempt_internal_ips = "127.0.0.1,::1"

[probe]
  # Periodically ping the backing store and log availability changes.
  # interval takes a duration ("1m") or a cron spec ("*/5 * * * *").
  enabled = true
  interval = "1m"
`

func writeConfig(configPath string, configFile string) error {
	cfgPath := filepath.Join(configPath, configFile)

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(configPath, os.ModePerm); err != nil {
			return errors.Wrap(err, "could not create config directory")
		}
	}

	if _, err := os.Stat(cfgPath); !errors.Is(err, os.ErrNotExist) {
		return nil
	}

	host := "127.0.0.1"
	if _, err := os.Stat("/.dockerenv"); err == nil {
		host = "0.0.0.0"
	} else if b, err := os.ReadFile("/proc/1/cgroup"); err == nil {
		if strings.Contains(string(b), "/docker") || strings.Contains(string(b), "/lxc") {
			host = "0.0.0.0"
		}
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return errors.Wrap(err, "could not create config template")
	}

	var buffer bytes.Buffer
	if err := tmpl.Execute(&buffer, map[string]string{"host": host}); err != nil {
		return errors.Wrap(err, "could not write config template output")
	}

	if err := os.WriteFile(cfgPath, buffer.Bytes(), 0644); err != nil {
		return errors.Wrapf(err, "could not write config file: %s", cfgPath)
	}

	return nil
}

type Config interface {
	DynamicReload(log logger.Logger)
}

type AppConfig struct {
	Config *domain.Config
	v      *viper.Viper
	m      sync.Mutex
}

func New(configPath string, version string) *AppConfig {
	c := &AppConfig{v: viper.New()}
	c.defaults()
	c.Config.Version = version
	c.Config.ConfigPath = configPath

	c.load(configPath)

	return c
}

func (c *AppConfig) defaults() {
	c.Config = &domain.Config{
		Version: "dev",
		Server: domain.ServerConfig{
			Host: "127.0.0.1",
			Port: 8383,
		},
		Logging: domain.LoggingConfig{
			Level:          "DEBUG",
			MaxFileSize:    50,
			MaxBackupCount: 3,
		},
		Store: domain.StoreConfig{
			TimeoutSeconds: 5,
		},
		Valkey: domain.ValkeyConfig{
			Address: "localhost:6379",
		},
		Database: domain.DatabaseConfig{
			Type: "sqlite",
			Path: "degustation.db",
			Postgres: domain.PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "degustation",
				User:     "postgres",
				Pass:     "postgres",
				SslMode:  "disable",
			},
		},
		RateLimit: domain.RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 5,
			Burst:             20,
			ExemptInternalIPs: "127.0.0.1,::1",
		},
		Probe: domain.ProbeConfig{
			Enabled:  true,
			Interval: "1m",
		},
	}
}

func (c *AppConfig) bindEnv() {
	c.v.SetEnvPrefix("DEGUSTATION")
	c.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	c.v.AutomaticEnv()

	// the names the hosted key-value providers export
	_ = c.v.BindEnv("store.rest.url", "KV_REST_API_URL", "DEGUSTATION_STORE_REST_URL")
	_ = c.v.BindEnv("store.rest.token", "KV_REST_API_TOKEN", "DEGUSTATION_STORE_REST_TOKEN")
}

// setViperDefaults registers every key so AutomaticEnv can override keys
// that are absent from the config file.
func (c *AppConfig) setViperDefaults() {
	d := c.Config
	c.v.SetDefault("server.host", d.Server.Host)
	c.v.SetDefault("server.port", d.Server.Port)
	c.v.SetDefault("server.base_url", d.Server.BaseURL)
	c.v.SetDefault("logging.path", d.Logging.Path)
	c.v.SetDefault("logging.level", d.Logging.Level)
	c.v.SetDefault("logging.max_file_size", d.Logging.MaxFileSize)
	c.v.SetDefault("logging.max_backup_count", d.Logging.MaxBackupCount)
	c.v.SetDefault("store.backend", d.Store.Backend)
	c.v.SetDefault("store.timeout_seconds", d.Store.TimeoutSeconds)
	c.v.SetDefault("valkey.address", d.Valkey.Address)
	c.v.SetDefault("valkey.password", d.Valkey.Password)
	c.v.SetDefault("valkey.db", d.Valkey.DB)
	c.v.SetDefault("database.type", d.Database.Type)
	c.v.SetDefault("database.path", d.Database.Path)
	c.v.SetDefault("database.postgres.host", d.Database.Postgres.Host)
	c.v.SetDefault("database.postgres.port", d.Database.Postgres.Port)
	c.v.SetDefault("database.postgres.database", d.Database.Postgres.Database)
	c.v.SetDefault("database.postgres.user", d.Database.Postgres.User)
	c.v.SetDefault("database.postgres.pass", d.Database.Postgres.Pass)
	c.v.SetDefault("database.postgres.ssl_mode", d.Database.Postgres.SslMode)
	c.v.SetDefault("rate_limit.enabled", d.RateLimit.Enabled)
	c.v.SetDefault("rate_limit.requests_per_second", d.RateLimit.RequestsPerSecond)
	c.v.SetDefault("rate_limit.burst", d.RateLimit.Burst)
	c.v.SetDefault("rate_limit.exempt_internal_ips", d.RateLimit.ExemptInternalIPs)
	c.v.SetDefault("probe.enabled", d.Probe.Enabled)
	c.v.SetDefault("probe.interval", d.Probe.Interval)
}

func (c *AppConfig) load(configPath string) {
	c.v.SetConfigType("toml")
	c.setViperDefaults()
	c.bindEnv()

	if configPath != "" {
		configPath = path.Clean(configPath)
		if err := writeConfig(configPath, "config.toml"); err != nil {
			log.Printf("writeConfig error during load: %q", err)
		}
		c.v.SetConfigFile(path.Join(configPath, "config.toml"))
	} else {
		c.v.SetConfigName("config")
		c.v.AddConfigPath(".")
		c.v.AddConfigPath("$HOME/.config/degustation")
	}

	if err := c.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("Config file not found, using defaults")
		} else {
			log.Printf("Config read error: %q. Using defaults.", err)
		}
	}

	if err := c.v.Unmarshal(c.Config); err != nil {
		log.Fatalf("Could not unmarshal config file into struct: %v. Config file used: %s", err, c.v.ConfigFileUsed())
	}
}

// DynamicReload re-reads config.toml on change. Only the log level is
// applied to the running process; other changes need a restart.
func (c *AppConfig) DynamicReload(log logger.Logger) {
	c.v.OnConfigChange(func(e fsnotify.Event) {
		c.m.Lock()
		defer c.m.Unlock()

		log.Info().Msgf("Config file changed: %s. Reloading configuration.", e.Name)

		if err := c.v.ReadInConfig(); err != nil {
			log.Error().Err(err).Msg("Error reading config file during dynamic reload")
			return
		}

		newConfig := *c.Config
		if err := c.v.Unmarshal(&newConfig); err != nil {
			log.Error().Err(err).Msg("Error unmarshalling config during dynamic reload")
			return
		}

		c.Config.Logging.Level = newConfig.Logging.Level
		log.SetLogLevel(c.Config.Logging.Level)

		log.Debug().Msg("Configuration reloaded successfully!")
	})
	c.v.WatchConfig()
}

// SetLogLevel updates the in-memory log level; it is not written back to config.toml.
func (c *AppConfig) SetLogLevel(level string) {
	c.m.Lock()
	defer c.m.Unlock()

	c.Config.Logging.Level = level
}
