package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/flurbudurbur/degustation/internal/config"
	"github.com/flurbudurbur/degustation/internal/domain"
	"github.com/flurbudurbur/degustation/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/pkg/errors"
)

type configJson struct {
	Host          string  `json:"host"`
	Port          int     `json:"port"`
	LogLevel      string  `json:"log_level"`
	LogPath       string  `json:"log_path"`
	LogMaxSize    int     `json:"log_max_size"`
	LogMaxBackups int     `json:"log_max_backups"`
	BaseURL       string  `json:"base_url"`
	StoreBackend  string  `json:"store_backend"`
	RateLimit     bool    `json:"rate_limit"`
	RateLimitRPS  float64 `json:"rate_limit_rps"`
	ProbeEnabled  bool    `json:"probe_enabled"`
	ProbeInterval string  `json:"probe_interval"`
	Version       string  `json:"version"`
	Commit        string  `json:"commit"`
	Date          string  `json:"date"`
}

var logLevels = []string{"ERROR", "WARN", "INFO", "DEBUG", "TRACE"}

type configHandler struct {
	encoder encoder

	cfg    *config.AppConfig
	log    logger.Logger
	server *Server
}

func newConfigHandler(encoder encoder, server *Server, cfg *config.AppConfig, log logger.Logger) *configHandler {
	return &configHandler{
		encoder: encoder,
		cfg:     cfg,
		log:     log,
		server:  server,
	}
}

func (h configHandler) Routes(r chi.Router) {
	r.Get("/", h.getConfig)
	r.Patch("/", h.updateConfig)
}

func (h configHandler) getConfig(w http.ResponseWriter, r *http.Request) {
	c := h.cfg.Config
	conf := configJson{
		Host:          c.Server.Host,
		Port:          c.Server.Port,
		LogLevel:      c.Logging.Level,
		LogPath:       c.Logging.Path,
		LogMaxSize:    c.Logging.MaxFileSize,
		LogMaxBackups: c.Logging.MaxBackupCount,
		BaseURL:       c.Server.BaseURL,
		StoreBackend:  h.server.backend,
		RateLimit:     c.RateLimit.Enabled,
		RateLimitRPS:  c.RateLimit.RequestsPerSecond,
		ProbeEnabled:  c.Probe.Enabled,
		ProbeInterval: c.Probe.Interval,
		Version:       h.server.version,
		Commit:        h.server.commit,
		Date:          h.server.date,
	}

	render.JSON(w, r, conf)
}

func (h configHandler) updateConfig(w http.ResponseWriter, r *http.Request) {
	var data domain.ConfigUpdate

	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		h.encoder.StatusResponse(r.Context(), w, errorResponse{Message: err.Error(), Status: http.StatusBadRequest}, http.StatusBadRequest)
		return
	}

	if data.LogLevel != nil {
		level := strings.ToUpper(*data.LogLevel)
		if !validLogLevel(level) {
			err := errors.Errorf("unknown log level %q", *data.LogLevel)
			h.encoder.StatusResponse(r.Context(), w, errorResponse{Message: err.Error(), Status: http.StatusBadRequest}, http.StatusBadRequest)
			return
		}

		h.cfg.SetLogLevel(level)
		h.log.SetLogLevel(level)
	}

	// changes are in-memory only and are not written back to config.toml
	h.encoder.NoContent(w)
}

func validLogLevel(level string) bool {
	for _, l := range logLevels {
		if l == level {
			return true
		}
	}
	return false
}
