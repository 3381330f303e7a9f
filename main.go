package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flurbudurbur/degustation/internal/config"
	"github.com/flurbudurbur/degustation/internal/http"
	"github.com/flurbudurbur/degustation/internal/kvstore"
	"github.com/flurbudurbur/degustation/internal/logger"
	"github.com/flurbudurbur/degustation/internal/scheduler"
	"github.com/flurbudurbur/degustation/internal/server"
	"github.com/flurbudurbur/degustation/internal/sync"
	"github.com/r3labs/sse/v2"
	"github.com/spf13/pflag"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	var configPath string
	pflag.StringVar(&configPath, "config", "", "path to configuration directory")
	pflag.Parse()

	// read config
	cfg := config.New(configPath, version)

	// init new logger
	log := logger.New(cfg.Config)

	// init dynamic config
	cfg.DynamicReload(log)

	// setup server-sent-events
	serverEvents := newServerEvents()

	// register SSE writer
	log.RegisterSSEWriter(serverEvents)

	log.Info().Msgf("Starting degustation sync")
	log.Info().Msgf("Version: %s", version)
	log.Info().Msgf("Commit: %s", commit)
	log.Info().Msgf("Build date: %s", date)
	log.Info().Msgf("Log-level: %s", cfg.Config.Logging.Level)

	// open backing store
	store, backend, err := kvstore.New(cfg.Config, log)
	if err != nil {
		log.Fatal().Err(err).Msg("could not create backing store")
	}
	log.Info().Msgf("Using store: %s", backend)

	// setup services
	var (
		storeTimeout      = time.Duration(cfg.Config.Store.TimeoutSeconds) * time.Second
		syncService       = sync.NewService(log, store, storeTimeout)
		schedulingService = scheduler.NewService(log)
	)

	errorChannel := make(chan error, 1)

	httpServer := http.NewServer(
		log,
		cfg,
		serverEvents,
		version,
		commit,
		date,
		syncService,
		store,
		backend,
	)

	go func() {
		errorChannel <- httpServer.Open()
	}()

	srv := server.NewServer(log, cfg.Config, schedulingService, store)
	if err := srv.Start(); err != nil {
		log.Fatal().Stack().Err(err).Msg("could not start server")
		return
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)

	exitCode := 0
	select {
	case err := <-errorChannel:
		log.Error().Err(err).Msg("http server stopped")
		exitCode = 1
	case sig := <-sigCh:
		log.Info().Msgf("Shutting down server due to %s...", sig)
		if sig == syscall.SIGHUP {
			exitCode = 1
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("could not shut down http server")
	}
	cancel()

	srv.Shutdown()
	log.Info().Msg("Backing store closed")

	os.Exit(exitCode)
}

// newServerEvents creates the SSE server with the log stream. Subscribers
// get a live tail only: replay would keep every log line in memory.
func newServerEvents() *sse.Server {
	serverEvents := sse.New()
	serverEvents.AutoReplay = false
	serverEvents.CreateStream(logger.LogsStream)
	return serverEvents
}
