package server

import (
	"sync"
	"time"

	"github.com/flurbudurbur/degustation/internal/domain"
	"github.com/flurbudurbur/degustation/internal/logger"
	"github.com/flurbudurbur/degustation/internal/scheduler"

	"github.com/rs/zerolog"
)

const probeJobIdentifier = "store-probe"

type Server struct {
	log    zerolog.Logger
	config *domain.Config

	scheduler scheduler.Service
	store     domain.KVStore
	probe     *scheduler.StoreProbeJob

	lock sync.Mutex
}

func NewServer(log logger.Logger, config *domain.Config, scheduler scheduler.Service, store domain.KVStore) *Server {
	return &Server{
		log:       log.With().Str("module", "server").Logger(),
		config:    config,
		scheduler: scheduler,
		store:     store,
	}
}

func (s *Server) Start() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	// start cron scheduler
	s.scheduler.Start()

	if !s.config.Probe.Enabled {
		s.log.Debug().Msg("Store probe disabled")
		return nil
	}

	s.probe = &scheduler.StoreProbeJob{
		Name:    probeJobIdentifier,
		Log:     s.log.With().Str("job", probeJobIdentifier).Logger(),
		Store:   s.store,
		Timeout: time.Duration(s.config.Store.TimeoutSeconds) * time.Second,
	}

	// first probe right away so startup logs the store state
	go s.probe.Run()

	return s.scheduleProbe()
}

// scheduleProbe accepts a duration ("1m") or a cron spec ("*/5 * * * *",
// "@hourly"). Anything else falls back to every minute.
func (s *Server) scheduleProbe() error {
	interval := s.config.Probe.Interval

	if d, err := time.ParseDuration(interval); err == nil {
		if d > 0 {
			_, err := s.scheduler.AddJob(s.probe, d, probeJobIdentifier)
			return err
		}
	} else if interval != "" {
		if _, err := s.scheduler.AddJobWithSpec(s.probe, interval, probeJobIdentifier); err == nil {
			return nil
		}
	}

	s.log.Warn().Str("interval", interval).Msg("Invalid probe interval, using 1m")
	_, err := s.scheduler.AddJob(s.probe, time.Minute, probeJobIdentifier)
	return err
}

func (s *Server) Shutdown() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.log.Info().Msg("Shutting down server")

	// stop cron scheduler
	s.scheduler.Stop()

	if err := s.store.Close(); err != nil {
		s.log.Error().Err(err).Msg("could not close backing store")
	}
}
