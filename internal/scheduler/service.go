package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/flurbudurbur/degustation/internal/logger"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type Service interface {
	Start()
	Stop()
	// AddJob adds a job that runs periodically at the given interval.
	AddJob(job cron.Job, interval time.Duration, identifier string) (int, error)
	// AddJobWithSpec adds a job using a cron spec string (e.g., "0 3 * * *").
	AddJobWithSpec(job cron.Job, spec string, identifier string) (int, error)
	GetNextRun(id string) (time.Time, error)
}

type service struct {
	log zerolog.Logger

	cron *cron.Cron
	jobs map[string]cron.EntryID
	m    sync.RWMutex
}

func NewService(log logger.Logger) Service {
	l := log.With().Str("module", "scheduler").Logger()

	return &service{
		log: l,
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger{log: l}),
		)),
		jobs: map[string]cron.EntryID{},
	}
}

func (s *service) Start() {
	s.log.Info().Msg("Starting scheduler service")

	s.cron.Start()
}

func (s *service) Stop() {
	s.log.Info().Msg("Stopping scheduler service")

	// wait for running jobs
	<-s.cron.Stop().Done()
}

func (s *service) AddJob(job cron.Job, interval time.Duration, identifier string) (int, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("invalid interval %s for job '%s'", interval, identifier)
	}

	return s.add(job, fmt.Sprintf("@every %s", interval.String()), identifier)
}

// AddJobWithSpec adds a job using a cron specification string.
func (s *service) AddJobWithSpec(job cron.Job, spec string, identifier string) (int, error) {
	return s.add(job, spec, identifier)
}

func (s *service) add(job cron.Job, spec string, identifier string) (int, error) {
	s.m.Lock()
	defer s.m.Unlock()

	if _, exists := s.jobs[identifier]; exists {
		s.log.Warn().Str("identifier", identifier).Msg("Job with this identifier already exists, skipping add.")
		return 0, fmt.Errorf("job with identifier '%s' already exists", identifier)
	}

	entryID, err := s.cron.AddJob(spec, cron.NewChain(
		cron.SkipIfStillRunning(cronLogger{log: s.log})).Then(job))
	if err != nil {
		s.log.Error().Err(err).Str("identifier", identifier).Str("spec", spec).Msg("Failed to add job")
		return 0, fmt.Errorf("failed to add job '%s' with spec '%s': %w", identifier, spec, err)
	}

	s.log.Debug().Str("identifier", identifier).Str("spec", spec).Int("entryID", int(entryID)).Msg("Scheduled job added")
	s.jobs[identifier] = entryID

	return int(entryID), nil
}

func (s *service) GetNextRun(id string) (time.Time, error) {
	entry := s.getEntryById(id)

	if !entry.Valid() {
		return time.Time{}, nil
	}

	s.log.Trace().Msgf("scheduler.GetNextRun: %s next run: %s", id, entry.Next)

	return entry.Next, nil
}

func (s *service) getEntryById(id string) cron.Entry {
	s.m.RLock()
	defer s.m.RUnlock()

	v, ok := s.jobs[id]
	if !ok {
		return cron.Entry{}
	}

	return s.cron.Entry(v)
}

// cronLogger routes cron's own messages through zerolog.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Trace().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
