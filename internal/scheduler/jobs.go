package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/flurbudurbur/degustation/internal/domain"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
)

// StoreProbeJob pings the backing store and logs when its availability changes.
type StoreProbeJob struct {
	Name    string
	Log     zerolog.Logger
	Store   domain.KVStore
	Timeout time.Duration

	m         sync.Mutex
	checked   bool
	available bool
	downSince time.Time
}

func (j *StoreProbeJob) Run() {
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := j.Store.Ping(ctx)

	j.m.Lock()
	defer j.m.Unlock()

	available := err == nil

	switch {
	case !j.checked && available:
		j.Log.Debug().Msg("backing store reachable")
	case !available && (!j.checked || j.available):
		j.downSince = time.Now()
		j.Log.Warn().Err(err).Msg("backing store unreachable: reads serve empty documents and writes are dropped")
	case available && !j.available:
		j.Log.Info().Msgf("backing store reachable again, was down since %s", humanize.Time(j.downSince))
	case !available:
		j.Log.Trace().Err(err).Msg("backing store still unreachable")
	}

	j.checked = true
	j.available = available
}
