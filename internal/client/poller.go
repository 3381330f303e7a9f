package client

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// DefaultPollInterval is how often a visible client pulls its room.
const DefaultPollInterval = 30 * time.Second

// Visibility gates polling: ticks while hidden are skipped, not queued.
type Visibility struct {
	visible atomic.Bool
}

func NewVisibility(visible bool) *Visibility {
	v := &Visibility{}
	v.visible.Store(visible)
	return v
}

func (v *Visibility) Visible() bool {
	return v.visible.Load()
}

func (v *Visibility) Set(visible bool) {
	v.visible.Store(visible)
}

// Toggle flips the visibility and returns the new value.
func (v *Visibility) Toggle() bool {
	for {
		old := v.visible.Load()
		if v.visible.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// PollJob pulls the room on every scheduler tick while visible.
type PollJob struct {
	Name       string
	Log        zerolog.Logger
	Client     *Client
	Visibility *Visibility
	Timeout    time.Duration
}

func (j *PollJob) Run() {
	if j.Visibility != nil && !j.Visibility.Visible() {
		j.Log.Trace().Msg("hidden, skipping poll")
		return
	}

	if _, ok := j.Client.Room(); !ok {
		return
	}

	ctx := context.Background()
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	if !j.Client.Pull(ctx) {
		j.Log.Debug().Msg("poll did not refresh local state")
	}
}
