package client

import (
	"context"
	"time"

	"github.com/flurbudurbur/degustation/internal/domain"
	"github.com/flurbudurbur/degustation/internal/logger"
	"github.com/flurbudurbur/degustation/internal/tracker"

	"github.com/asaskevich/EventBus"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DefaultPushDebounce is the quiet period after the last local change before
// the snapshot is pushed.
const DefaultPushDebounce = 1500 * time.Millisecond

// PullTimeout bounds a shared pull, whoever started it.
const PullTimeout = 30 * time.Second

// Client replicates local state to a room through the sync endpoint. Sync is
// best effort: failures are logged and never returned to callers of
// SchedulePush or Pull.
type Client struct {
	log   zerolog.Logger
	api   API
	state *tracker.State
	bus   EventBus.Bus

	pusher *pusher
	pulls  singleflight.Group
}

// New wires the client to state: every user mutation schedules a push.
// bus may be nil.
func New(log logger.Logger, api API, state *tracker.State, bus EventBus.Bus, debounce time.Duration) *Client {
	if debounce <= 0 {
		debounce = DefaultPushDebounce
	}

	c := &Client{
		log:   log.With().Str("module", "client").Logger(),
		api:   api,
		state: state,
		bus:   bus,
	}
	c.pusher = newPusher(debounce, c.push)

	state.OnChange(c.SchedulePush)

	return c
}

// GenerateRoomID returns a fresh random join code.
func GenerateRoomID() string {
	return uuid.NewString()
}

// CreateRoom joins a freshly generated room and returns its code.
func (c *Client) CreateRoom() (string, error) {
	room := GenerateRoomID()
	if err := c.state.SetRoom(room); err != nil {
		return "", errors.Wrap(err, "could not store room")
	}

	c.log.Info().Str("room", room).Msg("created room")
	return room, nil
}

// JoinRoom normalizes code, stores it as the current room and pulls the
// room state. It reports whether the pull succeeded.
func (c *Client) JoinRoom(ctx context.Context, code string) (string, bool, error) {
	room, err := domain.NormalizeRoom(code)
	if err != nil {
		return "", false, err
	}

	c.pusher.cancel()
	if err := c.state.SetRoom(room); err != nil {
		return "", false, errors.Wrap(err, "could not store room")
	}

	c.log.Info().Str("room", room).Msg("joined room")

	return room, c.Pull(ctx), nil
}

// Room returns the current room, if any.
func (c *Client) Room() (string, bool) {
	return c.state.Room()
}

// LeaveRoom disables sync. Data already pushed to the room is kept.
func (c *Client) LeaveRoom() error {
	c.pusher.cancel()

	if err := c.state.ClearRoom(); err != nil {
		return errors.Wrap(err, "could not clear room")
	}

	c.log.Info().Msg("left room")
	return nil
}

// SchedulePush (re)starts the debounce window of the next push. It does
// nothing when no room is set.
func (c *Client) SchedulePush() {
	if _, ok := c.state.Room(); !ok {
		return
	}

	c.pusher.schedule()
}

// PushPending reports whether a push is waiting for its debounce window.
func (c *Client) PushPending() bool {
	return c.pusher.isPending()
}

// Flush sends a pending push immediately. It reports whether one was pending.
func (c *Client) Flush(ctx context.Context) bool {
	return c.pusher.flush(ctx)
}

// PushNow schedules and flushes a push of the current state.
func (c *Client) PushNow(ctx context.Context) bool {
	if _, ok := c.state.Room(); !ok {
		return false
	}

	c.pusher.schedule()
	return c.pusher.flush(ctx)
}

// Close drops any pending push and stops accepting new ones.
func (c *Client) Close() {
	c.pusher.close()
}

func (c *Client) push(ctx context.Context) {
	room, ok := c.state.Room()
	if !ok {
		return
	}

	payload := BuildSnapshot(c.state)

	size, err := c.api.Persist(ctx, room, payload)
	if err != nil {
		c.log.Warn().Err(err).Str("room", room).Msg("push failed")
		return
	}

	c.log.Debug().Str("room", room).Int("bytes", size).Msg("pushed")

	if c.bus != nil {
		c.bus.Publish(domain.EventSyncPushed, &domain.SyncPushedEvent{Room: room, Bytes: size, At: time.Now()})
	}
}

// Pull replaces local state with the room state. Concurrent calls share one
// request. It reports false when no room is set or on any failure, leaving
// local state untouched.
//
// The shared request does not depend on any one caller: it runs detached,
// bounded by PullTimeout, and a caller whose ctx ends stops waiting for it.
func (c *Client) Pull(ctx context.Context) bool {
	ch := c.pulls.DoChan("pull", func() (interface{}, error) {
		pullCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), PullTimeout)
		defer cancel()

		err := c.pull(pullCtx)
		if err != nil && !errors.Is(err, domain.ErrNotSynced) {
			c.log.Warn().Err(err).Msg("pull failed")
		}
		return err == nil, nil
	})

	select {
	case res := <-ch:
		return res.Val.(bool)
	case <-ctx.Done():
		return false
	}
}

func (c *Client) pull(ctx context.Context) error {
	room, ok := c.state.Room()
	if !ok {
		return domain.ErrNotSynced
	}

	raw, err := c.api.Fetch(ctx, room)
	if err != nil {
		return err
	}

	payload, err := DecodeSnapshot(raw)
	if err != nil {
		return err
	}

	if err := ApplySnapshot(c.state, payload); err != nil {
		return errors.Wrap(err, "could not apply pulled state")
	}

	c.log.Debug().Str("room", room).Msg("pulled")

	if c.bus != nil {
		c.bus.Publish(domain.EventSyncPulled, &domain.SyncPulledEvent{Room: room, Payload: payload, At: time.Now()})
	}

	return nil
}
