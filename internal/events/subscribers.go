package events

import (
	"github.com/flurbudurbur/degustation/internal/domain"
	"github.com/flurbudurbur/degustation/internal/logger"

	"github.com/asaskevich/EventBus"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
)

// ReloadFunc refreshes whatever view is built from local state.
type ReloadFunc func(payload domain.SyncPayload)

type Subscriber struct {
	log      zerolog.Logger
	eventbus EventBus.Bus
	reload   ReloadFunc
}

func NewSubscribers(log logger.Logger, eventbus EventBus.Bus, reload ReloadFunc) Subscriber {
	s := Subscriber{
		log:      log.With().Str("module", "events").Logger(),
		eventbus: eventbus,
		reload:   reload,
	}

	s.Register()

	return s
}

func (s Subscriber) Register() {
	if err := s.eventbus.Subscribe(domain.EventSyncPulled, s.handleSyncPulled); err != nil {
		s.log.Error().Err(err).Msgf("failed to subscribe to %s", domain.EventSyncPulled)
	}
	if err := s.eventbus.Subscribe(domain.EventSyncPushed, s.handleSyncPushed); err != nil {
		s.log.Error().Err(err).Msgf("failed to subscribe to %s", domain.EventSyncPushed)
	}
}

func (s Subscriber) handleSyncPulled(event *domain.SyncPulledEvent) {
	s.log.Info().
		Str("room", event.Room).
		Int("done", len(event.Payload.DoneIDs)).
		Int("notes", len(event.Payload.Notes)).
		Msg("room state pulled, reloading")

	if s.reload != nil {
		s.reload(event.Payload)
	}
}

func (s Subscriber) handleSyncPushed(event *domain.SyncPushedEvent) {
	s.log.Debug().
		Str("room", event.Room).
		Str("size", humanize.Bytes(uint64(event.Bytes))).
		Msgf("room state pushed %s", humanize.Time(event.At))
}
