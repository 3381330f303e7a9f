package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/flurbudurbur/degustation/internal/domain"
	"github.com/flurbudurbur/degustation/internal/logger"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var emptyDocument = json.RawMessage(`{}`)

type Service interface {
	// Fetch returns the document stored for room, or an empty object when the
	// room has no data or the backing store cannot be read.
	Fetch(ctx context.Context, room string) (json.RawMessage, error)
	// Persist overwrites the document stored for room. Backing store failures
	// are logged and swallowed.
	Persist(ctx context.Context, room string, data json.RawMessage) error
}

func NewService(log logger.Logger, store domain.KVStore, timeout time.Duration) Service {
	return &service{
		log:     log.With().Str("module", "sync").Logger(),
		store:   store,
		timeout: timeout,
	}
}

type service struct {
	log     zerolog.Logger
	store   domain.KVStore
	timeout time.Duration
}

func (s *service) Fetch(ctx context.Context, room string) (json.RawMessage, error) {
	if err := domain.ValidateRoom(room); err != nil {
		return nil, err
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	raw, found, err := s.store.Get(ctx, domain.SyncKey(room))
	if err != nil {
		s.log.Error().Err(errors.Wrap(domain.ErrBackingStoreUnavailable, err.Error())).Str("room", room).Msg("could not read room, serving empty document")
		return emptyDocument, nil
	}
	if !found {
		s.log.Trace().Str("room", room).Msg("room has no data yet")
		return emptyDocument, nil
	}

	doc := DecodeStored(raw)
	s.log.Debug().Str("room", room).Str("size", humanize.Bytes(uint64(len(doc)))).Msg("fetched room")

	return doc, nil
}

func (s *service) Persist(ctx context.Context, room string, data json.RawMessage) error {
	if err := domain.ValidateRoom(room); err != nil {
		return err
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		data = emptyDocument
	}
	if !json.Valid(data) {
		return domain.ErrMalformedRequest
	}

	// stored as a JSON string holding the document
	value, err := json.Marshal(string(data))
	if err != nil {
		return errors.Wrap(err, "could not encode document")
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	if err := s.store.Set(ctx, domain.SyncKey(room), value); err != nil {
		s.log.Error().Err(errors.Wrap(domain.ErrBackingStoreUnavailable, err.Error())).Str("room", room).Msg("could not persist room, write dropped")
		return nil
	}

	s.log.Debug().Str("room", room).Str("size", humanize.Bytes(uint64(len(data)))).Msg("persisted room")

	return nil
}

func (s *service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// DecodeStored turns a stored value into the document served to clients.
// Values are stored as a JSON string holding the document and are decoded
// exactly once. Values stored as plain JSON by older writers are served as
// they are. Anything else becomes an empty object.
func DecodeStored(raw []byte) json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if !json.Valid(raw) || bytes.Equal(raw, []byte("null")) {
		return emptyDocument
	}

	if raw[0] != '"' {
		return json.RawMessage(raw)
	}

	var inner string
	if err := json.Unmarshal(raw, &inner); err != nil {
		return emptyDocument
	}

	doc := bytes.TrimSpace([]byte(inner))
	if len(doc) == 0 || !json.Valid(doc) || bytes.Equal(doc, []byte("null")) {
		return emptyDocument
	}

	return json.RawMessage(doc)
}
