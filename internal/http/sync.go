package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/flurbudurbur/degustation/internal/domain"
	"github.com/flurbudurbur/degustation/internal/sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// maxSyncBodySize bounds POST bodies, after decompression.
const maxSyncBodySize = 1 << 20

const (
	errInvalidRoom = "Invalid room"
	errInvalidJSON = "Invalid JSON"
)

type syncService = sync.Service

type syncHandler struct {
	log         zerolog.Logger
	encoder     encoder
	syncService syncService
}

func newSyncHandler(log zerolog.Logger, encoder encoder, syncService syncService) *syncHandler {
	return &syncHandler{
		log:         log.With().Str("handler", "sync").Logger(),
		encoder:     encoder,
		syncService: syncService,
	}
}

func (h syncHandler) Routes(r chi.Router) {
	r.Get("/", h.fetch)
	r.Post("/", h.persist)
}

func (h syncHandler) fetch(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")

	doc, err := h.syncService.Fetch(r.Context(), room)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	render.JSON(w, r, doc)
}

func (h syncHandler) persist(w http.ResponseWriter, r *http.Request) {
	body, err := h.readBody(r)
	if err != nil {
		h.log.Debug().Err(err).Msg("could not read sync body")
		h.encoder.StatusError(w, http.StatusBadRequest, errInvalidJSON)
		return
	}

	req, err := decodePersistRequest(body)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.syncService.Persist(r.Context(), req.Room, req.Data); err != nil {
		h.writeError(w, err)
		return
	}

	render.JSON(w, r, domain.PersistResponse{OK: true})
}

func (h syncHandler) readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxSyncBodySize+1))
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(r.Header.Get("Content-Encoding"), "gzip") {
		if body, err = uncompress(body); err != nil {
			return nil, errors.Wrap(err, "could not decompress body")
		}
	}

	if len(body) > maxSyncBodySize {
		return nil, errors.New("request body too large")
	}

	return body, nil
}

func (h syncHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRoom):
		h.encoder.StatusError(w, http.StatusBadRequest, errInvalidRoom)
	case errors.Is(err, domain.ErrMalformedRequest):
		h.encoder.StatusError(w, http.StatusBadRequest, errInvalidJSON)
	default:
		h.log.Error().Err(err).Msg("sync request failed")
		h.encoder.StatusInternalError(w)
	}
}

// decodePersistRequest parses a POST /sync body. A body that is not JSON is
// malformed; a body without a string room is an invalid room.
func decodePersistRequest(body []byte) (domain.PersistRequest, error) {
	var req domain.PersistRequest

	if !json.Valid(body) {
		return req, domain.ErrMalformedRequest
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return req, domain.ErrInvalidRoom
	}

	rawRoom, ok := fields["room"]
	if !ok {
		return req, domain.ErrInvalidRoom
	}
	if err := json.Unmarshal(rawRoom, &req.Room); err != nil {
		return req, domain.ErrInvalidRoom
	}
	if err := domain.ValidateRoom(req.Room); err != nil {
		return req, err
	}

	req.Data = fields["data"]

	return req, nil
}
