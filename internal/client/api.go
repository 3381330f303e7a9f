package client

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/flurbudurbur/degustation/internal/domain"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// API is the sync endpoint as seen from a client.
type API interface {
	Fetch(ctx context.Context, room string) (json.RawMessage, error)
	Persist(ctx context.Context, room string, payload domain.SyncPayload) (int, error)
}

type httpAPI struct {
	client *resty.Client
}

// NewAPI talks to the sync endpoint served under baseURL.
func NewAPI(baseURL string, timeout time.Duration) API {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &httpAPI{client: cli}
}

func (a *httpAPI) Fetch(ctx context.Context, room string) (json.RawMessage, error) {
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParam("room", room).
		Get("/sync")
	if err != nil {
		return nil, errors.Wrap(domain.ErrTransportFailure, err.Error())
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, errors.Wrapf(domain.ErrTransportFailure, "fetch returned status %d", resp.StatusCode())
	}

	return json.RawMessage(resp.Body()), nil
}

// Persist sends payload and returns the size of the sent document.
func (a *httpAPI) Persist(ctx context.Context, room string, payload domain.SyncPayload) (int, error) {
	data, err := json.Marshal(payload.Normalize())
	if err != nil {
		return 0, errors.Wrap(err, "could not encode payload")
	}

	var ack domain.PersistResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(domain.PersistRequest{Room: room, Data: data}).
		SetResult(&ack).
		Post("/sync")
	if err != nil {
		return 0, errors.Wrap(domain.ErrTransportFailure, err.Error())
	}
	if resp.StatusCode() != http.StatusOK || !ack.OK {
		return 0, errors.Wrapf(domain.ErrTransportFailure, "persist returned status %d", resp.StatusCode())
	}

	return len(data), nil
}
