package kvstore

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/flurbudurbur/degustation/internal/domain"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// RestStore talks to an Upstash-compatible REST key-value API:
// GET {url}/get/{key} and POST {url}/set/{key}, both with a bearer token.
type RestStore struct {
	client *resty.Client
}

var _ domain.KVStore = (*RestStore)(nil)

type restResult struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error,omitempty"`
}

func NewRestStore(cfg domain.RestStoreConfig, timeout time.Duration) (*RestStore, error) {
	if cfg.URL == "" || cfg.Token == "" {
		return nil, errors.New("rest store needs both url and token")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")).
		SetAuthToken(cfg.Token).
		SetTimeout(timeout)

	return &RestStore{client: client}, nil
}

// Get returns the stored string as bytes. Values stored by other writers as
// structured JSON are returned in their JSON form.
func (s *RestStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var res restResult
	resp, err := s.client.R().
		SetContext(ctx).
		SetResult(&res).
		Get("/get/" + url.PathEscape(key))
	if err != nil {
		return nil, false, errors.Wrap(err, "rest store get")
	}
	if resp.IsError() {
		return nil, false, nil
	}

	raw := bytes.TrimSpace(res.Result)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, false, nil
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return []byte(str), true, nil
	}
	return raw, true, nil
}

func (s *RestStore) Set(ctx context.Context, key string, value []byte) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(value).
		Post("/set/" + url.PathEscape(key))
	if err != nil {
		return errors.Wrap(err, "rest store set")
	}
	if resp.IsError() {
		return errors.Errorf("rest store set: unexpected status %d", resp.StatusCode())
	}
	return nil
}

func (s *RestStore) Ping(ctx context.Context) error {
	resp, err := s.client.R().SetContext(ctx).Get("/ping")
	if err != nil {
		return errors.Wrap(err, "rest store ping")
	}
	if resp.IsError() {
		return errors.Errorf("rest store ping: unexpected status %d", resp.StatusCode())
	}
	return nil
}

func (s *RestStore) Close() error {
	return nil
}
