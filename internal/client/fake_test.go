package client

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/flurbudurbur/degustation/internal/domain"

	"github.com/pkg/errors"
)

// fakeAPI keeps room documents in memory and records calls.
type fakeAPI struct {
	mu       sync.Mutex
	docs     map[string]json.RawMessage
	persists []domain.SyncPayload
	fetches  int
	failing  bool

	// fetchGate, when set, blocks Fetch until closed
	fetchGate chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{docs: map[string]json.RawMessage{}}
}

func (f *fakeAPI) Fetch(ctx context.Context, room string) (json.RawMessage, error) {
	f.mu.Lock()
	f.fetches++
	gate := f.fetchGate
	failing := f.failing
	doc, ok := f.docs[room]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, errors.Wrap(domain.ErrTransportFailure, ctx.Err().Error())
		}
	}
	if failing {
		return nil, errors.Wrap(domain.ErrTransportFailure, "connection refused")
	}
	if !ok {
		return json.RawMessage(`{}`), nil
	}
	return doc, nil
}

func (f *fakeAPI) Persist(ctx context.Context, room string, payload domain.SyncPayload) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failing {
		return 0, errors.Wrap(domain.ErrTransportFailure, "connection refused")
	}

	b, _ := json.Marshal(payload)
	f.docs[room] = b
	f.persists = append(f.persists, payload)
	return len(b), nil
}

func (f *fakeAPI) setDoc(room, doc string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[room] = json.RawMessage(doc)
}

func (f *fakeAPI) persistCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.persists)
}

func (f *fakeAPI) lastPersist() domain.SyncPayload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.persists[len(f.persists)-1]
}

func (f *fakeAPI) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}
