package client

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/flurbudurbur/degustation/internal/config"
	"github.com/flurbudurbur/degustation/internal/domain"
	apihttp "github.com/flurbudurbur/degustation/internal/http"
	"github.com/flurbudurbur/degustation/internal/kvstore"
	"github.com/flurbudurbur/degustation/internal/logger"
	"github.com/flurbudurbur/degustation/internal/sync"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSyncEndpoint(t *testing.T) *httptest.Server {
	t.Helper()

	log := logger.Mock()
	store := kvstore.NewMemoryStore()
	cfg := &config.AppConfig{Config: &domain.Config{Version: "dev"}}

	srv := apihttp.NewServer(log, cfg, nil, "dev", "", "", sync.NewService(log, store, time.Second), store, kvstore.BackendMemory)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestClient_EndToEnd(t *testing.T) {
	ts := newSyncEndpoint(t)
	ctx := context.Background()

	alice := New(logger.Mock(), NewAPI(ts.URL, time.Second), newState(), nil, time.Hour)
	defer alice.Close()
	bob := New(logger.Mock(), NewAPI(ts.URL, time.Second), newState(), nil, time.Hour)
	defer bob.Close()

	room, err := alice.CreateRoom()
	require.NoError(t, err)

	_, err = alice.state.ToggleDone(3)
	require.NoError(t, err)
	note := 5
	require.NoError(t, alice.state.SetNote(3, domain.UserMoi, &note, nil))
	require.True(t, alice.Flush(ctx))

	joined, pulled, err := bob.JoinRoom(ctx, room)
	require.NoError(t, err)
	assert.Equal(t, room, joined)
	require.True(t, pulled)
	assert.Equal(t, BuildSnapshot(alice.state), BuildSnapshot(bob.state))

	require.NoError(t, bob.state.SetRanking(domain.UserMarianne, []int{3}))
	require.True(t, bob.Flush(ctx))

	require.True(t, alice.Pull(ctx))
	assert.Equal(t, []int{3}, alice.state.Ranking(domain.UserMarianne))
	assert.True(t, alice.state.IsDone(3))
}

func TestClient_EndToEndEmptyRoom(t *testing.T) {
	ts := newSyncEndpoint(t)

	c := New(logger.Mock(), NewAPI(ts.URL, time.Second), newState(), nil, time.Hour)
	defer c.Close()

	_, pulled, err := c.JoinRoom(context.Background(), "nobody-here")
	require.NoError(t, err)
	assert.True(t, pulled)
	assert.Equal(t, domain.SyncPayload{}.Normalize(), BuildSnapshot(c.state))
}

func TestAPI_Unreachable(t *testing.T) {
	api := NewAPI("http://127.0.0.1:1", 200*time.Millisecond)

	_, err := api.Fetch(context.Background(), "abc")
	assert.ErrorIs(t, err, domain.ErrTransportFailure)

	_, err = api.Persist(context.Background(), "abc", domain.SyncPayload{})
	assert.ErrorIs(t, err, domain.ErrTransportFailure)
}
