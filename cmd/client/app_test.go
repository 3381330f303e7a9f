package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/flurbudurbur/degustation/internal/catalog"
	"github.com/flurbudurbur/degustation/internal/client"
	"github.com/flurbudurbur/degustation/internal/config"
	"github.com/flurbudurbur/degustation/internal/domain"
	"github.com/flurbudurbur/degustation/internal/events"
	apihttp "github.com/flurbudurbur/degustation/internal/http"
	"github.com/flurbudurbur/degustation/internal/kvstore"
	"github.com/flurbudurbur/degustation/internal/logger"
	"github.com/flurbudurbur/degustation/internal/sync"
	"github.com/flurbudurbur/degustation/internal/tracker"

	"github.com/asaskevich/EventBus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `{"restaurants":[
	{"id":3,"nom":"Chez Trois","quartier":"Centre"},
	{"id":4,"nom":"Le Quatre","quartier":"Port"},
	{"id":5,"nom":"Cinq Sens","quartier":"Gare"}
]}`

func newSyncEndpoint(t *testing.T) string {
	t.Helper()

	log := logger.Mock()
	store := kvstore.NewMemoryStore()
	cfg := &config.AppConfig{Config: &domain.Config{Version: "dev"}}
	srv := apihttp.NewServer(log, cfg, nil, "dev", "", "", sync.NewService(log, store, time.Second), store, kvstore.BackendMemory)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func newTestApp(t *testing.T, serverURL string) (*app, *bytes.Buffer) {
	t.Helper()

	log := logger.Mock()
	state := tracker.New(log, tracker.NewMemoryStorage())
	bus := EventBus.New()
	out := &bytes.Buffer{}

	cat, err := catalog.Read(strings.NewReader(testCatalog))
	require.NoError(t, err)

	a := &app{
		cfg:     config.ClientConfig{RequestTimeout: time.Second, PollInterval: time.Hour},
		log:     log,
		out:     out,
		state:   state,
		client:  client.New(log, client.NewAPI(serverURL, time.Second), state, bus, time.Hour),
		catalog: cat,
	}
	t.Cleanup(a.client.Close)

	events.NewSubscribers(log, bus, a.reload)

	return a, out
}

func TestApp_MutationsPullBeforePushing(t *testing.T) {
	ctx := context.Background()
	serverURL := newSyncEndpoint(t)
	remote := client.NewAPI(serverURL, time.Second)

	three := 3
	_, err := remote.Persist(ctx, "shared", domain.SyncPayload{
		ClassementMarianne: []int{5, 4},
		ValidatedMarianne:  true,
		Notes:              domain.Notes{"4": {Marianne: &domain.UserNote{Note: &three}}},
	})
	require.NoError(t, err)

	a, out := newTestApp(t, serverURL)
	require.NoError(t, a.state.SetRoom("shared"))

	require.NoError(t, a.run(ctx, []string{"done", "3"}))
	assert.Contains(t, out.String(), "3 visited: true")

	raw, err := remote.Fetch(ctx, "shared")
	require.NoError(t, err)
	got, err := client.DecodeSnapshot(raw)
	require.NoError(t, err)

	assert.Equal(t, []int{3}, got.DoneIDs)
	assert.Equal(t, []int{5, 4}, got.ClassementMarianne, "the other device's ranking survives")
	assert.True(t, got.ValidatedMarianne)
	require.NotNil(t, got.Notes["4"].Marianne)
	assert.Equal(t, 3, *got.Notes["4"].Marianne.Note)
}

func TestApp_NoteAfterRemoteChange(t *testing.T) {
	ctx := context.Background()
	serverURL := newSyncEndpoint(t)
	remote := client.NewAPI(serverURL, time.Second)

	a, _ := newTestApp(t, serverURL)
	require.NoError(t, a.state.SetRoom("shared"))
	require.NoError(t, a.run(ctx, []string{"done", "5"}))

	_, err := remote.Persist(ctx, "shared", domain.SyncPayload{DoneIDs: []int{5, 4}})
	require.NoError(t, err)

	require.NoError(t, a.run(ctx, []string{"note", "4", "moi", "5", "très", "bon"}))

	raw, err := remote.Fetch(ctx, "shared")
	require.NoError(t, err)
	got, err := client.DecodeSnapshot(raw)
	require.NoError(t, err)

	assert.Equal(t, []int{5, 4}, got.DoneIDs)
	require.NotNil(t, got.Notes["4"].Moi)
	assert.Equal(t, 5, *got.Notes["4"].Moi.Note)
	assert.Equal(t, "très bon", *got.Notes["4"].Moi.Comment)
}

func TestApp_MutationWithoutRoomStaysLocal(t *testing.T) {
	a, _ := newTestApp(t, "http://127.0.0.1:1")

	require.NoError(t, a.run(context.Background(), []string{"rank", "moi", "4,3"}))
	assert.Equal(t, []int{4, 3}, a.state.Ranking(domain.UserMoi))
	assert.False(t, a.client.PushPending())
}

func TestApp_ReloadPrintsListWhileWatching(t *testing.T) {
	ctx := context.Background()
	serverURL := newSyncEndpoint(t)
	remote := client.NewAPI(serverURL, time.Second)

	_, err := remote.Persist(ctx, "shared", domain.SyncPayload{DoneIDs: []int{4}})
	require.NoError(t, err)

	a, out := newTestApp(t, serverURL)
	require.NoError(t, a.state.SetRoom("shared"))

	require.True(t, a.client.Pull(ctx))
	assert.Empty(t, out.String(), "one-shot commands do not re-print")

	a.watching.Store(true)
	require.True(t, a.client.Pull(ctx))

	printed := out.String()
	assert.Contains(t, printed, "room updated: 1 visited")
	assert.Contains(t, printed, "[x]    4  Le Quatre (Port)")
	assert.Contains(t, printed, "[ ]    3  Chez Trois (Centre)")
}
