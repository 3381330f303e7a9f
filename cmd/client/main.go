package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/flurbudurbur/degustation/internal/catalog"
	"github.com/flurbudurbur/degustation/internal/client"
	"github.com/flurbudurbur/degustation/internal/config"
	"github.com/flurbudurbur/degustation/internal/database"
	"github.com/flurbudurbur/degustation/internal/domain"
	"github.com/flurbudurbur/degustation/internal/events"
	"github.com/flurbudurbur/degustation/internal/logger"
	"github.com/flurbudurbur/degustation/internal/scheduler"
	"github.com/flurbudurbur/degustation/internal/tracker"

	"github.com/asaskevich/EventBus"
	"github.com/spf13/pflag"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

const usage = `usage: degustation-client [flags] <command> [args]

commands:
  room create               create a room and push local state to it
  room join <code>          join a room and pull its state
  room show                 print the current room
  room leave                stop syncing
  pull                      replace local state with the room state
  push                      push local state to the room
  watch                     poll the room until interrupted (SIGUSR1 pauses)
  done <id>                 toggle the visited mark of a restaurant
  rank <user> <id>...       set the ranking of moi or marianne
  validate <user> [on|off]  mark a ranking as validated
  note <id> <user> <1-5|-> [comment]
                            set a note, "-" for no rating
  list [user]               list restaurants, ranked first

flags:
`

type app struct {
	cfg     config.ClientConfig
	log     logger.Logger
	out     io.Writer
	state   *tracker.State
	client  *client.Client
	catalog *catalog.Catalog

	// set while watch runs; pulled state is then re-printed
	watching atomic.Bool
}

func main() {
	var showVersion bool
	pflag.BoolVarP(&showVersion, "version", "v", false, "print version and exit")
	pflag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if showVersion {
		fmt.Printf("degustation-client %s (%s, %s)\n", version, commit, date)
		return
	}

	args := pflag.Args()
	if len(args) == 0 {
		pflag.Usage()
		os.Exit(2)
	}

	cfg, err := config.NewClientConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.New(&domain.Config{
		Version: version,
		Logging: domain.LoggingConfig{Level: cfg.LogLevel},
	})

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatal().Err(err).Msg("could not create data directory")
	}

	db := database.NewLocalDB(cfg.LocalDatabasePath(), log)
	if err := db.Open(); err != nil {
		log.Fatal().Err(err).Msg("could not open local storage")
	}
	defer db.Close()

	state := tracker.New(log, database.NewLocalStorageRepo(log, db))

	bus := EventBus.New()

	a := &app{
		cfg:    cfg,
		log:    log,
		out:    os.Stdout,
		state:  state,
		client: client.New(log, client.NewAPI(cfg.ServerURL, cfg.RequestTimeout), state, bus, cfg.PushDebounce),
	}
	defer a.client.Close()

	events.NewSubscribers(log, bus, a.reload)

	if cfg.CatalogPath != "" {
		a.catalog, err = catalog.Load(cfg.CatalogPath)
		if err != nil {
			log.Fatal().Err(err).Msg("could not load catalog")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := a.run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		a.client.Close()
		db.Close()
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, args []string) error {
	switch cmd, rest := args[0], args[1:]; cmd {
	case "room":
		return a.room(ctx, rest)
	case "pull":
		return a.pull(ctx)
	case "push":
		return a.push(ctx)
	case "watch":
		return a.watch(ctx)
	case "done":
		return a.done(ctx, rest)
	case "rank":
		return a.rank(ctx, rest)
	case "validate":
		return a.validate(ctx, rest)
	case "note":
		return a.note(ctx, rest)
	case "list":
		return a.list(rest)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// watch polls the room on the configured interval. SIGUSR1 toggles
// visibility, pausing and resuming polls.
func (a *app) watch(ctx context.Context) error {
	room, ok := a.client.Room()
	if !ok {
		return domain.ErrNotSynced
	}

	visibility := client.NewVisibility(true)
	job := &client.PollJob{
		Name:       "poll",
		Log:        a.log.With().Str("job", "poll").Logger(),
		Client:     a.client,
		Visibility: visibility,
		Timeout:    a.cfg.RequestTimeout,
	}

	sched := scheduler.NewService(a.log)
	if _, err := sched.AddJob(job, a.cfg.PollInterval, "poll"); err != nil {
		return err
	}

	a.watching.Store(true)
	defer a.watching.Store(false)

	// pull once on start, like a page becoming visible
	a.client.Pull(ctx)

	sched.Start()
	defer sched.Stop()

	fmt.Fprintf(a.out, "watching room %s every %s\n", room, a.cfg.PollInterval)

	usr1 := make(chan os.Signal, 1)
	signal.Notify(usr1, syscall.SIGUSR1)
	defer signal.Stop(usr1)

	for {
		select {
		case <-ctx.Done():
			a.client.Flush(context.Background())
			return nil
		case <-usr1:
			if visibility.Toggle() {
				a.log.Info().Msg("visible, resuming polls")
				a.client.Pull(ctx)
			} else {
				a.log.Info().Msg("hidden, pausing polls")
			}
		}
	}
}

// reload re-prints the list after pulled state was applied during watch.
func (a *app) reload(payload domain.SyncPayload) {
	if !a.watching.Load() || a.catalog == nil {
		return
	}

	fmt.Fprintf(a.out, "\nroom updated: %d visited\n", len(payload.DoneIDs))
	if err := a.list(nil); err != nil {
		a.log.Error().Err(err).Msg("could not list restaurants")
	}
}
