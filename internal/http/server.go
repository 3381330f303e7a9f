package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/flurbudurbur/degustation/internal/config"
	"github.com/flurbudurbur/degustation/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/r3labs/sse/v2"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

type Server struct {
	log     zerolog.Logger
	baseLog logger.Logger
	sse     *sse.Server
	config  *config.AppConfig
	encoder encoder
	limiter *ipRateLimiter

	version string
	commit  string
	date    string

	syncService syncService
	store       StorePinger
	backend     string

	httpServer *http.Server
}

func NewServer(
	log logger.Logger,
	config *config.AppConfig,
	sse *sse.Server,
	version string,
	commit string,
	date string,
	syncService syncService,
	store StorePinger,
	backend string,
) *Server {
	rl := config.Config.RateLimit

	if sse != nil {
		sse.Headers = map[string]string{
			"Content-Type":      "text/event-stream",
			"Cache-Control":     "no-cache",
			"Connection":        "keep-alive",
			"X-Accel-Buffering": "no",
		}
	}

	return &Server{
		log:     log.With().Str("module", "http").Logger(),
		baseLog: log,
		config:  config,
		sse:     sse,
		encoder: encoder{},
		limiter: newIPRateLimiter(rl.RequestsPerSecond, rl.Burst),
		version: version,
		commit:  commit,
		date:    date,

		syncService: syncService,
		store:       store,
		backend:     backend,
	}
}

func (s *Server) Open() error {
	addr := fmt.Sprintf("%v:%v", s.config.Config.Server.Host, s.config.Config.Server.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Info().Msgf("Starting server. Listening on %s", listener.Addr().String())

	return s.httpServer.Serve(listener)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware(&s.log))

	c := cors.New(cors.Options{
		AllowedMethods:     []string{"HEAD", "OPTIONS", "GET", "POST", "PATCH"},
		AllowedHeaders:     []string{"Content-Type", "Content-Encoding"},
		AllowOriginFunc:    func(origin string) bool { return true },
		OptionsPassthrough: false,
		Debug:              false,
	})

	r.Use(c.Handler)

	baseURL := strings.TrimSuffix(s.config.Config.Server.BaseURL, "/")
	if baseURL == "" {
		s.routes(r)
		return r
	}

	r.Route(baseURL, s.routes)

	return r
}

func (s *Server) routes(r chi.Router) {
	syncRoutes := newSyncHandler(s.log, s.encoder, s.syncService)

	r.Group(func(r chi.Router) {
		r.Use(s.RateLimiter)
		r.Route("/sync", syncRoutes.Routes)
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/healthz", newHealthHandler(s.encoder, s.store).Routes)

		r.Group(func(r chi.Router) {
			r.Use(s.RateLimiter)
			r.Route("/sync", syncRoutes.Routes)
			r.Post("/v1/utils/uuid", s.handleGetUUID)
		})

		r.Route("/config", newConfigHandler(s.encoder, s, s.config, s.baseLog).Routes)

		if s.sse != nil {
			r.HandleFunc("/events", s.sse.ServeHTTP)
		}
	})
}
