package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/flurbudurbur/degustation/internal/config"
	"github.com/flurbudurbur/degustation/internal/domain"
	"github.com/flurbudurbur/degustation/internal/logger"

	"github.com/stretchr/testify/assert"
)

func newRateLimitedServer(cfg domain.RateLimitConfig) *Server {
	appCfg := &config.AppConfig{Config: &domain.Config{RateLimit: cfg}}
	return &Server{
		log:     logger.Mock().With().Logger(),
		config:  appCfg,
		encoder: encoder{},
		limiter: newIPRateLimiter(cfg.RequestsPerSecond, cfg.Burst),
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestFrom(ip string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/sync?room=abc", nil)
	req.RemoteAddr = ip + ":54321"
	return req
}

func TestRateLimiter(t *testing.T) {
	t.Run("blocks after burst", func(t *testing.T) {
		s := newRateLimitedServer(domain.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 2})
		h := s.RateLimiter(okHandler())

		for i := 0; i < 2; i++ {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, requestFrom("203.0.113.7"))
			assert.Equal(t, http.StatusOK, rr.Code)
		}

		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, requestFrom("203.0.113.7"))
		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
		assert.NotEmpty(t, rr.Header().Get("Retry-After"))
		assert.JSONEq(t, `{"error":"Too many requests"}`, rr.Body.String())

		// other clients have their own bucket
		rr = httptest.NewRecorder()
		h.ServeHTTP(rr, requestFrom("203.0.113.8"))
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("exempt ip", func(t *testing.T) {
		s := newRateLimitedServer(domain.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 1, ExemptInternalIPs: "10.0.0.1, 127.0.0.1"})
		h := s.RateLimiter(okHandler())

		for i := 0; i < 5; i++ {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, requestFrom("127.0.0.1"))
			assert.Equal(t, http.StatusOK, rr.Code)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		s := newRateLimitedServer(domain.RateLimitConfig{Enabled: false, RequestsPerSecond: 0.001, Burst: 1})
		h := s.RateLimiter(okHandler())

		for i := 0; i < 5; i++ {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, requestFrom("203.0.113.7"))
			assert.Equal(t, http.StatusOK, rr.Code)
		}
	})
}

func TestIPRateLimiter_PrunesIdleVisitors(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rl := newIPRateLimiter(1, 1)
	rl.now = func() time.Time { return now }
	rl.lastPrune = now

	assert.True(t, rl.allow("198.51.100.1"))
	assert.Len(t, rl.visitors, 1)

	now = now.Add(visitorIdleTimeout + time.Minute)
	assert.True(t, rl.allow("198.51.100.2"))
	assert.Len(t, rl.visitors, 1)
	assert.Contains(t, rl.visitors, "198.51.100.2")
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{"forwarded for", map[string]string{"X-Forwarded-For": "198.51.100.4, 10.0.0.1"}, "10.0.0.1:1234", "198.51.100.4"},
		{"real ip", map[string]string{"X-Real-IP": " 198.51.100.5 "}, "10.0.0.1:1234", "198.51.100.5"},
		{"remote addr", nil, "198.51.100.6:1234", "198.51.100.6"},
		{"remote addr without port", nil, "198.51.100.7", "198.51.100.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}

func TestLoggerMiddleware_RecoversPanic(t *testing.T) {
	log := logger.Mock().With().Logger()
	h := LoggerMiddleware(&log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
