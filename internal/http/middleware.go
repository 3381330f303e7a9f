package http

import (
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const visitorIdleTimeout = 10 * time.Minute

// LoggerMiddleware provides structured logging for HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				reqID := middleware.GetReqID(r.Context())

				if rec := recover(); rec != nil {
					logger.Error().
						Str("type", "error").
						Interface("recover_info", rec).
						Bytes("debug_stack", debug.Stack()).
						Str("request_id", reqID).
						Msg("Unhandled panic recovered by middleware")
					http.Error(ww, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}

				logger.Trace().
					Str("request_id", reqID).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("remote_ip", getClientIP(r)).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("elapsed", time.Since(start)).
					Msg("request")
			}()

			next.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipRateLimiter keeps one token bucket per client IP.
type ipRateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	rps       rate.Limit
	burst     int
	lastPrune time.Time
	now       func() time.Time
}

func newIPRateLimiter(rps float64, burst int) *ipRateLimiter {
	if rps <= 0 {
		rps = 5
	}
	if burst <= 0 {
		burst = 20
	}
	return &ipRateLimiter{
		visitors:  make(map[string]*visitor),
		rps:       rate.Limit(rps),
		burst:     burst,
		lastPrune: time.Now(),
		now:       time.Now,
	}
}

func (rl *ipRateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastPrune) > visitorIdleTimeout {
		for key, v := range rl.visitors {
			if now.Sub(v.lastSeen) > visitorIdleTimeout {
				delete(rl.visitors, key)
			}
		}
		rl.lastPrune = now
	}

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now

	return v.limiter.AllowN(now, 1)
}

// RateLimiter limits requests per client IP address with a token bucket.
func (s *Server) RateLimiter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cfg := s.config.Config.RateLimit
		if !cfg.Enabled || s.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		ip := getClientIP(r)
		if isExemptIP(cfg.ExemptInternalIPs, ip) {
			next.ServeHTTP(w, r)
			return
		}

		if !s.limiter.allow(ip) {
			s.log.Warn().
				Str("middleware", "RateLimiter").
				Str("ip_address", ip).
				Float64("requests_per_second", cfg.RequestsPerSecond).
				Int("burst", cfg.Burst).
				Msg("Rate limit exceeded")

			w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfterSeconds(cfg.RequestsPerSecond)))
			s.encoder.StatusError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func retryAfterSeconds(rps float64) int {
	if rps <= 0 || rps >= 1 {
		return 1
	}
	return int(1/rps + 0.5)
}

// getClientIP extracts the client IP address from the request.
// It handles various headers that might contain the real client IP when behind proxies.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if clientIP := strings.TrimSpace(ips[0]); clientIP != "" {
			return clientIP
		}
	}

	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return strings.TrimSpace(xrip)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return ip
}

func isExemptIP(exempt string, ip string) bool {
	for _, exemptIP := range strings.Split(exempt, ",") {
		exemptIP = strings.TrimSpace(exemptIP)
		if exemptIP != "" && exemptIP == ip {
			return true
		}
	}
	return false
}
