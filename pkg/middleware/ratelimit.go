package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/makersite/makersite/pkg/config"
	"github.com/makersite/makersite/pkg/contextkeys"
	"github.com/makersite/makersite/pkg/httputil"
	"github.com/makersite/makersite/pkg/observability"
)

// limitClass is a named request category with its own per-minute budget
type limitClass string

const (
	classAuth    limitClass = "auth"
	classAdmin   limitClass = "admin"
	classDefault limitClass = "default"
)

// classify buckets a request path into its limit class
func classify(path string) limitClass {
	switch {
	case strings.HasPrefix(path, "/api/v1/admin"):
		return classAdmin
	case strings.HasPrefix(path, "/api/v1/tokens"):
		return classAuth
	default:
		return classDefault
	}
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies per-key token bucket limits. Keys combine the
// limit class with the authenticated user id, falling back to client IP
// for anonymous requests.
type RateLimiter struct {
	cfg     config.RateLimitConfig
	metrics *observability.Metrics

	mu      sync.Mutex
	entries map[string]*limiterEntry
}

// NewRateLimiter creates an in-process rate limiter
func NewRateLimiter(cfg config.RateLimitConfig, metrics *observability.Metrics) *RateLimiter {
	return &RateLimiter{
		cfg:     cfg,
		metrics: metrics,
		entries: make(map[string]*limiterEntry),
	}
}

func (rl *RateLimiter) perMinute(class limitClass) int {
	switch class {
	case classAuth:
		return rl.cfg.Auth
	case classAdmin:
		return rl.cfg.Admin
	default:
		return rl.cfg.Default
	}
}

func (rl *RateLimiter) limiterFor(key string, perMinute int) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	e, ok := rl.entries[key]
	if !ok {
		e = &limiterEntry{
			limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
		}
		rl.entries[key] = e
	}
	e.lastSeen = time.Now()
	return e.limiter
}

// Cleanup drops buckets idle for longer than the given age
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	for key, e := range rl.entries {
		if e.lastSeen.Before(cutoff) {
			delete(rl.entries, key)
		}
	}
}

// Handler enforces the limit for the request's class and key
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		class := classify(r.URL.Path)
		perMinute := rl.perMinute(class)
		if perMinute <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		key := string(class) + ":" + clientKey(r)
		limiter := rl.limiterFor(key, perMinute)

		if !limiter.Allow() {
			if rl.metrics != nil {
				rl.metrics.RateLimited.Inc()
			}
			w.Header().Set("Retry-After", "60")
			setRateHeaders(w, perMinute, 0)
			httputil.WriteRateLimited(w)
			return
		}

		remaining := int(limiter.Tokens())
		if remaining < 0 {
			remaining = 0
		}
		setRateHeaders(w, perMinute, remaining)
		next.ServeHTTP(w, r)
	})
}

func setRateHeaders(w http.ResponseWriter, limit, remaining int) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Minute).Unix(), 10))
}

// clientKey identifies the caller: user id when authenticated, client
// IP otherwise.
func clientKey(r *http.Request) string {
	if actor, ok := contextkeys.ActorFrom(r.Context()); ok {
		return fmt.Sprintf("user:%d", actor.ID)
	}
	return "ip:" + clientIP(r)
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if i := strings.IndexByte(forwarded, ','); i >= 0 {
			return strings.TrimSpace(forwarded[:i])
		}
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}
