package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/makersite/makersite/pkg/config"
	"github.com/makersite/makersite/pkg/httputil"
	"github.com/makersite/makersite/pkg/observability"
)

// DistributedRateLimiter shares counters across instances through
// Redis. A fixed one-minute window is counted per key; Redis failures
// fail open so the limiter never takes the API down with it.
type DistributedRateLimiter struct {
	client  *redis.Client
	cfg     config.RateLimitConfig
	metrics *observability.Metrics
	logger  *observability.Logger
	prefix  string
}

// NewDistributedRateLimiter creates a Redis-backed rate limiter
func NewDistributedRateLimiter(client *redis.Client, cfg config.RateLimitConfig, metrics *observability.Metrics, logger *observability.Logger) *DistributedRateLimiter {
	return &DistributedRateLimiter{
		client:  client,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
		prefix:  "ratelimit",
	}
}

func (rl *DistributedRateLimiter) perMinute(class limitClass) int {
	switch class {
	case classAuth:
		return rl.cfg.Auth
	case classAdmin:
		return rl.cfg.Admin
	default:
		return rl.cfg.Default
	}
}

// allow increments the window counter for key and reports the count
func (rl *DistributedRateLimiter) allow(ctx context.Context, key string, limit int) (allowed bool, remaining int, err error) {
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)

	pipe := rl.client.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, 0, fmt.Errorf("redis error: %w", err)
	}

	count := incr.Val()
	remaining = limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return count <= int64(limit), remaining, nil
}

// Handler enforces the limit for the request's class and key
func (rl *DistributedRateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		class := classify(r.URL.Path)
		limit := rl.perMinute(class)
		if limit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		key := string(class) + ":" + clientKey(r)
		allowed, remaining, err := rl.allow(r.Context(), key, limit)
		if err != nil {
			// Fail open: a Redis outage must not reject traffic
			rl.logger.WithError(err).Warn("rate limiter unavailable, allowing request")
			next.ServeHTTP(w, r)
			return
		}

		if !allowed {
			if rl.metrics != nil {
				rl.metrics.RateLimited.Inc()
			}
			retryAfter := rl.retryAfter(r.Context(), key)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			setRateHeaders(w, limit, 0)
			httputil.WriteRateLimited(w)
			return
		}

		setRateHeaders(w, limit, remaining)
		next.ServeHTTP(w, r)
	})
}

func (rl *DistributedRateLimiter) retryAfter(ctx context.Context, key string) int {
	ttl, err := rl.client.TTL(ctx, fmt.Sprintf("%s:%s", rl.prefix, key)).Result()
	if err != nil || ttl <= 0 {
		return 60
	}
	return int(ttl.Seconds())
}

// HealthCheck verifies Redis connectivity
func (rl *DistributedRateLimiter) HealthCheck(ctx context.Context) error {
	return rl.client.Ping(ctx).Err()
}
