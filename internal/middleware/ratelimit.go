package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/xelth-com/agrocampo/internal/apierror"
)

// Limiter counts hits per key inside a fixed window
type Limiter interface {
	// Allow registers a hit and reports whether it is within the limit,
	// together with the time left in the current window
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

type windowEntry struct {
	count     int
	windowEnd time.Time
}

// MemoryLimiter keeps counters in process. Used when no Redis is configured
type MemoryLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*windowEntry
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{limit: limit, window: window, now: time.Now, entries: map[string]*windowEntry{}}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if len(m.entries) > 10000 {
		for k, e := range m.entries {
			if now.After(e.windowEnd) {
				delete(m.entries, k)
			}
		}
	}

	entry, ok := m.entries[key]
	if !ok || now.After(entry.windowEnd) {
		entry = &windowEntry{windowEnd: now.Add(m.window)}
		m.entries[key] = entry
	}
	entry.count++
	return entry.count <= m.limit, entry.windowEnd.Sub(now), nil
}

// RedisLimiter shares counters between instances through Redis
type RedisLimiter struct {
	rdb    *redis.Client
	prefix string
	limit  int
	window time.Duration
}

func NewRedisLimiter(rdb *redis.Client, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, prefix: prefix, limit: limit, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	k := l.prefix + key
	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, l.window)
	ttl := pipe.TTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, 0, fmt.Errorf("rate limit %s: %w", k, err)
	}
	return incr.Val() <= int64(l.limit), ttl.Val(), nil
}

// RateLimit rejects clients over the limiter's budget with 429. Limiter
// failures let the request through
func RateLimit(l Limiter, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, retry, err := l.Allow(r.Context(), ClientIP(r))
			if err != nil {
				log.Warn().Err(err).Msg("rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				if retry > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(retry.Round(time.Second).Seconds())))
				}
				writeError(w, &apierror.Error{Kind: apierror.KindTooManyRequests, Message: message})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
