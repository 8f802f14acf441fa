// Package ratelimit implements per-key request limiting backed by Redis,
// with an in-process fallback when Redis is not configured.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long the caller should wait before retrying.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.ResetAt.Before(now) {
		return 0
	}
	return d.ResetAt.Sub(now)
}

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) Decision
}

// =============================================================================
// SlidingWindowLimiter - Redis sorted-set sliding window
// =============================================================================

var slidingWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local max_requests = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	local count = redis.call('ZCARD', key)
	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	local reset = now + window_ms
	if #oldest > 0 then
		reset = tonumber(oldest[2]) + window_ms
	end

	if count < max_requests then
		redis.call('ZADD', key, now, now .. '-' .. math.random())
		redis.call('PEXPIRE', key, window_ms * 2)
		return {1, count + 1, reset}
	end
	return {0, count, reset}
`)

// SlidingWindowLimiter implements sliding window rate limiting using Redis.
type SlidingWindowLimiter struct {
	redis    *redis.Client
	limit    int
	window   time.Duration
	prefix   string
	fallback Limiter
}

// NewSlidingWindowLimiter allows limit requests per key in any trailing window.
// When Redis fails the decision is delegated to an in-memory limiter.
func NewSlidingWindowLimiter(client *redis.Client, limit int, window time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		redis:    client,
		limit:    limit,
		window:   window,
		prefix:   "ratelimit:",
		fallback: NewMemoryLimiter(limit, window),
	}
}

// Allow checks if request is allowed.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) Decision {
	if l.redis == nil {
		return l.fallback.Allow(ctx, key)
	}

	now := time.Now()
	res, err := slidingWindowScript.Run(ctx, l.redis, []string{l.prefix + key},
		now.UnixMilli(),
		now.Add(-l.window).UnixMilli(),
		l.limit,
		l.window.Milliseconds(),
	).Int64Slice()
	if err != nil || len(res) != 3 {
		return l.fallback.Allow(ctx, key)
	}

	remaining := l.limit - int(res[1])
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   res[0] == 1,
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   time.UnixMilli(res[2]),
	}
}

// =============================================================================
// MemoryLimiter - fixed window, single process
// =============================================================================

type window struct {
	count     int
	expiresAt time.Time
}

// MemoryLimiter is a fixed-window limiter kept in process memory.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time
}

// NewMemoryLimiter creates an in-memory limiter.
func NewMemoryLimiter(limit int, period time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
	}
}

// Allow checks if request is allowed.
func (l *MemoryLimiter) Allow(_ context.Context, key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.After(w.expiresAt) {
		w = &window{expiresAt: now.Add(l.period)}
		l.windows[key] = w
		l.sweep(now)
	}

	if w.count >= l.limit {
		return Decision{Allowed: false, Limit: l.limit, Remaining: 0, ResetAt: w.expiresAt}
	}

	w.count++
	return Decision{Allowed: true, Limit: l.limit, Remaining: l.limit - w.count, ResetAt: w.expiresAt}
}

// sweep drops expired windows; callers hold mu.
func (l *MemoryLimiter) sweep(now time.Time) {
	if len(l.windows) < 1024 {
		return
	}
	for k, w := range l.windows {
		if now.After(w.expiresAt) {
			delete(l.windows, k)
		}
	}
}

func (d Decision) String() string {
	return fmt.Sprintf("allowed=%t remaining=%d/%d reset=%s", d.Allowed, d.Remaining, d.Limit, d.ResetAt.Format(time.RFC3339))
}
