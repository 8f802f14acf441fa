// Package cache implements the cache ports on Redis.
package cache

import (
	"context"
	"fmt"
	"time"

	"staff_server/core/domain"
	"staff_server/core/port/out"
	"staff_server/pkg/cache"
)

const (
	statsKey           = "employees:stats"
	statsGenerationKey = "employees:stats:gen"
)

// StatsCache implements out.StatsCache. Entries are keyed by generation and
// expire on their TTL; the generation counter itself never expires.
type StatsCache struct {
	store *cache.RedisCache
	ttl   time.Duration
}

var _ out.StatsCache = (*StatsCache)(nil)

func NewStatsCache(store *cache.RedisCache, ttl time.Duration) *StatsCache {
	return &StatsCache{store: store, ttl: ttl}
}

func statsKeyFor(gen int64) string {
	return fmt.Sprintf("%s:%d", statsKey, gen)
}

func (c *StatsCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.store.GetInt(ctx, statsGenerationKey)
	if err != nil {
		return 0, fmt.Errorf("get stats generation: %w", err)
	}
	return gen, nil
}

func (c *StatsCache) GetStats(ctx context.Context, gen int64) (*domain.EmployeeStats, bool, error) {
	var stats domain.EmployeeStats
	ok, err := c.store.GetJSON(ctx, statsKeyFor(gen), &stats)
	if err != nil {
		return nil, false, fmt.Errorf("get cached stats: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return &stats, true, nil
}

func (c *StatsCache) SetStats(ctx context.Context, gen int64, stats *domain.EmployeeStats) error {
	if err := c.store.SetJSON(ctx, statsKeyFor(gen), stats, c.ttl); err != nil {
		return fmt.Errorf("cache stats: %w", err)
	}
	return nil
}

func (c *StatsCache) InvalidateStats(ctx context.Context) error {
	gen, err := c.store.Incr(ctx, statsGenerationKey)
	if err != nil {
		return fmt.Errorf("invalidate stats: %w", err)
	}
	if err := c.store.Delete(ctx, statsKeyFor(gen-1)); err != nil {
		return fmt.Errorf("drop stale stats: %w", err)
	}
	return nil
}
