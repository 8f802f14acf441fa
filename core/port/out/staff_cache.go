package out

import (
	"context"

	"staff_server/core/domain"
)

// StatsCache holds computed employee statistics per generation. Every write
// to the employee store advances the generation, so a result computed
// before a write can only land under a generation nobody reads any more.
type StatsCache interface {
	Generation(ctx context.Context) (int64, error)
	GetStats(ctx context.Context, gen int64) (*domain.EmployeeStats, bool, error)
	SetStats(ctx context.Context, gen int64, stats *domain.EmployeeStats) error
	// InvalidateStats advances the generation.
	InvalidateStats(ctx context.Context) error
}
