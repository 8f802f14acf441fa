package employee

import (
	"context"
	"fmt"

	"staff_server/core/domain"
	"staff_server/pkg/logger"
)

// =============================================================================
// Maintenance tasks
// =============================================================================

// Import stores seed records. Records carrying an employee id keep it; the
// rest are allocated one in order.
func (s *Service) Import(ctx context.Context, employees []*domain.Employee) (int, error) {
	imported := 0
	for i, e := range employees {
		now := s.now().UTC()
		e.Normalize(now)
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		if e.UpdatedAt.IsZero() {
			e.UpdatedAt = e.CreatedAt
		}

		if errs := e.Validate(); len(errs) > 0 {
			return imported, fmt.Errorf("import employee %d (%s): %w", i, e.Email, errs)
		}

		var err error
		if e.EmployeeID != "" {
			e.EmployeeSeq, _ = domain.ParseEmployeeID(e.EmployeeID)
			err = s.repo.Insert(ctx, e)
		} else {
			_, err = s.allocator.Assign(ctx, func(ctx context.Context, code string, seq int64) error {
				e.EmployeeID, e.EmployeeSeq = code, seq
				return s.repo.Insert(ctx, e)
			})
		}
		if err != nil {
			return imported, fmt.Errorf("import employee %d (%s): %w", i, e.Email, s.storeError("import employee", err))
		}
		imported++
	}

	s.dropStats(ctx)
	return imported, nil
}

// BackfillEmployeeIDs assigns identifiers to records stored without one,
// oldest first.
func (s *Service) BackfillEmployeeIDs(ctx context.Context) (int, error) {
	pending, err := s.repo.FindWithoutEmployeeID(ctx)
	if err != nil {
		return 0, fmt.Errorf("find employees without id: %w", err)
	}
	if len(pending) == 0 {
		logger.Info("[Backfill] all employees already have an id")
		return 0, nil
	}

	updated := 0
	for _, e := range pending {
		code, err := s.allocator.Assign(ctx, func(ctx context.Context, code string, seq int64) error {
			return s.repo.AssignEmployeeID(ctx, e.ID, code, seq)
		})
		if err != nil {
			return updated, fmt.Errorf("assign id to employee %s: %w", e.ID, err)
		}
		logger.Info("[Backfill] employee %s (%s) -> %s", e.ID, e.DisplayName(), code)
		updated++
	}

	s.dropStats(ctx)
	return updated, nil
}

// DeleteAll removes every employee record.
func (s *Service) DeleteAll(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete employees: %w", err)
	}
	s.dropStats(ctx)
	return n, nil
}

func (s *Service) dropStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateStats(ctx); err != nil {
		logger.WithError(err).Warn("[EmployeeService] stats invalidation failed")
	}
}
