// Package resilient decorates store adapters with a circuit breaker.
package resilient

import (
	"context"
	"errors"
	"fmt"

	"staff_server/core/domain"
	"staff_server/core/port/out"
	"staff_server/pkg/resilience"
)

// EmployeeRepository sheds load from a failing employee store. Duplicate key
// errors are caller mistakes and never count towards tripping.
type EmployeeRepository struct {
	next    out.EmployeeRepository
	breaker *resilience.Breaker
}

var _ out.EmployeeRepository = (*EmployeeRepository)(nil)

func NewEmployeeRepository(next out.EmployeeRepository, cfg resilience.BreakerConfig) *EmployeeRepository {
	cfg.IsSuccessful = isSuccessful
	return &EmployeeRepository{next: next, breaker: resilience.NewBreaker(cfg)}
}

// State reports the breaker state for health checks.
func (r *EmployeeRepository) State() string {
	return r.breaker.State()
}

func isSuccessful(err error) bool {
	return err == nil ||
		errors.Is(err, out.ErrDuplicateKey) ||
		errors.Is(err, context.Canceled)
}

func call[T any](r *EmployeeRepository, fn func() (T, error)) (T, error) {
	v, err := resilience.Execute(r.breaker, fn)
	if errors.Is(err, resilience.ErrOpen) {
		return v, fmt.Errorf("%w: %w", out.ErrUnavailable, err)
	}
	return v, err
}

func exec(r *EmployeeRepository, fn func() error) error {
	_, err := call(r, func() (struct{}, error) { return struct{}{}, fn() })
	return err
}

func (r *EmployeeRepository) Insert(ctx context.Context, e *domain.Employee) error {
	return exec(r, func() error { return r.next.Insert(ctx, e) })
}

func (r *EmployeeRepository) FindByID(ctx context.Context, id string) (*domain.Employee, error) {
	return call(r, func() (*domain.Employee, error) { return r.next.FindByID(ctx, id) })
}

func (r *EmployeeRepository) Update(ctx context.Context, id string, patch *domain.EmployeePatch) (*domain.Employee, error) {
	return call(r, func() (*domain.Employee, error) { return r.next.Update(ctx, id, patch) })
}

func (r *EmployeeRepository) Delete(ctx context.Context, id string) (bool, error) {
	return call(r, func() (bool, error) { return r.next.Delete(ctx, id) })
}

func (r *EmployeeRepository) FindMaxEmployeeID(ctx context.Context) (string, error) {
	return call(r, func() (string, error) { return r.next.FindMaxEmployeeID(ctx) })
}

func (r *EmployeeRepository) Find(ctx context.Context, q *domain.EmployeeQuery) ([]*domain.Employee, error) {
	return call(r, func() ([]*domain.Employee, error) { return r.next.Find(ctx, q) })
}

func (r *EmployeeRepository) Count(ctx context.Context, conds []domain.Condition) (int64, error) {
	return call(r, func() (int64, error) { return r.next.Count(ctx, conds) })
}

func (r *EmployeeRepository) Search(ctx context.Context, q *domain.SearchQuery) ([]*domain.Employee, error) {
	return call(r, func() ([]*domain.Employee, error) { return r.next.Search(ctx, q) })
}

func (r *EmployeeRepository) CountSearch(ctx context.Context, q *domain.SearchQuery) (int64, error) {
	return call(r, func() (int64, error) { return r.next.CountSearch(ctx, q) })
}

func (r *EmployeeRepository) DepartmentStats(ctx context.Context) ([]domain.DepartmentStat, error) {
	return call(r, func() ([]domain.DepartmentStat, error) { return r.next.DepartmentStats(ctx) })
}

func (r *EmployeeRepository) StatusStats(ctx context.Context) ([]domain.StatusStat, error) {
	return call(r, func() ([]domain.StatusStat, error) { return r.next.StatusStats(ctx) })
}

// Maintenance calls bypass the breaker; they run from the command line.

func (r *EmployeeRepository) FindWithoutEmployeeID(ctx context.Context) ([]*domain.Employee, error) {
	return r.next.FindWithoutEmployeeID(ctx)
}

func (r *EmployeeRepository) AssignEmployeeID(ctx context.Context, id, employeeID string, seq int64) error {
	return r.next.AssignEmployeeID(ctx, id, employeeID, seq)
}

func (r *EmployeeRepository) DeleteAll(ctx context.Context) (int64, error) {
	return r.next.DeleteAll(ctx)
}
