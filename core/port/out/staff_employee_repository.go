package out

import (
	"context"
	"errors"
	"fmt"

	"staff_server/core/domain"
)

var (
	// ErrDuplicateKey matches any *DuplicateKeyError.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrUnavailable is returned while the store is being shed (breaker open).
	ErrUnavailable = errors.New("store unavailable")
)

// DuplicateKeyError reports a unique constraint violation on Field.
type DuplicateKeyError struct {
	Field string
	Err   error
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key on %s", e.Field)
}

func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicateKey
}

func (e *DuplicateKeyError) Unwrap() error {
	return e.Err
}

// EmployeeRepository persists employee records.
//
// Implementations enforce uniqueness of employeeId and email and report
// violations as *DuplicateKeyError. Lookups of unknown ids return nil, nil.
type EmployeeRepository interface {
	Insert(ctx context.Context, e *domain.Employee) error
	FindByID(ctx context.Context, id string) (*domain.Employee, error)
	// Update writes only the present patch fields and returns the stored
	// record after the write, or nil when id is unknown.
	Update(ctx context.Context, id string, patch *domain.EmployeePatch) (*domain.Employee, error)
	Delete(ctx context.Context, id string) (bool, error)

	// FindMaxEmployeeID returns the highest assigned employee id, or "" when none exists.
	FindMaxEmployeeID(ctx context.Context) (string, error)

	Find(ctx context.Context, q *domain.EmployeeQuery) ([]*domain.Employee, error)
	Count(ctx context.Context, conds []domain.Condition) (int64, error)
	Search(ctx context.Context, q *domain.SearchQuery) ([]*domain.Employee, error)
	CountSearch(ctx context.Context, q *domain.SearchQuery) (int64, error)

	DepartmentStats(ctx context.Context) ([]domain.DepartmentStat, error)
	StatusStats(ctx context.Context) ([]domain.StatusStat, error)

	// Maintenance
	FindWithoutEmployeeID(ctx context.Context) ([]*domain.Employee, error)
	AssignEmployeeID(ctx context.Context, id, employeeID string, seq int64) error
	DeleteAll(ctx context.Context) (int64, error)
}
