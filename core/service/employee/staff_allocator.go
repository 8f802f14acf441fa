// Package employee implements the employee record service.
package employee

import (
	"context"
	"errors"
	"fmt"

	"staff_server/core/domain"
	"staff_server/core/port/out"
	"staff_server/pkg/logger"
)

// DefaultAllocationRetries bounds how often a colliding identifier is re-drawn.
const DefaultAllocationRetries = 5

// ErrAllocationExhausted is returned when every attempt collided with a concurrent writer.
var ErrAllocationExhausted = errors.New("employee id allocation exhausted")

// maxIDReader is the slice of the store the allocator depends on.
type maxIDReader interface {
	FindMaxEmployeeID(ctx context.Context) (string, error)
}

// Allocator hands out EMP#### identifiers one above the current maximum.
//
// Two writers may observe the same maximum; the unique index on employeeId
// rejects the loser, which re-reads the maximum and tries again.
type Allocator struct {
	store    maxIDReader
	attempts int
}

func NewAllocator(store maxIDReader, attempts int) *Allocator {
	if attempts < 1 {
		attempts = DefaultAllocationRetries
	}
	return &Allocator{store: store, attempts: attempts}
}

// Next returns the identifier after the stored maximum, with its numeric suffix.
func (a *Allocator) Next(ctx context.Context) (string, int64, error) {
	max, err := a.store.FindMaxEmployeeID(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("find max employee id: %w", err)
	}

	seq := int64(1)
	if max != "" {
		n, ok := domain.ParseEmployeeID(max)
		if !ok {
			logger.Warn("[Allocator] unparsable max employee id %q, starting from %s", max, domain.FormatEmployeeID(seq))
		} else {
			seq = n + 1
		}
	}
	return domain.FormatEmployeeID(seq), seq, nil
}

// Assign draws an identifier and hands it to write. A write rejected for a
// duplicate employeeId is retried with a fresh identifier; any other error,
// including a duplicate on another field, is returned as is.
func (a *Allocator) Assign(ctx context.Context, write func(ctx context.Context, employeeID string, seq int64) error) (string, error) {
	for attempt := 1; attempt <= a.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		code, seq, err := a.Next(ctx)
		if err != nil {
			return "", err
		}

		err = write(ctx, code, seq)
		if err == nil {
			return code, nil
		}
		if !isEmployeeIDCollision(err) {
			return "", err
		}
		logger.Debug("[Allocator] %s taken, retrying (attempt %d/%d)", code, attempt, a.attempts)
	}
	return "", ErrAllocationExhausted
}

func isEmployeeIDCollision(err error) bool {
	var dup *out.DuplicateKeyError
	return errors.As(err, &dup) && dup.Field == "employeeId"
}
