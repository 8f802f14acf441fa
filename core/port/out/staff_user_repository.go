package out

import (
	"context"

	"staff_server/core/domain"
)

// UserRepository is the directory of users that act on employee records.
type UserRepository interface {
	// FindByIDs returns the users found, keyed by id. Unknown ids are omitted.
	FindByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	InsertMany(ctx context.Context, users []*domain.User) error
	DeleteAll(ctx context.Context) (int64, error)
}
