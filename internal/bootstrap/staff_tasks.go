package bootstrap

import (
	"context"
	"fmt"
	"time"

	"staff_server/config"
	"staff_server/infra/middleware"
	"staff_server/pkg/logger"
)

// Task is a one-shot command run against the stores.
type Task func(ctx context.Context, deps *Dependencies) error

// RunTask builds the dependencies, runs task and releases them.
func RunTask(cfg *config.Config, name string, task Task) error {
	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	start := time.Now()
	if err := task(context.Background(), deps); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	logger.WithDuration(time.Since(start)).Info("[Task] %s finished", name)
	return nil
}

// SeedImport loads the seed files into the stores.
func SeedImport(ctx context.Context, deps *Dependencies) error {
	return deps.Seeder.Import(ctx)
}

// SeedDestroy removes every user and employee.
func SeedDestroy(ctx context.Context, deps *Dependencies) error {
	return deps.Seeder.Destroy(ctx)
}

// FixEmployeeIDs assigns identifiers to stored records without one.
func FixEmployeeIDs(ctx context.Context, deps *Dependencies) error {
	n, err := deps.EmployeeService.BackfillEmployeeIDs(ctx)
	if err != nil {
		return err
	}
	logger.Info("[Task] assigned employee ids to %d records", n)
	return nil
}

// IssueToken returns a task that prints a bearer token for the user with email.
func IssueToken(email string) Task {
	return func(ctx context.Context, deps *Dependencies) error {
		if email == "" {
			return fmt.Errorf("-email is required")
		}
		user, err := deps.UserRepo.FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		if user == nil {
			return fmt.Errorf("no user with email %s", email)
		}
		token, err := middleware.IssueToken(deps.Config.JWTSecret, user, deps.Config.JWTExpiry())
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	}
}
