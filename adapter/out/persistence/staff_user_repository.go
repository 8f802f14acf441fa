package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"staff_server/core/domain"
	"staff_server/core/port/out"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// UserRepository implements out.UserRepository on PostgreSQL.
type UserRepository struct {
	db *sqlx.DB
}

var _ out.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userSchema = `
	CREATE TABLE IF NOT EXISTS staff_users (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		email      TEXT NOT NULL UNIQUE,
		role       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

// EnsureSchema creates the users table when missing.
func (r *UserRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, userSchema); err != nil {
		return fmt.Errorf("create staff_users: %w", err)
	}
	return nil
}

type userRow struct {
	ID    string `db:"id"`
	Name  string `db:"name"`
	Email string `db:"email"`
	Role  string `db:"role"`
}

func (row *userRow) toDomain() *domain.User {
	return &domain.User{ID: row.ID, Name: row.Name, Email: row.Email, Role: domain.Role(row.Role)}
}

func (r *UserRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	users := make(map[string]*domain.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	query := `SELECT id, name, email, role FROM staff_users WHERE id = ANY($1)`

	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find users by ids: %w", err)
	}
	for i := range rows {
		users[rows[i].ID] = rows[i].toDomain()
	}
	return users, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT id, name, email, role FROM staff_users WHERE email = $1`

	var row userRow
	if err := r.db.GetContext(ctx, &row, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return row.toDomain(), nil
}

// InsertMany inserts all users in one transaction.
func (r *UserRepository) InsertMany(ctx context.Context, users []*domain.User) error {
	if len(users) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO staff_users (id, name, email, role) VALUES ($1, $2, $3, $4)`
	for _, u := range users {
		if _, err := tx.ExecContext(ctx, query, u.ID, u.Name, u.Email, string(u.Role)); err != nil {
			if isUniqueViolation(err) {
				return &out.DuplicateKeyError{Field: "email", Err: err}
			}
			return fmt.Errorf("insert user %s: %w", u.Email, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit users: %w", err)
	}
	return nil
}

func (r *UserRepository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM staff_users`)
	if err != nil {
		return 0, fmt.Errorf("delete users: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// isUniqueViolation recognises unique constraint errors from both the pgx and lib/pq drivers.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
