package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/institute-atri/blog-backend-sub000/internal/core/domain"
	"github.com/institute-atri/blog-backend-sub000/internal/core/port"
	"github.com/institute-atri/blog-backend-sub000/internal/repository"
)

const usersTable = "blog.users"

// UserRepository implements port.UserRepository using PostgreSQL. Counter
// mutations happen inside single UPDATE statements so concurrent failed
// attempts against the same account are counted exactly.
type UserRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewUserRepository(exec pgExecutor) *UserRepository {
	return &UserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new user row.
func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	stmt, args, err := r.builder.Insert(usersTable).
		Columns(
			"id",
			"email",
			"display_name",
			"password_hash",
			"role",
			"failed_login_attempts",
			"active",
			"lock_expires_at",
			"created_at",
		).
		Values(
			user.ID,
			user.Email,
			user.DisplayName,
			user.PasswordHash,
			string(user.Role),
			user.FailedLoginAttempts,
			user.Active,
			user.LockExpiresAt,
			user.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByEmail retrieves a user row by its unique email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	stmt, args, err := r.builder.Select(
		"id",
		"email",
		"display_name",
		"password_hash",
		"role",
		"failed_login_attempts",
		"active",
		"lock_expires_at",
		"created_at",
	).
		From(usersTable).
		Where(squirrel.Eq{"email": email}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var (
		user          domain.User
		role          string
		lockExpiresAt sql.NullTime
	)

	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.PasswordHash,
		&role,
		&user.FailedLoginAttempts,
		&user.Active,
		&lockExpiresAt,
		&user.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select user by email: %w", err)
	}

	user.Role = domain.UserRole(role)
	if lockExpiresAt.Valid {
		t := lockExpiresAt.Time
		user.LockExpiresAt = &t
	}

	return &user, nil
}

// IncrementFailedAttempts bumps the consecutive-failure counter atomically
// and returns the value after the increment.
func (r *UserRepository) IncrementFailedAttempts(ctx context.Context, email string) (int, error) {
	stmt, args, err := r.builder.Update(usersTable).
		Set("failed_login_attempts", squirrel.Expr("failed_login_attempts + 1")).
		Where(squirrel.Eq{"email": email}).
		Suffix("RETURNING failed_login_attempts").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build increment attempts sql: %w", err)
	}

	var attempts int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&attempts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, repository.ErrNotFound
		}
		return 0, fmt.Errorf("increment failed attempts: %w", err)
	}

	return attempts, nil
}

// ResetFailedAttempts zeroes the consecutive-failure counter.
func (r *UserRepository) ResetFailedAttempts(ctx context.Context, email string) error {
	stmt, args, err := r.builder.Update(usersTable).
		Set("failed_login_attempts", 0).
		Where(squirrel.Eq{"email": email}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build reset attempts sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("reset failed attempts: %w", err)
	}

	return nil
}

// Lock suspends the account until the supplied expiry.
func (r *UserRepository) Lock(ctx context.Context, email string, until time.Time) error {
	stmt, args, err := r.builder.Update(usersTable).
		Set("active", false).
		Set("lock_expires_at", until).
		Where(squirrel.Eq{"email": email}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build lock user sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("lock user: %w", err)
	}

	return nil
}

// Reactivate flips the stored active flag back on after a lapsed lock.
// There is no background sweep; this runs lazily from the read path.
func (r *UserRepository) Reactivate(ctx context.Context, email string) error {
	stmt, args, err := r.builder.Update(usersTable).
		Set("active", true).
		Where(squirrel.Eq{"email": email}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build reactivate user sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("reactivate user: %w", err)
	}

	return nil
}

var _ port.UserRepository = (*UserRepository)(nil)
