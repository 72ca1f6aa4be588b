package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/institute-atri/blog-backend-sub000/internal/core/domain"
	"github.com/institute-atri/blog-backend-sub000/internal/core/port"
	"github.com/institute-atri/blog-backend-sub000/internal/repository"
)

const blockedIPsTable = "blog.blocked_ips"

// BlockedIPRepository implements port.BlockedIPRepository using PostgreSQL.
// The address is the primary key, so there is exactly one record per IP and
// the increment is a single atomic upsert.
type BlockedIPRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewBlockedIPRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewBlockedIPRepository(exec pgExecutor) *BlockedIPRepository {
	return &BlockedIPRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Get retrieves the failure record for the supplied address.
func (r *BlockedIPRepository) Get(ctx context.Context, ip string) (*domain.BlockedIP, error) {
	stmt, args, err := r.builder.Select("ip", "failed_attempts", "user_agent", "last_failed_at").
		From(blockedIPsTable).
		Where(squirrel.Eq{"ip": ip}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select blocked ip sql: %w", err)
	}

	var record domain.BlockedIP
	row := r.exec.QueryRow(ctx, stmt, args...)
	if err := row.Scan(&record.IP, &record.FailedAttempts, &record.UserAgent, &record.LastFailedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select blocked ip: %w", err)
	}

	return &record, nil
}

// RecordFailure upserts the record for ip: the first failure creates it with
// a count of one, later failures increment the counter and refresh user
// agent and timestamp. Returns the counter after the increment.
func (r *BlockedIPRepository) RecordFailure(ctx context.Context, ip, userAgent string, at time.Time) (int, error) {
	stmt, args, err := r.builder.Insert(blockedIPsTable).
		Columns("ip", "failed_attempts", "user_agent", "last_failed_at").
		Values(ip, 1, userAgent, at).
		Suffix("ON CONFLICT (ip) DO UPDATE SET failed_attempts = blog.blocked_ips.failed_attempts + 1, user_agent = EXCLUDED.user_agent, last_failed_at = EXCLUDED.last_failed_at RETURNING failed_attempts").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build record failure sql: %w", err)
	}

	var attempts int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&attempts); err != nil {
		return 0, fmt.Errorf("record ip failure: %w", err)
	}

	return attempts, nil
}

var _ port.BlockedIPRepository = (*BlockedIPRepository)(nil)
