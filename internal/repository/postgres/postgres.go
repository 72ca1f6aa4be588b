package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgExecutor is the subset of pgxpool.Pool the repositories need. pgxmock
// pools satisfy it too.
type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories groups the concrete PostgreSQL repository implementations.
type Repositories struct {
	Users      *UserRepository
	Tokens     *TokenRepository
	BlockedIPs *BlockedIPRepository
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Users:      NewUserRepository(pool),
		Tokens:     NewTokenRepository(pool),
		BlockedIPs: NewBlockedIPRepository(pool),
	}
}
