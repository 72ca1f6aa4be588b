package postgres

import (
	"context"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/institute-atri/blog-backend-sub000/internal/core/domain"
	"github.com/institute-atri/blog-backend-sub000/internal/core/port"
	"github.com/institute-atri/blog-backend-sub000/internal/repository"
)

const tokensTable = "blog.tokens"

var tokenColumns = []string{"id", "user_id", "value", "token_type", "expired", "revoked", "created_at"}

// TokenRepository implements port.TokenRepository using PostgreSQL.
type TokenRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewTokenRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewTokenRepository(exec pgExecutor) *TokenRepository {
	return &TokenRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetByValue retrieves a token row by its opaque signed value.
func (r *TokenRepository) GetByValue(ctx context.Context, value string) (*domain.Token, error) {
	stmt, args, err := r.builder.Select(tokenColumns...).
		From(tokensTable).
		Where(squirrel.Eq{"value": value}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select token sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)
	token, err := scanToken(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select token by value: %w", err)
	}

	return token, nil
}

// ListByUser returns every token row ever issued to the user.
func (r *TokenRepository) ListByUser(ctx context.Context, userID string) ([]domain.Token, error) {
	return r.list(ctx, squirrel.Eq{"user_id": userID})
}

// ListValidByUser returns the user's live tokens: both terminal flags false.
func (r *TokenRepository) ListValidByUser(ctx context.Context, userID string) ([]domain.Token, error) {
	return r.list(ctx, squirrel.Eq{"user_id": userID, "expired": false, "revoked": false})
}

func (r *TokenRepository) list(ctx context.Context, where squirrel.Eq) ([]domain.Token, error) {
	stmt, args, err := r.builder.Select(tokenColumns...).
		From(tokensTable).
		Where(where).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list tokens sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	var tokens []domain.Token
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token row: %w", err)
		}
		tokens = append(tokens, *token)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token rows: %w", err)
	}

	return tokens, nil
}

// Save upserts a single token row, only ever raising the terminal flags.
func (r *TokenRepository) Save(ctx context.Context, token domain.Token) error {
	stmt, args, err := r.builder.Insert(tokensTable).
		Columns(tokenColumns...).
		Values(token.ID, token.UserID, token.Value, string(token.Type), token.Expired, token.Revoked, token.CreatedAt).
		Suffix("ON CONFLICT (id) DO UPDATE SET expired = blog.tokens.expired OR EXCLUDED.expired, revoked = blog.tokens.revoked OR EXCLUDED.revoked").
		ToSql()
	if err != nil {
		return fmt.Errorf("build save token sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("save token: %w", err)
	}

	return nil
}

// SaveAll persists the supplied token rows.
func (r *TokenRepository) SaveAll(ctx context.Context, tokens []domain.Token) error {
	for _, token := range tokens {
		if err := r.Save(ctx, token); err != nil {
			return err
		}
	}
	return nil
}

// DeleteAll removes the supplied token rows.
func (r *TokenRepository) DeleteAll(ctx context.Context, tokens []domain.Token) error {
	if len(tokens) == 0 {
		return nil
	}

	ids := make([]string, 0, len(tokens))
	for _, token := range tokens {
		ids = append(ids, token.ID)
	}

	stmt, args, err := r.builder.Delete(tokensTable).
		Where(squirrel.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete tokens sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("delete tokens: %w", err)
	}

	return nil
}

// ReplaceUserTokens clears every prior row for the user, then inserts the
// fresh access and refresh rows. The delete and inserts are separate
// statements on purpose: a crash in between leaves the user token-less until
// the next login, never with a stale live pair.
func (r *TokenRepository) ReplaceUserTokens(ctx context.Context, userID string, access, refresh domain.Token) error {
	stmt, args, err := r.builder.Delete(tokensTable).
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build clear user tokens sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("clear user tokens: %w", err)
	}

	insert := r.builder.Insert(tokensTable).Columns(tokenColumns...)
	for _, token := range []domain.Token{access, refresh} {
		insert = insert.Values(token.ID, token.UserID, token.Value, string(token.Type), token.Expired, token.Revoked, token.CreatedAt)
	}

	stmt, args, err = insert.ToSql()
	if err != nil {
		return fmt.Errorf("build insert user tokens sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert user tokens: %w", err)
	}

	return nil
}

// RevokeAllForUser raises both terminal flags on every live row for the
// user. Rows already revoked are left untouched, so the operation is
// idempotent. Returns the number of rows revoked.
func (r *TokenRepository) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	stmt, args, err := r.builder.Update(tokensTable).
		Set("expired", true).
		Set("revoked", true).
		Where(squirrel.Eq{"user_id": userID, "expired": false, "revoked": false}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build revoke user tokens sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("revoke user tokens: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

func scanToken(row pgx.Row) (*domain.Token, error) {
	var (
		token     domain.Token
		tokenType string
	)

	if err := row.Scan(
		&token.ID,
		&token.UserID,
		&token.Value,
		&tokenType,
		&token.Expired,
		&token.Revoked,
		&token.CreatedAt,
	); err != nil {
		return nil, err
	}

	token.Type = domain.TokenType(tokenType)
	return &token, nil
}

var _ port.TokenRepository = (*TokenRepository)(nil)
