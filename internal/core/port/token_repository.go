package port

import (
	"context"

	"github.com/institute-atri/blog-backend-sub000/internal/core/domain"
)

// TokenRepository persists issued tokens and their terminal flags.
type TokenRepository interface {
	GetByValue(ctx context.Context, value string) (*domain.Token, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Token, error)
	ListValidByUser(ctx context.Context, userID string) ([]domain.Token, error)
	Save(ctx context.Context, token domain.Token) error
	SaveAll(ctx context.Context, tokens []domain.Token) error
	DeleteAll(ctx context.Context, tokens []domain.Token) error
	// ReplaceUserTokens deletes every prior row for the user and inserts the
	// fresh access and refresh rows. The two steps are sequential, not
	// transactional; a crash in between leaves the user with no live tokens,
	// which self-heals on the next login.
	ReplaceUserTokens(ctx context.Context, userID string, access, refresh domain.Token) error
	// RevokeAllForUser flips both terminal flags on every live row for the
	// user. Rows already revoked are untouched.
	RevokeAllForUser(ctx context.Context, userID string) (int, error)
}
