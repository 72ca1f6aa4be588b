package port

import (
	"context"

	"github.com/institute-atri/blog-backend-sub000/internal/core/domain"
)

// IdentityProvider performs primary credential matching. The lockout layer
// wraps it and interprets its result; a provider reports only whether the
// presented credentials match an account, never lock state.
type IdentityProvider interface {
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
}
