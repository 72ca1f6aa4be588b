package port

import (
	"context"
	"time"

	"github.com/institute-atri/blog-backend-sub000/internal/core/domain"
)

// UserRepository exposes persistence behavior for the auth projection of
// blog accounts. Counter updates are atomic read-modify-writes so that
// concurrent failures against the same account are never undercounted.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	IncrementFailedAttempts(ctx context.Context, email string) (int, error)
	ResetFailedAttempts(ctx context.Context, email string) error
	Lock(ctx context.Context, email string, until time.Time) error
	Reactivate(ctx context.Context, email string) error
}
