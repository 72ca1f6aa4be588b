package port

import (
	"context"

	"github.com/institute-atri/blog-backend-sub000/internal/core/domain"
)

// SecurityEventPublisher publishes authentication and abuse events to the
// message bus for downstream consumers (alerting, audit).
type SecurityEventPublisher interface {
	PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error
	PublishLoginFailed(ctx context.Context, event domain.LoginFailedEvent) error
	PublishAccountLocked(ctx context.Context, event domain.AccountLockedEvent) error
	PublishIPBlocked(ctx context.Context, event domain.IPBlockedEvent) error
	PublishTokensRevoked(ctx context.Context, event domain.TokensRevokedEvent) error
}
