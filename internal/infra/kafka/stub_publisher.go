package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/institute-atri/blog-backend-sub000/internal/core/domain"
	"github.com/institute-atri/blog-backend-sub000/internal/core/port"
	"github.com/institute-atri/blog-backend-sub000/internal/infra/logger"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for
// development environments without a broker.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(log *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: log}
}

func (p *StubPublisher) logEvent(eventType string, at time.Time, fields ...zap.Field) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	fields = append([]zap.Field{
		zap.String("event_type", eventType),
		zap.Time("timestamp", at.UTC()),
	}, fields...)

	p.logger.Info("stub event published", fields...)
}

// PublishUserRegistered logs auth.user.registered events.
func (p *StubPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	p.logEvent("auth.user.registered", event.RegisteredAt,
		zap.String("user_id", event.UserID),
		zap.String("email", logger.MaskEmail(event.Email)),
		zap.String("role", event.Role),
	)
	return nil
}

// PublishLoginFailed logs auth.login.failed events.
func (p *StubPublisher) PublishLoginFailed(_ context.Context, event domain.LoginFailedEvent) error {
	p.logEvent("auth.login.failed", event.At,
		zap.String("email", logger.MaskEmail(event.Email)),
		zap.String("ip", logger.MaskIP(event.IP)),
	)
	return nil
}

// PublishAccountLocked logs auth.account.locked events.
func (p *StubPublisher) PublishAccountLocked(_ context.Context, event domain.AccountLockedEvent) error {
	p.logEvent("auth.account.locked", event.LockedAt,
		zap.String("email", logger.MaskEmail(event.Email)),
		zap.Int("attempts", event.Attempts),
		zap.Time("locked_until", event.LockedUntil),
	)
	return nil
}

// PublishIPBlocked logs auth.ip.blocked events.
func (p *StubPublisher) PublishIPBlocked(_ context.Context, event domain.IPBlockedEvent) error {
	p.logEvent("auth.ip.blocked", event.BlockedAt,
		zap.String("ip", logger.MaskIP(event.IP)),
		zap.Int("attempts", event.Attempts),
	)
	return nil
}

// PublishTokensRevoked logs auth.tokens.revoked events.
func (p *StubPublisher) PublishTokensRevoked(_ context.Context, event domain.TokensRevokedEvent) error {
	p.logEvent("auth.tokens.revoked", event.RevokedAt,
		zap.String("user_id", event.UserID),
		zap.String("reason", event.Reason),
	)
	return nil
}

var _ port.SecurityEventPublisher = (*StubPublisher)(nil)
