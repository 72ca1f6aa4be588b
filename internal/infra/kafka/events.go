package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/institute-atri/blog-backend-sub000/internal/core/domain"
	"github.com/institute-atri/blog-backend-sub000/internal/core/port"
	"github.com/institute-atri/blog-backend-sub000/internal/infra/config"
	"github.com/institute-atri/blog-backend-sub000/internal/infra/logger"
)

const schemaVersion = "1.0"

// EventPublisher implements port.SecurityEventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed security event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, log *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: log}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}
	if reqID, ok := ctx.Value(logger.RequestIDKey{}).(string); ok && reqID != "" {
		metadata["request_id"] = reqID
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishUserRegistered publishes auth.user.registered events.
func (p *EventPublisher) PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error {
	payload := struct {
		UserID       string    `json:"user_id"`
		Email        string    `json:"email"`
		DisplayName  string    `json:"display_name"`
		Role         string    `json:"role"`
		RegisteredAt time.Time `json:"registered_at"`
		IP           string    `json:"ip,omitempty"`
	}{
		UserID:       event.UserID,
		Email:        logger.MaskEmail(event.Email),
		DisplayName:  event.DisplayName,
		Role:         event.Role,
		RegisteredAt: event.RegisteredAt.UTC(),
		IP:           event.IP,
	}

	return p.publish(ctx, event.EventID, "auth.user.registered", event.RegisteredAt, payload)
}

// PublishLoginFailed publishes auth.login.failed events.
func (p *EventPublisher) PublishLoginFailed(ctx context.Context, event domain.LoginFailedEvent) error {
	payload := struct {
		Email     string    `json:"email"`
		IP        string    `json:"ip,omitempty"`
		UserAgent string    `json:"user_agent,omitempty"`
		At        time.Time `json:"at"`
	}{
		Email:     logger.MaskEmail(event.Email),
		IP:        event.IP,
		UserAgent: event.UserAgent,
		At:        event.At.UTC(),
	}

	return p.publish(ctx, event.EventID, "auth.login.failed", event.At, payload)
}

// PublishAccountLocked publishes auth.account.locked events.
func (p *EventPublisher) PublishAccountLocked(ctx context.Context, event domain.AccountLockedEvent) error {
	payload := struct {
		Email       string    `json:"email"`
		Attempts    int       `json:"attempts"`
		LockedAt    time.Time `json:"locked_at"`
		LockedUntil time.Time `json:"locked_until"`
	}{
		Email:       logger.MaskEmail(event.Email),
		Attempts:    event.Attempts,
		LockedAt:    event.LockedAt.UTC(),
		LockedUntil: event.LockedUntil.UTC(),
	}

	return p.publish(ctx, event.EventID, "auth.account.locked", event.LockedAt, payload)
}

// PublishIPBlocked publishes auth.ip.blocked events.
func (p *EventPublisher) PublishIPBlocked(ctx context.Context, event domain.IPBlockedEvent) error {
	payload := struct {
		IP        string    `json:"ip"`
		Attempts  int       `json:"attempts"`
		UserAgent string    `json:"user_agent,omitempty"`
		BlockedAt time.Time `json:"blocked_at"`
	}{
		IP:        event.IP,
		Attempts:  event.Attempts,
		UserAgent: event.UserAgent,
		BlockedAt: event.BlockedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "auth.ip.blocked", event.BlockedAt, payload)
}

// PublishTokensRevoked publishes auth.tokens.revoked events.
func (p *EventPublisher) PublishTokensRevoked(ctx context.Context, event domain.TokensRevokedEvent) error {
	payload := struct {
		UserID    string    `json:"user_id"`
		Reason    string    `json:"reason,omitempty"`
		RevokedAt time.Time `json:"revoked_at"`
	}{
		UserID:    event.UserID,
		Reason:    event.Reason,
		RevokedAt: event.RevokedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "auth.tokens.revoked", event.RevokedAt, payload)
}

var _ port.SecurityEventPublisher = (*EventPublisher)(nil)
