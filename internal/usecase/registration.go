package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/institute-atri/blog-backend-sub000/internal/core/domain"
	"github.com/institute-atri/blog-backend-sub000/internal/core/port"
	"github.com/institute-atri/blog-backend-sub000/internal/infra/logger"
	"github.com/institute-atri/blog-backend-sub000/internal/infra/security"
	"github.com/institute-atri/blog-backend-sub000/internal/infra/telemetry"
	"github.com/institute-atri/blog-backend-sub000/internal/repository"
)

// RegistrationService creates blog accounts behind the per-IP limiter and
// the password policy.
type RegistrationService struct {
	users     port.UserRepository
	limiter   *RegistrationLimiter
	passwords *security.PasswordValidator
	events    port.SecurityEventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewRegistrationService constructs the service.
func NewRegistrationService(
	users port.UserRepository,
	limiter *RegistrationLimiter,
	passwords *security.PasswordValidator,
	events port.SecurityEventPublisher,
	log *zap.Logger,
) *RegistrationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &RegistrationService{
		users:     users,
		limiter:   limiter,
		passwords: passwords,
		events:    events,
		logger:    log,
		now:       time.Now,
	}
}

// WithClock injects a custom clock, primarily for testing.
func (s *RegistrationService) WithClock(now func() time.Time) *RegistrationService {
	if now != nil {
		s.now = now
	}
	return s
}

// Register creates an account for email. The limiter is consulted before any
// other work so throttled sources cannot probe email existence or the
// password policy.
func (s *RegistrationService) Register(ctx context.Context, email, displayName, password, ip string) (*domain.User, error) {
	if s.limiter != nil && !s.limiter.Allow(ip) {
		telemetry.RegistrationThrottled.Inc()
		s.logger.Warn("registration throttled", zap.String("ip", logger.MaskIP(ip)))
		return nil, ErrTooManyRequests
	}

	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email is invalid", ErrPasswordPolicyViolation)
	}

	if s.passwords != nil {
		if err := s.passwords.Validate(password); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
		}
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check existing user: %w", err)
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Active:       true,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("email", logger.MaskEmail(user.Email)),
	)

	if s.events != nil {
		event := domain.UserRegisteredEvent{
			UserID:       user.ID,
			Email:        user.Email,
			DisplayName:  user.DisplayName,
			Role:         string(user.Role),
			RegisteredAt: user.CreatedAt,
			IP:           ip,
		}
		if err := s.events.PublishUserRegistered(ctx, event); err != nil {
			s.logger.Warn("publish user registered event", zap.Error(err))
		}
	}

	created := user
	created.PasswordHash = ""
	return &created, nil
}
