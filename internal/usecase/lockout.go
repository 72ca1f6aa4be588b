package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/institute-atri/blog-backend-sub000/internal/core/domain"
	"github.com/institute-atri/blog-backend-sub000/internal/core/port"
	"github.com/institute-atri/blog-backend-sub000/internal/infra/logger"
	"github.com/institute-atri/blog-backend-sub000/internal/infra/telemetry"
	"github.com/institute-atri/blog-backend-sub000/internal/repository"
)

const (
	defaultLockoutThreshold = 4
	defaultLockoutDuration  = 2 * time.Hour
)

// LoginService wraps the identity-provider delegate with account lockout
// tracking and drives token issuance on success. Every outcome is expressed
// through the LoginOutcome tagged result rather than distinct error types.
type LoginService struct {
	users     port.UserRepository
	provider  port.IdentityProvider
	tokens    *TokenService
	events    port.SecurityEventPublisher
	logger    *zap.Logger
	threshold int
	duration  time.Duration
	now       func() time.Time
}

// NewLoginService constructs the service. Threshold and duration fall back
// to four consecutive failures and a two-hour lock.
func NewLoginService(
	users port.UserRepository,
	provider port.IdentityProvider,
	tokens *TokenService,
	events port.SecurityEventPublisher,
	log *zap.Logger,
	threshold int,
	duration time.Duration,
) *LoginService {
	if log == nil {
		log = zap.NewNop()
	}
	if threshold <= 0 {
		threshold = defaultLockoutThreshold
	}
	if duration <= 0 {
		duration = defaultLockoutDuration
	}
	return &LoginService{
		users:     users,
		provider:  provider,
		tokens:    tokens,
		events:    events,
		logger:    log,
		threshold: threshold,
		duration:  duration,
		now:       time.Now,
	}
}

// WithClock injects a custom clock, primarily for testing.
func (s *LoginService) WithClock(now func() time.Time) *LoginService {
	if now != nil {
		s.now = now
	}
	return s
}

// Login evaluates credentials through the delegate, applies the lockout
// policy, and on success replaces the user's token set with a fresh pair.
func (s *LoginService) Login(ctx context.Context, email, password, ip, userAgent string) (domain.LoginOutcome, error) {
	user, err := s.provider.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			if handleErr := s.HandleBadCredentials(ctx, email, ip, userAgent); handleErr != nil {
				s.logger.Warn("handle bad credentials", zap.Error(handleErr))
			}
			return domain.BadCredentialsOutcome(), nil
		}
		return domain.LoginOutcome{}, fmt.Errorf("authenticate: %w", err)
	}

	locked, until, err := s.HandleSuccessfulLogin(ctx, user)
	if err != nil {
		return domain.LoginOutcome{}, err
	}
	if locked {
		return domain.LockedOutcome(until), nil
	}

	access, refresh, err := s.tokens.IssuePair(ctx, *user)
	if err != nil {
		return domain.LoginOutcome{}, err
	}

	sanitized := *user
	sanitized.PasswordHash = ""
	sanitized.FailedLoginAttempts = 0

	return domain.SuccessOutcome(&sanitized, access, refresh), nil
}

// Refresh exchanges a live refresh token for a fresh pair. The presented
// token goes through full validation, so a revoked or replaced token cannot
// be exchanged, and the lockout state is re-checked at exchange time.
func (s *LoginService) Refresh(ctx context.Context, refreshToken, ip, userAgent string) (domain.LoginOutcome, error) {
	identity, err := s.tokens.Validate(ctx, refreshToken, ip, userAgent)
	if err != nil {
		return domain.LoginOutcome{}, err
	}
	if identity == nil {
		return domain.BadCredentialsOutcome(), nil
	}

	user, err := s.users.GetByEmail(ctx, identity.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.BadCredentialsOutcome(), nil
		}
		return domain.LoginOutcome{}, fmt.Errorf("load user: %w", err)
	}

	now := s.now().UTC()
	if user.IsLocked(now) {
		return domain.LockedOutcome(*user.LockExpiresAt), nil
	}
	if user.LockLapsed(now) {
		if err := s.users.Reactivate(ctx, user.Email); err != nil {
			return domain.LoginOutcome{}, fmt.Errorf("reactivate user: %w", err)
		}
		user.Active = true
	}

	access, refresh, err := s.tokens.IssuePair(ctx, *user)
	if err != nil {
		return domain.LoginOutcome{}, err
	}

	sanitized := *user
	sanitized.PasswordHash = ""

	return domain.SuccessOutcome(&sanitized, access, refresh), nil
}

// Logout revokes every live token the account holds. Unknown accounts are a
// no-op; the caller already proved identity through the filter.
func (s *LoginService) Logout(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load user: %w", err)
	}

	if err := s.tokens.RevokeAll(ctx, *user); err != nil {
		return err
	}

	if s.events != nil {
		event := domain.TokensRevokedEvent{
			UserID:    user.ID,
			Reason:    "logout",
			RevokedAt: s.now().UTC(),
		}
		if err := s.events.PublishTokensRevoked(ctx, event); err != nil {
			s.logger.Warn("publish tokens revoked event", zap.Error(err))
		}
	}

	return nil
}

// HandleSuccessfulLogin applies the lockout policy after the delegate
// accepted the credentials. For an unlocked account the failure counter is
// reset. For an account still under lockout, the attempt is counted as a
// failure even though the credentials matched, and can re-extend the lock.
// A probe against a locked account keeps it locked. Returns the lock state
// the caller must report.
func (s *LoginService) HandleSuccessfulLogin(ctx context.Context, user *domain.User) (bool, time.Time, error) {
	now := s.now().UTC()

	if !user.IsLocked(now) {
		if user.LockLapsed(now) {
			// Lazy reconciliation: no sweeper exists, the stored flag is
			// only corrected when the account is next evaluated.
			if err := s.users.Reactivate(ctx, user.Email); err != nil {
				return false, time.Time{}, fmt.Errorf("reactivate user: %w", err)
			}
			user.Active = true
		}
		if err := s.users.ResetFailedAttempts(ctx, user.Email); err != nil {
			return false, time.Time{}, fmt.Errorf("reset failed attempts: %w", err)
		}
		user.FailedLoginAttempts = 0
		return false, time.Time{}, nil
	}

	attempts, err := s.users.IncrementFailedAttempts(ctx, user.Email)
	if err != nil {
		return false, time.Time{}, fmt.Errorf("increment failed attempts: %w", err)
	}

	until := *user.LockExpiresAt
	if attempts >= s.threshold {
		until = now.Add(s.duration)
		if err := s.lock(ctx, user.Email, attempts, now, until); err != nil {
			return false, time.Time{}, err
		}
	}

	return true, until, nil
}

// HandleBadCredentials records a failed attempt against the account behind
// email, if one exists. The caller reports the same generic rejection
// either way, so the endpoint never reveals whether the account exists.
func (s *LoginService) HandleBadCredentials(ctx context.Context, email, ip, userAgent string) error {
	now := s.now().UTC()

	if s.events != nil {
		event := domain.LoginFailedEvent{Email: email, IP: ip, UserAgent: userAgent, At: now}
		if err := s.events.PublishLoginFailed(ctx, event); err != nil {
			s.logger.Warn("publish login failed event", zap.Error(err))
		}
	}

	attempts, err := s.users.IncrementFailedAttempts(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("increment failed attempts: %w", err)
	}

	s.logger.Info("failed login attempt",
		zap.String("email", logger.MaskEmail(email)),
		zap.Int("attempts", attempts),
	)

	if attempts >= s.threshold {
		if err := s.lock(ctx, email, attempts, now, now.Add(s.duration)); err != nil {
			return err
		}
	}

	return nil
}

func (s *LoginService) lock(ctx context.Context, email string, attempts int, now, until time.Time) error {
	if err := s.users.Lock(ctx, email, until); err != nil {
		return fmt.Errorf("lock user: %w", err)
	}

	telemetry.AccountLockouts.Inc()
	s.logger.Warn("account locked",
		zap.String("email", logger.MaskEmail(email)),
		zap.Int("attempts", attempts),
		zap.Time("until", until),
	)

	if s.events != nil {
		event := domain.AccountLockedEvent{
			Email:       email,
			Attempts:    attempts,
			LockedAt:    now,
			LockedUntil: until,
		}
		if err := s.events.PublishAccountLocked(ctx, event); err != nil {
			s.logger.Warn("publish account locked event", zap.Error(err))
		}
	}

	return nil
}
