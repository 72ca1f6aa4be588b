package usecase

import (
	"context"
	"errors"
	"fmt"
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

// TokenService issues signed session tokens and validates presented ones
// against the signature, the subject's account, the persisted token state,
// and IP blocking.
type TokenService struct {
	codec      *security.JWTCodec
	tokens     port.TokenRepository
	users      port.UserRepository
	ipBlocks   *IPBlockService
	logger     *zap.Logger
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenService constructs a TokenService. TTLs of zero fall back to 30
// minutes for access and 7 days for refresh tokens.
func NewTokenService(
	codec *security.JWTCodec,
	tokens port.TokenRepository,
	users port.UserRepository,
	ipBlocks *IPBlockService,
	log *zap.Logger,
	accessTTL, refreshTTL time.Duration,
) *TokenService {
	if log == nil {
		log = zap.NewNop()
	}
	if accessTTL <= 0 {
		accessTTL = 30 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &TokenService{
		codec:      codec,
		tokens:     tokens,
		users:      users,
		ipBlocks:   ipBlocks,
		logger:     log,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// WithClock injects a custom clock, primarily for testing.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	if now != nil {
		s.now = now
	}
	return s
}

// Issue builds and signs a token for the user with the supplied lifetime.
// Claims: issuer, subject = account email, display-name, audience = role,
// issued-at, expiry. A signing failure is the one fatal error on this path.
func (s *TokenService) Issue(user domain.User, ttl time.Duration) (string, error) {
	claims, err := security.NewSessionClaims(security.SessionClaimsOptions{
		Subject:     user.Email,
		DisplayName: user.DisplayName,
		Issuer:      s.codecIssuer(),
		Role:        string(user.Role),
		TTL:         ttl,
		IssuedAt:    s.now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}

	signed, err := s.codec.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}

	return signed, nil
}

// IssueAccessToken issues a short-lived access token.
func (s *TokenService) IssueAccessToken(user domain.User) (string, error) {
	return s.Issue(user, s.accessTTL)
}

// IssueRefreshToken issues a long-lived refresh token.
func (s *TokenService) IssueRefreshToken(user domain.User) (string, error) {
	return s.Issue(user, s.refreshTTL)
}

// Validate evaluates a presented token and returns the identity it resolves
// to, or nil when the token must be rejected. Rejections are deliberately
// indistinguishable: a blocked source, a bad signature, a deleted account, a
// revoked row, and a token that was never issued all collapse to the same
// sentinel. The only non-nil errors are infrastructure faults.
func (s *TokenService) Validate(ctx context.Context, tokenValue, ip, userAgent string) (*domain.Identity, error) {
	// The block gate runs before any signature work so a blocked source
	// cannot probe the verifier. A gate that cannot answer is a fault, not
	// a pass.
	if s.ipBlocks != nil && ip != "" {
		blocked, err := s.ipBlocks.IsBlocked(ctx, ip)
		if err != nil {
			return nil, fmt.Errorf("ip block lookup: %w", err)
		}
		if blocked {
			telemetry.TokenRejections.WithLabelValues("blocked_ip").Inc()
			return nil, nil
		}
	}

	claims, err := s.codec.Verify(tokenValue)
	if err != nil {
		telemetry.TokenRejections.WithLabelValues("signature").Inc()
		if s.ipBlocks != nil {
			if regErr := s.ipBlocks.RegisterFailedAttempt(ctx, ip, userAgent); regErr != nil {
				s.logger.Warn("register failed attempt", zap.Error(regErr))
			}
		}
		return nil, nil
	}

	// The signature only proves the token was once issued. The subject must
	// still resolve to a present account; a deleted account invalidates
	// every token it ever held.
	user, err := s.users.GetByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			telemetry.TokenRejections.WithLabelValues("subject").Inc()
			return nil, nil
		}
		return nil, fmt.Errorf("lookup subject: %w", err)
	}

	token, err := s.tokens.GetByValue(ctx, tokenValue)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			telemetry.TokenRejections.WithLabelValues("unknown").Inc()
			return nil, nil
		}
		return nil, fmt.Errorf("lookup token: %w", err)
	}

	// A revoked or expired row reads as absent: the row exists physically
	// but must not authenticate anyone.
	if !token.IsLive() {
		telemetry.TokenRejections.WithLabelValues("revoked").Inc()
		return nil, nil
	}

	return &domain.Identity{Email: user.Email, Role: user.Role}, nil
}

// IssuePair mints a fresh access and refresh token for the user and
// replaces the user's prior token set with them. Every previously issued
// token stops validating because its row is gone.
func (s *TokenService) IssuePair(ctx context.Context, user domain.User) (string, string, error) {
	access, err := s.IssueAccessToken(user)
	if err != nil {
		return "", "", err
	}

	refresh, err := s.IssueRefreshToken(user)
	if err != nil {
		return "", "", err
	}

	now := s.now().UTC()
	accessRow := domain.Token{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Value:     access,
		Type:      domain.TokenTypeBearer,
		CreatedAt: now,
	}
	refreshRow := domain.Token{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Value:     refresh,
		Type:      domain.TokenTypeBearer,
		CreatedAt: now,
	}

	if err := s.tokens.ReplaceUserTokens(ctx, user.ID, accessRow, refreshRow); err != nil {
		return "", "", fmt.Errorf("replace user tokens: %w", err)
	}

	s.logger.Info("issued token pair",
		zap.String("user_id", user.ID),
		zap.String("email", logger.MaskEmail(user.Email)),
	)

	return access, refresh, nil
}

// RevokeAll flips the terminal flags on every live token the user holds.
// Revoking an already-revoked set is a no-op.
func (s *TokenService) RevokeAll(ctx context.Context, user domain.User) error {
	revoked, err := s.tokens.RevokeAllForUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("revoke user tokens: %w", err)
	}

	s.logger.Info("revoked user tokens",
		zap.String("user_id", user.ID),
		zap.Int("count", revoked),
	)

	return nil
}

// AccessTTL exposes the configured access-token lifetime.
func (s *TokenService) AccessTTL() time.Duration {
	return s.accessTTL
}

func (s *TokenService) codecIssuer() string {
	return s.codec.Issuer()
}
