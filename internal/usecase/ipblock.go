package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mssola/user_agent"
	"go.uber.org/zap"

	"github.com/institute-atri/blog-backend-sub000/internal/core/domain"
	"github.com/institute-atri/blog-backend-sub000/internal/core/port"
	"github.com/institute-atri/blog-backend-sub000/internal/infra/logger"
	"github.com/institute-atri/blog-backend-sub000/internal/infra/telemetry"
	"github.com/institute-atri/blog-backend-sub000/internal/repository"
)

const defaultIPBlockThreshold = 3

// IPBlockService tracks validation failures per source address and derives
// the blocked state from the counter. A block has no decay: once the
// threshold is reached the address stays blocked until the record is
// removed operationally.
type IPBlockService struct {
	records   port.BlockedIPRepository
	events    port.SecurityEventPublisher
	logger    *zap.Logger
	threshold int
	now       func() time.Time
}

// NewIPBlockService constructs the service. A threshold of zero falls back
// to the default of three failures.
func NewIPBlockService(records port.BlockedIPRepository, events port.SecurityEventPublisher, log *zap.Logger, threshold int) *IPBlockService {
	if log == nil {
		log = zap.NewNop()
	}
	if threshold <= 0 {
		threshold = defaultIPBlockThreshold
	}
	return &IPBlockService{
		records:   records,
		events:    events,
		logger:    log,
		threshold: threshold,
		now:       time.Now,
	}
}

// WithClock injects a custom clock, primarily for testing.
func (s *IPBlockService) WithClock(now func() time.Time) *IPBlockService {
	if now != nil {
		s.now = now
	}
	return s
}

// RegisterFailedAttempt increments the failure counter for ip, creating the
// record on first failure. The stored user agent is normalized to its
// browser/OS summary so operators see "Chrome 120 (Linux)" rather than a
// raw header line.
func (s *IPBlockService) RegisterFailedAttempt(ctx context.Context, ip, userAgent string) error {
	if strings.TrimSpace(ip) == "" {
		return nil
	}

	attempts, err := s.records.RecordFailure(ctx, ip, summarizeUserAgent(userAgent), s.now().UTC())
	if err != nil {
		return fmt.Errorf("record failed attempt: %w", err)
	}

	s.logger.Info("registered failed attempt",
		zap.String("ip", logger.MaskIP(ip)),
		zap.Int("attempts", attempts),
	)

	if attempts == s.threshold {
		telemetry.IPBlocks.Inc()
		s.logger.Warn("ip crossed block threshold", zap.String("ip", logger.MaskIP(ip)))
		if s.events != nil {
			event := domain.IPBlockedEvent{
				IP:        ip,
				Attempts:  attempts,
				UserAgent: summarizeUserAgent(userAgent),
				BlockedAt: s.now().UTC(),
			}
			if err := s.events.PublishIPBlocked(ctx, event); err != nil {
				s.logger.Warn("publish ip blocked event", zap.Error(err))
			}
		}
	}

	return nil
}

// IsBlocked reports whether the address has accumulated enough failures to
// be blocked. An address with no record is not blocked.
func (s *IPBlockService) IsBlocked(ctx context.Context, ip string) (bool, error) {
	if strings.TrimSpace(ip) == "" {
		return false, nil
	}

	record, err := s.records.Get(ctx, ip)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load blocked ip record: %w", err)
	}

	return record.Blocked(s.threshold), nil
}

func summarizeUserAgent(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	ua := user_agent.New(raw)
	name, version := ua.Browser()
	if name == "" {
		return raw
	}

	summary := name
	if version != "" {
		summary += " " + version
	}
	if os := ua.OS(); os != "" {
		summary += " (" + os + ")"
	}
	return summary
}
