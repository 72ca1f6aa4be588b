package port

import (
	"context"
	"time"

	"github.com/institute-atri/blog-backend-sub000/internal/core/domain"
)

// BlockedIPRepository keeps one failure record per source address.
type BlockedIPRepository interface {
	Get(ctx context.Context, ip string) (*domain.BlockedIP, error)
	// RecordFailure upserts the record for ip, incrementing the counter and
	// refreshing user agent and timestamp atomically. It returns the counter
	// value after the increment.
	RecordFailure(ctx context.Context, ip, userAgent string, at time.Time) (int, error)
}
