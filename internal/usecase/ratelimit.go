package usecase

import (
	"strings"
	"sync"
	"time"
)

const (
	defaultRegistrationLimit  = 3
	defaultRegistrationWindow = time.Hour
)

// RegistrationLimiter caps account creations per source address with an
// in-process fixed window. The counter lives in memory on purpose: a
// registration burst from one address is a single-node concern and the cap
// resetting on restart is acceptable for this policy.
type RegistrationLimiter struct {
	mu      sync.Mutex
	buckets map[string]*registrationBucket
	limit   int
	window  time.Duration
	now     func() time.Time
}

type registrationBucket struct {
	count       int
	windowStart time.Time
}

// NewRegistrationLimiter constructs a limiter. Zero values fall back to
// three registrations per hour per address.
func NewRegistrationLimiter(limit int, window time.Duration) *RegistrationLimiter {
	if limit <= 0 {
		limit = defaultRegistrationLimit
	}
	if window <= 0 {
		window = defaultRegistrationWindow
	}
	return &RegistrationLimiter{
		buckets: make(map[string]*registrationBucket),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// WithClock injects a custom clock, primarily for testing.
func (l *RegistrationLimiter) WithClock(now func() time.Time) *RegistrationLimiter {
	if now != nil {
		l.now = now
	}
	return l
}

// Allow consumes one registration slot for ip. It returns false once the
// limit is exhausted within the current window. An empty address is never
// limited; the resolver upstream always supplies one in practice.
func (l *RegistrationLimiter) Allow(ip string) bool {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return true
	}

	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.buckets[ip]
	if !ok || now.Sub(bucket.windowStart) >= l.window {
		l.buckets[ip] = &registrationBucket{count: 1, windowStart: now}
		return true
	}

	if bucket.count >= l.limit {
		return false
	}

	bucket.count++
	return true
}
