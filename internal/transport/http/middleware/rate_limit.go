package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	rateLimitProblemType  = "https://blog.institute-atri.example.org/errors/rate-limit-exceeded"
	rateLimitProblemTitle = "Rate Limit Exceeded"
)

// RateLimitStore defines the persistence operations required by the throttle.
type RateLimitStore interface {
	TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error
	CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error)
	RecordAttempt(ctx context.Context, identifier string, at time.Time) error
	OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error)
}

// RateLimitRule is a sliding-window limit for one credential endpoint. Rules
// are always scoped to the resolved client address; the name keeps each
// endpoint's window separate in the shared store.
type RateLimitRule struct {
	Name   string
	Limit  int
	Window time.Duration
}

// RateLimiter throttles the credential endpoints per source address.
type RateLimiter struct {
	store  RateLimitStore
	logger *zap.Logger
	now    func() time.Time
}

// NewRateLimiter builds the throttle over the given store.
func NewRateLimiter(store RateLimitStore, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RateLimiter{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		rl.now = now
	}
	return rl
}

// ProblemDetails is the RFC 9457 payload written on a denied request.
type ProblemDetails struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Status     int    `json:"status"`
	Detail     string `json:"detail"`
	Instance   string `json:"instance"`
	RetryAfter int    `json:"retry_after"`
	TraceID    string `json:"trace_id,omitempty"`
}

type limitDecision struct {
	allowed    bool
	remaining  int
	reset      time.Time
	retryAfter time.Duration
}

// Limit enforces the rule against the caller's resolved address. A request
// with no resolvable address passes through, and a store fault is logged and
// skips the throttle for that request.
func (rl *RateLimiter) Limit(rule RateLimitRule) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.store == nil || rule.Limit <= 0 || rule.Window <= 0 {
			c.Next()
			return
		}

		ip := GetRequestContext(c).IP
		if ip == "" {
			ip = ResolveClientIP(c)
		}
		if ip == "" {
			c.Next()
			return
		}

		decision, err := rl.evaluate(c.Request.Context(), rule, rule.Name+":"+ip, rl.now())
		if err != nil {
			rl.logger.Warn("rate limit check failed",
				zap.String("rule", rule.Name),
				zap.Error(err),
			)
			c.Next()
			return
		}

		rl.writeHeaders(c, rule, decision)

		if !decision.allowed {
			rl.reject(c, decision)
			return
		}

		c.Next()
	}
}

func (rl *RateLimiter) evaluate(ctx context.Context, rule RateLimitRule, key string, now time.Time) (limitDecision, error) {
	if err := rl.store.TrimWindow(ctx, key, rule.Window, now); err != nil {
		return limitDecision{}, err
	}

	count, err := rl.store.CountAttempts(ctx, key, rule.Window, now)
	if err != nil {
		return limitDecision{}, err
	}

	reset := now.Add(rule.Window)
	if oldest, ok, err := rl.store.OldestAttempt(ctx, key, rule.Window, now); err != nil {
		return limitDecision{}, err
	} else if ok {
		reset = oldest.Add(rule.Window)
	}

	if count >= rule.Limit {
		retryAfter := reset.Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return limitDecision{reset: reset, retryAfter: retryAfter}, nil
	}

	if err := rl.store.RecordAttempt(ctx, key, now); err != nil {
		return limitDecision{}, err
	}

	remaining := rule.Limit - count - 1
	if remaining < 0 {
		remaining = 0
	}

	return limitDecision{allowed: true, remaining: remaining, reset: reset}, nil
}

func (rl *RateLimiter) writeHeaders(c *gin.Context, rule RateLimitRule, decision limitDecision) {
	headers := c.Writer.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(rule.Limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(decision.remaining))
	headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.reset.Unix(), 10))

	if !decision.allowed {
		headers.Set("Retry-After", strconv.Itoa(retrySeconds(decision)))
	}
}

func (rl *RateLimiter) reject(c *gin.Context, decision limitDecision) {
	seconds := retrySeconds(decision)

	instance := c.FullPath()
	if instance == "" {
		instance = c.Request.URL.Path
	}

	c.AbortWithStatusJSON(http.StatusTooManyRequests, ProblemDetails{
		Type:       rateLimitProblemType,
		Title:      rateLimitProblemTitle,
		Status:     http.StatusTooManyRequests,
		Detail:     "Too many requests. Try again in " + strconv.Itoa(seconds) + " seconds.",
		Instance:   instance,
		RetryAfter: seconds,
		TraceID:    GetTraceID(c),
	})
}

func retrySeconds(decision limitDecision) int {
	seconds := int(math.Ceil(decision.retryAfter.Seconds()))
	if seconds < 0 {
		return 0
	}
	return seconds
}
