package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/institute-atri/blog-backend-sub000/internal/core/domain"
)

type tokenServiceFixture struct {
	service *TokenService
	tokens  *fakeTokenRepo
	users   *fakeUserRepo
	blocked *fakeBlockedIPRepo
}

func newTokenServiceFixture(t *testing.T) tokenServiceFixture {
	t.Helper()

	tokens := newFakeTokenRepo()
	user := testUser()
	users := newFakeUserRepo(&user)
	blocked := newFakeBlockedIPRepo()
	ipBlocks := NewIPBlockService(blocked, nil, nil, 3)
	service := NewTokenService(testCodec(t), tokens, users, ipBlocks, nil, 30*time.Minute, 7*24*time.Hour)

	return tokenServiceFixture{service: service, tokens: tokens, users: users, blocked: blocked}
}

func testUser() domain.User {
	return domain.User{
		ID:          "user-1",
		Email:       "reader@example.com",
		DisplayName: "Reader",
		Role:        domain.RoleUser,
		Active:      true,
	}
}

func TestValidateRoundTrip(t *testing.T) {
	fx := newTokenServiceFixture(t)
	ctx := context.Background()
	user := testUser()

	access, _, err := fx.service.IssuePair(ctx, user)
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}

	identity, err := fx.service.Validate(ctx, access, "203.0.113.5", "test-agent")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if identity == nil || identity.Email != user.Email {
		t.Fatalf("expected identity for %q, got %+v", user.Email, identity)
	}
	if identity.Role != domain.RoleUser {
		t.Fatalf("expected role %q attached, got %q", domain.RoleUser, identity.Role)
	}
}

func TestValidateRejectsUnknownToken(t *testing.T) {
	fx := newTokenServiceFixture(t)
	ctx := context.Background()

	// Properly signed but never persisted.
	signed, err := fx.service.IssueAccessToken(testUser())
	if err != nil {
		t.Fatalf("issue access token: %v", err)
	}

	identity, err := fx.service.Validate(ctx, signed, "203.0.113.5", "test-agent")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if identity != nil {
		t.Fatalf("expected rejection for unknown token, got %+v", identity)
	}
}

func TestValidateRejectsDeletedSubject(t *testing.T) {
	fx := newTokenServiceFixture(t)
	ctx := context.Background()
	user := testUser()

	access, _, err := fx.service.IssuePair(ctx, user)
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}

	// The account disappears while its token row is still live.
	fx.users.remove(user.Email)

	identity, err := fx.service.Validate(ctx, access, "203.0.113.5", "test-agent")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if identity != nil {
		t.Fatalf("expected rejection for deleted account, got %+v", identity)
	}
}

func TestValidateRejectsRevokedToken(t *testing.T) {
	fx := newTokenServiceFixture(t)
	ctx := context.Background()
	user := testUser()

	access, _, err := fx.service.IssuePair(ctx, user)
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}
	if err := fx.service.RevokeAll(ctx, user); err != nil {
		t.Fatalf("revoke all: %v", err)
	}

	identity, err := fx.service.Validate(ctx, access, "203.0.113.5", "test-agent")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if identity != nil {
		t.Fatalf("expected rejection for revoked token, got %+v", identity)
	}
}

func TestValidateGarbageRegistersIPFailure(t *testing.T) {
	fx := newTokenServiceFixture(t)
	ctx := context.Background()

	identity, err := fx.service.Validate(ctx, "not-a-jwt", "203.0.113.5", "test-agent")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if identity != nil {
		t.Fatalf("expected rejection, got %+v", identity)
	}

	record, err := fx.blocked.Get(ctx, "203.0.113.5")
	if err != nil {
		t.Fatalf("expected failure record for source ip: %v", err)
	}
	if record.FailedAttempts != 1 {
		t.Fatalf("expected 1 failed attempt, got %d", record.FailedAttempts)
	}
}

func TestValidateBlockedIPShortCircuits(t *testing.T) {
	fx := newTokenServiceFixture(t)
	ctx := context.Background()
	user := testUser()

	access, _, err := fx.service.IssuePair(ctx, user)
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}

	// Three failures from the same source trips the block.
	for i := 0; i < 3; i++ {
		if _, err := fx.blocked.RecordFailure(ctx, "198.51.100.9", "test-agent", time.Now()); err != nil {
			t.Fatalf("record failure: %v", err)
		}
	}

	// Even a perfectly valid token is rejected for a blocked source.
	identity, err := fx.service.Validate(ctx, access, "198.51.100.9", "test-agent")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if identity != nil {
		t.Fatalf("expected rejection for blocked ip, got %+v", identity)
	}

	// The same token remains valid from an unblocked source.
	identity, err = fx.service.Validate(ctx, access, "203.0.113.5", "test-agent")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if identity == nil || identity.Email != user.Email {
		t.Fatalf("expected identity for %q, got %+v", user.Email, identity)
	}
}

func TestIssuePairReplacesPriorTokens(t *testing.T) {
	fx := newTokenServiceFixture(t)
	ctx := context.Background()
	user := testUser()

	firstAccess, firstRefresh, err := fx.service.IssuePair(ctx, user)
	if err != nil {
		t.Fatalf("first issue pair: %v", err)
	}

	secondAccess, _, err := fx.service.IssuePair(ctx, user)
	if err != nil {
		t.Fatalf("second issue pair: %v", err)
	}

	if got := fx.tokens.count(user.ID); got != 2 {
		t.Fatalf("expected exactly 2 stored tokens after reissue, got %d", got)
	}

	for _, stale := range []string{firstAccess, firstRefresh} {
		identity, err := fx.service.Validate(ctx, stale, "203.0.113.5", "test-agent")
		if err != nil {
			t.Fatalf("validate stale token: %v", err)
		}
		if identity != nil {
			t.Fatalf("expected stale token to be rejected, got %+v", identity)
		}
	}

	identity, err := fx.service.Validate(ctx, secondAccess, "203.0.113.5", "test-agent")
	if err != nil {
		t.Fatalf("validate fresh token: %v", err)
	}
	if identity == nil || identity.Email != user.Email {
		t.Fatalf("expected fresh token to validate, got %+v", identity)
	}
}

func TestValidatePropagatesStoreFailure(t *testing.T) {
	fx := newTokenServiceFixture(t)
	ctx := context.Background()

	signed, err := fx.service.IssueAccessToken(testUser())
	if err != nil {
		t.Fatalf("issue access token: %v", err)
	}

	fx.tokens.getErr = context.DeadlineExceeded

	if _, err := fx.service.Validate(ctx, signed, "203.0.113.5", "test-agent"); err == nil {
		t.Fatal("expected infrastructure error to propagate")
	}
}

func TestValidatePropagatesBlockGateFailure(t *testing.T) {
	fx := newTokenServiceFixture(t)
	ctx := context.Background()
	user := testUser()

	access, _, err := fx.service.IssuePair(ctx, user)
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}

	// When the gate cannot answer, validation fails instead of passing
	// through unchecked.
	fx.blocked.getErr = context.DeadlineExceeded

	if _, err := fx.service.Validate(ctx, access, "203.0.113.5", "test-agent"); err == nil {
		t.Fatal("expected block gate fault to propagate")
	}
}
