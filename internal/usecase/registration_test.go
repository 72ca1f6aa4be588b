package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/institute-atri/blog-backend-sub000/internal/core/domain"
	"github.com/institute-atri/blog-backend-sub000/internal/core/port"
	"github.com/institute-atri/blog-backend-sub000/internal/infra/security"
)

func newTestRegistrationService(users *fakeUserRepo, events port.SecurityEventPublisher) *RegistrationService {
	limiter := NewRegistrationLimiter(3, time.Hour)
	passwords := security.DefaultPasswordValidator(10, 2)
	return NewRegistrationService(users, limiter, passwords, events, nil)
}

func TestRegisterCreatesUser(t *testing.T) {
	users := newFakeUserRepo()
	events := &fakeEventPublisher{}
	service := newTestRegistrationService(users, events)

	created, err := service.Register(context.Background(), "Reader@Example.com", "Reader", "Tr0ub4dor&3-xkcd", "203.0.113.5")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if created.Email != "reader@example.com" {
		t.Fatalf("expected normalized email, got %q", created.Email)
	}
	if created.Role != domain.RoleUser {
		t.Fatalf("expected default role %q, got %q", domain.RoleUser, created.Role)
	}
	if created.PasswordHash != "" {
		t.Fatal("expected password hash stripped from the returned user")
	}

	stored := users.get(t, "reader@example.com")
	if stored.PasswordHash == "" {
		t.Fatal("expected stored password hash")
	}
	if !stored.Active {
		t.Fatal("expected new account to start active")
	}
	if len(events.registered) != 1 {
		t.Fatalf("expected 1 user-registered event, got %d", len(events.registered))
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	service := newTestRegistrationService(newFakeUserRepo(), nil)

	cases := []string{
		"short",
		"alllowercaseonly",
		"password123456",
	}

	for _, password := range cases {
		_, err := service.Register(context.Background(), "reader@example.com", "Reader", password, "203.0.113.5")
		if !errors.Is(err, ErrPasswordPolicyViolation) {
			t.Fatalf("password %q: expected policy violation, got %v", password, err)
		}
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	users := newFakeUserRepo()
	service := newTestRegistrationService(users, nil)
	ctx := context.Background()

	if _, err := service.Register(ctx, "reader@example.com", "Reader", "Tr0ub4dor&3-xkcd", "203.0.113.5"); err != nil {
		t.Fatalf("first register: %v", err)
	}

	_, err := service.Register(ctx, "reader@example.com", "Imposter", "An0ther-Secret!9", "203.0.113.6")
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegisterThrottlesPerIP(t *testing.T) {
	users := newFakeUserRepo()
	service := newTestRegistrationService(users, nil)
	ctx := context.Background()

	emails := []string{"a@example.com", "b@example.com", "c@example.com"}
	for _, email := range emails {
		if _, err := service.Register(ctx, email, "Reader", "Tr0ub4dor&3-xkcd", "203.0.113.5"); err != nil {
			t.Fatalf("register %s: %v", email, err)
		}
	}

	_, err := service.Register(ctx, "d@example.com", "Reader", "Tr0ub4dor&3-xkcd", "203.0.113.5")
	if !errors.Is(err, ErrTooManyRequests) {
		t.Fatalf("expected ErrTooManyRequests for the fourth registration, got %v", err)
	}

	// The throttle is per source, not global.
	if _, err := service.Register(ctx, "d@example.com", "Reader", "Tr0ub4dor&3-xkcd", "198.51.100.9"); err != nil {
		t.Fatalf("register from fresh source: %v", err)
	}
}

func TestAuthenticateLocal(t *testing.T) {
	hash, err := security.HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	users := newFakeUserRepo(&domain.User{
		ID:           "user-1",
		Email:        "reader@example.com",
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Active:       true,
	})
	provider := NewLocalIdentityProvider(users)
	ctx := context.Background()

	user, err := provider.Authenticate(ctx, "Reader@Example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.ID != "user-1" {
		t.Fatalf("expected user-1, got %q", user.ID)
	}

	if _, err := provider.Authenticate(ctx, "reader@example.com", "wrong"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("expected ErrBadCredentials for wrong password, got %v", err)
	}
	if _, err := provider.Authenticate(ctx, "ghost@example.com", "whatever"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("expected ErrBadCredentials for unknown account, got %v", err)
	}
}
