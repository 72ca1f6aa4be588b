package usecase

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/institute-atri/blog-backend-sub000/internal/core/domain"
	"github.com/institute-atri/blog-backend-sub000/internal/infra/security"
	"github.com/institute-atri/blog-backend-sub000/internal/repository"
)

func testCodec(t *testing.T) *security.JWTCodec {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}

	codec, err := security.NewJWTCodec(security.NewStaticKeyProvider("v1", key), "v1", "blog-auth")
	if err != nil {
		t.Fatalf("build codec: %v", err)
	}

	return codec
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User

	createErr error
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		copied := *u
		repo.users[u.Email] = &copied
	}
	return repo
}

func (r *fakeUserRepo) Create(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if _, ok := r.users[user.Email]; ok {
		return errors.New("duplicate email")
	}
	copied := user
	r.users[user.Email] = &copied
	return nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) IncrementFailedAttempts(_ context.Context, email string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[email]
	if !ok {
		return 0, repository.ErrNotFound
	}
	user.FailedLoginAttempts++
	return user.FailedLoginAttempts, nil
}

func (r *fakeUserRepo) ResetFailedAttempts(_ context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[email]
	if !ok {
		return repository.ErrNotFound
	}
	user.FailedLoginAttempts = 0
	return nil
}

func (r *fakeUserRepo) Lock(_ context.Context, email string, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[email]
	if !ok {
		return repository.ErrNotFound
	}
	user.Active = false
	u := until
	user.LockExpiresAt = &u
	return nil
}

func (r *fakeUserRepo) Reactivate(_ context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[email]
	if !ok {
		return repository.ErrNotFound
	}
	user.Active = true
	return nil
}

func (r *fakeUserRepo) remove(email string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, email)
}

func (r *fakeUserRepo) get(t *testing.T, email string) domain.User {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[email]
	if !ok {
		t.Fatalf("user %s not found in fake repo", email)
	}
	return *user
}

type fakeTokenRepo struct {
	mu     sync.Mutex
	byVal  map[string]*domain.Token
	getErr error
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{byVal: make(map[string]*domain.Token)}
}

func (r *fakeTokenRepo) GetByValue(_ context.Context, value string) (*domain.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	token, ok := r.byVal[value]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *token
	return &copied, nil
}

func (r *fakeTokenRepo) ListByUser(_ context.Context, userID string) ([]domain.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Token
	for _, token := range r.byVal {
		if token.UserID == userID {
			out = append(out, *token)
		}
	}
	return out, nil
}

func (r *fakeTokenRepo) ListValidByUser(ctx context.Context, userID string) ([]domain.Token, error) {
	all, err := r.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	var out []domain.Token
	for _, token := range all {
		if token.IsLive() {
			out = append(out, token)
		}
	}
	return out, nil
}

func (r *fakeTokenRepo) Save(_ context.Context, token domain.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := token
	r.byVal[token.Value] = &copied
	return nil
}

func (r *fakeTokenRepo) SaveAll(ctx context.Context, tokens []domain.Token) error {
	for _, token := range tokens {
		if err := r.Save(ctx, token); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeTokenRepo) DeleteAll(_ context.Context, tokens []domain.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, token := range tokens {
		delete(r.byVal, token.Value)
	}
	return nil
}

func (r *fakeTokenRepo) ReplaceUserTokens(_ context.Context, userID string, access, refresh domain.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for value, token := range r.byVal {
		if token.UserID == userID {
			delete(r.byVal, value)
		}
	}
	a, b := access, refresh
	r.byVal[access.Value] = &a
	r.byVal[refresh.Value] = &b
	return nil
}

func (r *fakeTokenRepo) RevokeAllForUser(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	revoked := 0
	for _, token := range r.byVal {
		if token.UserID == userID && token.Revoke() {
			revoked++
		}
	}
	return revoked, nil
}

func (r *fakeTokenRepo) count(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, token := range r.byVal {
		if token.UserID == userID {
			n++
		}
	}
	return n
}

type fakeBlockedIPRepo struct {
	mu      sync.Mutex
	records map[string]*domain.BlockedIP
	getErr  error
}

func newFakeBlockedIPRepo() *fakeBlockedIPRepo {
	return &fakeBlockedIPRepo{records: make(map[string]*domain.BlockedIP)}
}

func (r *fakeBlockedIPRepo) Get(_ context.Context, ip string) (*domain.BlockedIP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	record, ok := r.records[ip]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (r *fakeBlockedIPRepo) RecordFailure(_ context.Context, ip, userAgent string, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[ip]
	if !ok {
		record = &domain.BlockedIP{IP: ip}
		r.records[ip] = record
	}
	record.FailedAttempts++
	record.UserAgent = userAgent
	record.LastFailedAt = at
	return record.FailedAttempts, nil
}

type fakeEventPublisher struct {
	mu         sync.Mutex
	registered []domain.UserRegisteredEvent
	failed     []domain.LoginFailedEvent
	locked     []domain.AccountLockedEvent
	ipBlocked  []domain.IPBlockedEvent
	revoked    []domain.TokensRevokedEvent
}

func (p *fakeEventPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registered = append(p.registered, event)
	return nil
}

func (p *fakeEventPublisher) PublishLoginFailed(_ context.Context, event domain.LoginFailedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed = append(p.failed, event)
	return nil
}

func (p *fakeEventPublisher) PublishAccountLocked(_ context.Context, event domain.AccountLockedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.locked = append(p.locked, event)
	return nil
}

func (p *fakeEventPublisher) PublishIPBlocked(_ context.Context, event domain.IPBlockedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ipBlocked = append(p.ipBlocked, event)
	return nil
}

func (p *fakeEventPublisher) PublishTokensRevoked(_ context.Context, event domain.TokensRevokedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revoked = append(p.revoked, event)
	return nil
}
