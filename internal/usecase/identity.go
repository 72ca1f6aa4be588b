package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/institute-atri/blog-backend-sub000/internal/core/domain"
	"github.com/institute-atri/blog-backend-sub000/internal/core/port"
	"github.com/institute-atri/blog-backend-sub000/internal/infra/security"
	"github.com/institute-atri/blog-backend-sub000/internal/repository"
)

// LocalIdentityProvider authenticates against the local user store. It only
// answers the credential question; lockout state is the caller's concern, so
// a locked account with matching credentials still authenticates here.
type LocalIdentityProvider struct {
	users port.UserRepository
}

// NewLocalIdentityProvider constructs a provider backed by the user repository.
func NewLocalIdentityProvider(users port.UserRepository) *LocalIdentityProvider {
	return &LocalIdentityProvider{users: users}
}

var _ port.IdentityProvider = (*LocalIdentityProvider)(nil)

// Authenticate resolves the account by email and checks the password hash.
// An unknown account and a wrong password both return ErrBadCredentials.
func (p *LocalIdentityProvider) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrBadCredentials
	}

	user, err := p.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBadCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, ErrBadCredentials
	}

	return user, nil
}
