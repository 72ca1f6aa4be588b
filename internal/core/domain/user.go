package domain

import "time"

// UserRole enumerates the authorities a blog account can carry.
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// User is the authentication-relevant projection of a blog account.
// Email is the unique login identifier.
type User struct {
	ID                  string
	Email               string
	DisplayName         string
	PasswordHash        string
	Role                UserRole
	FailedLoginAttempts int
	Active              bool
	LockExpiresAt       *time.Time
	CreatedAt           time.Time
}

// Identity is the authenticated principal a validated token resolves to:
// the account email plus the authority carried into the request context.
type Identity struct {
	Email string
	Role  UserRole
}

// IsLocked reports whether the account is under an active lockout window.
// The lock state is derived from the expiry timestamp rather than stored,
// so no unlock mutation is required for a lock to lapse.
func (u User) IsLocked(at time.Time) bool {
	return u.LockExpiresAt != nil && at.Before(*u.LockExpiresAt)
}

// LockLapsed reports whether a previously applied lock has run out and the
// stored Active flag still needs lazy reconciliation.
func (u User) LockLapsed(at time.Time) bool {
	return !u.Active && u.LockExpiresAt != nil && !at.Before(*u.LockExpiresAt)
}
