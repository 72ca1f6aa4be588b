package domain

import "time"

// TokenType enumerates supported token presentation schemes.
type TokenType string

const (
	TokenTypeBearer TokenType = "bearer"
)

// Token mirrors a persisted issued-token row. The Expired and Revoked flags
// are monotonic: once set they are never cleared. A token is live only while
// both flags are false.
type Token struct {
	ID        string
	UserID    string
	Value     string
	Type      TokenType
	Expired   bool
	Revoked   bool
	CreatedAt time.Time
}

// IsLive reports whether the token can still be presented.
func (t Token) IsLive() bool {
	return !t.Expired && !t.Revoked
}

// Revoke flips both flags to their terminal state.
// Returns true if the token transitioned from live to revoked.
func (t *Token) Revoke() bool {
	if t.Revoked && t.Expired {
		return false
	}
	t.Revoked = true
	t.Expired = true
	return true
}
