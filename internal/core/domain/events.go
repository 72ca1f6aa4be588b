package domain

import "time"

// UserRegisteredEvent announces a newly created blog account.
type UserRegisteredEvent struct {
	EventID      string
	UserID       string
	Email        string
	DisplayName  string
	Role         string
	RegisteredAt time.Time
	IP           string
}

// LoginFailedEvent records a rejected credential presentation.
type LoginFailedEvent struct {
	EventID   string
	Email     string
	IP        string
	UserAgent string
	At        time.Time
}

// AccountLockedEvent announces a lockout transition for an account.
type AccountLockedEvent struct {
	EventID     string
	Email       string
	Attempts    int
	LockedAt    time.Time
	LockedUntil time.Time
}

// IPBlockedEvent announces a source address crossing the block threshold.
type IPBlockedEvent struct {
	EventID   string
	IP        string
	Attempts  int
	UserAgent string
	BlockedAt time.Time
}

// TokensRevokedEvent records a bulk token revocation for an account.
type TokensRevokedEvent struct {
	EventID   string
	UserID    string
	Reason    string
	RevokedAt time.Time
}
