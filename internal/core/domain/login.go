package domain

import "time"

// LoginOutcomeKind tags the result of a credential evaluation.
type LoginOutcomeKind int

const (
	LoginSuccess LoginOutcomeKind = iota
	LoginBadCredentials
	LoginLocked
	LoginRateLimited
)

// LoginOutcome is the tagged result of a login attempt. Exactly one kind is
// set; User and the token pair are populated only on success, LockedUntil
// only when the account is locked.
type LoginOutcome struct {
	Kind         LoginOutcomeKind
	User         *User
	AccessToken  string
	RefreshToken string
	LockedUntil  time.Time
}

// SuccessOutcome builds a successful login result carrying the fresh token pair.
func SuccessOutcome(user *User, access, refresh string) LoginOutcome {
	return LoginOutcome{Kind: LoginSuccess, User: user, AccessToken: access, RefreshToken: refresh}
}

// BadCredentialsOutcome builds the generic rejection result. It carries no
// detail so callers cannot tell a missing account from a wrong password.
func BadCredentialsOutcome() LoginOutcome {
	return LoginOutcome{Kind: LoginBadCredentials}
}

// LockedOutcome builds the result for an account under an active lockout.
func LockedOutcome(until time.Time) LoginOutcome {
	return LoginOutcome{Kind: LoginLocked, LockedUntil: until}
}
