package usecase

import "errors"

var (
	// ErrBadCredentials indicates the presented identifier or password did
	// not match an account. It carries no detail about which.
	ErrBadCredentials = errors.New("bad credentials")
	// ErrAccountLocked indicates the account is under an active lockout window.
	ErrAccountLocked = errors.New("account locked")
	// ErrTokenInvalid is the single collapsed rejection for any presented
	// token that cannot be honored: bad signature, expired, revoked, or
	// never issued.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenGeneration indicates the signing infrastructure failed. It is
	// the one fatal error on the token path and always propagates.
	ErrTokenGeneration = errors.New("token generation failed")
	// ErrTooManyRequests indicates a blocked IP or an exhausted rate limit.
	ErrTooManyRequests = errors.New("too many requests")
	// ErrPasswordPolicyViolation indicates the supplied password fails the
	// registration policy.
	ErrPasswordPolicyViolation = errors.New("password policy violation")
	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
)
