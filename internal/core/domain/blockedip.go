package domain

import "time"

// BlockedIP is the single keyed failure record for a source address.
// The record is created on the first failure and only ever incremented;
// blocking is derived from the counter, never stored.
type BlockedIP struct {
	IP             string
	FailedAttempts int
	UserAgent      string
	LastFailedAt   time.Time
}

// Blocked reports whether the counter has reached the supplied threshold.
func (b BlockedIP) Blocked(threshold int) bool {
	return threshold > 0 && b.FailedAttempts >= threshold
}
