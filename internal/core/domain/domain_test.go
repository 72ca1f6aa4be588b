package domain

import (
	"testing"
	"time"
)

func TestTokenLifecycle(t *testing.T) {
	token := Token{ID: "token-1", Value: "signed"}
	if !token.IsLive() {
		t.Fatal("fresh token should be live")
	}

	if !token.Revoke() {
		t.Fatal("first revoke should report a transition")
	}
	if token.IsLive() {
		t.Fatal("revoked token must not be live")
	}
	if token.Revoke() {
		t.Fatal("second revoke should be a no-op")
	}
}

func TestUserLockPredicates(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	unlocked := User{Active: true}
	if unlocked.IsLocked(now) {
		t.Fatal("user without lock expiry should be unlocked")
	}

	future := now.Add(time.Hour)
	locked := User{Active: false, LockExpiresAt: &future}
	if !locked.IsLocked(now) {
		t.Fatal("user with future expiry should be locked")
	}
	if locked.LockLapsed(now) {
		t.Fatal("active lock has not lapsed")
	}

	past := now.Add(-time.Minute)
	lapsed := User{Active: false, LockExpiresAt: &past}
	if lapsed.IsLocked(now) {
		t.Fatal("user with past expiry should not be locked")
	}
	if !lapsed.LockLapsed(now) {
		t.Fatal("past expiry with inactive flag should read as lapsed")
	}
}

func TestBlockedIPThreshold(t *testing.T) {
	record := BlockedIP{IP: "203.0.113.5", FailedAttempts: 2}
	if record.Blocked(3) {
		t.Fatal("two failures should not block at threshold three")
	}

	record.FailedAttempts = 3
	if !record.Blocked(3) {
		t.Fatal("three failures should block at threshold three")
	}
}
