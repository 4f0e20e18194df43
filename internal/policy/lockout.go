// Package policy holds the pure account-security decision logic: lockout
// evaluation, OTP attempt accounting, and expiry arithmetic. Nothing in this
// package performs I/O; callers persist whatever these functions decide.
package policy

import (
	"time"

	"auth/internal/domain"
)

const (
	DefaultOTPTTL          = 5 * time.Minute
	DefaultMaxOTPAttempts  = 5
	DefaultLockoutDuration = 15 * time.Minute

	// ResendWindow is the minimum gap between two OTP issues for the same
	// user, measured from the previous record's creation time.
	ResendWindow = 60 * time.Second
)

// IsLocked reports whether the user is under an active lockout. A lock whose
// expiry has passed is not a lock, but this function does not mutate the
// record; the caller must persist the unlock separately.
func IsLocked(u *domain.User, now time.Time) bool {
	if !u.IsLocked {
		return false
	}
	if u.LockoutExpiresAt != nil && now.After(*u.LockoutExpiresAt) {
		return false
	}
	return true
}

// LockExpired reports whether the user carries a lock flag whose expiry has
// already passed, i.e. the record is due for a lazy auto-unlock.
func LockExpired(u *domain.User, now time.Time) bool {
	return u.IsLocked && u.LockoutExpiresAt != nil && now.After(*u.LockoutExpiresAt)
}

// AttemptOutcome is the decision for one OTP submission.
type AttemptOutcome struct {
	Accepted          bool
	Expired           bool
	RemainingAttempts int
	ShouldLock        bool
}

// NextAttemptOutcome evaluates a submitted code against the record. An
// expired record short-circuits: the attempt counter is not charged.
// On mismatch the remaining budget is maxAttempts minus the attempts already
// recorded plus this one; the lock triggers exactly when it reaches zero.
func NextAttemptOutcome(rec *domain.OTPRecord, submitted string, maxAttempts int, now time.Time) AttemptOutcome {
	if rec.Expired(now) {
		return AttemptOutcome{Expired: true}
	}
	if rec.Code == submitted {
		return AttemptOutcome{Accepted: true}
	}
	remaining := maxAttempts - (rec.Attempts + 1)
	return AttemptOutcome{
		RemainingAttempts: remaining,
		ShouldLock:        remaining <= 0,
	}
}

// RetryAfter returns the seconds a caller must wait before the resend window
// reopens, rounded up, and whether the window is still closed.
func RetryAfter(lastIssued, now time.Time) (int, bool) {
	elapsed := now.Sub(lastIssued)
	if elapsed >= ResendWindow {
		return 0, false
	}
	wait := ResendWindow - elapsed
	secs := int((wait + time.Second - 1) / time.Second)
	return secs, true
}

func LockoutExpiry(now time.Time, d time.Duration) time.Time { return now.Add(d) }

func OTPExpiry(now time.Time, ttl time.Duration) time.Time { return now.Add(ttl) }
