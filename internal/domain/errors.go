package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrOTPExpired         = errors.New("otp expired")
	ErrInvalidResetToken  = errors.New("invalid reset token")
)

// NotFoundError carries flow-specific wording: the local login path hides
// account existence behind a generic credentials message, while the OTP and
// reset flows say plainly that no account matched.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return "not found: " + e.Message }

// LockedError reports an account under an active lockout. ExpiresAt is nil
// for indefinite locks.
type LockedError struct {
	ExpiresAt *time.Time
	Message   string
}

func (e *LockedError) Error() string { return "account locked" }

// OTPAttemptError is a wrong-code submission that did not yet exhaust the
// attempt budget.
type OTPAttemptError struct {
	Remaining int
}

func (e *OTPAttemptError) Error() string {
	return fmt.Sprintf("incorrect otp, %d attempts left", e.Remaining)
}

// RateLimitedError is returned when an OTP is requested inside the resend
// throttle window.
type RateLimitedError struct {
	RetryAfter int // seconds
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %ds", e.RetryAfter)
}

// PasswordPolicyError lists every strength rule the candidate password
// violated, not just the first.
type PasswordPolicyError struct {
	Violations []string
}

func (e *PasswordPolicyError) Error() string { return "password does not meet policy" }
