package impl

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"auth/internal/domain"
	"auth/internal/observability/metrics"
	"auth/internal/policy"
	"auth/internal/service"
	"auth/internal/store"

	"github.com/google/uuid"
)

type OTPConfig struct {
	TTL             time.Duration
	MaxAttempts     int
	LockoutDuration time.Duration
}

func (c OTPConfig) withDefaults() OTPConfig {
	if c.TTL <= 0 {
		c.TTL = policy.DefaultOTPTTL
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = policy.DefaultMaxOTPAttempts
	}
	if c.LockoutDuration <= 0 {
		c.LockoutDuration = policy.DefaultLockoutDuration
	}
	return c
}

// otpFlow is the ledger-plus-policy core shared by OTP login and password
// reset: throttled issuance and the attempt/lockout ladder. Every call
// re-reads store state; nothing is cached between attempts.
type otpFlow struct {
	store *store.Store
	audit service.AuditRecorder
	cfg   OTPConfig
}

// applyAutoUnlock persists the lazy unlock when a user record carries an
// already-expired lock. The in-memory record is updated so the caller can
// continue with the unlocked view.
func (f *otpFlow) applyAutoUnlock(ctx context.Context, u *domain.User, now time.Time, ip, ua string) error {
	if !policy.LockExpired(u, now) {
		return nil
	}
	if err := f.store.Users().Unlock(ctx, u.ID); err != nil {
		return err
	}
	u.IsLocked = false
	u.LockoutExpiresAt = nil
	f.audit.Record(ctx, &u.ID, domain.AuditAccountUnlocked, ip, ua, map[string]any{"reason": "Lockout expired"})
	slog.Info("auto-unlocked expired lockout", "user_id", u.ID)
	return nil
}

// issue enforces the resend throttle, purges every prior code for the user
// and persists a fresh record with a zeroed attempt counter.
func (f *otpFlow) issue(ctx context.Context, userID uuid.UUID) (string, error) {
	now := time.Now().UTC()

	last, err := f.store.OTPs().Latest(ctx, userID)
	switch {
	case err == nil:
		if secs, limited := policy.RetryAfter(last.CreatedAt, now); limited {
			return "", &domain.RateLimitedError{RetryAfter: secs}
		}
	case errors.Is(err, store.ErrRecordNotFound):
		// first code for this user
	default:
		return "", err
	}

	code, err := policy.GenerateOTP()
	if err != nil {
		return "", err
	}
	if err := f.store.OTPs().DeleteAllForUser(ctx, userID); err != nil {
		return "", err
	}
	rec := &domain.OTPRecord{
		ID:        uuid.New(),
		UserID:    userID,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: policy.OTPExpiry(now, f.cfg.TTL),
	}
	if err := f.store.OTPs().Create(ctx, rec); err != nil {
		return "", err
	}
	metrics.OTPsIssuedTotal.Inc()
	return code, nil
}

// verify runs one submission through the attempt ladder. Expired or missing
// records never charge the counter. A wrong code increments it and, exactly
// at the attempt budget, locks the account.
func (f *otpFlow) verify(ctx context.Context, u *domain.User, submitted, ip, ua string) error {
	now := time.Now().UTC()

	rec, err := f.store.OTPs().Latest(ctx, u.ID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return domain.ErrOTPExpired
		}
		return err
	}

	out := policy.NextAttemptOutcome(rec, submitted, f.cfg.MaxAttempts, now)
	switch {
	case out.Expired:
		return domain.ErrOTPExpired
	case out.Accepted:
		f.audit.Record(ctx, &u.ID, domain.AuditOTPVerified, ip, ua, nil)
		return nil
	}

	if err := f.store.OTPs().IncrementAttempts(ctx, rec.ID); err != nil {
		return err
	}
	if out.ShouldLock {
		expiry := policy.LockoutExpiry(now, f.cfg.LockoutDuration)
		if err := f.store.Users().Lock(ctx, u.ID, &expiry); err != nil {
			return err
		}
		metrics.AccountLocksTotal.Inc()
		f.audit.Record(ctx, &u.ID, domain.AuditAccountLocked, ip, ua, map[string]any{"reason": "Max OTP attempts exceeded"})
		return &domain.LockedError{
			ExpiresAt: &expiry,
			Message:   "Too many failed attempts. Your account is temporarily locked.",
		}
	}
	f.audit.Record(ctx, &u.ID, domain.AuditOTPFailed, ip, ua, map[string]any{
		"reason":            "Incorrect OTP",
		"remainingAttempts": out.RemainingAttempts,
	})
	return &domain.OTPAttemptError{Remaining: out.RemainingAttempts}
}
