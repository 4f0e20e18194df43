package impl

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"auth/internal/domain"
	"auth/internal/dto"
	"auth/internal/observability/metrics"
	"auth/internal/policy"
	"auth/internal/service"
	"auth/internal/store"
)

type PasswordResetServiceImpl struct {
	flow      otpFlow
	passwords service.PasswordService
	tokens    service.ResetTokenService
	notifier  service.Notifier
}

func NewPasswordResetServiceImpl(st *store.Store, passwords service.PasswordService, tokens service.ResetTokenService, notifier service.Notifier, audit service.AuditRecorder, cfg OTPConfig) *PasswordResetServiceImpl {
	return &PasswordResetServiceImpl{
		flow:      otpFlow{store: st, audit: audit, cfg: cfg.withDefaults()},
		passwords: passwords,
		tokens:    tokens,
		notifier:  notifier,
	}
}

// Initiate resolves the role-scoped identifier, then issues and dispatches a
// reset code. Emails are reserved for Owner accounts, phone numbers for
// everyone else; a mismatch reads as not-found.
func (s *PasswordResetServiceImpl) Initiate(ctx context.Context, r dto.ResetInitiateRequest, ip, ua string) (*dto.ResetInitiateResponse, error) {
	if r.Identifier == "" {
		return nil, ErrEmptyIdentifier
	}

	user, dest, err := s.resolveScoped(ctx, r.Identifier)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if policy.IsLocked(user, now) {
		return nil, &domain.LockedError{
			ExpiresAt: user.LockoutExpiresAt,
			Message:   "Your account is temporarily locked due to multiple failed attempts.",
		}
	}
	if err := s.flow.applyAutoUnlock(ctx, user, now, ip, ua); err != nil {
		return nil, err
	}

	code, err := s.flow.issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	s.flow.audit.Record(ctx, &user.ID, domain.AuditOTPSent, ip, ua, map[string]any{"channel": string(dest.Channel)})

	if err := s.notifier.SendCode(ctx, dest, code, user.ContactName()); err != nil {
		return nil, err
	}

	msg := "OTP has been sent to your registered mobile number."
	if dest.Channel == service.ChannelEmail {
		msg = "OTP has been sent to your registered email address."
	}
	return &dto.ResetInitiateResponse{Message: msg}, nil
}

// VerifyOTP trades a correct code for a signed, short-lived reset token.
// Wrong codes walk the same attempt ladder as OTP login.
func (s *PasswordResetServiceImpl) VerifyOTP(ctx context.Context, r dto.ResetVerifyRequest, ip, ua string) (*dto.ResetVerifyResponse, error) {
	if r.Identifier == "" || r.OTP == "" {
		return nil, ErrEmptyCredential
	}

	user, err := s.resolveAny(ctx, r.Identifier)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if policy.IsLocked(user, now) {
		return nil, &domain.LockedError{
			ExpiresAt: user.LockoutExpiresAt,
			Message:   "Your account is temporarily locked due to multiple failures.",
		}
	}
	if err := s.flow.applyAutoUnlock(ctx, user, now, ip, ua); err != nil {
		return nil, err
	}

	if err := s.flow.verify(ctx, user, r.OTP, ip, ua); err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &dto.ResetVerifyResponse{
		Message: "OTP verified successfully. You can now reset your password.",
		Token:   token,
	}, nil
}

// Reset requires the verification token from VerifyOTP for the same user,
// enforces the password policy, persists the new hash, purges the OTP ledger
// and unlocks the account.
func (s *PasswordResetServiceImpl) Reset(ctx context.Context, r dto.ResetPasswordRequest, ip, ua string) error {
	tokenUserID, err := s.tokens.Verify(r.Token)
	if err != nil {
		return domain.ErrInvalidResetToken
	}

	user, err := s.resolveAny(ctx, r.Identifier)
	if err != nil {
		return err
	}
	if user.ID != tokenUserID {
		return domain.ErrInvalidResetToken
	}

	violations := policy.ValidatePasswordStrength(r.NewPassword)
	if r.ConfirmPassword != r.NewPassword {
		violations = append(violations, "Passwords do not match")
	}
	if len(violations) > 0 {
		return &domain.PasswordPolicyError{Violations: violations}
	}

	hash, err := s.passwords.Hash(r.NewPassword)
	if err != nil {
		return err
	}
	if err := s.flow.store.Users().UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}
	if err := s.flow.store.OTPs().DeleteAllForUser(ctx, user.ID); err != nil {
		return err
	}
	if err := s.flow.store.Users().Unlock(ctx, user.ID); err != nil {
		return err
	}
	s.flow.audit.Record(ctx, &user.ID, domain.AuditResetSuccess, ip, ua, nil)
	metrics.PasswordResetsTotal.Inc()

	dest := s.confirmationDestination(user, r.Identifier)
	if err := s.notifier.SendConfirmation(ctx, dest, user.ContactName()); err != nil {
		// The reset already happened; delivery of the courtesy note is
		// best-effort.
		slog.Warn("reset confirmation dispatch failed", "user_id", user.ID, "error", err)
	}
	return nil
}

// resolveScoped enforces the role/identifier pairing for reset initiation.
func (s *PasswordResetServiceImpl) resolveScoped(ctx context.Context, identifier string) (*domain.User, service.Destination, error) {
	if looksLikeEmail(identifier) {
		user, err := s.flow.store.Users().GetByEmail(ctx, identifier)
		if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
			return nil, service.Destination{}, err
		}
		if err != nil || user.Role != domain.RoleOwner {
			return nil, service.Destination{}, &domain.NotFoundError{
				Message: "No Super Admin account found with the provided email.",
			}
		}
		return user, service.Destination{Channel: service.ChannelEmail, Address: identifier}, nil
	}

	user, err := s.flow.store.Users().GetByPhoneNumber(ctx, identifier)
	if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
		return nil, service.Destination{}, err
	}
	if err != nil || user.Role == domain.RoleOwner {
		return nil, service.Destination{}, &domain.NotFoundError{
			Message: "No Jeweler account found with the provided mobile number.",
		}
	}
	return user, service.Destination{Channel: service.ChannelSMS, Address: identifier}, nil
}

func (s *PasswordResetServiceImpl) resolveAny(ctx context.Context, identifier string) (*domain.User, error) {
	var (
		user *domain.User
		err  error
	)
	if looksLikeEmail(identifier) {
		user, err = s.flow.store.Users().GetByEmail(ctx, identifier)
	} else {
		user, err = s.flow.store.Users().GetByPhoneNumber(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{Message: "No account found with the provided contact."}
		}
		return nil, err
	}
	return user, nil
}

func (s *PasswordResetServiceImpl) confirmationDestination(user *domain.User, identifier string) service.Destination {
	if looksLikeEmail(identifier) && user.Email != nil {
		return service.Destination{Channel: service.ChannelEmail, Address: *user.Email}
	}
	addr := identifier
	if user.PhoneNumber != nil {
		addr = *user.PhoneNumber
	}
	return service.Destination{Channel: service.ChannelSMS, Address: addr}
}

func looksLikeEmail(s string) bool { return strings.ContainsRune(s, '@') }
