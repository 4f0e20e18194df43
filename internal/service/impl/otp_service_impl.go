package impl

import (
	"context"
	"errors"
	"time"

	"auth/internal/domain"
	"auth/internal/dto"
	"auth/internal/observability/metrics"
	"auth/internal/policy"
	"auth/internal/service"
	"auth/internal/store"

	"github.com/google/uuid"
)

type OTPLoginServiceImpl struct {
	flow     otpFlow
	notifier service.Notifier
}

func NewOTPLoginServiceImpl(st *store.Store, notifier service.Notifier, audit service.AuditRecorder, cfg OTPConfig) *OTPLoginServiceImpl {
	return &OTPLoginServiceImpl{
		flow:     otpFlow{store: st, audit: audit, cfg: cfg.withDefaults()},
		notifier: notifier,
	}
}

// RequestOTP provisions a Viewer account for unseen phone numbers, then
// issues and dispatches a code subject to the resend throttle.
func (s *OTPLoginServiceImpl) RequestOTP(ctx context.Context, r dto.OTPRequest, ip, ua string) (*dto.OTPRequestResponse, error) {
	if r.PhoneNumber == "" {
		return nil, ErrEmptyIdentifier
	}

	user, err := s.findOrCreateByPhone(ctx, r.PhoneNumber)
	if err != nil {
		return nil, err
	}

	code, err := s.flow.issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	s.flow.audit.Record(ctx, &user.ID, domain.AuditOTPSent, ip, ua, map[string]any{"channel": "sms"})

	dest := service.Destination{Channel: service.ChannelSMS, Address: r.PhoneNumber}
	if err := s.notifier.SendCode(ctx, dest, code, user.ContactName()); err != nil {
		return nil, err
	}

	return &dto.OTPRequestResponse{Message: "An OTP has been sent to your mobile number."}, nil
}

// VerifyOTP runs the submitted code through the attempt ladder and, on
// success, logs the user in and clears the ledger.
func (s *OTPLoginServiceImpl) VerifyOTP(ctx context.Context, r dto.OTPVerifyRequest, ip, ua string) (*dto.AuthenticatedUser, error) {
	result := "failure"
	defer func() { metrics.AuthLoginsTotal.WithLabelValues("otp", result).Inc() }()

	if r.PhoneNumber == "" || r.OTP == "" {
		return nil, ErrEmptyCredential
	}

	user, err := s.flow.store.Users().GetByPhoneNumber(ctx, r.PhoneNumber)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{Message: "User not found. Please request an OTP first."}
		}
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

	if err := s.flow.store.OTPs().DeleteAllForUser(ctx, user.ID); err != nil {
		return nil, err
	}
	s.flow.audit.Record(ctx, &user.ID, domain.AuditLoginSuccess, ip, ua, map[string]any{
		"method":    "otp",
		"loginTime": now.Format(time.RFC3339),
	})
	result = "success"
	return dto.NewAuthenticatedUser(user), nil
}

func (s *OTPLoginServiceImpl) findOrCreateByPhone(ctx context.Context, phone string) (*domain.User, error) {
	user, err := s.flow.store.Users().GetByPhoneNumber(ctx, phone)
	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, store.ErrRecordNotFound):
		now := time.Now().UTC()
		p := phone
		user = &domain.User{
			ID:          uuid.New(),
			Username:    "user_" + phone,
			PhoneNumber: &p,
			Role:        domain.RoleViewer,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.flow.store.Users().Create(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	default:
		return nil, err
	}
}
