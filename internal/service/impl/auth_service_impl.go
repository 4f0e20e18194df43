package impl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"auth/internal/domain"
	"auth/internal/dto"
	"auth/internal/observability/metrics"
	"auth/internal/policy"
	"auth/internal/service"
	"auth/internal/store"

	"github.com/google/uuid"
)

type AuthServiceImpl struct {
	flow      otpFlow
	passwords service.PasswordService
}

func NewAuthServiceImpl(st *store.Store, passwords service.PasswordService, audit service.AuditRecorder, cfg OTPConfig) *AuthServiceImpl {
	return &AuthServiceImpl{
		flow:      otpFlow{store: st, audit: audit, cfg: cfg.withDefaults()},
		passwords: passwords,
	}
}

// AuthenticateLocal is the username/password flow. Failures never lock the
// account; password brute force is mitigated by request rate limiting at the
// boundary, not by the OTP attempt ladder.
func (a *AuthServiceImpl) AuthenticateLocal(ctx context.Context, r dto.LoginRequest, ip, ua string) (*dto.AuthenticatedUser, error) {
	result := "failure"
	defer func() { metrics.AuthLoginsTotal.WithLabelValues("local", result).Inc() }()

	if r.Username == "" || r.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := a.flow.store.Users().GetByUsername(ctx, r.Username)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			// Indistinguishable from a wrong password at the message level.
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	now := time.Now().UTC()
	if policy.IsLocked(user, now) {
		a.flow.audit.Record(ctx, &user.ID, domain.AuditLoginFailed, ip, ua, map[string]any{
			"reason":   "Login attempt on locked account",
			"username": r.Username,
		})
		return nil, lockedForLogin(user)
	}
	if err := a.flow.applyAutoUnlock(ctx, user, now, ip, ua); err != nil {
		return nil, err
	}

	if user.PasswordHash == nil {
		// OTP-only account; no password to compare against.
		return nil, domain.ErrInvalidCredentials
	}
	rehashNeeded, ok := a.passwords.Verify(r.Password, *user.PasswordHash)
	if !ok {
		a.flow.audit.Record(ctx, &user.ID, domain.AuditLoginFailed, ip, ua, map[string]any{
			"reason":   "Invalid password during login",
			"username": r.Username,
		})
		return nil, domain.ErrInvalidCredentials
	}
	if rehashNeeded {
		newHash, err := a.passwords.Hash(r.Password)
		if err != nil {
			return nil, err
		}
		if err := a.flow.store.Users().UpdatePassword(ctx, user.ID, newHash); err != nil {
			return nil, err
		}
	}

	return a.finishLogin(ctx, user, ip, ua, map[string]any{"username": r.Username}, &result)
}

// AuthenticateOAuth resolves or provisions an account from a verified OAuth
// profile. Locked accounts are rejected before any upsert.
func (a *AuthServiceImpl) AuthenticateOAuth(ctx context.Context, r dto.OAuthLoginRequest, ip, ua string) (*dto.AuthenticatedUser, error) {
	result := "failure"
	defer func() { metrics.AuthLoginsTotal.WithLabelValues("oauth", result).Inc() }()

	if r.SubjectID == "" || r.Email == "" {
		return nil, ErrBadOAuthProfile
	}

	user, err := a.flow.store.Users().GetByGoogleID(ctx, r.SubjectID)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrRecordNotFound):
		user, err = a.upsertByEmail(ctx, r, ip, ua)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	now := time.Now().UTC()
	if policy.IsLocked(user, now) {
		a.flow.audit.Record(ctx, &user.ID, domain.AuditLoginFailed, ip, ua, map[string]any{
			"reason": "OAuth attempt on locked account",
			"email":  r.Email,
		})
		return nil, &domain.LockedError{
			ExpiresAt: user.LockoutExpiresAt,
			Message:   "Your account is temporarily locked. Please use password reset to unlock your account.",
		}
	}
	if err := a.flow.applyAutoUnlock(ctx, user, now, ip, ua); err != nil {
		return nil, err
	}

	return a.finishLogin(ctx, user, ip, ua, map[string]any{"method": "google"}, &result)
}

func (a *AuthServiceImpl) upsertByEmail(ctx context.Context, r dto.OAuthLoginRequest, ip, ua string) (*domain.User, error) {
	user, err := a.flow.store.Users().GetByEmail(ctx, r.Email)
	switch {
	case err == nil:
		if err := a.flow.store.Users().SetGoogleID(ctx, user.ID, r.SubjectID); err != nil {
			return nil, err
		}
		gid := r.SubjectID
		user.GoogleID = &gid
		return user, nil
	case errors.Is(err, store.ErrRecordNotFound):
		now := time.Now().UTC()
		email := r.Email
		gid := r.SubjectID
		user = &domain.User{
			ID:        uuid.New(),
			Username:  strings.ToLower(r.Email),
			Email:     &email,
			GoogleID:  &gid,
			Role:      domain.RoleViewer,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if r.Name != "" {
			name := r.Name
			user.DisplayName = &name
		}
		if r.Picture != "" {
			pic := r.Picture
			user.ProfilePicture = &pic
		}
		if err := a.flow.store.Users().Create(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	default:
		return nil, err
	}
}

// finishLogin clears residual OTPs, audits the success and hands back the
// session-bindable identity with credential material stripped.
func (a *AuthServiceImpl) finishLogin(ctx context.Context, user *domain.User, ip, ua string, details map[string]any, result *string) (*dto.AuthenticatedUser, error) {
	if err := a.flow.store.OTPs().DeleteAllForUser(ctx, user.ID); err != nil {
		return nil, err
	}
	if details == nil {
		details = map[string]any{}
	}
	details["loginTime"] = time.Now().UTC().Format(time.RFC3339)
	a.flow.audit.Record(ctx, &user.ID, domain.AuditLoginSuccess, ip, ua, details)
	*result = "success"
	return dto.NewAuthenticatedUser(user), nil
}

func lockedForLogin(user *domain.User) *domain.LockedError {
	if user.LockoutExpiresAt != nil {
		return &domain.LockedError{
			ExpiresAt: user.LockoutExpiresAt,
			Message: fmt.Sprintf(
				"Account is temporarily locked until %s. Use password reset to unlock immediately.",
				user.LockoutExpiresAt.Format(time.RFC1123)),
		}
	}
	return &domain.LockedError{
		Message: "Account is temporarily locked. Please try again later or use password reset.",
	}
}
