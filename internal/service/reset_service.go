package service

import (
	"context"

	"auth/internal/dto"
)

// PasswordResetService is the OTP-gated reset flow: initiate dispatches a
// code to the role-appropriate channel, VerifyOTP trades a correct code for
// a short-lived signed token, Reset requires that token before any password
// change.
type PasswordResetService interface {
	Initiate(ctx context.Context, r dto.ResetInitiateRequest, ip, ua string) (*dto.ResetInitiateResponse, error)
	VerifyOTP(ctx context.Context, r dto.ResetVerifyRequest, ip, ua string) (*dto.ResetVerifyResponse, error)
	Reset(ctx context.Context, r dto.ResetPasswordRequest, ip, ua string) error
}
