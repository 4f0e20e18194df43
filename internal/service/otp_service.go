package service

import (
	"context"

	"auth/internal/dto"
)

// OTPLoginService covers phone-based login: code issuance (with the resend
// throttle) and verification with the lockout ladder.
type OTPLoginService interface {
	RequestOTP(ctx context.Context, r dto.OTPRequest, ip, ua string) (*dto.OTPRequestResponse, error)
	VerifyOTP(ctx context.Context, r dto.OTPVerifyRequest, ip, ua string) (*dto.AuthenticatedUser, error)
}
