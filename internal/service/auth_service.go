package service

import (
	"context"

	"auth/internal/dto"
)

// AuthService is the orchestrator boundary for login flows. All methods
// re-read user state from the store on every call; nothing is cached between
// attempts.
type AuthService interface {
	AuthenticateLocal(ctx context.Context, r dto.LoginRequest, ip, ua string) (*dto.AuthenticatedUser, error)
	AuthenticateOAuth(ctx context.Context, r dto.OAuthLoginRequest, ip, ua string) (*dto.AuthenticatedUser, error)
}
