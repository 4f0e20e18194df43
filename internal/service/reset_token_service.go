package service

import "auth/internal/domain"

// ResetTokenService issues and checks the verification token that gates the
// password change after a successful reset OTP. Tokens are signed and
// time-boxed; possession of the token is the only proof the reset endpoint
// accepts.
type ResetTokenService interface {
	Issue(userID domain.UserID) (string, error)
	Verify(token string) (domain.UserID, error)
}
