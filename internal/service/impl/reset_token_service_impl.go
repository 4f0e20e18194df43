package impl

import (
	"time"

	"auth/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const resetTokenIssuer = "johri-auth/password-reset"

type ResetTokenConfig struct {
	SigningKey []byte        // HS256 secret
	TTL        time.Duration // e.g. 10 * time.Minute
}

// ResetTokenServiceImpl issues the verification token returned by a
// successful reset OTP. The token is an HS256 JWT bound to the user id and
// a dedicated issuer, so it cannot be fabricated by shape and expires on
// its own.
type ResetTokenServiceImpl struct {
	cfg ResetTokenConfig
}

func NewResetTokenServiceHS256(cfg ResetTokenConfig) *ResetTokenServiceImpl {
	return &ResetTokenServiceImpl{cfg: cfg}
}

func (t *ResetTokenServiceImpl) Issue(userID domain.UserID) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    resetTokenIssuer,
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.cfg.TTL)),
		ID:        uuid.New().String(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.cfg.SigningKey)
}

func (t *ResetTokenServiceImpl) Verify(token string) (domain.UserID, error) {
	claims := &jwt.RegisteredClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(resetTokenIssuer),
		jwt.WithExpirationRequired(),
	)
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return t.cfg.SigningKey, nil
	})
	if err != nil || !parsed.Valid {
		return uuid.Nil, domain.ErrInvalidResetToken
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, domain.ErrInvalidResetToken
	}
	return userID, nil
}
