package service

import (
	"context"

	"auth/internal/domain"
)

// AuditRecorder is a best-effort side channel. Record returns nothing:
// persistence failures are the implementation's problem (logged, swallowed)
// and must never change the outcome of the operation being audited.
type AuditRecorder interface {
	Record(ctx context.Context, userID *domain.UserID, event domain.AuditEventType, ip, ua string, details map[string]any)
}
