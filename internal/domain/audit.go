package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditEventType is the closed set of security events the service records.
type AuditEventType string

const (
	AuditOTPSent         AuditEventType = "otp_sent"
	AuditOTPVerified     AuditEventType = "otp_verified"
	AuditOTPFailed       AuditEventType = "otp_failed"
	AuditResetSuccess    AuditEventType = "reset_success"
	AuditAccountLocked   AuditEventType = "account_locked"
	AuditAccountUnlocked AuditEventType = "account_unlocked"
	AuditLoginSuccess    AuditEventType = "login_success"
	AuditLoginFailed     AuditEventType = "login_failed"
)

// AuditEvent is append-only. Writes are best-effort: a failed append is
// logged and swallowed, never surfaced to the caller.
type AuditEvent struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" db:"id"`
	UserID    *UserID        `gorm:"type:uuid" db:"user_id"`
	EventType AuditEventType `gorm:"type:text;not null" db:"event_type"`
	IP        string         `gorm:"type:text" db:"ip"`
	UserAgent string         `gorm:"type:text" db:"user_agent"`
	Details   []byte         `gorm:"type:jsonb" db:"details"` // jsonb
	CreatedAt time.Time      `gorm:"not null" db:"created_at"`
}

func (AuditEvent) TableName() string { return "password_reset_logs" }
