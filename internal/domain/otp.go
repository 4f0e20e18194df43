package domain

import "time"

// OTPRecord is one issued one-time code. Only the most recently created
// record per user is ever consulted for verification; issuing a new code
// purges every older record for that user.
type OTPRecord struct {
	ID        OTPID     `gorm:"type:uuid;primaryKey" db:"id"`
	UserID    UserID    `gorm:"type:uuid;index:ix_otp_user" db:"user_id"`
	Code      string    `gorm:"type:text;not null" db:"code"`
	Attempts  int       `gorm:"not null;default:0" db:"attempts"`
	CreatedAt time.Time `gorm:"not null" db:"created_at"`
	ExpiresAt time.Time `gorm:"not null" db:"expires_at"`
}

func (OTPRecord) TableName() string { return "password_reset_otps" }

func (o *OTPRecord) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
