package domain

import "time"

type User struct {
	ID                UserID     `gorm:"type:uuid;primaryKey" db:"id" json:"id"`
	Username          string     `gorm:"type:citext;uniqueIndex:ux_users_username" db:"username" json:"username"`
	Email             *string    `gorm:"type:citext;uniqueIndex:ux_users_email" db:"email" json:"email,omitempty"`
	PhoneNumber       *string    `gorm:"type:text;uniqueIndex:ux_users_phone" db:"phone_number" json:"phoneNumber,omitempty"`
	BackupPhoneNumber *string    `gorm:"type:text" db:"backup_phone_number" json:"-"`
	GoogleID          *string    `gorm:"type:text;uniqueIndex:ux_users_google_id" db:"google_id" json:"-"`
	DisplayName       *string    `gorm:"type:text" db:"display_name" json:"displayName,omitempty"`
	ProfilePicture    *string    `gorm:"type:text" db:"profile_picture" json:"-"`
	PasswordHash      *string    `gorm:"type:text" db:"password_hash" json:"-"` // nil for OTP-only accounts
	Role              Role       `gorm:"type:text;not null" db:"role" json:"role"`
	IsLocked          bool       `gorm:"not null;default:false" db:"is_locked" json:"-"`
	LockoutExpiresAt  *time.Time `db:"lockout_expires_at" json:"-"` // nil while locked means indefinite
	CreatedAt         time.Time  `gorm:"not null" db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time  `gorm:"not null" db:"updated_at" json:"updatedAt"`
}

func (User) TableName() string { return "users" }

// ContactName is the name used when addressing the user in outbound
// messages. Falls back to the username for accounts without a display name.
func (u *User) ContactName() string {
	if u.DisplayName != nil && *u.DisplayName != "" {
		return *u.DisplayName
	}
	return u.Username
}
