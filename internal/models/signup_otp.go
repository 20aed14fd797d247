package models

import (
	"time"
)

// SignupOTP is the one outstanding signup code for an email address.
// A new request overwrites the previous record.
type SignupOTP struct {
	Email     string `gorm:"primaryKey"`
	OTPHash   string `gorm:"not null"` // bcrypt hash of the 6-digit code
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (o *SignupOTP) IsExpired() bool {
	return time.Now().After(o.ExpiresAt)
}

func (SignupOTP) TableName() string {
	return "signup_otps"
}
