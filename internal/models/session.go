package models

import (
	"time"
)

// Session anchors a live refresh token to a user. Exactly one row backs one
// outstanding refresh token value; rotation replaces the hash and expiry in
// the same row.
type Session struct {
	ID               string `gorm:"primaryKey"`
	UserID           string `gorm:"not null;index"`
	RefreshTokenHash string `gorm:"not null"` // bcrypt hash; the plaintext is never stored
	UserAgent        string
	IP               string
	ExpiresAt        time.Time `gorm:"index"`
	CreatedAt        time.Time
}

func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
