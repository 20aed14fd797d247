package models

import (
	"strings"
	"time"
)

// Account type constants
const (
	TypeInternal = "INTERNAL"
	TypeExternal = "EXTERNAL"
)

// Global role tags
const (
	RoleAdmin      = "ADMIN"
	RoleUser       = "USER"
	RoleSuperAdmin = "SUPERADMIN"
)

type User struct {
	ID           string `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	Name         string
	PasswordHash string // Federation-only users have empty password
	IsActive     bool   `gorm:"not null;default:true"`
	Roles        string `gorm:"not null;default:'USER'"` // space-separated role tags
	Type         string `gorm:"not null;default:'INTERNAL'"`

	// IITD federation attributes (source of truth is the external IdP once used)
	KerberosID string `gorm:"index"`
	IITDUUID   string
	Department string
	Category   string

	Mobile      string
	IsOnboarded bool `gorm:"not null;default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RoleList returns the user's global roles as a slice
func (u *User) RoleList() []string {
	return strings.Fields(u.Roles)
}

// HasRole returns true if the user carries the given global role
func (u *User) HasRole(role string) bool {
	for _, r := range u.RoleList() {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin returns true if the user has the ADMIN or SUPERADMIN role
func (u *User) IsAdmin() bool {
	return u.HasRole(RoleAdmin) || u.HasRole(RoleSuperAdmin)
}

// IsFederated returns true if the user has logged in via the external IdP
func (u *User) IsFederated() bool {
	return u.KerberosID != ""
}
