package models

import (
	"strings"
	"time"
)

// Client authentication modes
const (
	AuthModePasswordOnly = "PASSWORD_ONLY"
	AuthModeIITDOnly     = "IITD_ONLY"
	AuthModeBoth         = "BOTH"
)

// Client is a registered relying party permitted to initiate logins.
type Client struct {
	ID           string `gorm:"primaryKey"`
	ClientID     string `gorm:"uniqueIndex;not null"` // public identifier, used in URLs
	ClientSecret string `gorm:"not null"`             // introspection credential; single field, rotation replaces in place
	Name         string `gorm:"not null"`
	RedirectURIs string `gorm:"type:text"` // comma-separated allow-list, exact match only
	AuthMode     string `gorm:"not null;default:'BOTH'"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RedirectURIList returns the registered redirect URIs, trimmed
func (c *Client) RedirectURIList() []string {
	if strings.TrimSpace(c.RedirectURIs) == "" {
		return nil
	}
	var uris []string
	for _, uri := range strings.Split(c.RedirectURIs, ",") {
		if trimmed := strings.TrimSpace(uri); trimmed != "" {
			uris = append(uris, trimmed)
		}
	}
	return uris
}

// AllowsPassword returns true if the client permits password login/signup
func (c *Client) AllowsPassword() bool {
	return c.AuthMode == AuthModePasswordOnly || c.AuthMode == AuthModeBoth
}

// AllowsFederation returns true if the client permits IITD login
func (c *Client) AllowsFederation() bool {
	return c.AuthMode == AuthModeIITDOnly || c.AuthMode == AuthModeBoth
}

func (Client) TableName() string {
	return "clients"
}
