package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents the type of audit event
type EventType string

const (
	// Authentication events
	EventLoginSuccess EventType = "LOGIN_SUCCESS"
	EventLoginFailure EventType = "LOGIN_FAILURE"
	EventLogout       EventType = "LOGOUT"
	EventIITDLogin    EventType = "IITD_LOGIN"

	// Token events
	EventAccessTokenIssued  EventType = "ACCESS_TOKEN_ISSUED"
	EventRefreshTokenIssued EventType = "REFRESH_TOKEN_ISSUED"
	EventTokenRefreshed     EventType = "TOKEN_REFRESHED"
	EventSessionRevoked     EventType = "SESSION_REVOKED"

	// Signup events
	EventOTPRequested EventType = "OTP_REQUESTED"
	EventOTPVerified  EventType = "OTP_VERIFIED"
	EventUserCreated  EventType = "USER_CREATED"

	// Client administration events
	EventClientCreated       EventType = "CLIENT_CREATED"
	EventClientUpdated       EventType = "CLIENT_UPDATED"
	EventClientDeleted       EventType = "CLIENT_DELETED"
	EventClientSecretRotated EventType = "CLIENT_SECRET_ROTATED"
)

// EventSeverity represents the severity level of an audit event
type EventSeverity string

const (
	SeverityInfo    EventSeverity = "INFO"
	SeverityWarning EventSeverity = "WARNING"
	SeverityError   EventSeverity = "ERROR"
)

// ResourceType represents the type of resource being operated on
type ResourceType string

const (
	ResourceUser    ResourceType = "USER"
	ResourceClient  ResourceType = "CLIENT"
	ResourceSession ResourceType = "SESSION"
	ResourceOTP     ResourceType = "OTP"
)

// AuditDetails stores additional event-specific information as JSON
type AuditDetails map[string]any

// Value implements the driver.Valuer interface for database storage
func (a AuditDetails) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil //nolint:nilnil // nil driver.Value represents SQL NULL
	}
	return json.Marshal(a)
}

// Scan implements the sql.Scanner interface for database retrieval
func (a *AuditDetails) Scan(value any) error {
	if value == nil {
		*a = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to unmarshal AuditDetails value: %v", value)
	}

	result := make(AuditDetails)
	if err := json.Unmarshal(bytes, &result); err != nil {
		return err
	}

	*a = result
	return nil
}

// AuditLog represents an immutable audit log entry
type AuditLog struct {
	ID string `gorm:"primaryKey;type:varchar(36)" json:"id"`

	EventType EventType     `gorm:"type:varchar(50);index;not null" json:"event_type"`
	EventTime time.Time     `gorm:"index;not null"                  json:"event_time"`
	Severity  EventSeverity `gorm:"type:varchar(20);not null"       json:"severity"`

	ActorUserID string `gorm:"type:varchar(36);index" json:"actor_user_id"`
	ActorIP     string `gorm:"type:varchar(45);index" json:"actor_ip"` // Support IPv6

	ResourceType ResourceType `gorm:"type:varchar(50);index" json:"resource_type"`
	ResourceID   string       `gorm:"type:varchar(36);index" json:"resource_id"`

	Action       string       `gorm:"type:varchar(255);not null" json:"action"`
	Details      AuditDetails `gorm:"type:json"                  json:"details"`
	Success      bool         `gorm:"index;not null"             json:"success"`
	ErrorMessage string       `gorm:"type:text"                  json:"error_message,omitempty"`

	// No UpdatedAt - audit logs are immutable
	CreatedAt time.Time `gorm:"index;not null" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
