package metrics

import "time"

// NoopMetrics is a no-operation implementation of Recorder
// All methods are empty and do nothing, providing zero overhead when metrics are disabled
type NoopMetrics struct{}

// Ensure NoopMetrics implements Recorder interface at compile time
var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

// Authentication - noop implementations
func (n *NoopMetrics) RecordLogin(authSource string, success bool)                   {}
func (n *NoopMetrics) RecordLogout()                                                 {}
func (n *NoopMetrics) RecordFederatedCallback(success bool)                          {}
func (n *NoopMetrics) RecordExternalAPICall(provider string, duration time.Duration) {}

// Token Operations - noop implementations
func (n *NoopMetrics) RecordTokenIssued(tokenKind string)             {}
func (n *NoopMetrics) RecordTokenRefresh(success bool)                {}
func (n *NoopMetrics) RecordTokenValidation(tokenKind, result string) {}

// Session Management - noop implementations
func (n *NoopMetrics) RecordSessionRevoked(reason string) {}
func (n *NoopMetrics) RecordSessionsSwept(count int)      {}
func (n *NoopMetrics) SetActiveSessionsCount(count int)   {}

// Signup OTP - noop implementations
func (n *NoopMetrics) RecordOTPRequested(success bool) {}
func (n *NoopMetrics) RecordOTPVerified(result string) {}

// Mail Delivery - noop implementations
func (n *NoopMetrics) RecordMailSent(success bool) {}

// Database Operations - noop implementations
func (n *NoopMetrics) RecordDatabaseQueryError(operation string) {}
