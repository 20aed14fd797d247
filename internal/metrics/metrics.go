package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder defines the interface for recording application metrics.
// Implementations include Metrics (Prometheus-based) and NoopMetrics (no-op).
type Recorder interface {
	// Authentication
	RecordLogin(authSource string, success bool)
	RecordLogout()
	RecordFederatedCallback(success bool)
	RecordExternalAPICall(provider string, duration time.Duration)

	// Token Operations
	RecordTokenIssued(tokenKind string)
	RecordTokenRefresh(success bool)
	RecordTokenValidation(tokenKind, result string)

	// Session Management
	RecordSessionRevoked(reason string)
	RecordSessionsSwept(count int)
	SetActiveSessionsCount(count int)

	// Signup OTP
	RecordOTPRequested(success bool)
	RecordOTPVerified(result string)

	// Mail Delivery
	RecordMailSent(success bool)

	// Database Operations
	RecordDatabaseQueryError(operation string)
}

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Authentication Metrics
	LoginTotal             *prometheus.CounterVec
	LogoutTotal            prometheus.Counter
	FederatedCallbackTotal *prometheus.CounterVec
	ExternalAPIDuration    *prometheus.HistogramVec

	// Token Metrics
	TokensIssuedTotal    *prometheus.CounterVec
	TokensRefreshedTotal *prometheus.CounterVec
	TokenValidationTotal *prometheus.CounterVec

	// Session Metrics
	SessionsActive       prometheus.Gauge
	SessionsRevokedTotal *prometheus.CounterVec
	SessionsSweptTotal   prometheus.Counter

	// Signup OTP Metrics
	OTPRequestedTotal *prometheus.CounterVec
	OTPVerifiedTotal  *prometheus.CounterVec

	// Mail Metrics
	MailSentTotal *prometheus.CounterVec

	// HTTP Request Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Database Query Metrics
	DatabaseQueryErrorsTotal *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init initializes metrics based on enabled flag
// If enabled=true, returns Prometheus-based Metrics
// If enabled=false, returns NoopMetrics (zero overhead)
// Uses sync.Once to ensure Prometheus metrics are only registered once
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

// initMetrics creates and registers all Prometheus metrics
func initMetrics() *Metrics {
	return &Metrics{
		// Authentication Metrics
		LoginTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_login_total",
				Help: "Total number of login attempts",
			},
			[]string{"source", "result"}, // source: password, iitd
		),
		LogoutTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "auth_logout_total",
				Help: "Total number of logouts",
			},
		),
		FederatedCallbackTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_federated_callback_total",
				Help: "Total number of federated login callbacks",
			},
			[]string{"result"},
		),
		ExternalAPIDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "auth_external_api_duration_seconds",
				Help:    "Duration of calls to external identity providers",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),

		// Token Metrics
		TokensIssuedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_tokens_issued_total",
				Help: "Total number of tokens issued",
			},
			[]string{"kind"}, // access, refresh, onboarding
		),
		TokensRefreshedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_tokens_refreshed_total",
				Help: "Total number of refresh attempts",
			},
			[]string{"result"},
		),
		TokenValidationTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_token_validation_total",
				Help: "Total number of token validations",
			},
			[]string{"kind", "result"}, // result: valid, invalid, expired
		),

		// Session Metrics
		SessionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "auth_sessions_active",
				Help: "Current number of unexpired sessions",
			},
		),
		SessionsRevokedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_sessions_revoked_total",
				Help: "Total number of sessions revoked",
			},
			[]string{"reason"}, // logout, revoke_all, rotation_replaced
		),
		SessionsSweptTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "auth_sessions_swept_total",
				Help: "Total number of expired sessions removed by the sweeper",
			},
		),

		// Signup OTP Metrics
		OTPRequestedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_otp_requested_total",
				Help: "Total number of signup OTP requests",
			},
			[]string{"result"},
		),
		OTPVerifiedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_otp_verified_total",
				Help: "Total number of signup OTP verification attempts",
			},
			[]string{"result"}, // success, invalid, expired, not_found
		),

		// Mail Metrics
		MailSentTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_mail_sent_total",
				Help: "Total number of outbound mail deliveries",
			},
			[]string{"result"},
		),

		// HTTP Request Metrics
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being served",
			},
		),

		// Database Query Metrics
		DatabaseQueryErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "database_query_errors_total",
				Help: "Total number of database query errors",
			},
			[]string{"operation"},
		),
	}
}

// GetMetrics returns the initialized Prometheus metrics, or nil when disabled.
func GetMetrics() *Metrics {
	return defaultMetrics
}

// RecordLogin records a login attempt
func (m *Metrics) RecordLogin(authSource string, success bool) {
	result := resultSuccess
	if !success {
		result = resultFailure
	}
	m.LoginTotal.WithLabelValues(authSource, result).Inc()

	if success {
		m.SessionsActive.Inc()
	}
}

// RecordLogout records a logout
func (m *Metrics) RecordLogout() {
	m.LogoutTotal.Inc()
	m.SessionsActive.Dec()
	m.SessionsRevokedTotal.WithLabelValues("logout").Inc()
}

// RecordFederatedCallback records a federated login callback
func (m *Metrics) RecordFederatedCallback(success bool) {
	result := resultSuccess
	if !success {
		result = resultError
	}
	m.FederatedCallbackTotal.WithLabelValues(result).Inc()
}

// RecordExternalAPICall records an external identity provider call
func (m *Metrics) RecordExternalAPICall(provider string, duration time.Duration) {
	m.ExternalAPIDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordTokenIssued records token issuance
func (m *Metrics) RecordTokenIssued(tokenKind string) {
	m.TokensIssuedTotal.WithLabelValues(tokenKind).Inc()
}

// RecordTokenRefresh records a refresh attempt
func (m *Metrics) RecordTokenRefresh(success bool) {
	result := resultSuccess
	if !success {
		result = resultError
	}
	m.TokensRefreshedTotal.WithLabelValues(result).Inc()
}

// RecordTokenValidation records a token validation
func (m *Metrics) RecordTokenValidation(tokenKind, result string) {
	m.TokenValidationTotal.WithLabelValues(tokenKind, result).Inc()
}

// RecordSessionRevoked records a session revocation
func (m *Metrics) RecordSessionRevoked(reason string) {
	m.SessionsActive.Dec()
	m.SessionsRevokedTotal.WithLabelValues(reason).Inc()
}

// RecordSessionsSwept records expired sessions removed by the sweeper
func (m *Metrics) RecordSessionsSwept(count int) {
	m.SessionsSweptTotal.Add(float64(count))
	m.SessionsActive.Sub(float64(count))
}

// SetActiveSessionsCount sets the current count of unexpired sessions
func (m *Metrics) SetActiveSessionsCount(count int) {
	m.SessionsActive.Set(float64(count))
}

// RecordOTPRequested records a signup OTP request
func (m *Metrics) RecordOTPRequested(success bool) {
	result := resultSuccess
	if !success {
		result = resultError
	}
	m.OTPRequestedTotal.WithLabelValues(result).Inc()
}

// RecordOTPVerified records an OTP verification attempt
func (m *Metrics) RecordOTPVerified(result string) {
	m.OTPVerifiedTotal.WithLabelValues(result).Inc()
}

// RecordMailSent records an outbound mail delivery
func (m *Metrics) RecordMailSent(success bool) {
	result := resultSuccess
	if !success {
		result = resultError
	}
	m.MailSentTotal.WithLabelValues(result).Inc()
}

// RecordDatabaseQueryError records a database query error
func (m *Metrics) RecordDatabaseQueryError(operation string) {
	m.DatabaseQueryErrorsTotal.WithLabelValues(operation).Inc()
}
