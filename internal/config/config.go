package config

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Rate limit store backends
const (
	RateLimitStoreMemory = "memory"
	RateLimitStoreRedis  = "redis"
)

// Default secrets that must never survive into production
const (
	defaultAccessSecret     = "access-secret-change-in-production"
	defaultRefreshSecret    = "refresh-secret-change-in-production"
	defaultOnboardingSecret = "onboarding-secret-change-in-production"
)

type Config struct {
	// Server settings
	ServerAddr  string
	BaseURL     string
	FrontendURL string
	Environment string // "development" or "production"

	// JWT settings: three independent secrets, never shared
	AccessTokenSecret     string
	RefreshTokenSecret    string
	OnboardingTokenSecret string
	AccessTokenTTL        time.Duration
	RefreshTokenTTL       time.Duration
	OnboardingTokenTTL    time.Duration

	// Database
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string

	// Cookie settings
	RefreshCookieName    string
	AccessCookieName     string
	OnboardingCookieName string
	CookieDomain         string
	CookieSecure         bool
	CookieSameSite       http.SameSite

	// IITD federation
	IITDClientID     string
	IITDClientSecret string
	IITDRedirectURI  string
	IITDAuthorizeURL string
	IITDTokenURL     string
	IITDUserinfoURL  string
	IITDTimeout      time.Duration
	IITDInsecureTLS  bool

	// Mail (OTP delivery)
	MailHost string
	MailPort int
	MailUser string
	MailPass string
	MailFrom string

	// OTP settings
	OTPTTL time.Duration

	// Session sweep
	SessionSweepInterval time.Duration

	// Rate limiting
	RateLimitEnabled bool
	RateLimitStore   string // "memory" or "redis"
	LoginRatePerMin  int
	OTPRatePerMin    int
	RedisAddr        string
	RedisPassword    string
	RedisDB          int

	// Metrics
	MetricsEnabled bool
	MetricsToken   string

	// Audit logging
	AuditEnabled    bool
	AuditBufferSize int
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	driver := getEnv("DATABASE_DRIVER", "sqlite")
	var dsn string
	if driver == "sqlite" {
		dsn = getEnv("DATABASE_DSN", "auth.db")
	} else {
		dsn = getEnv("DATABASE_DSN", "")
	}

	return &Config{
		ServerAddr:  getEnv("SERVER_ADDR", ":8080"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		Environment: getEnv("NODE_ENV", getEnv("ENVIRONMENT", "development")),

		AccessTokenSecret:     getEnv("JWT_ACCESS_SECRET", defaultAccessSecret),
		RefreshTokenSecret:    getEnv("JWT_REFRESH_SECRET", defaultRefreshSecret),
		OnboardingTokenSecret: getEnv("JWT_ONBOARDING_SECRET", defaultOnboardingSecret),
		AccessTokenTTL:        getEnvDuration("JWT_ACCESS_EXPIRES_IN", 15*time.Minute),
		RefreshTokenTTL:       getEnvDuration("JWT_REFRESH_EXPIRES_IN", 720*time.Hour), // 30 days
		OnboardingTokenTTL:    getEnvDuration("JWT_ONBOARDING_EXPIRES_IN", 15*time.Minute),

		DatabaseDriver: driver,
		DatabaseDSN:    dsn,

		RefreshCookieName:    getEnv("COOKIE_REFRESH_NAME", "refresh_token"),
		AccessCookieName:     getEnv("COOKIE_ACCESS_NAME", "access_token"),
		OnboardingCookieName: getEnv("COOKIE_ONBOARDING_NAME", "onboarding_token"),
		CookieDomain:         getEnv("COOKIE_DOMAIN", ""),
		CookieSecure:         getEnvBool("COOKIE_SECURE", false),
		CookieSameSite:       parseSameSite(getEnv("COOKIE_SAME_SITE", "lax")),

		IITDClientID:     getEnv("IITD_AUTH_CLIENT_ID", ""),
		IITDClientSecret: getEnv("IITD_AUTH_CLIENT_SECRET", ""),
		IITDRedirectURI:  getEnv("IITD_AUTH_REDIRECT_URI", ""),
		IITDAuthorizeURL: getEnv("IITD_AUTH_URL", ""),
		IITDTokenURL:     getEnv("IITD_TOKEN_URL", ""),
		IITDUserinfoURL:  getEnv("IITD_USERINFO", ""),
		IITDTimeout:      getEnvDuration("IITD_TIMEOUT", 7*time.Second),
		IITDInsecureTLS:  getEnvBool("IITD_INSECURE_SKIP_VERIFY", false),

		MailHost: getEnv("MAIL_SERVICE", "smtp.iitd.ac.in"),
		MailPort: getEnvInt("MAIL_PORT", 465),
		MailUser: getEnv("MAIL_USER", ""),
		MailPass: getEnv("MAIL_PASS", ""),
		MailFrom: getEnv("MAIL_FROM", getEnv("MAIL_USER", "")),

		OTPTTL: getEnvDuration("OTP_EXPIRES_IN", 10*time.Minute),

		SessionSweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", 1*time.Hour),

		RateLimitEnabled: getEnvBool("RATE_LIMIT_ENABLED", true),
		RateLimitStore:   getEnv("RATE_LIMIT_STORE", RateLimitStoreMemory),
		LoginRatePerMin:  getEnvInt("LOGIN_RATE_PER_MIN", 10),
		OTPRatePerMin:    getEnvInt("OTP_RATE_PER_MIN", 5),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvInt("REDIS_DB", 0),

		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		MetricsToken:   getEnv("METRICS_TOKEN", ""),

		AuditEnabled:    getEnvBool("AUDIT_ENABLED", true),
		AuditBufferSize: getEnvInt("AUDIT_BUFFER_SIZE", 1000),
	}
}

// IsProduction returns true when running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Validate checks configuration consistency before startup
func (c *Config) Validate() error {
	switch c.RateLimitStore {
	case RateLimitStoreMemory, RateLimitStoreRedis:
	default:
		return fmt.Errorf("invalid RATE_LIMIT_STORE value: %q (expected %q or %q)",
			c.RateLimitStore, RateLimitStoreMemory, RateLimitStoreRedis)
	}

	if c.DatabaseDriver != "sqlite" && c.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN is required for driver %q", c.DatabaseDriver)
	}

	// The three token kinds must never share a secret: a shared secret would
	// let a token of one kind verify as another.
	if c.AccessTokenSecret == c.RefreshTokenSecret ||
		c.AccessTokenSecret == c.OnboardingTokenSecret ||
		c.RefreshTokenSecret == c.OnboardingTokenSecret {
		return fmt.Errorf("JWT secrets must be distinct per token kind")
	}

	if c.IsProduction() {
		if c.AccessTokenSecret == defaultAccessSecret ||
			c.RefreshTokenSecret == defaultRefreshSecret ||
			c.OnboardingTokenSecret == defaultOnboardingSecret {
			return fmt.Errorf("default JWT secrets are not allowed in production")
		}
		if !c.CookieSecure {
			return fmt.Errorf("COOKIE_SECURE must be true in production")
		}
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		// Accept day suffixes like "30d" which time.ParseDuration rejects
		if d, ok := parseDays(value); ok {
			return d
		}
	}
	return defaultValue
}

func parseDays(value string) (time.Duration, bool) {
	if !strings.HasSuffix(value, "d") {
		return 0, false
	}
	var days int
	if _, err := fmt.Sscanf(strings.TrimSuffix(value, "d"), "%d", &days); err != nil {
		return 0, false
	}
	return time.Duration(days) * 24 * time.Hour, true
}

func parseSameSite(value string) http.SameSite {
	switch strings.ToLower(value) {
	case "none":
		return http.SameSiteNoneMode
	case "strict":
		return http.SameSiteStrictMode
	default:
		return http.SameSiteLaxMode
	}
}
