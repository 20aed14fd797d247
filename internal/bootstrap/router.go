package bootstrap

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/bsw-iitd/auth-server/internal/config"
	"github.com/bsw-iitd/auth-server/internal/metrics"
	"github.com/bsw-iitd/auth-server/internal/middleware"
	"github.com/bsw-iitd/auth-server/internal/models"
	"github.com/bsw-iitd/auth-server/internal/store"
	"github.com/bsw-iitd/auth-server/internal/token"
	"github.com/bsw-iitd/auth-server/internal/util"
)

// setupRouter configures the Gin router with all routes and middleware
func setupRouter(
	cfg *config.Config,
	db *store.Store,
	tokens *token.Provider,
	h handlerSet,
	recorder metrics.Recorder,
	rateLimitRedisClient *redis.Client,
) *gin.Engine {
	setupGinMode(cfg)
	r := gin.New()

	r.Use(metrics.HTTPMetricsMiddleware(recorder))
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(util.IPMiddleware())

	r.GET("/health", createHealthCheckHandler(db))
	setupMetricsEndpoint(r, cfg)

	rateLimiters := setupRateLimiting(cfg, rateLimitRedisClient)
	requireAuth := middleware.RequireAuth(tokens, cfg.AccessCookieName)

	// Authentication and token lifecycle
	auth := r.Group("/auth")
	{
		auth.GET("/authorize", h.auth.Authorize)
		auth.POST("/login", rateLimiters.login, h.auth.Login)
		auth.POST("/refresh", h.auth.Refresh)
		auth.POST("/logout", h.auth.Logout)
		auth.POST("/introspect", h.auth.Introspect)
		auth.GET("/profile", requireAuth, h.auth.Profile)
		auth.POST("/dummy/insert", h.auth.DummyInsert)

		auth.GET("/sessions", requireAuth, h.session.List)
		auth.POST("/sessions/revoke-all", requireAuth, h.session.RevokeAll)

		signup := auth.Group("/signup")
		{
			signup.POST("/request-otp", rateLimiters.otp, h.signup.RequestOTP)
			signup.POST("/verify-otp", rateLimiters.otp, h.signup.VerifyOTP)
		}
	}

	// Federated login
	iitd := r.Group("/iitd/oauth")
	{
		iitd.GET("/redirect", h.iitd.Redirect)
		iitd.GET("/callback", h.iitd.Callback)
	}

	// Client registry administration
	clients := r.Group("/clients")
	clients.Use(requireAuth, middleware.RequireRole(models.RoleAdmin))
	{
		clients.POST("", h.client.Create)
		clients.GET("", h.client.List)
		clients.GET("/:client_id", h.client.Get)
		clients.PATCH("/:client_id", h.client.Update)
		clients.POST("/:client_id/rotate-secret", h.client.RotateSecret)
		clients.DELETE("/:client_id", h.client.Delete)
	}

	logServerStartup(cfg)
	return r
}

// setupMetricsEndpoint configures the Prometheus metrics endpoint
func setupMetricsEndpoint(r *gin.Engine, cfg *config.Config) {
	switch {
	case !cfg.MetricsEnabled:
		log.Printf("Prometheus metrics disabled")
	case cfg.MetricsToken != "":
		log.Printf("Prometheus metrics enabled at /metrics with Bearer token authentication")
		r.GET(
			"/metrics",
			middleware.MetricsAuthMiddleware(cfg.MetricsToken),
			gin.WrapH(promhttp.Handler()),
		)
	default:
		log.Printf("Prometheus metrics enabled at /metrics (no authentication)")
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}

// createHealthCheckHandler creates health check endpoint handler
func createHealthCheckHandler(db *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch err := db.Health(); err {
		case nil:
			c.JSON(http.StatusOK, gin.H{
				"status":   "healthy",
				"database": "connected",
			})
		default:
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "disconnected",
			})
		}
	}
}

// setupGinMode sets Gin mode based on environment configuration
func setupGinMode(cfg *config.Config) {
	mode := ginModeMap[cfg.IsProduction()]
	gin.SetMode(mode)
	log.Printf("Gin mode: %s", ginModeLogMessage[cfg.IsProduction()])
}

var ginModeMap = map[bool]string{
	true:  gin.ReleaseMode,
	false: gin.DebugMode,
}

var ginModeLogMessage = map[bool]string{
	true:  "Release (production)",
	false: "Debug (development)",
}

// logServerStartup logs server startup information
func logServerStartup(cfg *config.Config) {
	log.Printf("Auth server starting on %s", cfg.ServerAddr)
	log.Printf("Frontend login page: %s/login", cfg.FrontendURL)
	log.Printf("Environment: %s", cfg.Environment)
}
