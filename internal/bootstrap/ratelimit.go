package bootstrap

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/bsw-iitd/auth-server/internal/config"
	"github.com/bsw-iitd/auth-server/internal/middleware"
)

// rateLimitMiddlewares holds rate limiting middlewares for different endpoints
type rateLimitMiddlewares struct {
	login gin.HandlerFunc
	otp   gin.HandlerFunc
}

// setupRateLimiting configures rate limiting middlewares based on configuration.
// Accepts an optional go-redis client for the redis store.
func setupRateLimiting(cfg *config.Config, redisClient *redis.Client) rateLimitMiddlewares {
	noOpMiddleware := func(c *gin.Context) { c.Next() }

	if !cfg.RateLimitEnabled {
		return rateLimitMiddlewares{
			login: noOpMiddleware,
			otp:   noOpMiddleware,
		}
	}

	log.Printf("[Bootstrap] rate limiting enabled (store: %s)", cfg.RateLimitStore)
	storeType := middleware.RateLimitStoreType(cfg.RateLimitStore)

	createLimiter := func(requestsPerMinute int, endpoint string) gin.HandlerFunc {
		limiter, err := middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerMinute: requestsPerMinute,
			StoreType:         storeType,
			RedisClient:       redisClient,
		})
		if err != nil {
			log.Fatalf("Failed to create rate limiter for %s: %v", endpoint, err)
		}
		return limiter
	}

	return rateLimitMiddlewares{
		login: createLimiter(cfg.LoginRatePerMin, "/auth/login"),
		otp:   createLimiter(cfg.OTPRatePerMin, "/auth/signup"),
	}
}
