package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/bsw-iitd/auth-server/internal/config"
	"github.com/bsw-iitd/auth-server/internal/services"
)

// setAuthCookies writes the access and refresh cookies. The refresh cookie is
// httpOnly; the browser never exposes it to scripts.
func setAuthCookies(c *gin.Context, cfg *config.Config, pair *services.TokenPair) {
	c.SetSameSite(cfg.CookieSameSite)
	c.SetCookie(
		cfg.AccessCookieName,
		pair.AccessToken,
		int(cfg.AccessTokenTTL.Seconds()),
		"/",
		cfg.CookieDomain,
		cfg.CookieSecure,
		false,
	)
	c.SetCookie(
		cfg.RefreshCookieName,
		pair.RefreshToken,
		int(cfg.RefreshTokenTTL.Seconds()),
		"/",
		cfg.CookieDomain,
		cfg.CookieSecure,
		true,
	)
}

// setOnboardingCookie writes the short-lived onboarding token cookie set
// after a successful signup verification.
func setOnboardingCookie(c *gin.Context, cfg *config.Config, onboardingToken string) {
	c.SetSameSite(cfg.CookieSameSite)
	c.SetCookie(
		cfg.OnboardingCookieName,
		onboardingToken,
		int(cfg.OnboardingTokenTTL.Seconds()),
		"/",
		cfg.CookieDomain,
		cfg.CookieSecure,
		true,
	)
}

// clearAuthCookies expires both token cookies
func clearAuthCookies(c *gin.Context, cfg *config.Config) {
	c.SetSameSite(cfg.CookieSameSite)
	c.SetCookie(cfg.AccessCookieName, "", -1, "/", cfg.CookieDomain, cfg.CookieSecure, false)
	c.SetCookie(cfg.RefreshCookieName, "", -1, "/", cfg.CookieDomain, cfg.CookieSecure, true)
}
