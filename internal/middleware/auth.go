package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bsw-iitd/auth-server/internal/models"
	"github.com/bsw-iitd/auth-server/internal/token"
)

// Context keys set by RequireAuth
const (
	ContextUserID = "user_id"
	ContextClaims = "claims"
)

// RequireAuth verifies the access token from the Authorization header
// (Bearer scheme) or, failing that, from the access token cookie. The
// verified claims are stored on the context for handlers downstream.
func RequireAuth(tokens *token.Provider, accessCookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			if cookie, err := c.Cookie(accessCookieName); err == nil {
				raw = cookie
			}
		}

		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing access token",
			})
			return
		}

		claims, err := tokens.VerifyAccess(raw)
		if err != nil {
			message := "invalid access token"
			if errors.Is(err, token.ErrExpiredToken) {
				message = "access token expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
			return
		}

		c.Set(ContextUserID, claims.Sub)
		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// RequireRole gates a route on a global role claim.
// Must run after RequireAuth.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}

		for _, r := range claims.GlobalRole {
			if r == role || r == models.RoleSuperAdmin {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "insufficient role",
		})
	}
}

// GetClaims returns the verified access token claims, or nil outside an
// authenticated route.
func GetClaims(c *gin.Context) *token.AccessPayload {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil
	}
	claims, ok := v.(*token.AccessPayload)
	if !ok {
		return nil
	}
	return claims
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
