package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bsw-iitd/auth-server/internal/middleware"
	"github.com/bsw-iitd/auth-server/internal/services"
)

// SessionHandler lets an authenticated user inspect and revoke their own
// sessions.
type SessionHandler struct {
	sessions *services.SessionService
}

func NewSessionHandler(sessions *services.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// List returns the user's sessions, newest first. Hashes are never exposed.
func (h *SessionHandler) List(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	sessions, err := h.sessions.ListForUser(claims.Sub)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list sessions"})
		return
	}

	out := make([]gin.H, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, gin.H{
			"id":        s.ID,
			"userAgent": s.UserAgent,
			"ip":        s.IP,
			"createdAt": s.CreatedAt,
			"expiresAt": s.ExpiresAt,
			"expired":   s.IsExpired(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

// RevokeAll deletes every session of the user, signing out all devices.
func (h *SessionHandler) RevokeAll(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	if err := h.sessions.RevokeAllForUser(claims.Sub); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke sessions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "all sessions revoked"})
}
