package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/bsw-iitd/auth-server/internal/config"
	"github.com/bsw-iitd/auth-server/internal/middleware"
	"github.com/bsw-iitd/auth-server/internal/models"
	"github.com/bsw-iitd/auth-server/internal/services"
	"github.com/bsw-iitd/auth-server/internal/token"
)

// Client credential headers for server-to-server introspection
const (
	HeaderClientID     = "X-Client-Id"
	HeaderClientSecret = "X-Client-Secret"
)

type AuthHandler struct {
	auth    *services.AuthService
	clients *services.ClientService
	config  *config.Config
}

func NewAuthHandler(
	auth *services.AuthService,
	clients *services.ClientService,
	cfg *config.Config,
) *AuthHandler {
	return &AuthHandler{
		auth:    auth,
		clients: clients,
		config:  cfg,
	}
}

// Authorize validates the client and redirect URI, then sends the browser to
// the frontend login page with the client's metadata attached.
func (h *AuthHandler) Authorize(c *gin.Context) {
	clientID := c.Query("client_id")
	redirectURI := c.Query("redirect_uri")

	if clientID == "" || redirectURI == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "client_id and redirect_uri are required",
		})
		return
	}

	client, err := h.clients.FindByClientID(clientID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown client"})
		return
	}

	if !h.clients.IsRedirectAllowed(client, redirectURI) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "redirect URI not allowed"})
		return
	}

	login, err := url.Parse(h.config.FrontendURL + "/login")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid frontend URL"})
		return
	}

	q := login.Query()
	q.Set("client_id", client.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("auth_mode", client.AuthMode)
	if state := c.Query("state"); state != "" {
		q.Set("state", state)
	}
	login.RawQuery = q.Encode()

	c.Redirect(http.StatusFound, login.String())
}

type loginRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	ClientID    string `json:"clientId"`
	RedirectURI string `json:"redirectUri"`
	State       string `json:"state"`
}

// Login authenticates an email/password pair, anchors a session, and sets
// the token cookies. With a client context it also returns the redirect URL
// the frontend should send the browser to.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	var client *models.Client
	if req.ClientID != "" {
		found, err := h.clients.FindByClientID(req.ClientID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown client"})
			return
		}
		if !found.AllowsPassword() {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "client does not permit password login",
			})
			return
		}
		if req.RedirectURI != "" && !h.clients.IsRedirectAllowed(found, req.RedirectURI) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "redirect URI not allowed"})
			return
		}
		client = found
	}

	user, err := h.auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAccountDisabled):
			c.JSON(http.StatusForbidden, gin.H{"error": "Account is disabled"})
		case errors.Is(err, services.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		}
		return
	}

	clientID := ""
	if client != nil {
		clientID = client.ClientID
	}

	pair, err := h.auth.IssueTokens(
		c.Request.Context(),
		user,
		clientID,
		c.Request.UserAgent(),
		c.ClientIP(),
		services.SourcePassword,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue tokens"})
		return
	}

	setAuthCookies(c, h.config, pair)

	resp := gin.H{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"user":         userResponse(user),
	}
	if req.RedirectURI != "" {
		if redirect, err := redirectWithToken(req.RedirectURI, pair.AccessToken, req.State); err == nil {
			resp["redirectUrl"] = redirect
		}
	}

	c.JSON(http.StatusOK, resp)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
	ClientID     string `json:"clientId"`
}

// Refresh rotates the refresh token from the httpOnly cookie or request body
// and reissues the pair.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	_ = c.ShouldBindJSON(&req)

	refreshToken := req.RefreshToken
	if cookie, err := c.Cookie(h.config.RefreshCookieName); err == nil && cookie != "" {
		refreshToken = cookie
	}

	if refreshToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing refresh token"})
		return
	}

	pair, user, err := h.auth.Refresh(c.Request.Context(), refreshToken, req.ClientID)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrExpiredToken):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "refresh token expired"})
		case errors.Is(err, token.ErrInvalidToken),
			errors.Is(err, services.ErrSessionNotFound):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		case errors.Is(err, services.ErrAccountDisabled):
			c.JSON(http.StatusForbidden, gin.H{"error": "Account is disabled"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh failed"})
		}
		return
	}

	setAuthCookies(c, h.config, pair)

	c.JSON(http.StatusOK, gin.H{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"user":         userResponse(user),
	})
}

// Logout revokes the session behind the presented refresh token and clears
// the cookies. Always succeeds; revoking an unknown token is a no-op.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	_ = c.ShouldBindJSON(&req)

	refreshToken := req.RefreshToken
	if cookie, err := c.Cookie(h.config.RefreshCookieName); err == nil && cookie != "" {
		refreshToken = cookie
	}

	if refreshToken != "" {
		h.auth.RevokeByRefreshToken(c.Request.Context(), refreshToken)
	}

	clearAuthCookies(c, h.config)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

type introspectRequest struct {
	Token string `json:"token"`
}

// Introspect is the server-to-server token check. The calling service
// authenticates with its client credentials in headers; the response follows
// the introspection shape with active=false for any unverifiable token.
func (h *AuthHandler) Introspect(c *gin.Context) {
	clientID := c.GetHeader(HeaderClientID)
	clientSecret := c.GetHeader(HeaderClientSecret)

	if clientID == "" || clientSecret == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing client credentials"})
		return
	}

	if _, err := h.clients.Authenticate(clientID, clientSecret); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid client credentials"})
		return
	}

	var req introspectRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	claims, err := h.auth.Introspect(req.Token)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"active": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"active":      true,
		"sub":         claims.Sub,
		"email":       claims.Email,
		"name":        claims.Name,
		"type":        claims.Type,
		"globalRole":  claims.GlobalRole,
		"clientId":    claims.ClientID,
		"clientRoles": claims.ClientRoles,
		"iat":         claims.IssuedAt.Unix(),
		"exp":         claims.ExpiresAt.Unix(),
	})
}

// Profile returns the authenticated user's record.
func (h *AuthHandler) Profile(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	user, err := h.auth.GetUser(claims.Sub)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": userResponse(user)})
}

type dummyInsertRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
	Roles    string `json:"roles"`
	Type     string `json:"type"`
	Mobile   string `json:"mobile"`
}

// DummyInsert seeds a user directly, bypassing the OTP gate.
// Development only; production refuses.
func (h *AuthHandler) DummyInsert(c *gin.Context) {
	if h.config.IsProduction() {
		c.JSON(http.StatusForbidden, gin.H{"error": "not available in production"})
		return
	}

	var req dummyInsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	user, err := h.auth.CreateUser(c.Request.Context(), services.CreateUserRequest{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Roles:    req.Roles,
		Type:     req.Type,
		Mobile:   req.Mobile,
	})
	if err != nil {
		if errors.Is(err, services.ErrUserExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "user already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": userResponse(user)})
}

// redirectWithToken attaches the access token (and state passthrough) to the
// client's redirect URI.
func redirectWithToken(redirectURI, accessToken, state string) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("accessToken", accessToken)
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// userResponse strips credential material from a user record
func userResponse(u *models.User) gin.H {
	return gin.H{
		"id":          u.ID,
		"email":       u.Email,
		"name":        u.Name,
		"isActive":    u.IsActive,
		"roles":       u.RoleList(),
		"type":        u.Type,
		"kerberosId":  u.KerberosID,
		"department":  u.Department,
		"category":    u.Category,
		"mobile":      u.Mobile,
		"isOnboarded": u.IsOnboarded,
	}
}
