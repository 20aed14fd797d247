package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/bsw-iitd/auth-server/internal/config"
	"github.com/bsw-iitd/auth-server/internal/metrics"
	"github.com/bsw-iitd/auth-server/internal/middleware"
	"github.com/bsw-iitd/auth-server/internal/models"
	"github.com/bsw-iitd/auth-server/internal/services"
	"github.com/bsw-iitd/auth-server/internal/store"
	"github.com/bsw-iitd/auth-server/internal/token"
)

// testEnv is a full HTTP handler environment over an in-memory store,
// wired the way the server wires it.
type testEnv struct {
	cfg      *config.Config
	store    *store.Store
	tokens   *token.Provider
	sessions *services.SessionService
	clients  *services.ClientService
	auth     *services.AuthService
	otp      *services.OTPService
	mailer   *captureMailer
	router   *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Environment:          "development",
		FrontendURL:          "http://localhost:5173",
		AccessTokenTTL:       time.Minute,
		RefreshTokenTTL:      time.Hour,
		OnboardingTokenTTL:   time.Minute,
		OTPTTL:               10 * time.Minute,
		AccessCookieName:     "access_token",
		RefreshCookieName:    "refresh_token",
		OnboardingCookieName: "onboarding_token",
		CookieSameSite:       http.SameSiteLaxMode,
	}

	s, err := store.New("sqlite", ":memory:")
	require.NoError(t, err)

	tokens := token.NewProvider(
		"access-secret", "refresh-secret", "onboarding-secret",
		cfg.AccessTokenTTL, cfg.RefreshTokenTTL, cfg.OnboardingTokenTTL,
	)

	recorder := metrics.NewNoopMetrics()
	audit := services.NewAuditService(s, false, 0)
	sessions := services.NewSessionService(s, tokens.RefreshTTL())
	clients := services.NewClientService(s)
	auth := services.NewAuthService(s, tokens, sessions, audit, recorder)
	mailer := &captureMailer{}
	otp := services.NewOTPService(s, tokens, mailer, audit, recorder, cfg.OTPTTL)

	authHandler := NewAuthHandler(auth, clients, cfg)
	signupHandler := NewSignupHandler(otp, cfg)
	clientHandler := NewClientHandler(clients)
	sessionHandler := NewSessionHandler(sessions)

	requireAuth := middleware.RequireAuth(tokens, cfg.AccessCookieName)

	router := gin.New()
	authGroup := router.Group("/auth")
	{
		authGroup.GET("/authorize", authHandler.Authorize)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.POST("/introspect", authHandler.Introspect)
		authGroup.GET("/profile", requireAuth, authHandler.Profile)
		authGroup.POST("/dummy/insert", authHandler.DummyInsert)
		authGroup.GET("/sessions", requireAuth, sessionHandler.List)
		authGroup.POST("/sessions/revoke-all", requireAuth, sessionHandler.RevokeAll)

		signup := authGroup.Group("/signup")
		{
			signup.POST("/request-otp", signupHandler.RequestOTP)
			signup.POST("/verify-otp", signupHandler.VerifyOTP)
		}
	}

	clientGroup := router.Group("/clients")
	clientGroup.Use(requireAuth, middleware.RequireRole(models.RoleAdmin))
	{
		clientGroup.POST("", clientHandler.Create)
		clientGroup.GET("", clientHandler.List)
		clientGroup.GET("/:client_id", clientHandler.Get)
		clientGroup.PATCH("/:client_id", clientHandler.Update)
		clientGroup.POST("/:client_id/rotate-secret", clientHandler.RotateSecret)
		clientGroup.DELETE("/:client_id", clientHandler.Delete)
	}

	return &testEnv{
		cfg:      cfg,
		store:    s,
		tokens:   tokens,
		sessions: sessions,
		clients:  clients,
		auth:     auth,
		otp:      otp,
		mailer:   mailer,
		router:   router,
	}
}

func (e *testEnv) createUser(t *testing.T, email, password, roles string) *models.User {
	t.Helper()

	user := &models.User{
		ID:       uuid.New().String(),
		Email:    email,
		Name:     "Test User",
		IsActive: true,
		Roles:    roles,
		Type:     models.TypeInternal,
	}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		require.NoError(t, err)
		user.PasswordHash = string(hash)
	}
	require.NoError(t, e.store.CreateUser(user))
	return user
}

func (e *testEnv) createClient(t *testing.T, name, redirectURIs, authMode string) *models.Client {
	t.Helper()

	client, err := e.clients.Create(services.CreateClientRequest{
		Name:         name,
		RedirectURIs: redirectURIs,
		AuthMode:     authMode,
	})
	require.NoError(t, err)
	return client
}

func (e *testEnv) accessTokenFor(t *testing.T, user *models.User) string {
	t.Helper()

	raw, err := e.tokens.SignAccess(token.AccessPayload{
		Sub:        user.ID,
		Email:      user.Email,
		Name:       user.Name,
		Type:       user.Type,
		GlobalRole: user.RoleList(),
	})
	require.NoError(t, err)
	return raw
}

// doJSON performs a request with a JSON body and decodes the JSON response.
func (e *testEnv) doJSON(
	t *testing.T, method, path string, body any, mutate ...func(*http.Request),
) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, m := range mutate {
		m(req)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &decoded)
	}
	return w, decoded
}

func withBearer(token string) func(*http.Request) {
	return func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func withCookie(name, value string) func(*http.Request) {
	return func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
}

// captureMailer records outbound mail instead of delivering it.
type captureMailer struct {
	to      string
	subject string
	body    string
	err     error
}

func (m *captureMailer) Send(_ context.Context, to, subject, bodyHTML string) error {
	if m.err != nil {
		return m.err
	}
	m.to = to
	m.subject = subject
	m.body = bodyHTML
	return nil
}
