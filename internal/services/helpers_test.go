package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/bsw-iitd/auth-server/internal/metrics"
	"github.com/bsw-iitd/auth-server/internal/models"
	"github.com/bsw-iitd/auth-server/internal/store"
	"github.com/bsw-iitd/auth-server/internal/token"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New("sqlite", ":memory:")
	require.NoError(t, err)
	return s
}

func newTestTokenProvider() *token.Provider {
	return token.NewProvider(
		"access-secret", "refresh-secret", "onboarding-secret",
		time.Minute, time.Hour, time.Minute,
	)
}

// testStack wires the service layer against an in-memory store with audit
// disabled and no-op metrics.
type testStack struct {
	store    *store.Store
	tokens   *token.Provider
	sessions *SessionService
	clients  *ClientService
	auth     *AuthService
	audit    *AuditService
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	s := setupTestStore(t)
	tokens := newTestTokenProvider()
	sessions := NewSessionService(s, tokens.RefreshTTL())
	audit := NewAuditService(s, false, 0)
	recorder := metrics.NewNoopMetrics()

	return &testStack{
		store:    s,
		tokens:   tokens,
		sessions: sessions,
		clients:  NewClientService(s),
		auth:     NewAuthService(s, tokens, sessions, audit, recorder),
		audit:    audit,
	}
}

func createTestUser(t *testing.T, s *store.Store, email, password string) *models.User {
	t.Helper()

	user := &models.User{
		ID:       uuid.New().String(),
		Email:    email,
		Name:     "Test User",
		IsActive: true,
		Roles:    models.RoleUser,
		Type:     models.TypeInternal,
	}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
		require.NoError(t, err)
		user.PasswordHash = string(hash)
	}
	require.NoError(t, s.CreateUser(user))
	return user
}

func createTestClient(t *testing.T, clients *ClientService, name, redirectURIs, authMode string) *models.Client {
	t.Helper()

	client, err := clients.Create(CreateClientRequest{
		Name:         name,
		RedirectURIs: redirectURIs,
		AuthMode:     authMode,
	})
	require.NoError(t, err)
	return client
}

// captureMailer records sends instead of delivering them.
type captureMailer struct {
	to      string
	subject string
	body    string
	sends   int
	err     error
}

func (m *captureMailer) Send(_ context.Context, to, subject, bodyHTML string) error {
	m.sends++
	if m.err != nil {
		return m.err
	}
	m.to = to
	m.subject = subject
	m.body = bodyHTML
	return nil
}
