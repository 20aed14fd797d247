package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsw-iitd/auth-server/internal/models"
	"github.com/bsw-iitd/auth-server/internal/token"
)

func TestSignIn(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()

	createTestUser(t, stack.store, "active@example.com", "correct horse")
	createTestUser(t, stack.store, "federated@example.com", "")

	disabled := createTestUser(t, stack.store, "disabled@example.com", "correct horse")
	disabled.IsActive = false
	require.NoError(t, stack.store.UpdateUser(disabled))

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"success", "active@example.com", "correct horse", nil},
		{"email is normalized", "  Active@Example.COM ", "correct horse", nil},
		{"unknown user", "nobody@example.com", "correct horse", ErrInvalidCredentials},
		{"wrong password", "active@example.com", "wrong", ErrInvalidCredentials},
		{"federation-only account", "federated@example.com", "anything", ErrInvalidCredentials},
		{"disabled account", "disabled@example.com", "correct horse", ErrAccountDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := stack.auth.SignIn(ctx, tt.email, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, user)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "active@example.com", user.Email)
		})
	}
}

func TestSignInDisabledRequiresPasswordMatch(t *testing.T) {
	// A disabled account with a wrong password reports invalid credentials,
	// not the disabled state. Account existence stays unguessable.
	stack := newTestStack(t)

	user := createTestUser(t, stack.store, "disabled@example.com", "correct horse")
	user.IsActive = false
	require.NoError(t, stack.store.UpdateUser(user))

	_, err := stack.auth.SignIn(context.Background(), "disabled@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestIssueTokensCreatesSession(t *testing.T) {
	stack := newTestStack(t)
	user := createTestUser(t, stack.store, "issue@example.com", "pw")

	pair, err := stack.auth.IssueTokens(
		context.Background(), user, "bsw-portal", "agent", "10.0.0.1", SourcePassword,
	)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	claims, err := stack.tokens.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Sub)
	assert.Equal(t, "bsw-portal", claims.ClientID)
	assert.Contains(t, claims.GlobalRole, models.RoleUser)
	// Per-client roles are a reserved claim; nothing grants them yet.
	assert.Empty(t, claims.ClientRoles)

	sessions, err := stack.sessions.ListForUser(user.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "agent", sessions[0].UserAgent)
	assert.Equal(t, "10.0.0.1", sessions[0].IP)
	assert.NotEqual(t, pair.RefreshToken, sessions[0].RefreshTokenHash)
}

func TestRefreshRotatesSession(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()
	user := createTestUser(t, stack.store, "rotate@example.com", "pw")

	pair, err := stack.auth.IssueTokens(ctx, user, "bsw-portal", "", "", SourcePassword)
	require.NoError(t, err)

	newPair, refreshedUser, err := stack.auth.Refresh(ctx, pair.RefreshToken, "bsw-portal")
	require.NoError(t, err)
	assert.Equal(t, user.ID, refreshedUser.ID)
	assert.NotEqual(t, pair.RefreshToken, newPair.RefreshToken)

	// The reissued access token carries no per-client roles either.
	claims, err := stack.tokens.VerifyAccess(newPair.AccessToken)
	require.NoError(t, err)
	assert.Empty(t, claims.ClientRoles)

	// Still one session: rotation replaces the row, it does not add one.
	sessions, err := stack.sessions.ListForUser(user.ID)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)

	// The superseded token no longer matches any session.
	_, _, err = stack.auth.Refresh(ctx, pair.RefreshToken, "bsw-portal")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// The fresh token works.
	_, _, err = stack.auth.Refresh(ctx, newPair.RefreshToken, "bsw-portal")
	assert.NoError(t, err)
}

func TestRefreshRejectsGarbageToken(t *testing.T) {
	stack := newTestStack(t)

	_, _, err := stack.auth.Refresh(context.Background(), "not-a-jwt", "bsw-portal")
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestRefreshRejectsRevokedSession(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()
	user := createTestUser(t, stack.store, "revoked@example.com", "pw")

	pair, err := stack.auth.IssueTokens(ctx, user, "bsw-portal", "", "", SourcePassword)
	require.NoError(t, err)

	require.NoError(t, stack.sessions.RevokeAllForUser(user.ID))

	_, _, err = stack.auth.Refresh(ctx, pair.RefreshToken, "bsw-portal")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRefreshRejectsDisabledUser(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()
	user := createTestUser(t, stack.store, "freeze@example.com", "pw")

	pair, err := stack.auth.IssueTokens(ctx, user, "bsw-portal", "", "", SourcePassword)
	require.NoError(t, err)

	user.IsActive = false
	require.NoError(t, stack.store.UpdateUser(user))

	_, _, err = stack.auth.Refresh(ctx, pair.RefreshToken, "bsw-portal")
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestRevokeByRefreshToken(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()
	user := createTestUser(t, stack.store, "logout@example.com", "pw")

	pair, err := stack.auth.IssueTokens(ctx, user, "bsw-portal", "", "", SourcePassword)
	require.NoError(t, err)

	stack.auth.RevokeByRefreshToken(ctx, pair.RefreshToken)

	sessions, err := stack.sessions.ListForUser(user.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	// Revoking again, or with garbage, is a no-op.
	stack.auth.RevokeByRefreshToken(ctx, pair.RefreshToken)
	stack.auth.RevokeByRefreshToken(ctx, "not-a-jwt")
}

func TestIntrospect(t *testing.T) {
	stack := newTestStack(t)
	user := createTestUser(t, stack.store, "introspect@example.com", "pw")
	user.Roles = models.RoleAdmin
	require.NoError(t, stack.store.UpdateUser(user))

	pair, err := stack.auth.IssueTokens(
		context.Background(), user, "bsw-portal", "", "", SourcePassword,
	)
	require.NoError(t, err)

	claims, err := stack.auth.Introspect(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Sub)
	assert.Equal(t, user.Email, claims.Email)
	assert.Contains(t, claims.GlobalRole, models.RoleAdmin)

	// A refresh token is signed with a different secret and must not introspect.
	_, err = stack.auth.Introspect(pair.RefreshToken)
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestCreateUser(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()

	user, err := stack.auth.CreateUser(ctx, CreateUserRequest{
		Email:    "Seed@Example.com",
		Name:     "Seed User",
		Password: "seed-password",
	})
	require.NoError(t, err)
	assert.Equal(t, "seed@example.com", user.Email)
	assert.Equal(t, models.RoleUser, user.Roles)
	assert.Equal(t, models.TypeInternal, user.Type)
	assert.NotEqual(t, "seed-password", user.PasswordHash)

	_, err = stack.auth.CreateUser(ctx, CreateUserRequest{
		Email:    "seed@example.com",
		Password: "other",
	})
	assert.ErrorIs(t, err, ErrUserExists)
}
