package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsw-iitd/auth-server/internal/iitd"
	"github.com/bsw-iitd/auth-server/internal/metrics"
	"github.com/bsw-iitd/auth-server/internal/models"
)

// fakeIdP stands in for the external identity provider. hits counts every
// request so tests can assert that failed validation never reaches it.
type fakeIdP struct {
	server  *httptest.Server
	hits    atomic.Int64
	profile iitd.Profile
}

func newFakeIdP(t *testing.T) *fakeIdP {
	t.Helper()

	idp := &fakeIdP{
		profile: iitd.Profile{
			UserID:     "csz218888",
			Email:      "student@example.com",
			Name:       "Test Student",
			UniqueID:   "2021CSZ218888",
			Category:   "PhD",
			Department: "CSE",
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		idp.hits.Add(1)
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "idp-access-token",
			"token_type":   "Bearer",
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		idp.hits.Add(1)
		require.NoError(t, r.ParseForm())
		if r.Form.Get("access_token") != "idp-access-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(idp.profile)
	})

	idp.server = httptest.NewServer(mux)
	t.Cleanup(idp.server.Close)
	return idp
}

func newFederationStack(t *testing.T, idp *fakeIdP) (*testStack, *FederationService) {
	t.Helper()

	stack := newTestStack(t)
	provider := iitd.NewProvider(iitd.ProviderConfig{
		ClientID:     "auth-server",
		ClientSecret: "idp-secret",
		RedirectURI:  "https://auth.example.com/iitd/oauth/callback",
		AuthorizeURL: idp.server.URL + "/authorize",
		TokenURL:     idp.server.URL + "/token",
		UserinfoURL:  idp.server.URL + "/userinfo",
		Timeout:      2 * time.Second,
	})
	federation := NewFederationService(
		stack.store, provider, stack.clients, stack.auth,
		stack.audit, metrics.NewNoopMetrics(),
	)
	return stack, federation
}

func TestBeginLogin(t *testing.T) {
	idp := newFakeIdP(t)
	stack, federation := newFederationStack(t, idp)

	client := createTestClient(
		t, stack.clients, "Fed App", "https://app.example.com/cb", models.AuthModeBoth,
	)

	authURL, err := federation.BeginLogin(client.ClientID, "https://app.example.com/cb", "")
	require.NoError(t, err)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	assert.Equal(t, "/authorize", parsed.Path)

	state, err := iitd.DecodeState(parsed.Query().Get("state"))
	require.NoError(t, err)
	assert.Equal(t, client.ClientID, state.ClientID)
	assert.Equal(t, "https://app.example.com/cb", state.RedirectURI)
}

func TestBeginLoginValidation(t *testing.T) {
	idp := newFakeIdP(t)
	stack, federation := newFederationStack(t, idp)

	passwordOnly := createTestClient(
		t, stack.clients, "Pwd App", "https://pwd.example.com/cb", models.AuthModePasswordOnly,
	)
	fedApp := createTestClient(
		t, stack.clients, "Fed App", "https://app.example.com/cb", models.AuthModeBoth,
	)

	_, err := federation.BeginLogin("unknown", "https://app.example.com/cb", "")
	assert.ErrorIs(t, err, ErrClientNotFound)

	_, err = federation.BeginLogin(passwordOnly.ClientID, "https://pwd.example.com/cb", "")
	assert.ErrorIs(t, err, ErrFederationNotPermitted)

	_, err = federation.BeginLogin(fedApp.ClientID, "https://evil.example.com/cb", "")
	assert.ErrorIs(t, err, ErrRedirectNotAllowed)
}

func TestCompleteLogin(t *testing.T) {
	idp := newFakeIdP(t)
	stack, federation := newFederationStack(t, idp)
	ctx := context.Background()

	client := createTestClient(
		t, stack.clients, "Fed App", "https://app.example.com/cb", models.AuthModeBoth,
	)
	state, err := iitd.EncodeState(iitd.State{
		ClientID:    client.ClientID,
		RedirectURI: "https://app.example.com/cb",
	})
	require.NoError(t, err)

	result, err := federation.CompleteLogin(ctx, "good-code", state, "agent", "10.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, "csz218888@iitd.ac.in", result.User.Email)
	assert.Equal(t, "csz218888", result.User.KerberosID)
	assert.Equal(t, "CSE", result.User.Department)
	assert.Empty(t, result.User.PasswordHash)
	assert.Equal(t, "https://app.example.com/cb", result.State.RedirectURI)
	assert.NotEmpty(t, result.Tokens.AccessToken)
	assert.NotEmpty(t, result.Tokens.RefreshToken)

	// The login opened a session like any other.
	sessions, err := stack.sessions.ListForUser(result.User.ID)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)

	// A second login updates the same account in place.
	idp.profile.Name = "Renamed Student"
	again, err := federation.CompleteLogin(ctx, "good-code", state, "agent", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, again.User.ID)
	assert.Equal(t, "Renamed Student", again.User.Name)
}

func TestCompleteLoginTamperedState(t *testing.T) {
	idp := newFakeIdP(t)
	_, federation := newFederationStack(t, idp)

	_, err := federation.CompleteLogin(
		context.Background(), "good-code", "not-valid-state", "", "",
	)
	assert.ErrorIs(t, err, iitd.ErrInvalidState)

	// Validation failed before any provider round trip.
	assert.Zero(t, idp.hits.Load())
}

func TestCompleteLoginRevalidatesClient(t *testing.T) {
	idp := newFakeIdP(t)
	stack, federation := newFederationStack(t, idp)
	ctx := context.Background()

	client := createTestClient(
		t, stack.clients, "Fed App", "https://app.example.com/cb", models.AuthModeBoth,
	)
	state, err := iitd.EncodeState(iitd.State{
		ClientID:    client.ClientID,
		RedirectURI: "https://app.example.com/cb",
	})
	require.NoError(t, err)

	// The client lost federation access between redirect and callback.
	_, err = stack.clients.Update(client.ID, UpdateClientRequest{AuthMode: "PASSWORD_ONLY"})
	require.NoError(t, err)

	_, err = federation.CompleteLogin(ctx, "good-code", state, "", "")
	assert.ErrorIs(t, err, ErrFederationNotPermitted)
	assert.Zero(t, idp.hits.Load())
}

func TestCompleteLoginExchangeFailure(t *testing.T) {
	idp := newFakeIdP(t)
	stack, federation := newFederationStack(t, idp)
	ctx := context.Background()

	client := createTestClient(
		t, stack.clients, "Fed App", "https://app.example.com/cb", models.AuthModeBoth,
	)
	state, err := iitd.EncodeState(iitd.State{
		ClientID:    client.ClientID,
		RedirectURI: "https://app.example.com/cb",
	})
	require.NoError(t, err)

	_, err = federation.CompleteLogin(ctx, "bad-code", state, "", "")
	assert.ErrorIs(t, err, iitd.ErrExchangeFailed)

	// No local account was created on the failed path.
	_, err = stack.store.GetUserByEmail("csz218888@iitd.ac.in")
	assert.Error(t, err)
}
