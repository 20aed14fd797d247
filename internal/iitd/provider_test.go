package iitd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, idp *httptest.Server) *Provider {
	t.Helper()
	return NewProvider(ProviderConfig{
		ClientID:     "bsw-client",
		ClientSecret: "bsw-secret",
		RedirectURI:  "https://auth.example.com/iitd/oauth/callback",
		AuthorizeURL: idp.URL + "/authorize",
		TokenURL:     idp.URL + "/token",
		UserinfoURL:  idp.URL + "/userinfo",
		Timeout:      2 * time.Second,
	})
}

func TestAuthorizationURLCarriesState(t *testing.T) {
	idp := httptest.NewServer(http.NotFoundHandler())
	defer idp.Close()

	p := newTestProvider(t, idp)
	authURL := p.AuthorizationURL("opaque-state")

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	q := parsed.Query()
	assert.Equal(t, "opaque-state", q.Get("state"))
	assert.Equal(t, "bsw-client", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
}

func TestExchangeAndFetchProfile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "auth-code-1", r.FormValue("code"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "idp-access-token",
			"token_type":   "bearer",
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "idp-access-token", r.FormValue("access_token"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"user_id":      "csz218888",
			"mail":         "csz218888@cse.iitd.ac.in",
			"name":         "Test Student",
			"uniqueiitdid": "2021CSZ8888",
			"category":     "student",
			"department":   "Computer Science",
		})
	})
	idp := httptest.NewServer(mux)
	defer idp.Close()

	p := newTestProvider(t, idp)

	accessToken, err := p.Exchange(context.Background(), "auth-code-1")
	require.NoError(t, err)
	assert.Equal(t, "idp-access-token", accessToken)

	profile, err := p.FetchProfile(context.Background(), accessToken)
	require.NoError(t, err)
	assert.Equal(t, "csz218888", profile.UserID)
	assert.Equal(t, "Test Student", profile.Name)
	assert.Equal(t, "csz218888@iitd.ac.in", profile.InstituteEmail())
}

func TestExchangeFailure(t *testing.T) {
	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer idp.Close()

	p := newTestProvider(t, idp)

	_, err := p.Exchange(context.Background(), "bad-code")
	assert.ErrorIs(t, err, ErrExchangeFailed)
}

func TestFetchProfileNon200(t *testing.T) {
	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer idp.Close()

	p := newTestProvider(t, idp)

	_, err := p.FetchProfile(context.Background(), "token")
	assert.ErrorIs(t, err, ErrProfileFetch)
}

func TestFetchProfileMissingUserID(t *testing.T) {
	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"mail": "who@iitd.ac.in"})
	}))
	defer idp.Close()

	p := newTestProvider(t, idp)

	_, err := p.FetchProfile(context.Background(), "token")
	assert.ErrorIs(t, err, ErrInvalidProfile)
}

func TestFetchProfileTimeout(t *testing.T) {
	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer idp.Close()

	p := NewProvider(ProviderConfig{
		ClientID:    "bsw-client",
		TokenURL:    idp.URL + "/token",
		UserinfoURL: idp.URL + "/userinfo",
		Timeout:     50 * time.Millisecond,
	})

	_, err := p.FetchProfile(context.Background(), "token")
	assert.ErrorIs(t, err, ErrProfileFetch)
}
