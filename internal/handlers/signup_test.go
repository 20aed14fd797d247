package handlers

import (
	"net/http"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsw-iitd/auth-server/internal/models"
)

var otpCodePattern = regexp.MustCompile(`(\d{6})</span>`)

func requestCode(t *testing.T, env *testEnv, email, clientID string) string {
	t.Helper()

	w, _ := env.doJSON(t, http.MethodPost, "/auth/signup/request-otp", map[string]string{
		"email":    email,
		"clientId": clientID,
	})
	require.Equal(t, http.StatusOK, w.Code)

	match := otpCodePattern.FindStringSubmatch(env.mailer.body)
	require.Len(t, match, 2, "mail body should carry a 6-digit code")
	return match[1]
}

func TestSignupFlow(t *testing.T) {
	env := newTestEnv(t)
	portal := env.createClient(t, "Portal", "", models.AuthModeBoth)

	code := requestCode(t, env, "fresher@example.com", portal.ClientID)
	assert.Equal(t, "fresher@example.com", env.mailer.to)

	w, body := env.doJSON(t, http.MethodPost, "/auth/signup/verify-otp", map[string]string{
		"email":    "fresher@example.com",
		"otp":      code,
		"clientId": portal.ClientID,
	})

	require.Equal(t, http.StatusCreated, w.Code)
	user := body["user"].(map[string]any)
	assert.Equal(t, "fresher@example.com", user["email"])
	assert.NotEmpty(t, body["onboardingToken"])

	// The onboarding cookie is set httpOnly.
	var sawOnboarding bool
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == env.cfg.OnboardingCookieName {
			sawOnboarding = true
			assert.True(t, cookie.HttpOnly)
		}
	}
	assert.True(t, sawOnboarding)

	// The account exists but has no password yet; the onboarding token is the
	// only way to finish setup, so password login stays rejected.
	w, _ = env.doJSON(t, http.MethodPost, "/auth/login", map[string]string{
		"email": "fresher@example.com", "password": "anything",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSignupVerifyFailures(t *testing.T) {
	env := newTestEnv(t)
	portal := env.createClient(t, "Portal", "", models.AuthModeBoth)
	code := requestCode(t, env, "pending@example.com", portal.ClientID)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	tests := []struct {
		name     string
		body     map[string]string
		wantCode int
	}{
		{
			"no pending verification",
			map[string]string{"email": "nobody@example.com", "otp": code, "clientId": portal.ClientID},
			http.StatusNotFound,
		},
		{
			"wrong code",
			map[string]string{"email": "pending@example.com", "otp": wrong, "clientId": portal.ClientID},
			http.StatusUnauthorized,
		},
		{
			"missing clientId",
			map[string]string{"email": "pending@example.com", "otp": code},
			http.StatusBadRequest,
		},
		{
			"unknown client",
			map[string]string{"email": "pending@example.com", "otp": code, "clientId": "nope"},
			http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := env.doJSON(t, http.MethodPost, "/auth/signup/verify-otp", tt.body)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestSignupCodeConsumedOnSuccess(t *testing.T) {
	env := newTestEnv(t)
	portal := env.createClient(t, "Portal", "", models.AuthModeBoth)
	code := requestCode(t, env, "oneshot@example.com", portal.ClientID)

	w, _ := env.doJSON(t, http.MethodPost, "/auth/signup/verify-otp", map[string]string{
		"email": "oneshot@example.com", "otp": code, "clientId": portal.ClientID,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = env.doJSON(t, http.MethodPost, "/auth/signup/verify-otp", map[string]string{
		"email": "oneshot@example.com", "otp": code, "clientId": portal.ClientID,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSignupRequestValidation(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "taken@example.com", "pw", models.RoleUser)
	portal := env.createClient(t, "Portal", "", models.AuthModeBoth)
	iitdOnly := env.createClient(t, "Fed App", "", models.AuthModeIITDOnly)

	tests := []struct {
		name     string
		body     map[string]string
		wantCode int
	}{
		{"missing email", map[string]string{"clientId": portal.ClientID}, http.StatusBadRequest},
		{"missing clientId", map[string]string{"email": "a@example.com"}, http.StatusBadRequest},
		{"unknown client", map[string]string{"email": "a@example.com", "clientId": "nope"}, http.StatusBadRequest},
		{
			"client forbids password signup",
			map[string]string{"email": "a@example.com", "clientId": iitdOnly.ClientID},
			http.StatusForbidden,
		},
		{
			"account exists",
			map[string]string{"email": "taken@example.com", "clientId": portal.ClientID},
			http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := env.doJSON(t, http.MethodPost, "/auth/signup/request-otp", tt.body)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestSignupDeliveryFailure(t *testing.T) {
	env := newTestEnv(t)
	portal := env.createClient(t, "Portal", "", models.AuthModeBoth)
	env.mailer.err = assert.AnError

	w, _ := env.doJSON(t, http.MethodPost, "/auth/signup/request-otp", map[string]string{
		"email":    "undeliverable@example.com",
		"clientId": portal.ClientID,
	})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
