package iitd

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

var (
	// ErrExchangeFailed is returned when the code-for-token exchange fails.
	// The exchange is never retried inline; a timeout is a hard failure.
	ErrExchangeFailed = errors.New("failed to exchange token")

	// ErrProfileFetch is returned when the userinfo call fails
	ErrProfileFetch = errors.New("failed to fetch user profile")

	// ErrInvalidProfile is returned when the profile is missing required fields
	ErrInvalidProfile = errors.New("invalid user profile data")
)

// ProviderConfig contains the IITD OAuth endpoints and client credentials
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthorizeURL string
	TokenURL     string
	UserinfoURL  string
	Timeout      time.Duration
	InsecureTLS  bool // the institute IdP serves a self-signed chain in some deployments
}

// Profile is the external identity record returned by the IITD userinfo endpoint
type Profile struct {
	UserID     string `json:"user_id"`
	Email      string `json:"mail"`
	Name       string `json:"name"`
	UniqueID   string `json:"uniqueiitdid"`
	Category   string `json:"category"`
	Department string `json:"department"`
}

// InstituteEmail derives the canonical institutional address used as the
// local upsert key.
func (p *Profile) InstituteEmail() string {
	return p.UserID + "@iitd.ac.in"
}

// Provider exchanges authorization codes with the IITD IdP and fetches
// external profiles. It performs no local persistence.
type Provider struct {
	config     *oauth2.Config
	userinfo   string
	httpClient *http.Client
}

// NewProvider creates a bridge to the IITD identity provider
func NewProvider(cfg ProviderConfig) *Provider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 7 * time.Second
	}

	transport := http.DefaultTransport
	if cfg.InsecureTLS {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // deployment flag for the institute's self-signed chain
		}
	}

	return &Provider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthorizeURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		userinfo: cfg.UserinfoURL,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// AuthorizationURL builds the external authorize URL with the state attached
func (p *Provider) AuthorizationURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// Exchange swaps the authorization code for an external access token
func (p *Provider) Exchange(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	if tok.AccessToken == "" {
		return "", ErrExchangeFailed
	}
	return tok.AccessToken, nil
}

// FetchProfile retrieves the external profile using the IdP access token.
// The userinfo endpoint takes the token as a form field, not a Bearer header.
func (p *Provider) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	form := url.Values{"access_token": {accessToken}}
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, p.userinfo, strings.NewReader(form.Encode()),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileFetch, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: %s - %s", ErrProfileFetch, resp.Status, string(body))
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileFetch, err)
	}

	if profile.UserID == "" {
		return nil, ErrInvalidProfile
	}

	return &profile, nil
}
