package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessPayload carries the identity and role claims of an access token
type AccessPayload struct {
	Sub         string
	Email       string
	Name        string
	Type        string
	GlobalRole  []string
	ClientID    string
	ClientRoles []string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// SubjectPayload is the minimal payload of refresh and onboarding tokens
type SubjectPayload struct {
	Sub       string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Provider signs and verifies the three token kinds. Each kind uses a
// distinct secret so that a token of one kind can never verify as another,
// even when the payloads are structurally similar. Stateless.
type Provider struct {
	accessSecret     []byte
	refreshSecret    []byte
	onboardingSecret []byte

	accessTTL     time.Duration
	refreshTTL    time.Duration
	onboardingTTL time.Duration
}

// NewProvider creates a token provider with per-kind secrets and lifetimes
func NewProvider(
	accessSecret, refreshSecret, onboardingSecret string,
	accessTTL, refreshTTL, onboardingTTL time.Duration,
) *Provider {
	return &Provider{
		accessSecret:     []byte(accessSecret),
		refreshSecret:    []byte(refreshSecret),
		onboardingSecret: []byte(onboardingSecret),
		accessTTL:        accessTTL,
		refreshTTL:       refreshTTL,
		onboardingTTL:    onboardingTTL,
	}
}

// RefreshTTL exposes the refresh token lifetime for session expiry alignment
func (p *Provider) RefreshTTL() time.Duration {
	return p.refreshTTL
}

// SignAccess signs an access token carrying the full identity payload
func (p *Provider) SignAccess(payload AccessPayload) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":         payload.Sub,
		"email":       payload.Email,
		"name":        payload.Name,
		"type":        payload.Type,
		"globalRole":  payload.GlobalRole,
		"clientId":    payload.ClientID,
		"clientRoles": payload.ClientRoles,
		"iat":         now.Unix(),
		"exp":         now.Add(p.accessTTL).Unix(),
	}
	return sign(claims, p.accessSecret)
}

// VerifyAccess verifies signature and expiry, then extracts the payload.
// A missing subject is a payload error, not an invalid-token error.
func (p *Provider) VerifyAccess(tokenString string) (*AccessPayload, error) {
	claims, err := verify(tokenString, p.accessSecret)
	if err != nil {
		return nil, err
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrTokenPayload
	}

	payload := &AccessPayload{
		Sub:         sub,
		GlobalRole:  stringSlice(claims["globalRole"]),
		ClientRoles: stringSlice(claims["clientRoles"]),
	}
	payload.Email, _ = claims["email"].(string)
	payload.Name, _ = claims["name"].(string)
	payload.Type, _ = claims["type"].(string)
	payload.ClientID, _ = claims["clientId"].(string)
	payload.IssuedAt, payload.ExpiresAt = timestamps(claims)

	return payload, nil
}

// SignRefresh signs a refresh token carrying the subject and a unique token
// ID. The token ID guarantees two tokens minted in the same second still
// differ, which rotation depends on.
func (p *Provider) SignRefresh(sub string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":     sub,
		"tokenId": uuid.New().String(),
		"iat":     now.Unix(),
		"exp":     now.Add(p.refreshTTL).Unix(),
	}
	return sign(claims, p.refreshSecret)
}

// VerifyRefresh verifies a refresh token and returns its subject
func (p *Provider) VerifyRefresh(tokenString string) (*SubjectPayload, error) {
	return p.verifySubject(tokenString, p.refreshSecret)
}

// SignOnboarding signs an onboarding token whose subject is the signup email
func (p *Provider) SignOnboarding(sub string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":     sub,
		"tokenId": uuid.New().String(),
		"iat":     now.Unix(),
		"exp":     now.Add(p.onboardingTTL).Unix(),
	}
	return sign(claims, p.onboardingSecret)
}

// VerifyOnboarding verifies an onboarding token and returns its subject
func (p *Provider) VerifyOnboarding(tokenString string) (*SubjectPayload, error) {
	return p.verifySubject(tokenString, p.onboardingSecret)
}

func (p *Provider) verifySubject(tokenString string, secret []byte) (*SubjectPayload, error) {
	claims, err := verify(tokenString, secret)
	if err != nil {
		return nil, err
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrTokenPayload
	}

	payload := &SubjectPayload{Sub: sub}
	payload.TokenID, _ = claims["tokenId"].(string)
	payload.IssuedAt, payload.ExpiresAt = timestamps(claims)
	return payload, nil
}

func sign(claims jwt.MapClaims, secret []byte) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}
	return signed, nil
}

func verify(tokenString string, secret []byte) (jwt.MapClaims, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok || !t.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func timestamps(claims jwt.MapClaims) (iat, exp time.Time) {
	if v, ok := claims["iat"].(float64); ok {
		iat = time.Unix(int64(v), 0)
	}
	if v, ok := claims["exp"].(float64); ok {
		exp = time.Unix(int64(v), 0)
	}
	return iat, exp
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
