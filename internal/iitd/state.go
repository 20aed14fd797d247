package iitd

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// ErrInvalidState is returned when the state blob echoed back by the IdP
// cannot be decoded. Tampered state must fail before any token exchange.
var ErrInvalidState = errors.New("invalid state")

// State correlates the redirect and callback steps of a federated login.
// It is base64url-encoded JSON with no signature: integrity relies on the
// external IdP echoing it back unmodified.
type State struct {
	ClientID      string `json:"clientId"`
	RedirectURI   string `json:"redirectUri"`
	RequestedRole string `json:"requestedRole,omitempty"`
}

// EncodeState serializes the state for the authorize URL
func EncodeState(s State) (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeState parses the state echoed back by the IdP
func DecodeState(encoded string) (*State, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidState
	}
	var s State
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, ErrInvalidState
	}
	return &s, nil
}
