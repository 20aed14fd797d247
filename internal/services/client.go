package services

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/bsw-iitd/auth-server/internal/models"
	"github.com/bsw-iitd/auth-server/internal/store"
	"github.com/bsw-iitd/auth-server/internal/util"
)

var (
	ErrClientNotFound      = errors.New("client not found")
	ErrInvalidClientSecret = errors.New("invalid client secret")
	ErrRedirectNotAllowed  = errors.New("redirect URI not allowed for client")
	ErrClientNameRequired  = errors.New("client name is required")
	ErrInvalidAuthMode     = errors.New("invalid auth mode")
)

// ClientService manages the registered relying parties.
type ClientService struct {
	store *store.Store
}

func NewClientService(s *store.Store) *ClientService {
	return &ClientService{store: s}
}

type CreateClientRequest struct {
	Name         string
	RedirectURIs string
	AuthMode     string
}

type UpdateClientRequest struct {
	Name         string
	RedirectURIs string
	AuthMode     string
}

// FindByClientID looks up a client by its public identifier.
func (s *ClientService) FindByClientID(clientID string) (*models.Client, error) {
	client, err := s.store.GetClientByClientID(clientID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrClientNotFound
	}
	return client, err
}

// Authenticate verifies a client's secret. Comparison is constant time; an
// unknown client ID and a wrong secret are indistinguishable to the caller
// beyond the returned sentinel.
func (s *ClientService) Authenticate(clientID, clientSecret string) (*models.Client, error) {
	client, err := s.FindByClientID(clientID)
	if err != nil {
		return nil, err
	}

	if subtle.ConstantTimeCompare([]byte(client.ClientSecret), []byte(clientSecret)) != 1 {
		return nil, ErrInvalidClientSecret
	}
	return client, nil
}

// IsRedirectAllowed checks the URI against the client's allow-list.
// Matching is exact string comparison after trimming; a client with an empty
// allow-list accepts nothing.
func (s *ClientService) IsRedirectAllowed(client *models.Client, redirectURI string) bool {
	candidate := strings.TrimSpace(redirectURI)
	if candidate == "" {
		return false
	}

	for _, uri := range client.RedirectURIList() {
		if uri == candidate {
			return true
		}
	}
	return false
}

// Create registers a new client with generated credentials.
// The secret is only returned here and on rotation.
func (s *ClientService) Create(req CreateClientRequest) (*models.Client, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrClientNameRequired
	}

	authMode, err := normalizeAuthMode(req.AuthMode)
	if err != nil {
		return nil, err
	}

	clientID, err := util.RandomHex(16)
	if err != nil {
		return nil, err
	}
	clientSecret, err := util.RandomHex(32)
	if err != nil {
		return nil, err
	}

	client := &models.Client{
		ID:           uuid.New().String(),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Name:         strings.TrimSpace(req.Name),
		RedirectURIs: strings.TrimSpace(req.RedirectURIs),
		AuthMode:     authMode,
	}

	if err := s.store.CreateClient(client); err != nil {
		return nil, err
	}
	return client, nil
}

// Update modifies a client's name, allow-list, and auth mode. Credentials are
// untouched; use RotateSecret for those.
func (s *ClientService) Update(id string, req UpdateClientRequest) (*models.Client, error) {
	client, err := s.store.GetClientByID(id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.Name) != "" {
		client.Name = strings.TrimSpace(req.Name)
	}
	if req.RedirectURIs != "" {
		client.RedirectURIs = strings.TrimSpace(req.RedirectURIs)
	}
	if req.AuthMode != "" {
		authMode, err := normalizeAuthMode(req.AuthMode)
		if err != nil {
			return nil, err
		}
		client.AuthMode = authMode
	}

	if err := s.store.UpdateClient(client); err != nil {
		return nil, err
	}
	return client, nil
}

// RotateSecret replaces the client's secret in place. The previous secret
// stops working immediately.
func (s *ClientService) RotateSecret(id string) (*models.Client, error) {
	client, err := s.store.GetClientByID(id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, err
	}

	secret, err := util.RandomHex(32)
	if err != nil {
		return nil, err
	}

	client.ClientSecret = secret
	if err := s.store.UpdateClient(client); err != nil {
		return nil, err
	}
	return client, nil
}

// Delete removes a client registration.
func (s *ClientService) Delete(id string) error {
	err := s.store.DeleteClient(id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrClientNotFound
	}
	return err
}

// List returns all registered clients.
func (s *ClientService) List() ([]models.Client, error) {
	return s.store.ListClients()
}

func normalizeAuthMode(mode string) (string, error) {
	if mode == "" {
		return models.AuthModeBoth, nil
	}

	normalized := strings.ToUpper(strings.TrimSpace(mode))
	switch normalized {
	case models.AuthModePasswordOnly, models.AuthModeIITDOnly, models.AuthModeBoth:
		return normalized, nil
	}
	return "", ErrInvalidAuthMode
}
