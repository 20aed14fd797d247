package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bsw-iitd/auth-server/internal/iitd"
	"github.com/bsw-iitd/auth-server/internal/metrics"
	"github.com/bsw-iitd/auth-server/internal/models"
	"github.com/bsw-iitd/auth-server/internal/store"
)

var ErrFederationNotPermitted = errors.New("client does not permit federated login")

// FederationService drives the IITD OAuth login flow: outbound redirect,
// callback exchange, profile fetch, and local user upsert. No local state is
// written until a complete profile is in hand.
type FederationService struct {
	store    *store.Store
	provider *iitd.Provider
	clients  *ClientService
	auth     *AuthService
	audit    *AuditService
	metrics  metrics.Recorder
}

func NewFederationService(
	s *store.Store,
	provider *iitd.Provider,
	clients *ClientService,
	auth *AuthService,
	audit *AuditService,
	recorder metrics.Recorder,
) *FederationService {
	return &FederationService{
		store:    s,
		provider: provider,
		clients:  clients,
		auth:     auth,
		audit:    audit,
		metrics:  recorder,
	}
}

// BeginLogin validates the client and redirect URI, then returns the IITD
// authorization URL carrying the round-tripped state.
func (s *FederationService) BeginLogin(clientID, redirectURI, requestedRole string) (string, error) {
	client, err := s.clients.FindByClientID(clientID)
	if err != nil {
		return "", err
	}
	if !client.AllowsFederation() {
		return "", ErrFederationNotPermitted
	}
	if !s.clients.IsRedirectAllowed(client, redirectURI) {
		return "", ErrRedirectNotAllowed
	}

	state, err := iitd.EncodeState(iitd.State{
		ClientID:      clientID,
		RedirectURI:   redirectURI,
		RequestedRole: requestedRole,
	})
	if err != nil {
		return "", fmt.Errorf("encode state: %w", err)
	}

	return s.provider.AuthorizationURL(state), nil
}

// CallbackResult is what a completed federated login hands back to the HTTP
// layer: the signed-in user, fresh tokens, and the state the flow started
// with.
type CallbackResult struct {
	User   *models.User
	Tokens *TokenPair
	State  iitd.State
}

// CompleteLogin handles the provider callback. The state must decode and its
// client and redirect URI must still validate; then the code is exchanged,
// the profile fetched, and the user upserted keyed by the derived institute
// email. A failure at any step leaves the local store untouched.
func (s *FederationService) CompleteLogin(
	ctx context.Context,
	code, rawState, userAgent, ip string,
) (*CallbackResult, error) {
	state, err := iitd.DecodeState(rawState)
	if err != nil {
		s.metrics.RecordFederatedCallback(false)
		return nil, err
	}

	client, err := s.clients.FindByClientID(state.ClientID)
	if err != nil {
		s.metrics.RecordFederatedCallback(false)
		return nil, err
	}
	if !client.AllowsFederation() {
		s.metrics.RecordFederatedCallback(false)
		return nil, ErrFederationNotPermitted
	}
	if !s.clients.IsRedirectAllowed(client, state.RedirectURI) {
		s.metrics.RecordFederatedCallback(false)
		return nil, ErrRedirectNotAllowed
	}

	exchangeStart := time.Now()
	accessToken, err := s.provider.Exchange(ctx, code)
	s.metrics.RecordExternalAPICall("iitd", time.Since(exchangeStart))
	if err != nil {
		s.metrics.RecordFederatedCallback(false)
		return nil, err
	}

	profile, err := s.provider.FetchProfile(ctx, accessToken)
	if err != nil {
		s.metrics.RecordFederatedCallback(false)
		return nil, err
	}

	user, err := s.upsertUser(profile)
	if err != nil {
		s.metrics.RecordFederatedCallback(false)
		return nil, fmt.Errorf("upsert federated user: %w", err)
	}

	tokens, err := s.auth.IssueTokens(ctx, user, state.ClientID, userAgent, ip, SourceIITD)
	if err != nil {
		s.metrics.RecordFederatedCallback(false)
		return nil, err
	}

	s.metrics.RecordFederatedCallback(true)

	s.audit.Log(ctx, AuditLogEntry{
		EventType:    models.EventIITDLogin,
		Severity:     models.SeverityInfo,
		ActorUserID:  user.ID,
		ActorIP:      ip,
		ResourceType: models.ResourceUser,
		ResourceID:   user.ID,
		Action:       "federated login",
		Details:      models.AuditDetails{"client_id": state.ClientID, "kerberos_id": profile.UserID},
		Success:      true,
	})

	return &CallbackResult{User: user, Tokens: tokens, State: *state}, nil
}

// upsertUser keys the local account on the derived institute email. Profile
// attributes overwrite local copies on every login; the external directory is
// the source of truth for them.
func (s *FederationService) upsertUser(profile *iitd.Profile) (*models.User, error) {
	email := profile.InstituteEmail()

	return s.store.UpsertFederatedUser(
		email,
		func(user *models.User) {
			user.Name = profile.Name
			user.KerberosID = profile.UserID
			user.IITDUUID = profile.UniqueID
			user.Department = profile.Department
			user.Category = profile.Category
		},
		func() *models.User {
			return &models.User{
				ID:         uuid.New().String(),
				Email:      email,
				Name:       profile.Name,
				IsActive:   true,
				Roles:      models.RoleUser,
				Type:       models.TypeInternal,
				KerberosID: profile.UserID,
				IITDUUID:   profile.UniqueID,
				Department: profile.Department,
				Category:   profile.Category,
			}
		},
	)
}
