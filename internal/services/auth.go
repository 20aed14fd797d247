package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/bsw-iitd/auth-server/internal/metrics"
	"github.com/bsw-iitd/auth-server/internal/models"
	"github.com/bsw-iitd/auth-server/internal/store"
	"github.com/bsw-iitd/auth-server/internal/token"
)

var (
	// ErrInvalidCredentials covers unknown email, passwordless accounts, and
	// wrong passwords alike. Callers must not learn which one it was.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
)

// Login sources reported to metrics and audit
const (
	SourcePassword = "password"
	SourceIITD     = "iitd"
	SourceRefresh  = "refresh"
)

// TokenPair bundles freshly issued access and refresh tokens.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthService implements sign-in, token issuance, rotation, and revocation.
type AuthService struct {
	store    *store.Store
	tokens   *token.Provider
	sessions *SessionService
	audit    *AuditService
	metrics  metrics.Recorder
}

func NewAuthService(
	s *store.Store,
	tokens *token.Provider,
	sessions *SessionService,
	audit *AuditService,
	recorder metrics.Recorder,
) *AuthService {
	return &AuthService{
		store:    s,
		tokens:   tokens,
		sessions: sessions,
		audit:    audit,
		metrics:  recorder,
	}
}

// SignIn verifies an email/password pair. Unknown users, federation-only
// accounts, and wrong passwords all return ErrInvalidCredentials; only a
// disabled account is reported distinctly, and only after the password
// matched.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.store.GetUserByEmail(strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, store.ErrNotFound) {
		s.recordLoginFailure(ctx, email, "unknown user")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}

	if user.PasswordHash == "" {
		s.recordLoginFailure(ctx, email, "no password set")
		return nil, ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.recordLoginFailure(ctx, email, "password mismatch")
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		s.recordLoginFailure(ctx, email, "account disabled")
		return nil, ErrAccountDisabled
	}

	return user, nil
}

// IssueTokens signs an access/refresh pair for the user and anchors the
// refresh token to a new session row.
func (s *AuthService) IssueTokens(
	ctx context.Context,
	user *models.User,
	clientID, userAgent, ip, source string,
) (*TokenPair, error) {
	// clientRoles is reserved for per-client role grants; always empty for now.
	accessToken, err := s.tokens.SignAccess(token.AccessPayload{
		Sub:         user.ID,
		Email:       user.Email,
		Name:        user.Name,
		Type:        user.Type,
		GlobalRole:  user.RoleList(),
		ClientID:    clientID,
		ClientRoles: []string{},
	})
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken, err := s.tokens.SignRefresh(user.ID)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	if _, err := s.sessions.Create(user.ID, refreshToken, userAgent, ip); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.metrics.RecordTokenIssued("access")
	s.metrics.RecordTokenIssued("refresh")
	s.metrics.RecordLogin(source, true)

	s.audit.Log(ctx, AuditLogEntry{
		EventType:    models.EventLoginSuccess,
		Severity:     models.SeverityInfo,
		ActorUserID:  user.ID,
		ActorIP:      ip,
		ResourceType: models.ResourceUser,
		ResourceID:   user.ID,
		Action:       "issue tokens",
		Details:      models.AuditDetails{"source": source, "client_id": clientID},
		Success:      true,
	})

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Refresh rotates a refresh token: the presented token must verify and match
// a live session; the session's hash and expiry are replaced atomically and a
// new pair is issued. The previous refresh token stops working the moment the
// rotation lands.
func (s *AuthService) Refresh(
	ctx context.Context,
	refreshToken, clientID string,
) (*TokenPair, *models.User, error) {
	payload, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		s.metrics.RecordTokenRefresh(false)
		return nil, nil, err
	}

	user, err := s.store.GetUserByID(payload.Sub)
	if errors.Is(err, store.ErrNotFound) {
		s.metrics.RecordTokenRefresh(false)
		return nil, nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("refresh: %w", err)
	}
	if !user.IsActive {
		s.metrics.RecordTokenRefresh(false)
		return nil, nil, ErrAccountDisabled
	}

	session, err := s.sessions.Match(user.ID, refreshToken)
	if err != nil {
		s.metrics.RecordTokenRefresh(false)
		return nil, nil, err
	}

	accessToken, err := s.tokens.SignAccess(token.AccessPayload{
		Sub:         user.ID,
		Email:       user.Email,
		Name:        user.Name,
		Type:        user.Type,
		GlobalRole:  user.RoleList(),
		ClientID:    clientID,
		ClientRoles: []string{},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("sign access token: %w", err)
	}

	newRefreshToken, err := s.tokens.SignRefresh(user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("sign refresh token: %w", err)
	}

	if err := s.sessions.Rotate(session.ID, newRefreshToken); err != nil {
		s.metrics.RecordTokenRefresh(false)
		return nil, nil, err
	}

	s.metrics.RecordTokenRefresh(true)
	s.metrics.RecordTokenIssued("access")
	s.metrics.RecordTokenIssued("refresh")

	s.audit.Log(ctx, AuditLogEntry{
		EventType:    models.EventTokenRefreshed,
		Severity:     models.SeverityInfo,
		ActorUserID:  user.ID,
		ResourceType: models.ResourceSession,
		ResourceID:   session.ID,
		Action:       "rotate refresh token",
		Success:      true,
	})

	return &TokenPair{AccessToken: accessToken, RefreshToken: newRefreshToken}, user, nil
}

// RevokeByRefreshToken deletes the session backing a refresh token. Logout is
// idempotent; an unverifiable token or an already-gone session is not an
// error, only an unexpected store failure is logged.
func (s *AuthService) RevokeByRefreshToken(ctx context.Context, refreshToken string) {
	payload, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return
	}

	session, err := s.sessions.Match(payload.Sub, refreshToken)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			log.Printf("[Auth] logout session lookup failed: %v", err)
		}
		return
	}

	if err := s.sessions.Revoke(session.ID); err != nil {
		log.Printf("[Auth] logout session delete failed: %v", err)
		return
	}

	s.metrics.RecordLogout()
	s.metrics.RecordSessionRevoked("logout")

	s.audit.Log(ctx, AuditLogEntry{
		EventType:    models.EventLogout,
		Severity:     models.SeverityInfo,
		ActorUserID:  payload.Sub,
		ResourceType: models.ResourceSession,
		ResourceID:   session.ID,
		Action:       "logout",
		Success:      true,
	})
}

// Introspect verifies an access token and returns its claims.
func (s *AuthService) Introspect(accessToken string) (*token.AccessPayload, error) {
	payload, err := s.tokens.VerifyAccess(accessToken)
	if err != nil {
		result := "invalid"
		if errors.Is(err, token.ErrExpiredToken) {
			result = "expired"
		}
		s.metrics.RecordTokenValidation("access", result)
		return nil, err
	}

	s.metrics.RecordTokenValidation("access", "valid")
	return payload, nil
}

// GetUser fetches a user by primary key.
func (s *AuthService) GetUser(id string) (*models.User, error) {
	user, err := s.store.GetUserByID(id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// CreateUserRequest is the development seed input.
type CreateUserRequest struct {
	Email    string
	Name     string
	Password string
	Roles    string
	Type     string
	Mobile   string
}

// CreateUser inserts a password-based user. Serves the development seed path
// only; production signups go through the OTP gate.
func (s *AuthService) CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, err
	}

	roles := strings.TrimSpace(req.Roles)
	if roles == "" {
		roles = models.RoleUser
	}
	userType := req.Type
	if userType == "" {
		userType = models.TypeInternal
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         req.Name,
		PasswordHash: string(hash),
		IsActive:     true,
		Roles:        roles,
		Type:         userType,
		Mobile:       req.Mobile,
		CreatedAt:    time.Now(),
	}

	if err := s.store.CreateUser(user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	s.audit.Log(ctx, AuditLogEntry{
		EventType:    models.EventUserCreated,
		Severity:     models.SeverityInfo,
		ResourceType: models.ResourceUser,
		ResourceID:   user.ID,
		Action:       "create user",
		Details:      models.AuditDetails{"email": user.Email},
		Success:      true,
	})

	return user, nil
}

func (s *AuthService) recordLoginFailure(ctx context.Context, email, reason string) {
	s.metrics.RecordLogin(SourcePassword, false)
	s.audit.Log(ctx, AuditLogEntry{
		EventType:    models.EventLoginFailure,
		Severity:     models.SeverityWarning,
		ResourceType: models.ResourceUser,
		Action:       "password login",
		Details:      models.AuditDetails{"email": email, "reason": reason},
		Success:      false,
		ErrorMessage: reason,
	})
}
