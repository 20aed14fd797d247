package services

import (
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/bsw-iitd/auth-server/internal/models"
	"github.com/bsw-iitd/auth-server/internal/store"
)

const bcryptCost = 10

var ErrSessionNotFound = errors.New("session not found")

// SessionService owns the session rows backing outstanding refresh tokens.
// One row is one live refresh token; the plaintext token never touches the
// database, only its bcrypt hash does.
type SessionService struct {
	store      *store.Store
	sessionTTL time.Duration
}

func NewSessionService(s *store.Store, sessionTTL time.Duration) *SessionService {
	return &SessionService{
		store:      s,
		sessionTTL: sessionTTL,
	}
}

// Create hashes the refresh token and records a new session for the user.
func (s *SessionService) Create(userID, refreshToken, userAgent, ip string) (*models.Session, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(refreshToken), bcryptCost)
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		ID:               uuid.New().String(),
		UserID:           userID,
		RefreshTokenHash: string(hash),
		UserAgent:        userAgent,
		IP:               ip,
		ExpiresAt:        time.Now().Add(s.sessionTTL),
	}

	if err := s.store.CreateSession(session); err != nil {
		return nil, err
	}
	return session, nil
}

// Match scans the user's unexpired sessions for one whose hash matches the
// presented refresh token. bcrypt embeds a per-hash salt, so equality cannot
// be checked with a lookup; each candidate is compared in turn.
func (s *SessionService) Match(userID, refreshToken string) (*models.Session, error) {
	sessions, err := s.store.ListValidSessions(userID)
	if err != nil {
		return nil, err
	}

	for i := range sessions {
		err := bcrypt.CompareHashAndPassword(
			[]byte(sessions[i].RefreshTokenHash),
			[]byte(refreshToken),
		)
		if err == nil {
			return &sessions[i], nil
		}
	}
	return nil, ErrSessionNotFound
}

// Rotate replaces the matched session's hash and expiry in place so the old
// refresh token value stops matching the moment the update lands.
func (s *SessionService) Rotate(sessionID, newRefreshToken string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newRefreshToken), bcryptCost)
	if err != nil {
		return err
	}

	err = s.store.RotateSession(sessionID, string(hash), time.Now().Add(s.sessionTTL))
	if errors.Is(err, store.ErrNotFound) {
		return ErrSessionNotFound
	}
	return err
}

// Revoke deletes a single session by ID.
func (s *SessionService) Revoke(sessionID string) error {
	return s.store.DeleteSessionByID(sessionID)
}

// RevokeAllForUser deletes every session belonging to the user.
func (s *SessionService) RevokeAllForUser(userID string) error {
	return s.store.DeleteSessionsByUserID(userID)
}

// ListForUser returns all sessions for a user, newest first.
func (s *SessionService) ListForUser(userID string) ([]models.Session, error) {
	return s.store.ListSessionsByUserID(userID)
}

// CountActive returns the number of unexpired sessions across all users.
func (s *SessionService) CountActive() (int64, error) {
	return s.store.CountActiveSessions()
}

// SweepExpired removes sessions and signup OTPs past their expiry.
func (s *SessionService) SweepExpired() (int64, error) {
	removed, err := s.store.DeleteExpiredSessions()
	if err != nil {
		return 0, err
	}

	if otps, err := s.store.DeleteExpiredSignupOTPs(); err != nil {
		log.Printf("[Session] failed to sweep expired signup OTPs: %v", err)
	} else if otps > 0 {
		log.Printf("[Session] swept %d expired signup OTPs", otps)
	}

	return removed, nil
}
