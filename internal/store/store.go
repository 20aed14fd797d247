package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/bsw-iitd/auth-server/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Store struct {
	db *gorm.DB
}

func New(driver, dsn string) (*Store, error) {
	dial, err := dialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dial, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	// Auto migrate
	if err := db.AutoMigrate(
		&models.User{},
		&models.Client{},
		&models.Session{},
		&models.SignupOTP{},
		&models.AuditLog{},
	); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// translate maps gorm errors onto the store's error taxonomy so callers can
// distinguish not-found from conflict from generic store failure.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	default:
		return err
	}
}

// User operations

func (s *Store) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Store) GetUserByID(id string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Store) CreateUser(user *models.User) error {
	return translate(s.db.Create(user).Error)
}

func (s *Store) UpdateUser(user *models.User) error {
	return translate(s.db.Save(user).Error)
}

// UpsertFederatedUser creates or updates a user from the external IdP profile.
// The lookup key is the derived institutional email; on subsequent logins the
// IdP remains the source of truth for the profile fields it owns.
func (s *Store) UpsertFederatedUser(
	lookupEmail string,
	update func(*models.User),
	create func() *models.User,
) (*models.User, error) {
	var user models.User
	err := s.db.Where("email = ?", lookupEmail).First(&user).Error

	if err == nil {
		update(&user)
		if err := s.db.Save(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to update federated user: %w", translate(err))
		}
		return &user, nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to query federated user: %w", translate(err))
	}

	created := create()
	if err := s.db.Create(created).Error; err != nil {
		return nil, fmt.Errorf("failed to create federated user: %w", translate(err))
	}
	return created, nil
}

// Client operations

func (s *Store) GetClientByClientID(clientID string) (*models.Client, error) {
	var client models.Client
	if err := s.db.Where("client_id = ?", clientID).First(&client).Error; err != nil {
		return nil, translate(err)
	}
	return &client, nil
}

func (s *Store) GetClientByID(id string) (*models.Client, error) {
	var client models.Client
	if err := s.db.Where("id = ?", id).First(&client).Error; err != nil {
		return nil, translate(err)
	}
	return &client, nil
}

func (s *Store) ListClients() ([]models.Client, error) {
	var clients []models.Client
	if err := s.db.Order("created_at DESC").Find(&clients).Error; err != nil {
		return nil, translate(err)
	}
	return clients, nil
}

func (s *Store) CreateClient(client *models.Client) error {
	return translate(s.db.Create(client).Error)
}

func (s *Store) UpdateClient(client *models.Client) error {
	return translate(s.db.Save(client).Error)
}

func (s *Store) DeleteClient(id string) error {
	res := s.db.Where("id = ?", id).Delete(&models.Client{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Session operations

func (s *Store) CreateSession(session *models.Session) error {
	return translate(s.db.Create(session).Error)
}

// ListValidSessions returns non-expired sessions for a user, most recent first
func (s *Store) ListValidSessions(userID string) ([]models.Session, error) {
	var sessions []models.Session
	err := s.db.Where("user_id = ? AND expires_at > ?", userID, time.Now()).
		Order("created_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, translate(err)
	}
	return sessions, nil
}

func (s *Store) ListSessionsByUserID(userID string) ([]models.Session, error) {
	var sessions []models.Session
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, translate(err)
	}
	return sessions, nil
}

// RotateSession replaces the refresh-token hash and expiry of a session in
// place. A single UPDATE statement keeps the old and new hash from ever being
// valid at the same time.
func (s *Store) RotateSession(sessionID, newHash string, newExpiresAt time.Time) error {
	res := s.db.Model(&models.Session{}).
		Where("id = ?", sessionID).
		Updates(map[string]any{
			"refresh_token_hash": newHash,
			"expires_at":         newExpiresAt,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteSessionByID(id string) error {
	return translate(s.db.Where("id = ?", id).Delete(&models.Session{}).Error)
}

func (s *Store) DeleteSessionsByUserID(userID string) error {
	return translate(s.db.Where("user_id = ?", userID).Delete(&models.Session{}).Error)
}

func (s *Store) DeleteExpiredSessions() (int64, error) {
	res := s.db.Where("expires_at < ?", time.Now()).Delete(&models.Session{})
	return res.RowsAffected, translate(res.Error)
}

func (s *Store) CountActiveSessions() (int64, error) {
	var count int64
	err := s.db.Model(&models.Session{}).
		Where("expires_at > ?", time.Now()).
		Count(&count).Error
	return count, translate(err)
}

// Signup OTP operations

// UpsertSignupOTP stores the hashed code for an email, replacing any prior
// outstanding code. At most one live code per email at a time.
func (s *Store) UpsertSignupOTP(email, otpHash string, expiresAt time.Time) error {
	var record models.SignupOTP
	err := s.db.Where("email = ?", email).First(&record).Error

	if err == nil {
		record.OTPHash = otpHash
		record.ExpiresAt = expiresAt
		return translate(s.db.Save(&record).Error)
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return translate(err)
	}

	return translate(s.db.Create(&models.SignupOTP{
		Email:     email,
		OTPHash:   otpHash,
		ExpiresAt: expiresAt,
	}).Error)
}

func (s *Store) GetSignupOTP(email string) (*models.SignupOTP, error) {
	var record models.SignupOTP
	if err := s.db.Where("email = ?", email).First(&record).Error; err != nil {
		return nil, translate(err)
	}
	return &record, nil
}

func (s *Store) DeleteSignupOTP(email string) error {
	return translate(s.db.Where("email = ?", email).Delete(&models.SignupOTP{}).Error)
}

func (s *Store) DeleteExpiredSignupOTPs() (int64, error) {
	res := s.db.Where("expires_at < ?", time.Now()).Delete(&models.SignupOTP{})
	return res.RowsAffected, translate(res.Error)
}

// Audit log operations

func (s *Store) CreateAuditLogs(logs []*models.AuditLog) error {
	if len(logs) == 0 {
		return nil
	}
	return translate(s.db.Create(logs).Error)
}

// Health checks the database connection
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// DB returns the underlying GORM database connection (for transactions)
func (s *Store) DB() *gorm.DB {
	return s.db
}
