package store

import (
	"log"

	"github.com/bsw-iitd/auth-server/internal/models"
	"github.com/bsw-iitd/auth-server/internal/util"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// SeedDev creates a default admin user and a default portal client when the
// database is empty. Development convenience only; the server refuses to run
// this in production.
func (s *Store) SeedDev() error {
	var userCount int64
	s.db.Model(&models.User{}).Count(&userCount)
	if userCount == 0 {
		password, err := util.RandomSecret(16)
		if err != nil {
			return err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), 10)
		if err != nil {
			return err
		}
		user := &models.User{
			ID:           uuid.New().String(),
			Email:        "admin@localhost",
			Name:         "Default Admin",
			PasswordHash: string(hash),
			IsActive:     true,
			Roles:        models.RoleAdmin,
			Type:         models.TypeInternal,
			IsOnboarded:  true,
		}
		if err := s.db.Create(user).Error; err != nil {
			return err
		}
		log.Printf("Created default user: admin@localhost / %s (role: ADMIN)", password)
	}

	var clientCount int64
	s.db.Model(&models.Client{}).Count(&clientCount)
	if clientCount == 0 {
		clientID, err := util.RandomHex(16)
		if err != nil {
			return err
		}
		clientSecret, err := util.RandomHex(32)
		if err != nil {
			return err
		}
		client := &models.Client{
			ID:           uuid.New().String(),
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Name:         "Main Portal",
			RedirectURIs: "http://localhost:3000/auth/callback,http://localhost:5173/auth/callback",
			AuthMode:     models.AuthModeBoth,
		}
		if err := s.db.Create(client).Error; err != nil {
			return err
		}
		log.Printf("Created default client: %s (Main Portal)", clientID)
		log.Printf("Client Secret (save this): %s", clientSecret)
	}

	return nil
}
