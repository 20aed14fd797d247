package bootstrap

import (
	"fmt"
	"log"

	"github.com/bsw-iitd/auth-server/internal/config"
	"github.com/bsw-iitd/auth-server/internal/store"
)

// initializeDatabase creates and initializes the database connection
func initializeDatabase(cfg *config.Config) (*store.Store, error) {
	db, err := store.New(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if !cfg.IsProduction() {
		if err := db.SeedDev(); err != nil {
			log.Printf("[Bootstrap] dev seed failed: %v", err)
		}
	}

	return db, nil
}
