package bootstrap

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/appleboy/graceful"
	"github.com/redis/go-redis/v9"

	"github.com/bsw-iitd/auth-server/internal/config"
	"github.com/bsw-iitd/auth-server/internal/metrics"
	"github.com/bsw-iitd/auth-server/internal/services"
)

func newGracefulManager() *graceful.Manager {
	return graceful.NewManager()
}

// createHTTPServer creates the HTTP server instance
func createHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// addServerRunningJob adds the HTTP server running job
func addServerRunningJob(m *graceful.Manager, srv *http.Server) {
	m.AddRunningJob(func(ctx context.Context) error {
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()
		<-ctx.Done()
		return nil
	})
}

// addServerShutdownJob adds HTTP server shutdown handler
func addServerShutdownJob(m *graceful.Manager, srv *http.Server) {
	m.AddShutdownJob(func() error {
		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
			return err
		}

		log.Println("Server exited")
		return nil
	})
}

// addSessionSweepJob adds the periodic removal of expired sessions and
// signup codes. Runs once at startup, then on every tick.
func addSessionSweepJob(
	m *graceful.Manager,
	cfg *config.Config,
	sessionService *services.SessionService,
	recorder metrics.Recorder,
) {
	if cfg.SessionSweepInterval <= 0 {
		return
	}

	sweep := func() {
		removed, err := sessionService.SweepExpired()
		if err != nil {
			log.Printf("[Session] sweep failed: %v", err)
			recorder.RecordDatabaseQueryError("sweep_sessions")
			return
		}
		if removed > 0 {
			recorder.RecordSessionsSwept(int(removed))
			log.Printf("[Session] swept %d expired sessions", removed)
		}
		if active, err := sessionService.CountActive(); err == nil {
			recorder.SetActiveSessionsCount(int(active))
		}
	}

	m.AddRunningJob(func(ctx context.Context) error {
		ticker := time.NewTicker(cfg.SessionSweepInterval)
		defer ticker.Stop()

		sweep()

		for {
			select {
			case <-ticker.C:
				sweep()
			case <-ctx.Done():
				return nil
			}
		}
	})
}

// addRedisClientShutdownJob adds Redis client shutdown handler
func addRedisClientShutdownJob(m *graceful.Manager, redisClient *redis.Client) {
	if redisClient == nil {
		return
	}

	m.AddShutdownJob(func() error {
		log.Println("Closing Redis connection...")
		if err := redisClient.Close(); err != nil {
			log.Printf("Error closing Redis client: %v", err)
			return err
		}
		log.Println("Redis connection closed")
		return nil
	})
}

// addAuditServiceShutdownJob adds audit service shutdown handler
func addAuditServiceShutdownJob(m *graceful.Manager, auditService *services.AuditService) {
	m.AddShutdownJob(func() error {
		log.Println("Shutting down audit service...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := auditService.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down audit service: %v", err)
			return err
		}
		return nil
	})
}
