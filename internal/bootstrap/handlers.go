package bootstrap

import (
	"github.com/bsw-iitd/auth-server/internal/config"
	"github.com/bsw-iitd/auth-server/internal/handlers"
	"github.com/bsw-iitd/auth-server/internal/services"
)

// handlerSet holds all HTTP handlers
type handlerSet struct {
	auth    *handlers.AuthHandler
	signup  *handlers.SignupHandler
	iitd    *handlers.IITDHandler
	client  *handlers.ClientHandler
	session *handlers.SessionHandler
}

// initializeHandlers creates all HTTP handlers
func initializeHandlers(
	cfg *config.Config,
	authService *services.AuthService,
	clientService *services.ClientService,
	sessionService *services.SessionService,
	otpService *services.OTPService,
	federationService *services.FederationService,
) handlerSet {
	return handlerSet{
		auth:    handlers.NewAuthHandler(authService, clientService, cfg),
		signup:  handlers.NewSignupHandler(otpService, cfg),
		iitd:    handlers.NewIITDHandler(federationService, cfg),
		client:  handlers.NewClientHandler(clientService),
		session: handlers.NewSessionHandler(sessionService),
	}
}
