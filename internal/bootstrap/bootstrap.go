package bootstrap

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/bsw-iitd/auth-server/internal/config"
	"github.com/bsw-iitd/auth-server/internal/iitd"
	"github.com/bsw-iitd/auth-server/internal/mail"
	"github.com/bsw-iitd/auth-server/internal/metrics"
	"github.com/bsw-iitd/auth-server/internal/services"
	"github.com/bsw-iitd/auth-server/internal/store"
	"github.com/bsw-iitd/auth-server/internal/token"
)

// Application holds all initialized components
type Application struct {
	Config *config.Config

	// Core infrastructure
	DB                   *store.Store
	MetricsRecorder      metrics.Recorder
	RateLimitRedisClient *redis.Client
	TokenProvider        *token.Provider
	Mailer               mail.Mailer
	IITDProvider         *iitd.Provider

	// Services
	AuditService      *services.AuditService
	SessionService    *services.SessionService
	ClientService     *services.ClientService
	AuthService       *services.AuthService
	OTPService        *services.OTPService
	FederationService *services.FederationService

	// HTTP
	HandlerSet handlerSet
	Router     *gin.Engine
	Server     *http.Server
}

// Run initializes and starts the application
func Run(cfg *config.Config) error {
	app := &Application{Config: cfg}

	if err := app.initializeInfrastructure(); err != nil {
		return err
	}

	app.initializeBusinessLayer()
	app.initializeHTTPLayer()

	app.startWithGracefulShutdown()
	return nil
}

// initializeInfrastructure sets up database, metrics, mail, redis, and the
// external IdP bridge
func (app *Application) initializeInfrastructure() error {
	var err error

	app.DB, err = initializeDatabase(app.Config)
	if err != nil {
		return err
	}

	app.MetricsRecorder = metrics.Init(app.Config.MetricsEnabled)

	app.Mailer, err = initializeMailer(app.Config)
	if err != nil {
		return err
	}

	app.RateLimitRedisClient, err = initializeRateLimitRedisClient(app.Config)
	if err != nil {
		return err
	}

	app.IITDProvider = iitd.NewProvider(iitd.ProviderConfig{
		ClientID:     app.Config.IITDClientID,
		ClientSecret: app.Config.IITDClientSecret,
		RedirectURI:  app.Config.IITDRedirectURI,
		AuthorizeURL: app.Config.IITDAuthorizeURL,
		TokenURL:     app.Config.IITDTokenURL,
		UserinfoURL:  app.Config.IITDUserinfoURL,
		Timeout:      app.Config.IITDTimeout,
		InsecureTLS:  app.Config.IITDInsecureTLS,
	})

	app.TokenProvider = token.NewProvider(
		app.Config.AccessTokenSecret,
		app.Config.RefreshTokenSecret,
		app.Config.OnboardingTokenSecret,
		app.Config.AccessTokenTTL,
		app.Config.RefreshTokenTTL,
		app.Config.OnboardingTokenTTL,
	)

	return nil
}

// initializeBusinessLayer sets up services
func (app *Application) initializeBusinessLayer() {
	app.AuditService = services.NewAuditService(
		app.DB,
		app.Config.AuditEnabled,
		app.Config.AuditBufferSize,
	)

	app.SessionService = services.NewSessionService(app.DB, app.Config.RefreshTokenTTL)
	app.ClientService = services.NewClientService(app.DB)
	app.AuthService = services.NewAuthService(
		app.DB,
		app.TokenProvider,
		app.SessionService,
		app.AuditService,
		app.MetricsRecorder,
	)
	app.OTPService = services.NewOTPService(
		app.DB,
		app.TokenProvider,
		app.Mailer,
		app.AuditService,
		app.MetricsRecorder,
		app.Config.OTPTTL,
	)
	app.FederationService = services.NewFederationService(
		app.DB,
		app.IITDProvider,
		app.ClientService,
		app.AuthService,
		app.AuditService,
		app.MetricsRecorder,
	)
}

// initializeHTTPLayer sets up handlers, router, and server
func (app *Application) initializeHTTPLayer() {
	app.HandlerSet = initializeHandlers(
		app.Config,
		app.AuthService,
		app.ClientService,
		app.SessionService,
		app.OTPService,
		app.FederationService,
	)

	app.Router = setupRouter(
		app.Config,
		app.DB,
		app.TokenProvider,
		app.HandlerSet,
		app.MetricsRecorder,
		app.RateLimitRedisClient,
	)

	app.Server = createHTTPServer(app.Config, app.Router)
}

// startWithGracefulShutdown starts the server and handles graceful shutdown
func (app *Application) startWithGracefulShutdown() {
	m := newGracefulManager()

	addServerRunningJob(m, app.Server)
	addServerShutdownJob(m, app.Server)
	addSessionSweepJob(m, app.Config, app.SessionService, app.MetricsRecorder)
	addRedisClientShutdownJob(m, app.RateLimitRedisClient)
	addAuditServiceShutdownJob(m, app.AuditService)

	<-m.Done()
}
