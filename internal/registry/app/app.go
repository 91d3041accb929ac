package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	httpapi "github.com/hivecert/hivecert/internal/registry/http"
	"github.com/hivecert/hivecert/internal/registry/lock"
	"github.com/hivecert/hivecert/internal/registry/metrics"
	"github.com/hivecert/hivecert/internal/registry/notify"
	"github.com/hivecert/hivecert/internal/registry/service"
	"github.com/hivecert/hivecert/internal/registry/store/drivers/postgres"
	"github.com/hivecert/hivecert/internal/registry/tenantschema"
	"github.com/hivecert/hivecert/pkg/cryptox"
	"github.com/hivecert/hivecert/pkg/jwtx"
	"github.com/hivecert/hivecert/pkg/slogx"
	"github.com/redis/go-redis/v9"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the registry service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db      *postgres.Store
	schemas *postgres.SchemaManager
	tenants *postgres.TenantConnector
	redis   *redis.Client // nil without REDIS_ADDR
	locker  lock.Locker
	signer  *jwtx.HS256
	metrics *metrics.Metrics

	// Services
	registrationService   *service.RegistrationService
	confirmationService   *service.ConfirmationService
	phoneService          *service.PhoneVerificationService
	loginService          *service.LoginService
	housekeepingService   *service.HousekeepingService
	reconciliationService *service.ReconciliationService

	scheduler gocron.Scheduler

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "hivecert-registry",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		metrics: metrics.New(),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}
	if err := app.initSessions(); err != nil {
		app.closeDatabase()
		return nil, err
	}
	app.initLocker(ctx)
	app.initServices()

	if err := app.initJobs(); err != nil {
		app.closeDatabase()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.scheduler.Start()

	app.logger.Info("registry service starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Handler is the application's HTTP handler, for serving it from tests.
func (app *Application) Handler() http.Handler { return app.router }

// Shutdown gracefully shuts down the application. In-flight registrations
// finish or roll back before the pools close.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down registry service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop background jobs, waiting for running ones
	if err := app.scheduler.Shutdown(); err != nil {
		app.logger.Error("error stopping scheduler", "error", err)
	}

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
		}
	}

	app.closeDatabase()

	app.logger.Info("registry service stopped")
	return nil
}

// initDatabase opens both pools and applies the global migrations
func (app *Application) initDatabase(ctx context.Context) error {
	db, err := postgres.Connect(ctx, app.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}
	app.logger.Info("database migrations applied successfully")

	schemas, err := postgres.ConnectSchemaManager(ctx, app.cfg.AdminDatabaseURL)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to initialize admin database: %w", err)
	}
	app.schemas = schemas

	tenants, err := postgres.NewTenantConnector(app.cfg.DatabaseURL)
	if err != nil {
		app.closeDatabase()
		return err
	}
	app.tenants = tenants

	return nil
}

func (app *Application) closeDatabase() {
	if app.schemas != nil {
		app.schemas.Close()
	}
	if app.db != nil {
		app.db.Close()
	}
}

// initSessions sets up the session signer. Without SESSION_SECRET a random
// secret is used and sessions do not survive a restart.
func (app *Application) initSessions() error {
	secret := app.cfg.SessionSecret
	if secret == "" {
		generated, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return fmt.Errorf("failed to generate session secret: %w", err)
		}
		secret = generated
		app.logger.Warn("SESSION_SECRET not set, using an ephemeral secret")
	}

	signer, err := jwtx.NewHS256([]byte(secret), jwtx.VerifyOptions{
		Issuer:   app.cfg.Issuer,
		Audience: []string{sessionAudience},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize session signer: %w", err)
	}
	app.signer = signer
	return nil
}

const sessionAudience = "hivecert-console"

// initLocker connects Redis when configured. An unreachable Redis at start
// is logged; the locker keeps retrying per acquisition.
func (app *Application) initLocker(ctx context.Context) {
	if app.cfg.RedisAddr == "" {
		app.locker = lock.Noop{}
		app.logger.Info("namespace lock disabled (no REDIS_ADDR)")
		return
	}

	app.redis = redis.NewClient(&redis.Options{
		Addr:     app.cfg.RedisAddr,
		Password: app.cfg.RedisPassword,
		DB:       app.cfg.RedisDB,
	})
	if err := app.redis.Ping(ctx).Err(); err != nil {
		app.logger.Warn("redis unreachable at startup", "addr", app.cfg.RedisAddr, "error", err)
	}
	app.locker = lock.NewRedis(app.redis, "hivecert:lock")
	app.logger.Info("namespace lock enabled", "addr", app.cfg.RedisAddr)
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	var (
		mailer notify.Mailer    = notify.LogMailer{Logger: app.logger}
		sms    notify.SMSSender = notify.LogSMSSender{Logger: app.logger}
	)
	if app.cfg.MailAPIURL != "" {
		mailer = notify.NewHTTPMailer(notify.HTTPConfig{
			BaseURL: app.cfg.MailAPIURL,
			APIKey:  app.cfg.MailAPIKey,
			From:    app.cfg.MailFrom,
		})
	} else {
		app.logger.Warn("MAIL_API_URL not set, confirmation emails are only logged")
	}
	if app.cfg.SMSAPIURL != "" {
		sms = notify.NewHTTPSMSSender(notify.HTTPConfig{
			BaseURL: app.cfg.SMSAPIURL,
			APIKey:  app.cfg.SMSAPIKey,
			From:    app.cfg.SMSFrom,
		})
	} else {
		app.logger.Warn("SMS_API_URL not set, verification codes are only logged")
	}

	// Structure is applied with the administrative credentials: it creates
	// tables inside the new namespace.
	var apply tenantschema.Applier
	if app.cfg.TenantctlPath != "" {
		apply = &tenantschema.CommandApplier{Path: app.cfg.TenantctlPath, DSN: app.cfg.AdminDatabaseURL}
		app.logger.Info("tenant structure applied out of process", "tool", app.cfg.TenantctlPath)
	} else {
		apply = &tenantschema.MigrateApplier{DSN: app.cfg.AdminDatabaseURL}
	}

	app.confirmationService = &service.ConfirmationService{
		Store:    app.db,
		Tenants:  app.tenants,
		Mailer:   mailer,
		Metrics:  app.metrics,
		BaseURL:  app.cfg.BaseURL,
		SiteName: app.cfg.SiteName,
	}
	app.phoneService = &service.PhoneVerificationService{
		Store:    app.db,
		SMS:      sms,
		SiteName: app.cfg.SiteName,
	}
	app.registrationService = &service.RegistrationService{
		Store:               app.db,
		Schemas:             app.schemas,
		Tenants:             app.tenants,
		Structure:           apply,
		Phones:              app.phoneService,
		Confirmations:       app.confirmationService,
		Locker:              app.locker,
		Metrics:             app.metrics,
		AdminCodes:          app.cfg.AdminCodes,
		PhoneEmailDomain:    app.cfg.PhoneEmailDomain,
		DefaultMaxUsers:     app.cfg.DefaultMaxUsers,
		DefaultMaxStorageMB: app.cfg.DefaultMaxStorageMB,
		StructureTimeout:    app.cfg.StructureTimeout,
	}
	app.loginService = &service.LoginService{
		Store:    app.db,
		Signer:   app.signer,
		Issuer:   app.cfg.Issuer,
		Audience: []string{sessionAudience},
		TTL:      app.cfg.SessionTTL,
	}

	app.housekeepingService = &service.HousekeepingService{
		Store:   app.db,
		Logger:  app.logger.With("job", jobHousekeeping),
		Metrics: app.metrics,
	}
	app.reconciliationService = &service.ReconciliationService{
		Store:   app.db,
		Schemas: app.schemas,
		Tenants: app.tenants,
		Logger:  app.logger.With("job", jobReconcile),
		Metrics: app.metrics,
	}
}

func (app *Application) initJobs() error {
	cfg := JobsConfig{
		Housekeeping:         app.housekeepingService,
		HousekeepingInterval: app.cfg.HousekeepingInterval,
		Reconciliation:       app.reconciliationService,
		ReconcileInterval:    app.cfg.ReconcileInterval,
		Logger:               app.logger,
	}
	if app.redis != nil {
		cfg.Locker = app.locker
	}

	s, err := NewScheduler(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize background jobs: %w", err)
	}
	app.scheduler = s
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.signer,
		app.metrics,
		BuildVersion,
		app.db,
		app.schemas,
		app.logger,
	)

	// Wire services to router
	router.RegistrationService = app.registrationService
	router.ConfirmationService = app.confirmationService
	router.PhoneService = app.phoneService
	router.LoginService = app.loginService
	router.SecureCookies = app.cfg.SecureCookies
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server. WriteTimeout covers a full provisioning run.
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      service.DefaultProvisionTimeout + 30*time.Second,
	}
}
