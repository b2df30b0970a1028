// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tapinfi/cardhub/internal/account"
	"github.com/tapinfi/cardhub/internal/admin"
	"github.com/tapinfi/cardhub/internal/auth"
	"github.com/tapinfi/cardhub/internal/card"
	"github.com/tapinfi/cardhub/internal/config"
	"github.com/tapinfi/cardhub/internal/core"
	"github.com/tapinfi/cardhub/internal/health"
	"github.com/tapinfi/cardhub/internal/mail"
	"github.com/tapinfi/cardhub/internal/middleware"
	"github.com/tapinfi/cardhub/internal/profile"
	"github.com/tapinfi/cardhub/internal/server"
	"github.com/tapinfi/cardhub/internal/storage"
	"github.com/tapinfi/cardhub/internal/theme"
	"github.com/tapinfi/cardhub/internal/wallet"
)

const (
	defaultDrainDelay = 5 * time.Second
	metricsNamespace  = "cardhub"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"public_url", cfg.App.PublicURL,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	metrics := core.NewMetrics(metricsNamespace)

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	store, err := storage.NewLocalStore(cfg.Storage)
	if err != nil {
		return err
	}
	logger.Info("media storage ready",
		"root_dir", cfg.Storage.RootDir,
		"public_base_url", cfg.Storage.PublicBaseURL,
	)

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.GetKeyID(),
	)

	mailer := mail.New(cfg.Mail, logger)
	events := auth.NewEventBus(redis.Client, metrics.AuthEvents)

	accountSvc := account.NewService(account.NewRepository(db.DB))

	authSvc := auth.NewService(auth.Deps{
		Repo:   auth.NewRepository(db.DB),
		JWT:    jwtManager,
		Users:  accountSvc,
		Redis:  redis.Client,
		Mailer: mailer,
		Events: events,
		Config: auth.ServiceConfig{
			AppName:                  cfg.App.Name,
			PublicURL:                cfg.App.PublicURL,
			RequireEmailConfirmation: cfg.Auth.RequireEmailConfirmation,
			ConfirmationTTL:          cfg.Auth.ConfirmationTokenTTL,
			ResetTTL:                 cfg.Auth.ResetTokenTTL,
		},
		Logger: logger,
	})
	authHandler := auth.NewHandler(authSvc)
	streamHandler := auth.NewStreamHandler(events, cfg.CORS.AllowedOrigins, logger)

	profileSvc := profile.NewService(
		profile.NewRepository(db.DB),
		store,
		cfg.Storage,
		metrics.ImageUploads,
		logger,
	)
	profileHandler := profile.NewHandler(profileSvc, cfg.Storage.MaxUploadBytes)

	themeSvc := theme.NewService(
		theme.NewRepository(db.DB),
		metrics.ThemeApplications,
		logger,
	)
	themeHandler := theme.NewHandler(themeSvc)

	walletSvc := wallet.NewService(
		wallet.NewRepository(db.DB),
		profileSvc,
		cfg.Wallet.PageSize,
		metrics.WalletSaves,
		logger,
	)
	walletHandler := wallet.NewHandler(walletSvc)

	renderer, err := card.NewRenderer()
	if err != nil {
		return err
	}
	resolver := card.NewResolver(profileSvc, themeSvc, metrics.CardResolutions, logger)
	cardHandler := card.NewHandler(resolver, renderer, cfg.App.PublicURL, logger)

	healthHandler := health.NewHandler(
		health.Dependency{Name: "database", Checker: db},
		health.Dependency{Name: "redis", Checker: redis},
		health.Dependency{Name: "storage", Checker: store},
	)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		DBStats:     db.Stats,
		RedisStats:  redis.PoolStats,
		DBPing:      db.Ping,
		RedisPing:   redis.Ping,
		StoragePing: store.Ping,
		Profiles:    profileSvc,
		Wallet:      walletSvc,
		Themes:      themeSvc,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	limiter := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Limit: middleware.PerMinute(
			cfg.RateLimit.Requests,
			cfg.RateLimit.Burst,
		),
		FailOpen: true,
	})
	credentialLimit := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Limit:    middleware.PerMinute(10, 5),
		KeyFunc:  middleware.KeyByIPAndPath,
		FailOpen: true,
	}).Handler

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(core.Tracing)
	router.Use(middleware.Logger(logger))
	router.Use(middleware.SecurityHeaders(cfg.App.Environment == "production"))
	router.Use(middleware.CORS(cfg.CORS))
	router.Use(limiter.Handler)

	healthHandler.RegisterRoutes(router)

	router.Handle("/metrics", metrics.Handler())
	router.Handle("/media/*", http.StripPrefix("/media", store.Handler()))
	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())

	authenticator := middleware.Authenticator(authSvc)
	optionalAuth := middleware.OptionalAuth(authSvc)
	adminOnly := middleware.RequireAdmin

	cardHandler.RegisterPageRoutes(router, optionalAuth)

	router.Route("/v1", func(r chi.Router) {
		r.Use(optionalAuth)
		r.Use(limiter.ByRole(middleware.DefaultRoleLimits))

		authHandler.RegisterRoutes(r, authenticator, credentialLimit)
		streamHandler.RegisterRoutes(r, authenticator)

		profileHandler.RegisterRoutes(r, authenticator)
		profileHandler.RegisterAdminRoutes(r, authenticator, adminOnly)

		themeHandler.RegisterRoutes(r, authenticator)
		themeHandler.RegisterAdminRoutes(r, authenticator, adminOnly)

		cardHandler.RegisterRoutes(r, optionalAuth)
		walletHandler.RegisterRoutes(r, authenticator, optionalAuth)

		adminHandler.RegisterRoutes(r, authenticator, adminOnly)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	drainDelay := cfg.Server.DrainDelay
	if drainDelay <= 0 {
		drainDelay = defaultDrainDelay
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
