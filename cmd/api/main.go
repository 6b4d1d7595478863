package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BradenHooton/gatehouse/internal/auth"
	"github.com/BradenHooton/gatehouse/internal/auth/google"
	"github.com/BradenHooton/gatehouse/internal/config"
	"github.com/BradenHooton/gatehouse/internal/database"
	"github.com/BradenHooton/gatehouse/internal/handlers"
	middlewareCustom "github.com/BradenHooton/gatehouse/internal/middleware"
	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/BradenHooton/gatehouse/internal/repositories"
	"github.com/BradenHooton/gatehouse/internal/routes"
	"github.com/BradenHooton/gatehouse/internal/services"
	pkghttp "github.com/BradenHooton/gatehouse/pkg/http"
	pkglogger "github.com/BradenHooton/gatehouse/pkg/logger"
	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Server.Env,
			AttachStacktrace: true,
		}); err != nil {
			logger.Error("sentry init failed", slog.Any("error", err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Database.MigrateOnStart {
		if err := database.Migrate(ctx, cfg.Database.DSN(), logger); err != nil {
			logger.Error("failed to run migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

	db, err := database.NewConnection(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	accountRepo := repositories.NewAccountRepository(db)

	tokenManager := auth.NewTokenManager(models.TokenSecrets{
		SessionSecret:      cfg.Auth.JWTSecret,
		VerificationSecret: cfg.Auth.VerificationSecret,
	}, cfg.Auth.Issuer, cfg.Auth.Audience)

	emailSender, err := newEmailSender(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize email sender", slog.Any("error", err))
		os.Exit(1)
	}

	keySource := google.NewRemoteKeySource(ctx, cfg.Google.JWKSURL, cfg.Google.KeyFetchTimeout, logger)
	defer keySource.Close()

	verifier := google.NewVerifier(google.Config{
		ClientID:            cfg.Google.ClientID,
		AllowedOrigins:      cfg.Server.AllowedOrigins,
		RequestedWithMarker: cfg.Auth.RequestedWithMarker,
		MaxTokenAge:         cfg.Google.MaxTokenAge,
	}, keySource)

	auditLogger := pkglogger.NewAuditLogger(logger)
	sessions := services.SessionSettings{
		SessionTTL:    cfg.Auth.SessionTTL,
		RememberMeTTL: cfg.Auth.RememberMeTTL,
	}

	authService := services.NewAuthService(accountRepo, tokenManager, emailSender, logger, auditLogger, sessions)
	verificationService := services.NewVerificationService(accountRepo, tokenManager, emailSender, logger, auditLogger, sessions)
	profileService := services.NewProfileService(accountRepo, logger, auditLogger)
	googleService := services.NewGoogleService(verifier, accountRepo, tokenManager, logger, auditLogger, sessions)

	csrfCookies := auth.CookieConfig{
		Secure:   cfg.Server.IsProduction(),
		SameSite: "lax",
	}
	sessionCookies := auth.SessionCookieConfig(cfg.Server.IsProduction())
	errs := handlers.NewErrorWriter(logger, !cfg.Server.IsProduction())

	h := routes.Handlers{
		Auth:    handlers.NewAuthHandler(authService, verificationService, errs, csrfCookies),
		Google:  handlers.NewGoogleHandler(googleService, errs, sessionCookies, cfg.Server.IsProduction()),
		Profile: handlers.NewProfileHandler(profileService, authService, errs),
		Health:  handlers.NewHealthHandler(db, logger),
	}

	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger, ipConfig))
	router.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, h,
		auth.SessionMiddleware(tokenManager, accountRepo, logger),
		middlewareCustom.RateLimitConfig{
			RequestsPerMinute: cfg.Auth.RateLimitPerMinute,
			IPConfig:          ipConfig,
		},
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		logger.Error("server error", slog.Any("error", err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		return
	}

	logger.Info("server stopped gracefully")
}

func newEmailSender(ctx context.Context, cfg *config.Config, logger *slog.Logger) (services.EmailSender, error) {
	if cfg.Email.Provider == "ses" {
		return services.NewSESEmailSender(ctx, cfg.Email.AWSRegion, cfg.Email.FromAddress, cfg.Email.VerificationURLBase, logger)
	}
	logger.Warn("EMAIL_PROVIDER=log, verification links are written to the log only")
	return services.NewLogEmailSender(cfg.Email.VerificationURLBase, logger), nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
