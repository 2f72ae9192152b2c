// Package app wires configuration, storage, services and transport into a
// running HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/capsulevault/capsule-vault-backend/internal/adapter/postgres"
	auditrepo "github.com/capsulevault/capsule-vault-backend/internal/adapter/postgres/audit"
	authmethodrepo "github.com/capsulevault/capsule-vault-backend/internal/adapter/postgres/authmethod"
	capsulerepo "github.com/capsulevault/capsule-vault-backend/internal/adapter/postgres/capsule"
	tokenrepo "github.com/capsulevault/capsule-vault-backend/internal/adapter/postgres/token"
	userrepo "github.com/capsulevault/capsule-vault-backend/internal/adapter/postgres/user"
	jwtauth "github.com/capsulevault/capsule-vault-backend/internal/auth"
	"github.com/capsulevault/capsule-vault-backend/internal/config"
	authsvc "github.com/capsulevault/capsule-vault-backend/internal/service/auth"
	capsulesvc "github.com/capsulevault/capsule-vault-backend/internal/service/capsule"
	"github.com/capsulevault/capsule-vault-backend/internal/transport/middleware"
	"github.com/capsulevault/capsule-vault-backend/internal/transport/rest"
)

// Run is the application entry point. It loads configuration, connects to
// the database, assembles the services and serves HTTP until the context is
// canceled.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)

	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
	)

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)
	capsules := capsulerepo.New(pool)
	audit := auditrepo.New(pool)
	users := userrepo.New(pool)
	tokens := tokenrepo.New(pool)
	authMethods := authmethodrepo.New(pool)

	jwtManager := jwtauth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL)

	authService := authsvc.NewService(logger, users, tokens, authMethods, txManager, jwtManager, cfg.Auth)
	capsuleService := capsulesvc.NewService(logger, capsules, audit, txManager, cfg.Capsule)

	authHandler := rest.NewAuthHandler(authService, logger)
	capsuleHandler := rest.NewCapsuleHandler(capsuleService, logger)
	healthHandler := rest.NewHealthHandler(pool, BuildVersion())

	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /v1/auth/login", authHandler.Login)
	mux.HandleFunc("POST /v1/auth/refresh", authHandler.Refresh)
	mux.HandleFunc("POST /v1/auth/logout", authHandler.Logout)

	mux.HandleFunc("POST /v1/capsules", capsuleHandler.Create)
	mux.HandleFunc("GET /v1/capsules", capsuleHandler.List)
	mux.HandleFunc("GET /v1/capsules/{id}", capsuleHandler.Get)
	mux.HandleFunc("PATCH /v1/capsules/{id}", capsuleHandler.Update)
	mux.HandleFunc("POST /v1/capsules/{id}/seal", capsuleHandler.Seal)

	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /ready", healthHandler.Ready)
	mux.HandleFunc("GET /live", healthHandler.Live)

	rateLimiter := middleware.NewRateLimiter(time.Minute)
	defer rateLimiter.Stop()

	handler := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID,
		middleware.Logger(logger),
		middleware.CORS(cfg.CORS),
		rateLimiter.Limit(cfg.Server.RatePerMinute),
		middleware.Auth(authService),
	)(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	return nil
}
