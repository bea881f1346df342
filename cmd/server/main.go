package main

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

	"github.com/joho/godotenv"
	"github.com/tendant/simple-cms/pkg/cms/api"
	"github.com/tendant/simple-cms/pkg/cms/config"
)

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	// Load configuration from environment
	serverConfig, err := config.Load(config.WithEnv())
	if err != nil {
		slog.Error("Failed to load server configuration", "err", err)
		os.Exit(1)
	}

	logger := serverConfig.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	if err := run(serverConfig, logger); err != nil {
		logger.Error("Server error", "err", err)
		os.Exit(1)
	}
}

func run(serverConfig *config.ServerConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	built, err := serverConfig.Build(ctx, logger)
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := built.Close(closeCtx); err != nil {
			logger.Warn("Failed to close backends", "err", err)
		}
	}()

	handler, err := newHandler(ctx, serverConfig, built, logger)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              ":" + serverConfig.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("CMS server starting",
			"port", serverConfig.Port,
			"env", serverConfig.Environment,
			"database", serverConfig.DatabaseType,
			"storage", built.BlobStore.Name(),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exiting")
	return nil
}

// newHandler runs startup maintenance and assembles the HTTP router
func newHandler(ctx context.Context, serverConfig *config.ServerConfig, built *config.Built, logger *slog.Logger) (http.Handler, error) {
	if serverConfig.MigrateLegacyPasswords {
		n, err := built.Service.MigrateLegacyPasswords(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to migrate legacy passwords: %w", err)
		}
		logger.Info("Legacy passwords migrated", "users", n)
	}

	var tokens *api.TokenIssuer
	if serverConfig.JWTSecret != "" {
		var err error
		tokens, err = api.NewTokenIssuer(serverConfig.JWTSecret, serverConfig.JWTTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to create token issuer: %w", err)
		}
	}

	return api.NewRouter(built.Service, api.RouterConfig{
		Logger:             logger,
		Tokens:             tokens,
		RequireAuth:        serverConfig.RequireAuth,
		LoginRateLimit:     serverConfig.LoginRateLimit,
		CORSAllowedOrigins: serverConfig.CORSAllowedOrigins,
		UploadMaxBytes:     serverConfig.UploadMaxBytes,
		StaticDir:          built.StaticDir,
		StaticPrefix:       built.StaticPrefix,
		Metrics:            api.NewMetrics(),
	}), nil
}
