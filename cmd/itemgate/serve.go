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

	"github.com/spf13/cobra"

	"github.com/sagarc03/itemgate"
	"github.com/sagarc03/itemgate/config"
	"github.com/sagarc03/itemgate/database"
	itemgatehttp "github.com/sagarc03/itemgate/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the itemgate HTTP server.

The signing secret must be provided through auth.secret,
ITEMGATE_AUTH_SECRET or JWT_SECRET; the server refuses to start
without it.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 3000, "HTTP server port (env: ITEMGATE_SERVER_PORT, PORT)")
	serveCmd.Flags().String("storage-type", "", "blob storage: filesystem, s3 (default: filesystem)")
	serveCmd.Flags().String("storage-path", "", "filesystem storage directory (default: ./data)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	if err := cfg.Auth.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()
	slog.Info("connected to database", "type", cfg.Database.Type, "auto_migrate", cfg.Database.AutoMigrate)

	blobs, err := openBlobStore(ctx, cfg.Storage, cfg.Server.Port)
	if err != nil {
		return fmt.Errorf("open blob storage: %w", err)
	}
	defer func() { _ = blobs.close() }()

	hasher, err := itemgate.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return fmt.Errorf("create password hasher: %w", err)
	}

	tokens, err := itemgate.NewTokenService([]byte(cfg.Auth.Secret), cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("create token service: %w", err)
	}

	service, err := itemgate.NewGatewayService(itemgate.ServiceConfig{
		Identities:     db.Identities(),
		Credentials:    db.Credentials(),
		Items:          db.Items(),
		Blobs:          blobs.store,
		Hasher:         hasher,
		Tokens:         tokens,
		CleanupTimeout: cfg.Server.CleanupTimeout,
	})
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	handlerConfig := itemgatehttp.HandlerConfig{
		CORS:           cfg.CORS,
		MaxUploadSize:  cfg.Server.MaxUploadSize,
		RequestTimeout: cfg.Server.RequestTimeout,
		Banner:         cfg.Server.Banner,
		Files:          blobs.files,
		HealthCheck:    db.Ping,
	}

	handler := itemgatehttp.NewHandler(&handlerConfig, service)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)

	server := &http.Server{
		Addr:              addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	slog.Info("starting server", "addr", addr, "storage", cfg.Storage.Type, "token_ttl", cfg.Auth.TokenTTL)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
