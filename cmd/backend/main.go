package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dropserve/internal/auth"
	"dropserve/internal/config"
	"dropserve/internal/db"
	"dropserve/internal/drop"
	"dropserve/internal/logging"
	"dropserve/internal/server"
	"dropserve/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logging.New(logging.ParseLevel(cfg.LogLevel), cfg.LogJSON)

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer func() { _ = conn.Close() }()

	log.Info("running migrations", nil)
	if err := db.RunMigrations(conn); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	ctx := context.Background()

	backend, err := newBackend(ctx, cfg)
	if err != nil {
		return err
	}
	log.Info("storage backend ready", map[string]any{"type": backend.Type()})

	users := auth.NewUserStore(conn)
	if err := users.EnsureUser(ctx, cfg.AdminUser, cfg.AdminPass, true, true); err != nil {
		return fmt.Errorf("ensure admin user: %w", err)
	}

	drops := drop.NewService(drop.NewPostgresStore(conn), backend, log, drop.Config{
		MaxFileSize:        cfg.MaxFileSize,
		RangeCap:           cfg.RangeCap,
		PasswordProtection: cfg.PasswordProtection,
		RequireAuth:        cfg.RequireAuth,
	})

	srv := server.New(server.Config{
		Addr:    cfg.Addr,
		Drops:   drops,
		Users:   users,
		Tokens:  auth.NewTokenManager([]byte(cfg.TokenSecret), cfg.TokenTTL),
		Backend: backend,
		DB:      conn,
		Log:     log,
		Metrics: server.NewMetrics(),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting", map[string]any{"addr": cfg.Addr})
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutting down", map[string]any{"signal": sig.String()})
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		log.Info("shutdown complete", nil)
		return nil
	case err := <-errCh:
		return err
	}
}

// newBackend selects the storage backend from configuration; the rest
// of the service only ever sees the interface.
func newBackend(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	switch cfg.StorageBackend {
	case "minio":
		return storage.NewMinio(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
		})
	default:
		return storage.NewLocal(cfg.LocalDir)
	}
}
