package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/jcalloway/lenddesk/internal/adapter/driven/lendingapi"
	sqliteadapter "github.com/jcalloway/lenddesk/internal/adapter/driven/sqlite"
	httphandler "github.com/jcalloway/lenddesk/internal/adapter/driving/http"
	"github.com/jcalloway/lenddesk/internal/application"
	"github.com/jcalloway/lenddesk/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"api_base_url", cfg.APIBaseURL,
		"persistence", cfg.SecretKey != nil,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (single WAL connection) and run migrations.
	db, err := sqliteadapter.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	if err := sqliteadapter.RunMigrations(db.Conn); err != nil {
		return err
	}
	slog.Info("database ready", "path", cfg.DBPath)

	// 4. Wire the driven side. The provider breaks the construction cycle:
	// the session is the gateway's token source, and the gateway is the
	// session's client.
	tokenStore := sqliteadapter.NewTokenRepo(db, cfg.SecretKey)
	provider := application.NewClientProvider(nil)
	session := application.NewSessionService(provider, tokenStore, slog.Default())

	client, err := lendingapi.NewClient(cfg.APIBaseURL, session, cfg.HTTPTimeout)
	if err != nil {
		return err
	}
	provider.Replace(client)

	session.SetEvictionHook(func() {
		slog.Warn("session evicted, login required")
	})
	session.Restore(ctx)

	// 5. Application services.
	workflow := application.NewWorkflowService(provider, slog.Default())
	portfolio := application.NewPortfolioService(provider)

	// 6. HTTP surface.
	apiHandler := httphandler.NewHandler(session, workflow, portfolio, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("lenddesk started", "listen_addr", cfg.ListenAddr)

	// 7. Wait for shutdown signal, then drain.
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
