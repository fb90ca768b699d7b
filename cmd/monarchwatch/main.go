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

	"github.com/joho/godotenv"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	fileadapter "monarchwatch/internal/adapter/driven/file"
	"monarchwatch/internal/adapter/driven/monarch"
	sqliteadapter "monarchwatch/internal/adapter/driven/sqlite"
	httphandler "monarchwatch/internal/adapter/driving/http"
	"monarchwatch/internal/application"
	"monarchwatch/internal/config"
	"monarchwatch/internal/domain/model"
	"monarchwatch/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load .env if present, then configuration (fail fast on missing
	// required env vars).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"session_file", cfg.SessionFile,
		"poll_interval", cfg.PollInterval,
		"timeout", cfg.Timeout,
		"mfa_secret_configured", cfg.MFASecret != "",
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire adapters.
	snapshotRepo := sqliteadapter.NewSnapshotRepo(db)
	sessionStore := fileadapter.NewSessionStore(cfg.SessionFile)
	provider := application.NewClientProvider(nil)

	creds := model.Credentials{
		Email:     cfg.Email,
		Password:  cfg.Password,
		MFASecret: cfg.MFASecret,
	}
	authSvc := application.NewAuthService(
		creds,
		func() driven.MonarchClient { return monarch.NewClient() },
		provider,
		sessionStore,
	)

	// 6. Authenticate: restore the persisted session or log in fresh.
	if err := authSvc.Bootstrap(ctx); err != nil {
		if errors.Is(err, application.ErrMFARequired) {
			slog.Error("account requires multi-factor authentication; set MONARCHWATCH_MFA_SECRET to the TOTP secret from Monarch's authenticator setup page")
		}
		return err
	}
	slog.Info("authenticated")

	// 7. Create poll service, seeded with the last persisted snapshot so
	// the API serves data immediately after restart.
	pollSvc := application.NewPollService(provider, authSvc, snapshotRepo, cfg.PollInterval, cfg.Timeout)

	if snap, err := snapshotRepo.Latest(ctx); err != nil {
		slog.Warn("could not load persisted snapshot", "error", err)
	} else if snap != nil {
		pollSvc.Prime(snap)
		slog.Info("primed from persisted snapshot", "fetched_at", snap.FetchedAt)
	}

	pollSvc.OnAuthFailure(func(err error) {
		slog.Error("authentication exhausted, shutting down; fix credentials and restart", "error", err)
		stop()
	})

	go pollSvc.Start(ctx)

	// 8. HTTP server.
	apiHandler := httphandler.NewHandler(pollSvc, snapshotRepo, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("monarchwatch started",
		"listen_addr", cfg.ListenAddr,
		"poll_interval", cfg.PollInterval,
	)

	// 9. Wait for shutdown signal.
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
