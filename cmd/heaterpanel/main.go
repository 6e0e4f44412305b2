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

	"github.com/ericfisherdev/heaterpanel/internal/adapter/driven/heaterapi"
	sqliteadapter "github.com/ericfisherdev/heaterpanel/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/heaterpanel/internal/adapter/driving/http"
	webhandler "github.com/ericfisherdev/heaterpanel/internal/adapter/driving/web"
	"github.com/ericfisherdev/heaterpanel/internal/application"
	"github.com/ericfisherdev/heaterpanel/internal/config"
	"github.com/ericfisherdev/heaterpanel/internal/domain/port/driven"
)

const evictionInterval = time.Minute

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on malformed env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))
	slog.Info("config loaded",
		"api_url", cfg.APIURL,
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"persistent_sessions", cfg.HasSecretKey(),
		"session_idle", cfg.SessionIdle,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open the session database when tokens can be encrypted. Without a
	// key, device sessions live in memory only.
	var store driven.CredentialStore
	if cfg.HasSecretKey() {
		db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
		slog.Info("database opened", "path", db.Path())

		// 4. Run migrations on writer connection.
		version, err := sqliteadapter.RunMigrations(db.Writer)
		if err != nil {
			return err
		}
		slog.Info("migrations complete", "schema_version", version)

		store = sqliteadapter.NewCredentialRepo(db, cfg.SecretKey)
	} else {
		slog.Warn("HEATER_SECRET_KEY not set, device sessions will not survive a restart, and a device idle longer than HEATER_SESSION_IDLE is logged out",
			"session_idle", cfg.SessionIdle)
	}

	// 5. Create backend client.
	api, err := heaterapi.NewClient(cfg.APIURL)
	if err != nil {
		return err
	}

	// 6. Create device sessions and start idle eviction.
	devices := application.NewDevices(api, store, slog.Default())
	go devices.Start(ctx, evictionInterval, cfg.SessionIdle)

	// 7. Register API and GUI routes.
	mux := http.NewServeMux()
	httphandler.RegisterAPIRoutes(mux, httphandler.NewHandler(devices, slog.Default()))
	webhandler.RegisterRoutes(mux, webhandler.NewHandler(devices, cfg.SecureCookies, slog.Default()))

	// Apply middleware.
	handler := httphandler.ApplyMiddleware(mux, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// 8. Log startup complete.
	slog.Info("heaterpanel started", "listen_addr", cfg.ListenAddr, "api_url", cfg.APIURL)

	// 9. Wait for shutdown signal or a listener failure.
	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	// 10. Graceful shutdown with 10s timeout for in-flight requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	// 11. Log shutdown complete.
	slog.Info("shutdown complete")
	return nil
}
