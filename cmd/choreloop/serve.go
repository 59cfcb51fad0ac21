package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/choreloop/internal/auth"
	"github.com/dukerupert/choreloop/internal/database"
	"github.com/dukerupert/choreloop/internal/export"
	"github.com/dukerupert/choreloop/internal/logging"
	"github.com/dukerupert/choreloop/internal/server"
)

func serveCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if err := cfg.ValidateServe(); err != nil {
				return err
			}

			logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

			db, err := database.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			exporter := export.New(export.S3Config(cfg.Export))
			if exporter.Enabled() {
				logger.Info("history export enabled", "bucket", cfg.Export.Bucket)
			}

			srv := server.New(db, server.Options{
				Issuer:       auth.NewIssuer(cfg.JWTSecret, cfg.SessionTTL),
				Exporter:     exporter,
				SecureCookie: cfg.SecureCookie,
			}, logger)

			httpServer := &http.Server{
				Addr:         ":" + cfg.Port,
				Handler:      srv.Router(),
				ReadTimeout:  5 * time.Second,
				WriteTimeout: 10 * time.Second,
				IdleTimeout:  120 * time.Second,
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			go cleanupLoop(ctx, srv, cfg.SessionTTL, logger.With("component", "cleanup"))

			errCh := make(chan error, 1)
			go func() {
				logger.Info("choreloop running", "addr", "http://localhost:"+cfg.Port)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("server error: %w", err)
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		},
	}
}

// cleanupLoop prunes rate limiter buckets and profile selections of
// sessions whose tokens have expired.
func cleanupLoop(ctx context.Context, srv *server.Server, sessionTTL time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			srv.RateLimiter().Cleanup()
			n, err := srv.ProfileStore().DeleteStale(time.Now().Add(-sessionTTL))
			if err != nil {
				logger.Error("delete stale profile selections", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("deleted stale profile selections", "count", n)
			}
		}
	}
}
