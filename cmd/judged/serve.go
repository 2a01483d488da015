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

	"github.com/spf13/cobra"

	api "github.com/mind-engage/judging/internal/api/http"
	auth "github.com/mind-engage/judging/internal/auth/middleware"
)

func serveMain(cmd *cobra.Command, _ []string) error {
	cfg, err := getConfig(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc, dbh, err := openService(ctx, cfg)
	if err != nil {
		return err
	}
	defer dbh.Close()

	if _, err := svc.Settings(ctx); err != nil {
		return err
	}
	if cfg.JWTSecret == "supersecretkey" {
		slog.Warn("JWT_SECRET is the built-in default; set it for any shared deployment")
	}

	authSvc := auth.NewAuthService(cfg.JWTSecret, cfg.TokenTTL)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(svc, authSvc, api.RouterOptions{CORSOrigins: cfg.CORSOrigins}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", cfg.HTTPAddr, "db", cfg.DBDriver, "overlap", cfg.PanelOverlap)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	slog.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
