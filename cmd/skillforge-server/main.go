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
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := BuildApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize app: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	cfg := app.Config
	logger := app.Logger

	logger.Info("starting skillforge server",
		"environment", cfg.Environment,
		"profile", cfg.Profile,
		"address", cfg.Server.Address,
		"storage_adapter", cfg.Storage.Adapter,
		"leaderboards", cfg.Leaderboard.Enabled)

	errc := make(chan error, 2)
	serve := func(name string, srv *http.Server) {
		logger.Info("listening", "server", name, "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("%s server: %w", name, err)
		}
	}
	go serve("api", app.Server)
	if ms := app.MetricsServer.Server; ms != nil {
		go serve("metrics", ms)
	}
	if sched := app.Service.Scheduler(); sched != nil {
		go func() { _ = sched.Run(ctx) }()
	}

	select {
	case <-ctx.Done():
	case err := <-errc:
		logger.Error("server failed", "error", err)
		stop()
	}

	logger.Info("shutting down server", "timeout", cfg.Server.ShutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if ms := app.MetricsServer.Server; ms != nil {
		if err := ms.Shutdown(shutdownCtx); err != nil {
			slog.Error("error during metrics server shutdown", "error", err)
		}
	}
	if err := app.Server.Shutdown(shutdownCtx); err != nil {
		slog.Error("error during server shutdown", "error", err)
		return
	}

	logger.Info("server stopped")
}
