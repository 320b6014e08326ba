package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/musegen/internal/server"
	"github.com/desertthunder/musegen/internal/services"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"
)

// Serve exposes the canned trainer over the backend HTTP and WebSocket contract until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		cfg.Port = port
	}

	mock := services.NewMockService(r.config.Backend.MockDelay(), services.WithMockEpochs(cmd.Int("epochs")))
	handler := server.NewBackend(mock, r.logger, rate.Limit(cfg.RateLimit), cfg.Burst)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.writePlain("Serving canned training backend on http://%s\n", cfg.Addr())
	r.writePlain("Point a client at it with backend.url = \"http://%s\"\n", cfg.Addr())

	if err := server.Serve(ctx, cfg.Addr(), handler, r.logger); err != nil {
		return fmt.Errorf("backend server stopped: %w", err)
	}
	return nil
}
