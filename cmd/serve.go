package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/answerdock/answerdock/api"
	"github.com/answerdock/answerdock/internal/app"
	"github.com/answerdock/answerdock/internal/config"
	"github.com/answerdock/answerdock/internal/log"
)

// NewServeCmd creates the serve command.
func NewServeCmd(cfg *config.Config, logger log.Logger) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = cfg.HTTPAddr
			}
			return runServe(cmd.Context(), cfg, logger, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, logger log.Logger, addr string) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	server := api.NewServer(a.Engine, a.Ingest, a.Sessions, a.Store, logger)
	logger.Info("HTTP server ready", "addr", addr, "chunks", a.Store.Count())

	return server.Run(ctx, addr)
}
