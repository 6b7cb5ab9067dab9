package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"recipeforge/internal/server"
)

// newServeCmd creates the serve command, exposing render and lint over
// HTTP for CI jobs that check recipes without a local install.
func newServeCmd() *cobra.Command {
	addr := "127.0.0.1:8080"

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose recipe rendering and linting over HTTP",
		Long: `Expose recipe rendering and linting over HTTP.

Endpoints:
  GET  /healthz     liveness probe
  POST /api/render  render a templated recipe
  POST /api/lint    render and lint a templated recipe

The server runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", addr, "listen address")

	return cmd
}

func runServe(cmd *cobra.Command, addr string) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	srv := server.New(addr, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
