package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/throwbench/internal/server"
	"github.com/wesleyorama2/throwbench/internal/validation"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	defaults := server.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve /test/with and /test/without over HTTP",
		Long: `Start the HTTP server exposing both cases:

  GET /test/with     abortive case, 400 with the failure message
  GET /test/without  non-abortive case, 200 with the outcome as JSON
  GET /healthz       liveness

The server stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			shutdownTimeout, _ := cmd.Flags().GetDuration("shutdown-timeout")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := server.DefaultConfig()
			cfg.Addr = addr
			cfg.ShutdownTimeout = shutdownTimeout

			return server.New(cfg, validation.New(), opts.logger).Run(ctx)
		},
	}

	cmd.Flags().String("addr", defaults.Addr, "Listen address")
	cmd.Flags().Duration("shutdown-timeout", defaults.ShutdownTimeout, "Graceful shutdown timeout")

	return cmd
}
