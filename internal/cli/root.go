// Package cli wires the throwbench commands.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/throwbench/internal/logging"
)

var version = "0.1.0"

// globalOptions holds the persistent flags and the logger built from them.
type globalOptions struct {
	logLevel string
	noColor  bool
	logger   *slog.Logger
}

// RootCmd represents the base command when called without any subcommands
var RootCmd = NewRootCmd()

// NewRootCmd builds the command tree. Each call returns independent flag
// state.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:     "throwbench",
		Short:   "Measure the cost of aborting with panics versus returning validation results",
		Version: version,
		Long: `throwbench compares two ways of reporting a validation failure: aborting
with a recovered panic, and returning a structured outcome.

It measures both in-process (bench), exposes both over HTTP (serve) and
drives the HTTP endpoints with concurrent virtual users (load).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logging.ParseLevel(opts.logLevel)
			if err != nil {
				return err
			}
			opts.logger = logging.New(cmd.ErrOrStderr(), logging.Options{
				Level:   level,
				NoColor: opts.noColor,
			})
			slog.SetDefault(opts.logger)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	root.AddCommand(newBenchCmd(opts))
	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newLoadCmd(opts))
	root.AddCommand(newVersionCmd())

	return root
}

// Execute runs RootCmd and prints any error to stderr.
func Execute() error {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
