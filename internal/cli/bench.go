package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/throwbench/internal/cases"
	"github.com/wesleyorama2/throwbench/internal/harness"
	"github.com/wesleyorama2/throwbench/internal/report"
	"github.com/wesleyorama2/throwbench/internal/validation"
)

func newBenchCmd(opts *globalOptions) *cobra.Command {
	defaults := harness.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run the in-process benchmark of both cases",
		Long: `Run every registered case sequentially and compare them.

Examples:
  throwbench bench
  throwbench bench --iterations 100000 --format markdown --output results.md
  throwbench bench --engine go-testing
  throwbench bench --case with-exception`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd, opts)
		},
	}

	cmd.Flags().Int64("iterations", defaults.Iterations, "Measured iterations per case (sampled engine)")
	cmd.Flags().Int64("warmup", defaults.Warmup, "Warm-up iterations per case (sampled engine)")
	cmd.Flags().String("engine", string(defaults.Engine), "Measurement engine: sampled, go-testing")
	cmd.Flags().StringSlice("case", nil, "Case to run (repeatable, default all)")
	cmd.Flags().StringP("format", "f", string(report.FormatConsole), "Report format: console, markdown, json")
	cmd.Flags().StringP("output", "o", "", "Output file for the report (default: stdout)")
	cmd.Flags().BoolP("verbose", "v", false, "Show run metadata and sample outcomes")
	addProfileFlags(cmd)

	return cmd
}

func runBench(cmd *cobra.Command, opts *globalOptions) error {
	iterations, _ := cmd.Flags().GetInt64("iterations")
	warmup, _ := cmd.Flags().GetInt64("warmup")
	engine, _ := cmd.Flags().GetString("engine")
	names, _ := cmd.Flags().GetStringSlice("case")
	formatName, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")
	verbose, _ := cmd.Flags().GetBool("verbose")

	format, err := report.ParseFormat(formatName)
	if err != nil {
		return err
	}

	cfg := harness.DefaultConfig()
	cfg.Iterations = iterations
	cfg.Warmup = warmup
	cfg.Engine = harness.Engine(engine)

	h, err := harness.New(cfg, opts.logger)
	if err != nil {
		return err
	}

	selected, err := cases.Default(validation.New()).Select(names...)
	if err != nil {
		return err
	}

	prof := newProfiler(cmd)
	if err := prof.Start(); err != nil {
		return err
	}
	result, err := h.Run(cmd.Context(), selected)
	if stopErr := prof.Stop(); stopErr != nil {
		opts.logger.Warn("profiling failed", "error", stopErr)
	}
	if err != nil {
		return fmt.Errorf("benchmark failed: %w", err)
	}

	var w io.Writer = cmd.OutOrStdout()
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := report.Write(w, result, format, report.Options{NoColor: opts.noColor, Verbose: verbose}); err != nil {
		return err
	}
	if outputPath != "" {
		opts.logger.Info("report written", "path", outputPath, "format", string(format))
	}
	return nil
}
