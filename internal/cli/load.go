package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/throwbench/internal/cases"
	"github.com/wesleyorama2/throwbench/internal/load"
	"github.com/wesleyorama2/throwbench/internal/load/check"
	"github.com/wesleyorama2/throwbench/internal/report"
	"github.com/wesleyorama2/throwbench/internal/server"
	"github.com/wesleyorama2/throwbench/internal/validation"
)

// Endpoint selectors for --endpoint.
const (
	endpointWith    = "with"
	endpointWithout = "without"
	endpointBoth    = "both"
)

func newLoadCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Drive the HTTP endpoints with concurrent virtual users",
		Long: `Run a constant-VUs load test against a running "throwbench serve".

Config file mode:
  throwbench load --config loadtests/compare.yaml

Quick CLI mode:
  throwbench load --url http://localhost:5000 --endpoint with --vus 100 --duration 1m

--vus and --duration override every scenario of a config file when set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd, opts)
		},
	}

	cmd.Flags().StringP("config", "c", "", "Load profile (YAML)")
	cmd.Flags().String("url", load.DefaultBaseURL, "Base URL of the server (ignored with --config)")
	cmd.Flags().String("endpoint", endpointBoth, "Endpoint to drive: with, without, both (ignored with --config)")
	cmd.Flags().Int("vus", load.DefaultVUs, "Number of virtual users per scenario")
	cmd.Flags().Duration("duration", load.DefaultDuration, "Duration of each scenario")
	cmd.Flags().DurationP("timeout", "t", load.DefaultTimeout, "Request timeout")
	cmd.Flags().Bool("json", false, "Print the result as JSON instead of a summary")
	cmd.Flags().BoolP("quiet", "q", false, "Disable live progress output")
	cmd.Flags().BoolP("verbose", "v", false, "Show mean, standard deviation and bytes in the summary")
	cmd.Flags().Bool("fail-on-error", false, "Exit non-zero when any request fails or any check fails")

	return cmd
}

func runLoad(cmd *cobra.Command, opts *globalOptions) error {
	configFile, _ := cmd.Flags().GetString("config")
	baseURL, _ := cmd.Flags().GetString("url")
	endpoint, _ := cmd.Flags().GetString("endpoint")
	vus, _ := cmd.Flags().GetInt("vus")
	duration, _ := cmd.Flags().GetDuration("duration")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	quiet, _ := cmd.Flags().GetBool("quiet")
	verbose, _ := cmd.Flags().GetBool("verbose")
	failOnError, _ := cmd.Flags().GetBool("fail-on-error")

	var (
		cfg *load.Config
		err error
	)
	if configFile != "" {
		cfg, err = load.LoadConfig(configFile)
		if err != nil {
			return err
		}
		overrideScenarios(cfg, cmd, vus, duration, timeout)
	} else {
		cfg, err = buildLoadConfig(baseURL, endpoint, vus, duration, timeout)
		if err != nil {
			return err
		}
	}

	runnerOpts := load.Options{}
	if !quiet && !jsonOutput {
		progress := report.NewLoadProgress(cmd.ErrOrStderr(), opts.noColor)
		runnerOpts.ProgressInterval = time.Second
		runnerOpts.OnProgress = progress.Update
	}

	runner, err := load.NewRunner(cfg, opts.logger, runnerOpts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts.logger.Info("load test starting", "name", cfg.Name, "scenarios", len(cfg.Scenarios), "expected_duration", cfg.TotalDuration().String())

	result, err := runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("load test failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		err = report.LoadJSON(out, result)
	} else {
		err = report.LoadSummary(out, result, cases.NameWithoutException, cases.NameWithException,
			report.Options{NoColor: opts.noColor, Verbose: verbose})
	}
	if err != nil {
		return err
	}

	if failOnError && !result.Passed {
		var checkFailures int64
		for _, sc := range result.Scenarios {
			checkFailures += sc.Metrics.CheckFailures
		}
		return fmt.Errorf("load test had failures: %d transport errors, %d check failures",
			result.TransportErrors(), checkFailures)
	}
	return nil
}

// overrideScenarios applies flags the user set explicitly to a loaded profile.
func overrideScenarios(cfg *load.Config, cmd *cobra.Command, vus int, duration, timeout time.Duration) {
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = load.Duration(timeout)
	}
	for i := range cfg.Scenarios {
		if cmd.Flags().Changed("vus") {
			cfg.Scenarios[i].VUs = vus
		}
		if cmd.Flags().Changed("duration") {
			cfg.Scenarios[i].Duration = load.Duration(duration)
		}
	}
}

// buildLoadConfig builds a profile equivalent to the shipped YAML files.
func buildLoadConfig(baseURL, endpoint string, vus int, duration, timeout time.Duration) (*load.Config, error) {
	cfg := &load.Config{
		Name:               "throwbench " + endpoint,
		BaseURL:            baseURL,
		Timeout:            load.Duration(timeout),
		InsecureSkipVerify: true,
		HealthPath:         server.PathHealth,
	}

	withScenario := load.ScenarioConfig{
		Name:     cases.NameWithException,
		Path:     server.PathWith,
		VUs:      vus,
		Duration: load.Duration(duration),
		Checks: []check.Config{
			{Type: check.TypeStatus, Value: "400"},
			{Type: check.TypeBodyContains, Value: validation.MessageFor("email", "")},
		},
	}
	withoutScenario := load.ScenarioConfig{
		Name:     cases.NameWithoutException,
		Path:     server.PathWithout,
		VUs:      vus,
		Duration: load.Duration(duration),
		Checks: []check.Config{
			{Type: check.TypeStatus, Value: "200"},
			{Type: check.TypeJSONPath, Path: "kind", Value: string(validation.KindInvalid)},
		},
	}

	switch strings.ToLower(endpoint) {
	case endpointWith:
		cfg.Scenarios = []load.ScenarioConfig{withScenario}
	case endpointWithout:
		cfg.Scenarios = []load.ScenarioConfig{withoutScenario}
	case endpointBoth:
		cfg.Scenarios = []load.ScenarioConfig{withScenario, withoutScenario}
	default:
		return nil, fmt.Errorf("unknown endpoint %q (want with, without or both)", endpoint)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
