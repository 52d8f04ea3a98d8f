package load

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/wesleyorama2/throwbench/internal/load/check"
)

// ProgressFunc receives a live snapshot of a running scenario.
type ProgressFunc func(scenario string, progress float64, snap *Snapshot)

// Options tune a Runner.
type Options struct {
	// ProgressInterval is how often OnProgress is called. Zero disables it.
	ProgressInterval time.Duration
	OnProgress       ProgressFunc

	// HealthTimeout bounds the wait for Config.HealthPath.
	HealthTimeout time.Duration
}

// Runner executes every scenario of a load profile.
type Runner struct {
	config  *Config
	logger  *slog.Logger
	options Options
}

// ScenarioResult is the aggregate of one scenario.
type ScenarioResult struct {
	Name       string        `json:"name"`
	URL        string        `json:"url"`
	VUs        int           `json:"vus"`
	Duration   time.Duration `json:"duration"`
	Iterations int64         `json:"iterations"`
	Metrics    *Snapshot     `json:"metrics"`
}

// Passed reports whether every request got a response and passed its checks.
func (r *ScenarioResult) Passed() bool {
	return r.Metrics.TransportErrors == 0 && r.Metrics.CheckFailures == 0
}

// Result is the outcome of a whole run.
type Result struct {
	Name      string            `json:"name"`
	StartTime time.Time         `json:"startTime"`
	EndTime   time.Time         `json:"endTime"`
	Duration  time.Duration     `json:"duration"`
	Scenarios []*ScenarioResult `json:"scenarios"`
	Passed    bool              `json:"passed"`
}

// Find returns the scenario named name, or nil.
func (r *Result) Find(name string) *ScenarioResult {
	for _, sc := range r.Scenarios {
		if sc.Name == name {
			return sc
		}
	}
	return nil
}

// TransportErrors sums transport errors across scenarios.
func (r *Result) TransportErrors() int64 {
	var total int64
	for _, sc := range r.Scenarios {
		total += sc.Metrics.TransportErrors
	}
	return total
}

// Comparison contrasts two scenarios.
type Comparison struct {
	Baseline  string `json:"baseline"`
	Candidate string `json:"candidate"`

	// RPSRatio is baseline RPS / candidate RPS.
	RPSRatio float64 `json:"rpsRatio"`

	// MeanLatencyRatio is candidate mean / baseline mean.
	MeanLatencyRatio float64 `json:"meanLatencyRatio"`
	P99LatencyRatio  float64 `json:"p99LatencyRatio"`
}

// Compare contrasts candidate against baseline. It returns nil when either
// scenario is missing or recorded nothing.
func (r *Result) Compare(baseline, candidate string) *Comparison {
	b, c := r.Find(baseline), r.Find(candidate)
	if b == nil || c == nil || b.Metrics.TotalRequests == 0 || c.Metrics.TotalRequests == 0 {
		return nil
	}
	return &Comparison{
		Baseline:         baseline,
		Candidate:        candidate,
		RPSRatio:         ratio(b.Metrics.RPS, c.Metrics.RPS),
		MeanLatencyRatio: ratio(float64(c.Metrics.Latency.Mean), float64(b.Metrics.Latency.Mean)),
		P99LatencyRatio:  ratio(float64(c.Metrics.Latency.P99), float64(b.Metrics.Latency.P99)),
	}
}

func ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// NewRunner validates cfg and creates a runner.
func NewRunner(cfg *Config, logger *slog.Logger, opts Options) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.HealthTimeout == 0 {
		opts.HealthTimeout = 10 * time.Second
	}
	return &Runner{config: cfg, logger: logger, options: opts}, nil
}

// Run executes all scenarios, one after the other unless Config.Parallel is
// set. Cancelling ctx stops the running scenarios early; their partial
// results are still returned.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	targets := make([]*Target, len(r.config.Scenarios))
	for i, sc := range r.config.Scenarios {
		checks, err := check.NewAll(sc.Checks)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
		}
		targets[i] = &Target{
			Method:  sc.Method,
			URL:     r.config.URL(sc),
			Headers: sc.Headers,
			Checks:  checks,
		}
	}

	if r.config.HealthPath != "" {
		if err := r.waitHealthy(ctx); err != nil {
			return nil, err
		}
	}

	result := &Result{
		Name:      r.config.Name,
		StartTime: time.Now(),
		Scenarios: make([]*ScenarioResult, len(targets)),
	}

	if r.config.Parallel {
		var wg sync.WaitGroup
		for i := range targets {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				result.Scenarios[i] = r.runScenario(ctx, r.config.Scenarios[i], targets[i])
			}(i)
		}
		wg.Wait()
	} else {
		for i := range targets {
			result.Scenarios[i] = r.runScenario(ctx, r.config.Scenarios[i], targets[i])
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	result.Passed = true
	for _, sc := range result.Scenarios {
		if !sc.Passed() {
			result.Passed = false
		}
	}
	return result, nil
}

func (r *Runner) runScenario(ctx context.Context, sc ScenarioConfig, target *Target) *ScenarioResult {
	logger := r.logger.With("scenario", sc.Name)
	client := r.newHTTPClient(sc.VUs)
	defer client.CloseIdleConnections()

	m := NewMetrics()
	exec := NewConstantVUs(sc.VUs, sc.Duration.Std(), target, client, m)

	logger.Info("scenario starting", "url", target.URL, "vus", sc.VUs, "duration", sc.Duration.String())

	stop := make(chan struct{})
	var progressWG sync.WaitGroup
	if r.options.OnProgress != nil && r.options.ProgressInterval > 0 {
		progressWG.Add(1)
		go func() {
			defer progressWG.Done()
			ticker := time.NewTicker(r.options.ProgressInterval)
			defer ticker.Stop()
			for {
				select {
				case <-stop:
					return
				case <-ticker.C:
					r.options.OnProgress(sc.Name, exec.Progress(), m.Snapshot())
				}
			}
		}()
	}

	exec.Run(ctx)
	close(stop)
	progressWG.Wait()

	snap := m.Snapshot()
	stats := exec.Stats()
	logger.Info("scenario finished",
		"requests", snap.TotalRequests,
		"rps", fmt.Sprintf("%.1f", snap.RPS),
		"check_failures", snap.CheckFailures,
		"transport_errors", snap.TransportErrors)
	if snap.LastFailure != "" {
		logger.Warn("scenario had failures", "last_failure", snap.LastFailure)
	}

	return &ScenarioResult{
		Name:       sc.Name,
		URL:        target.URL,
		VUs:        sc.VUs,
		Duration:   stats.Elapsed,
		Iterations: stats.Iterations,
		Metrics:    snap,
	}
}

func (r *Runner) newHTTPClient(vus int) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        1000,
		MaxIdleConnsPerHost: vus,
		IdleConnTimeout:     90 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: r.config.InsecureSkipVerify,
		},
	}
	return &http.Client{
		Timeout:   r.config.Timeout.Std(),
		Transport: transport,
	}
}

// waitHealthy polls HealthPath until it answers 200 or HealthTimeout elapses.
func (r *Runner) waitHealthy(ctx context.Context) error {
	url := r.config.URL(ScenarioConfig{Path: r.config.HealthPath})
	ctx, cancel := context.WithTimeout(ctx, r.options.HealthTimeout)
	defer cancel()

	client := &http.Client{Timeout: time.Second}
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("health check: %w", err)
		}
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				r.logger.Debug("target healthy", "url", url)
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("target %s not healthy: %w", url, ctx.Err())
		case <-ticker.C:
		}
	}
}
