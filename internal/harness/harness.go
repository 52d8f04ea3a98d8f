package harness

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"testing"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/google/uuid"

	"github.com/wesleyorama2/throwbench/internal/cases"
)

// Engine selects how a case is measured.
type Engine string

const (
	// EngineSampled times every iteration individually into an HDR histogram.
	EngineSampled Engine = "sampled"

	// EngineGoTesting delegates to testing.Benchmark and reports ns/op only.
	EngineGoTesting Engine = "go-testing"
)

// Histogram bounds in nanoseconds.
const (
	histogramMin     = 1
	histogramMax     = int64(10 * time.Second)
	histogramSigFigs = 3

	// ctxCheckEvery is how often the measurement loop looks at ctx.
	ctxCheckEvery = 256
)

// Config controls a harness run.
type Config struct {
	Iterations int64  `json:"iterations" yaml:"iterations"`
	Warmup     int64  `json:"warmup" yaml:"warmup"`
	Engine     Engine `json:"engine" yaml:"engine"`

	// Baseline and Candidate name the cases to compare. Empty values
	// default to the non-abortive and abortive cases.
	Baseline  string `json:"baseline,omitempty" yaml:"baseline,omitempty"`
	Candidate string `json:"candidate,omitempty" yaml:"candidate,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Iterations: 10000,
		Warmup:     1000,
		Engine:     EngineSampled,
		Baseline:   cases.NameWithoutException,
		Candidate:  cases.NameWithException,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.Engine {
	case EngineSampled:
		if c.Iterations <= 0 {
			return fmt.Errorf("iterations must be > 0, got %d", c.Iterations)
		}
		if c.Warmup < 0 {
			return fmt.Errorf("warmup must be >= 0, got %d", c.Warmup)
		}
	case EngineGoTesting:
	default:
		return fmt.Errorf("unknown engine %q", c.Engine)
	}
	return nil
}

// Harness runs cases sequentially on the calling goroutine.
type Harness struct {
	config Config
	logger *slog.Logger
}

// New creates a harness. A nil logger discards log output.
func New(config Config, logger *slog.Logger) (*Harness, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid harness config: %w", err)
	}
	if config.Baseline == "" {
		config.Baseline = cases.NameWithoutException
	}
	if config.Candidate == "" {
		config.Candidate = cases.NameWithException
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Harness{config: config, logger: logger}, nil
}

// Run measures every case in order. The first case error stops the run.
func (h *Harness) Run(ctx context.Context, all []cases.Case) (*Report, error) {
	if len(all) == 0 {
		return nil, fmt.Errorf("no cases to run")
	}

	report := &Report{
		RunID:     uuid.New().String(),
		Engine:    h.config.Engine,
		GoVersion: runtime.Version(),
		StartedAt: time.Now(),
		Results:   make([]Result, 0, len(all)),
	}

	h.logger.Info("benchmark run starting",
		slog.String("run_id", report.RunID),
		slog.String("engine", string(h.config.Engine)),
		slog.Int("cases", len(all)))

	for _, c := range all {
		var (
			res *Result
			err error
		)
		switch h.config.Engine {
		case EngineGoTesting:
			res, err = h.runGoTesting(c)
		default:
			res, err = h.runSampled(ctx, c)
		}
		if err != nil {
			h.logger.Error("case failed", slog.String("case", c.Name), slog.Any("error", err))
			return nil, err
		}

		h.logger.Info("case finished",
			slog.String("case", c.Name),
			slog.Int64("iterations", res.Iterations),
			slog.Duration("mean", res.Latency.Mean),
			slog.Float64("bytes_per_op", res.BytesPerOp))
		report.Results = append(report.Results, *res)
	}

	report.Duration = time.Since(report.StartedAt)
	report.Comparison = report.Compare(h.config.Baseline, h.config.Candidate)
	return report, nil
}

// runSampled runs warm-up iterations, then times each measured iteration.
func (h *Harness) runSampled(ctx context.Context, c cases.Case) (*Result, error) {
	h.logger.Debug("warming up", slog.String("case", c.Name), slog.Int64("iterations", h.config.Warmup))
	for i := int64(0); i < h.config.Warmup; i++ {
		if _, err := c.Run(); err != nil {
			return nil, &CaseError{Case: c.Name, Iteration: i, Err: err}
		}
	}

	hist := hdrhistogram.New(histogramMin, histogramMax, histogramSigFigs)

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)

	var (
		sample string
		n      int64
	)
	start := time.Now()
	for n = 0; n < h.config.Iterations; n++ {
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("case %s interrupted: %w", c.Name, err)
			}
		}

		t0 := time.Now()
		out, err := c.Run()
		elapsed := time.Since(t0)
		if err != nil {
			return nil, &CaseError{Case: c.Name, Iteration: n, Err: err}
		}

		ns := int64(elapsed)
		if ns < histogramMin {
			ns = histogramMin
		}
		if ns > histogramMax {
			ns = histogramMax
		}
		// RecordValue only fails for out-of-range values, which are clamped above.
		_ = hist.RecordValue(ns)
		sample = out
	}
	total := time.Since(start)

	runtime.ReadMemStats(&after)

	return &Result{
		Name:        c.Name,
		Iterations:  n,
		Warmup:      h.config.Warmup,
		Latency:     statsFromHistogram(hist),
		BytesPerOp:  float64(after.TotalAlloc-before.TotalAlloc) / float64(n),
		AllocsPerOp: float64(after.Mallocs-before.Mallocs) / float64(n),
		Elapsed:     total,
		Sample:      sample,
	}, nil
}

// runGoTesting measures a case with testing.Benchmark.
func (h *Harness) runGoTesting(c cases.Case) (*Result, error) {
	var (
		sample  string
		caseErr *CaseError
	)

	br := testing.Benchmark(func(b *testing.B) {
		if caseErr != nil {
			return
		}
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			out, err := c.Run()
			if err != nil {
				caseErr = &CaseError{Case: c.Name, Iteration: int64(i), Err: err}
				b.Fail()
				return
			}
			sample = out
		}
	})
	if caseErr != nil {
		return nil, caseErr
	}

	mean := time.Duration(br.NsPerOp())
	return &Result{
		Name:       c.Name,
		Iterations: int64(br.N),
		Latency: LatencyStats{
			Min:  mean,
			Max:  mean,
			Mean: mean,
			P50:  mean,
			P90:  mean,
			P99:  mean,
		},
		BytesPerOp:  float64(br.AllocedBytesPerOp()),
		AllocsPerOp: float64(br.AllocsPerOp()),
		Elapsed:     br.T,
		Sample:      sample,
	}, nil
}

func statsFromHistogram(hist *hdrhistogram.Histogram) LatencyStats {
	return LatencyStats{
		Min:    time.Duration(hist.Min()),
		Max:    time.Duration(hist.Max()),
		Mean:   time.Duration(hist.Mean()),
		StdDev: time.Duration(hist.StdDev()),
		P50:    time.Duration(hist.ValueAtQuantile(50)),
		P90:    time.Duration(hist.ValueAtQuantile(90)),
		P99:    time.Duration(hist.ValueAtQuantile(99)),
	}
}
