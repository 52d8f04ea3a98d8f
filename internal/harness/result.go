// Package harness measures the registered cases one after another and
// aggregates latency and allocation statistics per case.
package harness

import (
	"fmt"
	"time"
)

// LatencyStats contains per-iteration latency statistics.
type LatencyStats struct {
	Min    time.Duration `json:"min"`
	Max    time.Duration `json:"max"`
	Mean   time.Duration `json:"mean"`
	StdDev time.Duration `json:"stdDev"`
	P50    time.Duration `json:"p50"`
	P90    time.Duration `json:"p90"`
	P99    time.Duration `json:"p99"`
}

// Result is the aggregate for one case over one run.
type Result struct {
	Name        string        `json:"name"`
	Iterations  int64         `json:"iterations"`
	Warmup      int64         `json:"warmup"`
	Latency     LatencyStats  `json:"latency"`
	BytesPerOp  float64       `json:"bytesPerOp"`
	AllocsPerOp float64       `json:"allocsPerOp"`
	Elapsed     time.Duration `json:"elapsed"`

	// Sample is the output of the last measured iteration.
	Sample string `json:"sample"`
}

// Comparison relates a candidate case to the baseline.
// Ratios are candidate / baseline.
type Comparison struct {
	Baseline    string  `json:"baseline"`
	Candidate   string  `json:"candidate"`
	MeanRatio   float64 `json:"meanRatio"`
	MedianRatio float64 `json:"medianRatio"`
	BytesRatio  float64 `json:"bytesRatio"`
}

// Summary renders the comparison as a sentence.
func (c Comparison) Summary() string {
	switch {
	case c.MeanRatio == 0:
		return fmt.Sprintf("%s vs %s: no data", c.Candidate, c.Baseline)
	case c.MeanRatio >= 1:
		return fmt.Sprintf("%s is %.2fx slower than %s", c.Candidate, c.MeanRatio, c.Baseline)
	default:
		return fmt.Sprintf("%s is %.2fx faster than %s", c.Candidate, 1/c.MeanRatio, c.Baseline)
	}
}

// Report is the outcome of one harness run.
type Report struct {
	RunID      string        `json:"runId"`
	Engine     Engine        `json:"engine"`
	GoVersion  string        `json:"goVersion"`
	StartedAt  time.Time     `json:"startedAt"`
	Duration   time.Duration `json:"duration"`
	Results    []Result      `json:"results"`
	Comparison *Comparison   `json:"comparison,omitempty"`
}

// Find returns the result for the named case.
func (r *Report) Find(name string) (Result, bool) {
	for _, res := range r.Results {
		if res.Name == name {
			return res, true
		}
	}
	return Result{}, false
}

// Compare builds the comparison of candidate against baseline. It returns
// nil when either case is missing from the report.
func (r *Report) Compare(baseline, candidate string) *Comparison {
	base, ok := r.Find(baseline)
	if !ok {
		return nil
	}
	cand, ok := r.Find(candidate)
	if !ok {
		return nil
	}

	return &Comparison{
		Baseline:    baseline,
		Candidate:   candidate,
		MeanRatio:   ratio(float64(cand.Latency.Mean), float64(base.Latency.Mean)),
		MedianRatio: ratio(float64(cand.Latency.P50), float64(base.Latency.P50)),
		BytesRatio:  ratio(cand.BytesPerOp, base.BytesPerOp),
	}
}

func ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// CaseError is returned when a case fails in a way other than the expected
// validation failure.
type CaseError struct {
	Case      string
	Iteration int64
	Err       error
}

func (e *CaseError) Error() string {
	return fmt.Sprintf("case %s failed at iteration %d: %v", e.Case, e.Iteration, e.Err)
}

func (e *CaseError) Unwrap() error {
	return e.Err
}
