package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/wesleyorama2/throwbench/internal/load"
)

const progressBarWidth = 20

// LoadProgress prints one status line per update. Safe for concurrent use
// so parallel scenarios can share it.
type LoadProgress struct {
	w  io.Writer
	cs *ColorScheme
	mu sync.Mutex
}

// NewLoadProgress creates a progress printer for w.
func NewLoadProgress(w io.Writer, noColor bool) *LoadProgress {
	return &LoadProgress{w: w, cs: SchemeFor(w, noColor)}
}

// Update prints the state of a running scenario. Its signature matches
// load.ProgressFunc.
func (p *LoadProgress) Update(scenario string, progress float64, snap *load.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	failed := snap.TransportErrors + snap.CheckFailures
	errText := fmt.Sprintf("%d (%.1f%%)", failed, snap.ErrorRate*100)
	if failed > 0 {
		errText = p.cs.Error.Sprint(errText)
	}

	fmt.Fprintf(p.w, "[%s] %s %3.0f%% | VUs: %d | Reqs: %s | RPS: %.1f | Errors: %s | P95: %s\n",
		p.cs.CaseName.Sprint(scenario),
		progressBar(progress),
		progress*100,
		snap.ActiveVUs,
		formatNumber(snap.TotalRequests),
		snap.RPS,
		errText,
		formatDuration(snap.Latency.P95),
	)
}

func progressBar(progress float64) string {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	filled := int(progress * progressBarWidth)
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", progressBarWidth-filled) + "]"
}

// LoadSummary writes the final summary of a load run. When both named
// scenarios ran, a comparison follows.
func LoadSummary(w io.Writer, r *load.Result, baseline, candidate string, opts Options) error {
	if r == nil || len(r.Scenarios) == 0 {
		return fmt.Errorf("no results to report")
	}

	cs := SchemeFor(w, opts.NoColor)
	rule := cs.Rule.Sprint(strings.Repeat("━", ruleWidth))

	status := cs.Fast.Sprint("Completed ✓")
	if !r.Passed {
		status = cs.Slow.Sprint("Failed ✗")
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%s - %s\n", cs.Title.Sprint(r.Name), status)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Duration:      %s\n", formatDuration(r.Duration))

	for _, sc := range r.Scenarios {
		writeScenario(w, cs, sc, opts.Verbose)
	}

	if c := r.Compare(baseline, candidate); c != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, cs.Title.Sprint("Comparison:"))
		line := fmt.Sprintf("  %s served %.2fx the throughput of %s", c.Baseline, c.RPSRatio, c.Candidate)
		if c.RPSRatio >= 1 {
			line = cs.Fast.Sprint(line)
		} else {
			line = cs.Slow.Sprint(line)
		}
		fmt.Fprintln(w, line)
		fmt.Fprintf(w, "  %s mean latency %s, p99 %s\n",
			c.Candidate,
			cs.Highlight.Sprintf("%.2fx", c.MeanLatencyRatio),
			cs.Highlight.Sprintf("%.2fx", c.P99LatencyRatio))
	}
	fmt.Fprintln(w, rule)

	return nil
}

func writeScenario(w io.Writer, cs *ColorScheme, sc *load.ScenarioResult, verbose bool) {
	m := sc.Metrics

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s\n", cs.CaseName.Sprint(sc.Name), cs.Value.Sprintf("(%d VUs, %s)", sc.VUs, sc.URL))
	fmt.Fprintf(w, "  Total Reqs:    %s\n", formatNumber(m.TotalRequests))
	fmt.Fprintf(w, "  RPS:           %.1f\n", m.RPS)

	successRate := 1.0 - m.ErrorRate
	rate := fmt.Sprintf("%.1f%%", successRate*100)
	if successRate < 0.99 {
		rate = cs.Slow.Sprint(rate)
	} else {
		rate = cs.Fast.Sprint(rate)
	}
	fmt.Fprintf(w, "  Success Rate:  %s\n", rate)

	codes := make([]string, 0, len(m.StatusCodes))
	for _, code := range m.SortedStatusCodes() {
		codes = append(codes, fmt.Sprintf("%d×%s", code, formatNumber(m.StatusCodes[code])))
	}
	if len(codes) > 0 {
		fmt.Fprintf(w, "  Status:        %s\n", strings.Join(codes, ", "))
	}
	if m.CheckFailures > 0 || m.TransportErrors > 0 {
		fmt.Fprintf(w, "  Failures:      %s\n",
			cs.Error.Sprintf("%d check, %d transport", m.CheckFailures, m.TransportErrors))
		if m.LastFailure != "" {
			fmt.Fprintf(w, "  Last failure:  %s\n", cs.Error.Sprint(m.LastFailure))
		}
	}

	fmt.Fprintln(w, "  Latency:")
	fmt.Fprintf(w, "    Min %s  P50 %s  P90 %s  P95 %s  P99 %s  Max %s\n",
		formatDuration(m.Latency.Min),
		formatDuration(m.Latency.P50),
		formatDuration(m.Latency.P90),
		formatDuration(m.Latency.P95),
		formatDuration(m.Latency.P99),
		formatDuration(m.Latency.Max))
	if verbose {
		fmt.Fprintf(w, "    Mean %s  StdDev %s  Bytes %s\n",
			formatDuration(m.Latency.Mean),
			formatDuration(m.Latency.StdDev),
			formatNumber(m.TotalBytes))
	}
}

// LoadJSON writes the load result as indented JSON.
func LoadJSON(w io.Writer, r *load.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode load result: %w", err)
	}
	return nil
}
