// Package report renders harness reports as console tables, markdown or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/wesleyorama2/throwbench/internal/harness"
)

// Format selects a renderer.
type Format string

const (
	FormatConsole  Format = "console"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatConsole, FormatMarkdown, FormatJSON:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	case "":
		return FormatConsole, nil
	default:
		return "", fmt.Errorf("unknown report format %q (want console, markdown or json)", s)
	}
}

// Options controls console rendering.
type Options struct {
	NoColor bool
	Verbose bool
}

// Write renders r to w in the given format.
func Write(w io.Writer, r *harness.Report, format Format, opts Options) error {
	switch format {
	case FormatMarkdown:
		return Markdown(w, r)
	case FormatJSON:
		return JSON(w, r)
	default:
		return Console(w, r, opts)
	}
}

const ruleWidth = 72

// Console writes a colored summary table.
func Console(w io.Writer, r *harness.Report, opts Options) error {
	if r == nil || len(r.Results) == 0 {
		return fmt.Errorf("no results to report")
	}

	cs := SchemeFor(w, opts.NoColor)
	rule := cs.Rule.Sprint(strings.Repeat("━", ruleWidth))

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, cs.Title.Sprintf("Validation benchmark [%s]", r.Engine))
	fmt.Fprintln(w, rule)
	if opts.Verbose {
		fmt.Fprintf(w, "Run:      %s\n", r.RunID)
		fmt.Fprintf(w, "Go:       %s\n", r.GoVersion)
		fmt.Fprintf(w, "Started:  %s\n", r.StartedAt.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration: %s\n", formatDuration(r.Duration))
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, cs.Header.Sprintf("%-20s %10s %10s %10s %10s %10s %8s",
		"Case", "Iters", "Mean", "P50", "P99", "B/op", "allocs"))

	for _, res := range r.Results {
		name := cs.CaseName.Sprintf("%-20s", res.Name)
		fmt.Fprintf(w, "%s %10s %10s %10s %10s %10s %8s\n",
			name,
			formatNumber(res.Iterations),
			formatDuration(res.Latency.Mean),
			formatDuration(res.Latency.P50),
			formatDuration(res.Latency.P99),
			formatBytes(res.BytesPerOp),
			fmt.Sprintf("%.1f", res.AllocsPerOp),
		)
		if opts.Verbose {
			fmt.Fprintf(w, "  %s\n", cs.Value.Sprintf("→ %s", res.Sample))
		}
	}

	if c := r.Comparison; c != nil {
		fmt.Fprintln(w)
		summary := c.Summary()
		if c.MeanRatio >= 1 {
			summary = cs.Slow.Sprint(summary)
		} else {
			summary = cs.Fast.Sprint(summary)
		}
		fmt.Fprintln(w, summary)
		fmt.Fprintf(w, "  median ratio %s, bytes ratio %s\n",
			cs.Highlight.Sprintf("%.2fx", c.MedianRatio),
			cs.Highlight.Sprintf("%.2fx", c.BytesRatio))
	}
	fmt.Fprintln(w, rule)

	return nil
}

// Markdown writes a comparison table.
func Markdown(w io.Writer, r *harness.Report) error {
	if r == nil || len(r.Results) == 0 {
		return fmt.Errorf("no results to report")
	}

	fmt.Fprintln(w, "## Benchmark Results")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Engine: `%s`, Go: `%s`, run `%s`\n", r.Engine, r.GoVersion, r.RunID)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "| Case | Iterations | Mean | P50 | P90 | P99 | B/op | allocs/op | Relative |")
	fmt.Fprintln(w, "|------|------------|------|-----|-----|-----|------|-----------|----------|")

	fastest := fastestMean(r.Results)
	for _, res := range r.Results {
		relative := 1.0
		if fastest > 0 {
			relative = float64(res.Latency.Mean) / float64(fastest)
		}
		fmt.Fprintf(w, "| %s | %d | %s | %s | %s | %s | %.0f | %.1f | %.2fx |\n",
			res.Name,
			res.Iterations,
			formatDuration(res.Latency.Mean),
			formatDuration(res.Latency.P50),
			formatDuration(res.Latency.P90),
			formatDuration(res.Latency.P99),
			res.BytesPerOp,
			res.AllocsPerOp,
			relative,
		)
	}

	if r.Comparison != nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "**%s**\n", r.Comparison.Summary())
	}

	return nil
}

// JSON writes the report as indented JSON.
func JSON(w io.Writer, r *harness.Report) error {
	if r == nil {
		return fmt.Errorf("no results to report")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

func fastestMean(results []harness.Result) time.Duration {
	var fastest time.Duration
	for _, res := range results {
		if res.Latency.Mean > 0 && (fastest == 0 || res.Latency.Mean < fastest) {
			fastest = res.Latency.Mean
		}
	}
	return fastest
}

// formatDuration formats sub-millisecond durations with enough precision
// to tell the cases apart.
func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "0ns"
	case d < time.Microsecond:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	case d < time.Millisecond:
		return fmt.Sprintf("%.2fµs", float64(d)/float64(time.Microsecond))
	case d < time.Second:
		return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

// formatNumber formats a number with thousands separators.
func formatNumber(n int64) string {
	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}

	var result strings.Builder
	offset := len(str) % 3
	if offset > 0 {
		result.WriteString(str[:offset])
	}
	for i := offset; i < len(str); i += 3 {
		if result.Len() > 0 {
			result.WriteString(",")
		}
		result.WriteString(str[i : i+3])
	}
	return result.String()
}

// formatBytes formats a per-op byte count.
func formatBytes(b float64) string {
	const (
		KB = 1024
		MB = KB * 1024
	)

	switch {
	case b >= MB:
		return fmt.Sprintf("%.2f MB", b/MB)
	case b >= KB:
		return fmt.Sprintf("%.2f KB", b/KB)
	default:
		return fmt.Sprintf("%.0f B", b)
	}
}
