package load

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/wesleyorama2/throwbench/internal/load/check"
)

// Target is the request every VU of a scenario sends.
type Target struct {
	Method  string
	URL     string
	Headers map[string]string
	Checks  []check.Check
}

// VirtualUser sends the scenario request in a loop. The HTTP client is shared
// by every VU of a scenario so connections are pooled.
type VirtualUser struct {
	ID int

	target  *Target
	client  *http.Client
	metrics *Metrics

	iteration atomic.Int64
}

// NewVirtualUser creates a VU bound to a target.
func NewVirtualUser(id int, target *Target, client *http.Client, m *Metrics) *VirtualUser {
	return &VirtualUser{
		ID:      id,
		target:  target,
		client:  client,
		metrics: m,
	}
}

// Iterations returns how many iterations this VU has started.
func (vu *VirtualUser) Iterations() int64 {
	return vu.iteration.Load()
}

// RunIteration sends one request, checks the response and records it.
//
// Requests interrupted by ctx are not recorded, so the end of a timed run
// does not show up as a burst of transport errors.
func (vu *VirtualUser) RunIteration(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	vu.iteration.Add(1)

	outcome := vu.execute(ctx)
	if outcome.TransportErr != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	vu.metrics.Record(outcome)
	return nil
}

func (vu *VirtualUser) execute(ctx context.Context) Outcome {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, vu.target.Method, vu.target.URL, nil)
	if err != nil {
		return Outcome{Duration: time.Since(start), TransportErr: fmt.Errorf("failed to build request: %w", err)}
	}
	for key, value := range vu.target.Headers {
		req.Header.Set(key, value)
	}

	resp, err := vu.client.Do(req)
	if err != nil {
		return Outcome{Duration: time.Since(start), TransportErr: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	duration := time.Since(start)
	if err != nil {
		return Outcome{
			Duration:     duration,
			StatusCode:   resp.StatusCode,
			TransportErr: fmt.Errorf("failed to read response body: %w", err),
		}
	}

	return Outcome{
		Duration:   duration,
		StatusCode: resp.StatusCode,
		Bytes:      int64(len(body)),
		CheckErr:   vu.check(resp.StatusCode, body),
	}
}

// check runs the scenario checks. Without checks, any status below 400 passes.
func (vu *VirtualUser) check(status int, body []byte) error {
	if len(vu.target.Checks) == 0 {
		if status >= 400 {
			return &check.Failure{Check: "status < 400", Message: fmt.Sprintf("got %d", status)}
		}
		return nil
	}
	return check.Run(vu.target.Checks, status, body)
}
