package load

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// ConstantVUs runs a fixed number of VUs for a fixed duration. Each VU sends
// requests back to back (closed model).
type ConstantVUs struct {
	vus      int
	duration time.Duration
	target   *Target
	client   *http.Client
	metrics  *Metrics

	startTime  time.Time
	activeVUs  atomic.Int32
	iterations atomic.Int64
	running    atomic.Bool

	mu sync.RWMutex
	wg sync.WaitGroup
}

// NewConstantVUs creates a constant VUs executor.
func NewConstantVUs(vus int, duration time.Duration, target *Target, client *http.Client, m *Metrics) *ConstantVUs {
	return &ConstantVUs{
		vus:      vus,
		duration: duration,
		target:   target,
		client:   client,
		metrics:  m,
	}
}

// Run spawns every VU and blocks until the duration elapses or ctx is done.
func (e *ConstantVUs) Run(ctx context.Context) {
	e.mu.Lock()
	e.startTime = time.Now()
	e.mu.Unlock()
	e.running.Store(true)

	runCtx, cancel := context.WithTimeout(ctx, e.duration)
	defer cancel()

	for i := 0; i < e.vus; i++ {
		vu := NewVirtualUser(i+1, e.target, e.client, e.metrics)
		e.wg.Add(1)
		go e.runVU(runCtx, vu)
	}

	e.wg.Wait()
	e.running.Store(false)
}

func (e *ConstantVUs) runVU(ctx context.Context, vu *VirtualUser) {
	defer e.wg.Done()

	e.metrics.SetActiveVUs(int(e.activeVUs.Add(1)))
	defer func() {
		e.metrics.SetActiveVUs(int(e.activeVUs.Add(-1)))
	}()

	for {
		if err := vu.RunIteration(ctx); err != nil {
			return
		}
		e.iterations.Add(1)
	}
}

// Progress returns current progress (0.0 to 1.0).
func (e *ConstantVUs) Progress() float64 {
	e.mu.RLock()
	start := e.startTime
	e.mu.RUnlock()

	if !e.running.Load() {
		if start.IsZero() {
			return 0.0
		}
		return 1.0
	}

	progress := float64(time.Since(start)) / float64(e.duration)
	if progress > 1.0 {
		progress = 1.0
	}
	return progress
}

// Stats is a point-in-time view of the executor.
type Stats struct {
	StartTime     time.Time
	Elapsed       time.Duration
	TotalDuration time.Duration
	ActiveVUs     int
	TargetVUs     int
	Iterations    int64
}

// Stats returns executor statistics.
func (e *ConstantVUs) Stats() *Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var elapsed time.Duration
	if !e.startTime.IsZero() {
		elapsed = time.Since(e.startTime)
	}

	return &Stats{
		StartTime:     e.startTime,
		Elapsed:       elapsed,
		TotalDuration: e.duration,
		ActiveVUs:     int(e.activeVUs.Load()),
		TargetVUs:     e.vus,
		Iterations:    e.iterations.Load(),
	}
}
