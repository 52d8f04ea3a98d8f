package load

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Metrics collects per-scenario request metrics using an HDR histogram.
//
// Counters use atomics; the histogram and the status-code map are guarded by
// mutexes because HDR RecordValue is not thread-safe.
type Metrics struct {
	// Range: 1 microsecond to 1 hour, 3 significant figures
	latencyHist   *hdrhistogram.Histogram
	latencyHistMu sync.Mutex

	statusMu    sync.Mutex
	statusCodes map[int]int64
	lastFailure string

	totalRequests   atomic.Int64
	successRequests atomic.Int64
	transportErrors atomic.Int64
	checkFailures   atomic.Int64
	totalBytes      atomic.Int64

	activeVUs atomic.Int32

	startTime time.Time
}

const (
	histogramMin     = 1
	histogramMax     = 3600000000 // 1 hour in microseconds
	histogramSigFigs = 3
)

// NewMetrics creates an empty metrics collector. The elapsed clock starts now.
func NewMetrics() *Metrics {
	return &Metrics{
		latencyHist: hdrhistogram.New(histogramMin, histogramMax, histogramSigFigs),
		statusCodes: make(map[int]int64),
		startTime:   time.Now(),
	}
}

// Outcome is what a VU observed for one request.
type Outcome struct {
	Duration   time.Duration
	StatusCode int
	Bytes      int64

	// TransportErr is set when no response was received.
	TransportErr error

	// CheckErr is set when a response was received but a check failed.
	CheckErr error
}

// Record records one request.
func (m *Metrics) Record(o Outcome) {
	latencyMicros := o.Duration.Microseconds()
	if latencyMicros < histogramMin {
		latencyMicros = histogramMin
	}
	if latencyMicros > histogramMax {
		latencyMicros = histogramMax
	}

	m.latencyHistMu.Lock()
	_ = m.latencyHist.RecordValue(latencyMicros)
	m.latencyHistMu.Unlock()

	m.totalRequests.Add(1)
	m.totalBytes.Add(o.Bytes)

	switch {
	case o.TransportErr != nil:
		m.transportErrors.Add(1)
		m.setLastFailure(o.TransportErr.Error())
	case o.CheckErr != nil:
		m.checkFailures.Add(1)
		m.setLastFailure(o.CheckErr.Error())
	default:
		m.successRequests.Add(1)
	}

	if o.StatusCode != 0 {
		m.statusMu.Lock()
		m.statusCodes[o.StatusCode]++
		m.statusMu.Unlock()
	}
}

func (m *Metrics) setLastFailure(msg string) {
	m.statusMu.Lock()
	m.lastFailure = msg
	m.statusMu.Unlock()
}

// SetActiveVUs updates the active VU count.
func (m *Metrics) SetActiveVUs(count int) {
	m.activeVUs.Store(int32(count))
}

// ActiveVUs returns the current active VU count.
func (m *Metrics) ActiveVUs() int {
	return int(m.activeVUs.Load())
}

// Snapshot returns a point-in-time view of all metrics.
func (m *Metrics) Snapshot() *Snapshot {
	m.latencyHistMu.Lock()
	latency := LatencyStats{
		Min:    time.Duration(m.latencyHist.Min()) * time.Microsecond,
		Max:    time.Duration(m.latencyHist.Max()) * time.Microsecond,
		Mean:   time.Duration(m.latencyHist.Mean() * float64(time.Microsecond)),
		StdDev: time.Duration(m.latencyHist.StdDev() * float64(time.Microsecond)),
		P50:    time.Duration(m.latencyHist.ValueAtQuantile(50)) * time.Microsecond,
		P90:    time.Duration(m.latencyHist.ValueAtQuantile(90)) * time.Microsecond,
		P95:    time.Duration(m.latencyHist.ValueAtQuantile(95)) * time.Microsecond,
		P99:    time.Duration(m.latencyHist.ValueAtQuantile(99)) * time.Microsecond,
		Count:  m.latencyHist.TotalCount(),
	}
	m.latencyHistMu.Unlock()

	m.statusMu.Lock()
	codes := make(map[int]int64, len(m.statusCodes))
	for code, n := range m.statusCodes {
		codes[code] = n
	}
	lastFailure := m.lastFailure
	m.statusMu.Unlock()

	elapsed := time.Since(m.startTime)
	total := m.totalRequests.Load()
	transport := m.transportErrors.Load()
	checks := m.checkFailures.Load()

	rps := 0.0
	if elapsed.Seconds() > 0 {
		rps = float64(total) / elapsed.Seconds()
	}

	errorRate := 0.0
	if total > 0 {
		errorRate = float64(transport+checks) / float64(total)
	}

	return &Snapshot{
		TotalRequests:   total,
		SuccessRequests: m.successRequests.Load(),
		TransportErrors: transport,
		CheckFailures:   checks,
		TotalBytes:      m.totalBytes.Load(),
		StatusCodes:     codes,
		LastFailure:     lastFailure,
		Latency:         latency,
		RPS:             rps,
		ErrorRate:       errorRate,
		ActiveVUs:       m.ActiveVUs(),
		Elapsed:         elapsed,
	}
}

// Snapshot contains a point-in-time view of all metrics.
type Snapshot struct {
	TotalRequests   int64         `json:"totalRequests"`
	SuccessRequests int64         `json:"successRequests"`
	TransportErrors int64         `json:"transportErrors"`
	CheckFailures   int64         `json:"checkFailures"`
	TotalBytes      int64         `json:"totalBytes"`
	StatusCodes     map[int]int64 `json:"statusCodes"`
	LastFailure     string        `json:"lastFailure,omitempty"`
	Latency         LatencyStats  `json:"latency"`
	RPS             float64       `json:"rps"`
	ErrorRate       float64       `json:"errorRate"`
	ActiveVUs       int           `json:"activeVUs"`
	Elapsed         time.Duration `json:"elapsed"`
}

// SortedStatusCodes returns the observed status codes in ascending order.
func (s *Snapshot) SortedStatusCodes() []int {
	codes := make([]int, 0, len(s.StatusCodes))
	for code := range s.StatusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	return codes
}

// LatencyStats contains latency statistics.
type LatencyStats struct {
	Min    time.Duration `json:"min"`
	Max    time.Duration `json:"max"`
	Mean   time.Duration `json:"mean"`
	StdDev time.Duration `json:"stdDev"`
	P50    time.Duration `json:"p50"`
	P90    time.Duration `json:"p90"`
	P95    time.Duration `json:"p95"`
	P99    time.Duration `json:"p99"`
	Count  int64         `json:"count"`
}
