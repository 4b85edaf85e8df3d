// Package metrics aggregates task latencies and outcome counts for a
// simulated load run.
package metrics

import "time"

// Phase represents a phase of a run.
type Phase string

const (
	// PhaseInit is the phase before the first task starts
	PhaseInit Phase = "init"

	// PhaseRunning is the phase while tasks are in flight
	PhaseRunning Phase = "running"

	// PhaseDone indicates every task has completed
	PhaseDone Phase = "done"
)

// Snapshot contains a point-in-time view of all metrics.
type Snapshot struct {
	TotalTasks   int64         `json:"totalTasks"`
	SuccessTasks int64         `json:"successTasks"`
	FailedTasks  int64         `json:"failedTasks"`
	Latency      LatencyStats  `json:"latency"`
	Throughput   float64       `json:"throughput"`
	ErrorRate    float64       `json:"errorRate"`
	InFlight     int           `json:"inFlight"`
	CurrentPhase Phase         `json:"currentPhase"`
	Elapsed      time.Duration `json:"elapsed"`
	StartTime    time.Time     `json:"startTime"`
	Timestamp    time.Time     `json:"timestamp"`
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

// TimeBucket captures the run state at the end of one interval: cumulative
// totals since the start plus the deltas of that interval alone.
type TimeBucket struct {
	Timestamp time.Time `json:"timestamp"`

	TotalTasks     int64 `json:"totalTasks"`
	TotalSuccesses int64 `json:"totalSuccesses"`
	TotalFailures  int64 `json:"totalFailures"`

	IntervalTasks      int64   `json:"intervalTasks"`
	IntervalThroughput float64 `json:"intervalThroughput"`
	IntervalErrorRate  float64 `json:"intervalErrorRate"`

	LatencyP50 time.Duration `json:"latencyP50"`
	LatencyP95 time.Duration `json:"latencyP95"`
	LatencyP99 time.Duration `json:"latencyP99"`

	InFlight int   `json:"inFlight"`
	Phase    Phase `json:"phase"`
}

// EngineConfig contains configuration for the metrics engine.
type EngineConfig struct {
	// BucketInterval is the interval for time-series buckets (default: 1s)
	BucketInterval time.Duration

	// MaxBuckets is the maximum number of buckets to retain (default: 3600)
	MaxBuckets int

	// HistogramMin is the minimum recordable value in microseconds (default: 1)
	HistogramMin int64

	// HistogramMax is the maximum recordable value in microseconds (default: 3600000000 = 1 hour)
	HistogramMax int64

	// HistogramSigFigs is the number of significant figures (default: 3)
	HistogramSigFigs int
}

// DefaultEngineConfig returns the default configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		BucketInterval:   time.Second,
		MaxBuckets:       3600,
		HistogramMin:     1,
		HistogramMax:     3600000000,
		HistogramSigFigs: 3,
	}
}
