package metrics

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Engine collects task latencies in HDR histograms and keeps a time series
// of per-interval throughput and error rate.
//
// Engine is safe for concurrent use. Counters are atomic, histograms are
// guarded by mutexes and the interval emitter runs in its own goroutine
// until Stop is called.
type Engine struct {
	// Range: 1 microsecond to 1 hour, 3 significant figures
	latencyHist   *hdrhistogram.Histogram
	latencyHistMu sync.Mutex

	totalTasks   atomic.Int64
	successTasks atomic.Int64
	failedTasks  atomic.Int64
	inFlight     atomic.Int32

	buckets *bucketStore

	phase   Phase
	phaseMu sync.RWMutex

	startTime time.Time
	endTime   time.Time
	timeMu    sync.RWMutex

	emitterCtx    context.Context
	emitterCancel context.CancelFunc
	emitterWg     sync.WaitGroup
	stopOnce      sync.Once

	config EngineConfig
}

// NewEngine creates a new metrics engine with default configuration.
func NewEngine() *Engine {
	return NewEngineWithConfig(DefaultEngineConfig())
}

// NewEngineWithConfig creates a new metrics engine and starts its
// background emitter.
func NewEngineWithConfig(config EngineConfig) *Engine {
	defaults := DefaultEngineConfig()
	if config.BucketInterval <= 0 {
		config.BucketInterval = defaults.BucketInterval
	}
	if config.HistogramMin <= 0 {
		config.HistogramMin = defaults.HistogramMin
	}
	if config.HistogramMax <= config.HistogramMin {
		config.HistogramMax = defaults.HistogramMax
	}
	if config.HistogramSigFigs <= 0 {
		config.HistogramSigFigs = defaults.HistogramSigFigs
	}

	ctx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		latencyHist:   hdrhistogram.New(config.HistogramMin, config.HistogramMax, config.HistogramSigFigs),
		buckets:       newBucketStore(config.MaxBuckets),
		phase:         PhaseInit,
		startTime:     time.Now(),
		emitterCtx:    ctx,
		emitterCancel: cancel,
		config:        config,
	}

	e.emitterWg.Add(1)
	go e.runEmitter()

	return e
}

// MarkStarted resets the clock and enters the running phase.
func (e *Engine) MarkStarted() {
	e.timeMu.Lock()
	e.startTime = time.Now()
	e.endTime = time.Time{}
	e.timeMu.Unlock()

	e.SetPhase(PhaseRunning)
}

// MarkDone freezes the clock and enters the done phase.
func (e *Engine) MarkDone() {
	e.timeMu.Lock()
	e.endTime = time.Now()
	e.timeMu.Unlock()

	e.SetPhase(PhaseDone)
}

// TaskStarted increments the in-flight gauge.
func (e *Engine) TaskStarted() {
	e.inFlight.Add(1)
}

// TaskFinished decrements the in-flight gauge.
func (e *Engine) TaskFinished() {
	e.inFlight.Add(-1)
}

// RecordLatency records the duration and outcome of one task.
func (e *Engine) RecordLatency(duration time.Duration, success bool) {
	micros := duration.Microseconds()
	if micros < e.config.HistogramMin {
		micros = e.config.HistogramMin
	}
	if micros > e.config.HistogramMax {
		micros = e.config.HistogramMax
	}

	// RecordValue is not thread-safe.
	e.latencyHistMu.Lock()
	_ = e.latencyHist.RecordValue(micros)
	e.latencyHistMu.Unlock()

	e.totalTasks.Add(1)
	if success {
		e.successTasks.Add(1)
	} else {
		e.failedTasks.Add(1)
	}

	e.buckets.record(success)
}

// SetPhase updates the current phase.
func (e *Engine) SetPhase(phase Phase) {
	e.phaseMu.Lock()
	e.phase = phase
	e.phaseMu.Unlock()
}

// GetPhase returns the current phase.
func (e *Engine) GetPhase() Phase {
	e.phaseMu.RLock()
	defer e.phaseMu.RUnlock()
	return e.phase
}

// GetInFlight returns the number of tasks currently running.
func (e *Engine) GetInFlight() int {
	return int(e.inFlight.Load())
}

func (e *Engine) runEmitter() {
	defer e.emitterWg.Done()

	ticker := time.NewTicker(e.config.BucketInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.emitterCtx.Done():
			return
		case <-ticker.C:
			e.emitBucket()
		}
	}
}

func (e *Engine) emitBucket() {
	latency := e.GetLatencyStats()

	e.buckets.emit(TimeBucket{
		TotalTasks:     e.totalTasks.Load(),
		TotalSuccesses: e.successTasks.Load(),
		TotalFailures:  e.failedTasks.Load(),
		LatencyP50:     latency.P50,
		LatencyP95:     latency.P95,
		LatencyP99:     latency.P99,
		InFlight:       e.GetInFlight(),
		Phase:          e.GetPhase(),
	})
}

// GetLatencyStats returns statistics over every recorded task.
func (e *Engine) GetLatencyStats() LatencyStats {
	e.latencyHistMu.Lock()
	defer e.latencyHistMu.Unlock()
	return statsOf(e.latencyHist)
}

func statsOf(h *hdrhistogram.Histogram) LatencyStats {
	us := func(v int64) time.Duration { return time.Duration(v) * time.Microsecond }
	return LatencyStats{
		Min:    us(h.Min()),
		Max:    us(h.Max()),
		Mean:   time.Duration(h.Mean() * float64(time.Microsecond)),
		StdDev: time.Duration(h.StdDev() * float64(time.Microsecond)),
		P50:    us(h.ValueAtQuantile(50)),
		P90:    us(h.ValueAtQuantile(90)),
		P95:    us(h.ValueAtQuantile(95)),
		P99:    us(h.ValueAtQuantile(99)),
		Count:  h.TotalCount(),
	}
}

// elapsed returns the run time so far, or the final run time once done.
func (e *Engine) elapsed() (time.Time, time.Duration) {
	e.timeMu.RLock()
	defer e.timeMu.RUnlock()

	if e.endTime.IsZero() {
		return e.startTime, time.Since(e.startTime)
	}
	return e.startTime, e.endTime.Sub(e.startTime)
}

// GetSnapshot returns a point-in-time snapshot of all metrics.
func (e *Engine) GetSnapshot() *Snapshot {
	start, elapsed := e.elapsed()
	total := e.totalTasks.Load()
	success := e.successTasks.Load()
	failed := e.failedTasks.Load()

	throughput := 0.0
	if elapsed > 0 && success > 0 {
		throughput = float64(success) / elapsed.Seconds()
	}

	errorRate := 0.0
	if total > 0 {
		errorRate = float64(failed) / float64(total)
	}

	return &Snapshot{
		TotalTasks:   total,
		SuccessTasks: success,
		FailedTasks:  failed,
		Latency:      e.GetLatencyStats(),
		Throughput:   throughput,
		ErrorRate:    errorRate,
		InFlight:     e.GetInFlight(),
		CurrentPhase: e.GetPhase(),
		Elapsed:      elapsed,
		StartTime:    start,
		Timestamp:    time.Now(),
	}
}

// GetTimeSeries returns all time-series buckets in chronological order.
func (e *Engine) GetTimeSeries() []*TimeBucket {
	return e.buckets.all()
}

// Stop stops the background emitter and emits a final bucket. It is safe
// to call more than once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.emitterCancel()
		e.emitterWg.Wait()
		e.emitBucket()
	})
}
