// Package batch submits N simulated requests through the bounded
// executor and reduces their outcomes into counts and timing.
package batch

import (
	"log/slog"
	"time"

	"github.com/juancast26/storesim/internal/simulation/executor"
	"github.com/juancast26/storesim/internal/simulation/metrics"
	"github.com/juancast26/storesim/internal/simulation/workload"
)

// PayloadFunc produces the payload of the task at index. It runs inside
// the task, so a panic here is recorded as that task's failure.
type PayloadFunc[P any] func(index int) P

// Observer is called once per completed task, from worker goroutines. The
// order of calls is unspecified.
type Observer[P any] func(index int, outcome executor.Outcome[workload.Accepted[P]])

// Option configures a Batch.
type Option[P any] func(*Batch[P])

// WithObserver registers a per-outcome callback.
func WithObserver[P any](observer Observer[P]) Option[P] {
	return func(b *Batch[P]) {
		b.observer = observer
	}
}

// WithMetrics records every outcome into engine.
func WithMetrics[P any](engine *metrics.Engine) Option[P] {
	return func(b *Batch[P]) {
		b.metrics = engine
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger[P any](logger *slog.Logger) Option[P] {
	return func(b *Batch[P]) {
		b.logger = logger
	}
}

// WithName labels the run in logs.
func WithName[P any](name string) Option[P] {
	return func(b *Batch[P]) {
		b.name = name
	}
}

// WithSimulator supplies the simulator, typically so payload factories can
// share its random source. It must match the run configuration.
func WithSimulator[P any](sim *workload.Simulator) Option[P] {
	return func(b *Batch[P]) {
		b.sim = sim
	}
}

// Batch is a validated, ready-to-run batch of simulated requests.
type Batch[P any] struct {
	cfg        RunConfig
	name       string
	newPayload PayloadFunc[P]

	sim      *workload.Simulator
	exec     *executor.SharedIterations[workload.Accepted[P]]
	observer Observer[P]
	metrics  *metrics.Engine
	logger   *slog.Logger
}

// New validates cfg and prepares a batch. Invalid configurations yield a
// *ConfigurationError.
func New[P any](cfg RunConfig, newPayload PayloadFunc[P], opts ...Option[P]) (*Batch[P], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if newPayload == nil {
		return nil, &ConfigurationError{Field: "payload", Message: "payload factory is required"}
	}

	b := &Batch[P]{
		cfg:        cfg,
		name:       "batch",
		newPayload: newPayload,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.sim == nil {
		sim, err := workload.NewSimulator(cfg.Profile(), workload.WithSeed(cfg.Seed))
		if err != nil {
			return nil, &ConfigurationError{Field: "profile", Message: err.Error()}
		}
		b.sim = sim
	}

	b.exec = executor.NewSharedIterations[workload.Accepted[P]]()
	if err := b.exec.Init(&executor.Config{
		Name:        b.name,
		Type:        executor.TypeSharedIterations,
		Concurrency: cfg.Concurrency,
	}); err != nil {
		return nil, &ConfigurationError{Field: "concurrency", Message: err.Error()}
	}
	b.exec.SetObserver(b.onOutcome)

	return b, nil
}

// Config returns the run configuration.
func (b *Batch[P]) Config() RunConfig {
	return b.cfg
}

// Executor exposes live progress of the run for displays.
func (b *Batch[P]) Executor() executor.Executor {
	return b.exec
}

// Run submits every task, waits for all of them and reduces the outcomes.
func (b *Batch[P]) Run() (*Result[P], error) {
	tasks := make([]executor.Task[workload.Accepted[P]], b.cfg.Tasks)
	for i := range tasks {
		tasks[i] = b.task(i)
	}

	b.logger.Info("batch started",
		"name", b.name,
		"tasks", b.cfg.Tasks,
		"concurrency", b.cfg.Concurrency,
		"latency_min", b.cfg.Latency.Min,
		"latency_max", b.cfg.Latency.Max,
		"failure_probability", b.cfg.FailureProbability,
	)

	if b.metrics != nil {
		b.metrics.MarkStarted()
	}

	start := time.Now()
	outcomes, err := b.exec.Run(tasks)
	elapsed := time.Since(start)

	if b.metrics != nil {
		b.metrics.MarkDone()
	}
	if err != nil {
		return nil, err
	}

	result := reduce(b.cfg, outcomes, elapsed, b.exec.GetStats().Workers)

	b.logger.Info("batch finished",
		"name", b.name,
		"successes", result.Successes,
		"failures", result.Failures,
		"elapsed", result.Elapsed,
		"throughput", result.Throughput,
	)

	return result, nil
}

func (b *Batch[P]) task(index int) executor.Task[workload.Accepted[P]] {
	return func() (workload.Accepted[P], error) {
		if b.metrics != nil {
			b.metrics.TaskStarted()
			defer b.metrics.TaskFinished()
		}
		return workload.Simulate(b.sim, b.newPayload(index))
	}
}

func (b *Batch[P]) onOutcome(index int, outcome executor.Outcome[workload.Accepted[P]]) {
	if b.metrics != nil {
		b.metrics.RecordLatency(outcome.Duration, outcome.Success())
	}
	if outcome.Err != nil {
		b.logger.Debug("task failed", "name", b.name, "index", index, "error", outcome.Err)
	}
	if b.observer != nil {
		b.observer(index, outcome)
	}
}

// Run validates cfg, runs the batch and returns its result.
func Run[P any](cfg RunConfig, newPayload PayloadFunc[P], opts ...Option[P]) (*Result[P], error) {
	b, err := New(cfg, newPayload, opts...)
	if err != nil {
		return nil, err
	}
	return b.Run()
}
