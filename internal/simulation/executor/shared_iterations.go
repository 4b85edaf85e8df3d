package executor

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// SharedIterations runs a fixed list of tasks with at most Concurrency
// tasks in flight.
//
// Workers share one atomic cursor: each claims the next index, runs that
// task and stores the outcome in the matching slot, then claims again until
// the list is exhausted. Slots are written by exactly one worker, so the
// outcome slice needs no lock. A failing or panicking task never stops the
// remaining ones.
type SharedIterations[T any] struct {
	config   *Config
	observer Observer[T]

	// State
	startTime     time.Time
	endTime       time.Time
	workers       int
	total         atomic.Int64
	completed     atomic.Int64
	failed        atomic.Int64
	activeWorkers atomic.Int32
	running       atomic.Bool

	mu sync.RWMutex
}

// NewSharedIterations creates a new shared iterations executor.
func NewSharedIterations[T any]() *SharedIterations[T] {
	return &SharedIterations[T]{}
}

// Type returns the executor type.
func (e *SharedIterations[T]) Type() Type {
	return TypeSharedIterations
}

// Init initializes the executor with configuration.
func (e *SharedIterations[T]) Init(config *Config) error {
	if config.Type != TypeSharedIterations {
		return fmt.Errorf("invalid config type: expected %s, got %s", TypeSharedIterations, config.Type)
	}

	if err := config.Validate(); err != nil {
		return err
	}

	e.config = config
	return nil
}

// SetObserver registers a callback invoked once per completed task.
func (e *SharedIterations[T]) SetObserver(observer Observer[T]) {
	e.observer = observer
}

// Run executes every task and blocks until all of them have completed.
// The returned slice is index-aligned with tasks. An empty task list
// returns immediately without starting any worker.
func (e *SharedIterations[T]) Run(tasks []Task[T]) ([]Outcome[T], error) {
	outcomes := make([]Outcome[T], len(tasks))
	if len(tasks) == 0 {
		return outcomes, nil
	}
	if e.config == nil {
		return nil, fmt.Errorf("executor %s not initialized", TypeSharedIterations)
	}

	workers := e.config.Concurrency
	if workers > len(tasks) {
		workers = len(tasks)
	}

	e.mu.Lock()
	e.startTime = time.Now()
	e.endTime = time.Time{}
	e.workers = workers
	e.mu.Unlock()

	e.total.Store(int64(len(tasks)))
	e.completed.Store(0)
	e.failed.Store(0)
	e.running.Store(true)

	var cursor atomic.Int64
	var wg sync.WaitGroup
	for id := 0; id < workers; id++ {
		wg.Add(1)
		go e.runWorker(id, &cursor, tasks, outcomes, &wg)
	}
	wg.Wait()

	e.running.Store(false)
	e.mu.Lock()
	e.endTime = time.Now()
	e.mu.Unlock()

	return outcomes, nil
}

// runWorker claims and runs tasks until the cursor passes the end of the list.
func (e *SharedIterations[T]) runWorker(id int, cursor *atomic.Int64, tasks []Task[T], outcomes []Outcome[T], wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		idx := int(cursor.Add(1) - 1)
		if idx >= len(tasks) {
			return
		}

		e.activeWorkers.Add(1)
		outcome := runTask(tasks[idx])
		e.activeWorkers.Add(-1)

		outcome.WorkerID = id
		outcomes[idx] = outcome

		if outcome.Err != nil {
			e.failed.Add(1)
		}
		e.completed.Add(1)

		if e.observer != nil {
			e.observer(idx, outcome)
		}
	}
}

// runTask runs one task, converting a panic into a failed outcome.
func runTask[T any](task Task[T]) (outcome Outcome[T]) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			outcome = Outcome[T]{Err: &PanicError{Value: r, Stack: debug.Stack()}}
		}
		outcome.Duration = time.Since(start)
	}()

	value, err := task()
	if err != nil {
		return Outcome[T]{Err: err}
	}
	return Outcome[T]{Value: value}
}

// GetProgress returns current progress (0.0 to 1.0).
func (e *SharedIterations[T]) GetProgress() float64 {
	total := e.total.Load()
	if total == 0 {
		return 0.0
	}
	return float64(e.completed.Load()) / float64(total)
}

// GetActiveWorkers returns the number of workers currently running a task.
func (e *SharedIterations[T]) GetActiveWorkers() int {
	return int(e.activeWorkers.Load())
}

// IsRunning reports whether Run is in progress.
func (e *SharedIterations[T]) IsRunning() bool {
	return e.running.Load()
}

// GetStats returns executor statistics.
func (e *SharedIterations[T]) GetStats() *Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	now := time.Now()
	var elapsed time.Duration
	switch {
	case e.startTime.IsZero():
	case e.endTime.IsZero():
		elapsed = now.Sub(e.startTime)
	default:
		elapsed = e.endTime.Sub(e.startTime)
	}

	return &Stats{
		StartTime:     e.startTime,
		CurrentTime:   now,
		Elapsed:       elapsed,
		ActiveWorkers: int(e.activeWorkers.Load()),
		Workers:       e.workers,
		Completed:     e.completed.Load(),
		Failed:        e.failed.Load(),
		TotalTasks:    e.total.Load(),
	}
}

// Run executes tasks with at most concurrency tasks in flight and returns
// the index-aligned outcomes. An empty task list returns an empty slice
// whatever the concurrency; otherwise concurrency below 1 is rejected
// before any task runs.
func Run[T any](tasks []Task[T], concurrency int) ([]Outcome[T], error) {
	if len(tasks) == 0 {
		return []Outcome[T]{}, nil
	}

	e := NewSharedIterations[T]()
	if err := e.Init(&Config{Type: TypeSharedIterations, Concurrency: concurrency}); err != nil {
		return nil, err
	}
	return e.Run(tasks)
}

// Ensure SharedIterations implements Executor
var _ Executor = (*SharedIterations[struct{}])(nil)
