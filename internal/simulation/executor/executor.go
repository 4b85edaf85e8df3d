// Package executor runs batches of deferred tasks under a concurrency limit.
package executor

import (
	"fmt"
	"time"
)

// Type identifies the type of executor.
type Type string

const (
	// TypeSharedIterations shares a fixed task list across a pool of workers.
	// Each worker pulls the next unclaimed task until the list is exhausted.
	TypeSharedIterations Type = "shared-iterations"
)

// Executor is the read-only view of a running executor used by progress
// displays. Implementations must be safe to query from other goroutines
// while Run is in progress.
type Executor interface {
	// Type returns the executor type.
	Type() Type

	// GetProgress returns current progress (0.0 to 1.0).
	GetProgress() float64

	// GetActiveWorkers returns the number of workers currently running a task.
	GetActiveWorkers() int

	// IsRunning reports whether Run is in progress.
	IsRunning() bool

	// GetStats returns executor statistics.
	GetStats() *Stats
}

// Task is a deferred operation. It is identified by its position in the
// slice handed to Run; the returned value and error become its Outcome.
type Task[T any] func() (T, error)

// Outcome is the result of running one task.
type Outcome[T any] struct {
	// Value is the task result. Zero when Err is set.
	Value T

	// Err is nil on success.
	Err error

	// Duration is the wall time spent inside the task.
	Duration time.Duration

	// WorkerID is the worker that ran the task (0-based).
	WorkerID int
}

// Success reports whether the task completed without error.
func (o Outcome[T]) Success() bool {
	return o.Err == nil
}

// Observer is notified once per completed task. It is called from worker
// goroutines, so it must be safe for concurrent use; completion order is
// not the task order.
type Observer[T any] func(index int, outcome Outcome[T])

// Config contains configuration for an executor.
type Config struct {
	// Name is the name of this executor instance
	Name string `json:"name" yaml:"name"`

	// Type is the executor type
	Type Type `json:"type" yaml:"type"`

	// Concurrency is the maximum number of tasks in flight.
	Concurrency int `json:"concurrency" yaml:"concurrency"`
}

// Stats contains real-time executor statistics.
type Stats struct {
	StartTime   time.Time     `json:"startTime"`
	CurrentTime time.Time     `json:"currentTime"`
	Elapsed     time.Duration `json:"elapsed"`

	ActiveWorkers int `json:"activeWorkers"`
	Workers       int `json:"workers"`

	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
	TotalTasks int64 `json:"totalTasks"`
}

// Validate validates the executor configuration.
func (c *Config) Validate() error {
	if c.Type == "" {
		return &ValidationError{Field: "type", Message: "executor type is required"}
	}

	switch c.Type {
	case TypeSharedIterations:
		if c.Concurrency < 1 {
			return &ValidationError{Field: "concurrency", Message: fmt.Sprintf("concurrency must be >= 1, got %d", c.Concurrency)}
		}
	default:
		return &ValidationError{Field: "type", Message: "unknown executor type: " + string(c.Type)}
	}

	return nil
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "validation error on field '" + e.Field + "': " + e.Message
}

// PanicError is recorded as the outcome of a task that panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
