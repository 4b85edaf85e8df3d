package batch

import (
	"errors"
	"fmt"

	"github.com/juancast26/storesim/internal/simulation/workload"
)

// ErrInvalidConfig is matched by every ConfigurationError.
var ErrInvalidConfig = errors.New("invalid run configuration")

// ConfigurationError reports an unusable RunConfig. It is returned before
// any task runs.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid run configuration: %s: %s", e.Field, e.Message)
}

// Is makes errors.Is(err, ErrInvalidConfig) hold.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// RunConfig describes one batch run.
type RunConfig struct {
	// Concurrency is the maximum number of tasks in flight.
	Concurrency int `json:"concurrency"`

	// Tasks is the number of simulated requests to submit.
	Tasks int `json:"tasks"`

	// Latency is the inclusive range each simulated delay is drawn from.
	Latency workload.LatencyRange `json:"latency"`

	// FailureProbability is the chance, in [0, 1], that a request fails.
	FailureProbability float64 `json:"failureProbability"`

	// CPUIterations is the size of the per-request CPU burn loop.
	CPUIterations int `json:"cpuIterations"`

	// Seed makes random draws reproducible. Zero uses the global source.
	Seed int64 `json:"seed,omitempty"`
}

// Validate checks the configuration and returns a *ConfigurationError for
// the first invalid field.
func (c RunConfig) Validate() error {
	switch {
	case c.Concurrency < 1:
		return &ConfigurationError{Field: "concurrency", Message: fmt.Sprintf("must be >= 1, got %d", c.Concurrency)}
	case c.Tasks < 0:
		return &ConfigurationError{Field: "tasks", Message: fmt.Sprintf("must be >= 0, got %d", c.Tasks)}
	case c.Latency.Min < 0:
		return &ConfigurationError{Field: "latency.min", Message: fmt.Sprintf("must be >= 0, got %v", c.Latency.Min)}
	case c.Latency.Max < c.Latency.Min:
		return &ConfigurationError{Field: "latency", Message: fmt.Sprintf("min (%v) must not exceed max (%v)", c.Latency.Min, c.Latency.Max)}
	case c.FailureProbability < 0 || c.FailureProbability > 1:
		return &ConfigurationError{Field: "failureProbability", Message: fmt.Sprintf("must be within [0, 1], got %v", c.FailureProbability)}
	case c.CPUIterations < 0:
		return &ConfigurationError{Field: "cpuIterations", Message: fmt.Sprintf("must be >= 0, got %d", c.CPUIterations)}
	}
	return nil
}

// Profile returns the workload profile of the configuration.
func (c RunConfig) Profile() workload.Profile {
	return workload.Profile{
		Latency:            c.Latency,
		CPUIterations:      c.CPUIterations,
		FailureProbability: c.FailureProbability,
	}
}
