package config

import (
	"fmt"
	"strings"

	"github.com/juancast26/storesim/internal/simulation/workload"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors struct {
	Errors []*ValidationError
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Add adds an error to the collection.
func (e *ValidationErrors) Add(field, message string) {
	e.Errors = append(e.Errors, &ValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are any errors.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// Validate validates the configuration. Unset run fields are accepted, so
// it can run before or after ApplyDefaults.
//
// Returns nil if valid, or a *ValidationErrors containing every problem.
func (c *TestConfig) Validate() error {
	errs := &ValidationErrors{}

	if c.Workload != "" && !workload.IsValidKind(c.Workload) {
		errs.Add("workload", fmt.Sprintf("unknown workload %q (supported: %v)", c.Workload, workload.Kinds()))
	}

	validateRun(&c.Run, errs)

	for _, err := range c.Thresholds.Validate() {
		errs.Add("thresholds", err.Error())
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateRun(run *RunSettings, errs *ValidationErrors) {
	if run.Tasks != nil && *run.Tasks < 0 {
		errs.Add("run.tasks", fmt.Sprintf("tasks must be >= 0, got %d", *run.Tasks))
	}
	if run.Concurrency != nil && *run.Concurrency < 1 {
		errs.Add("run.concurrency", fmt.Sprintf("concurrency must be >= 1, got %d", *run.Concurrency))
	}
	if run.CPUIterations != nil && *run.CPUIterations < 0 {
		errs.Add("run.cpuIterations", fmt.Sprintf("cpuIterations must be >= 0, got %d", *run.CPUIterations))
	}
	if p := run.FailureProbability; p != nil && (*p < 0 || *p > 1) {
		errs.Add("run.failureProbability", fmt.Sprintf("failureProbability must be within [0, 1], got %v", *p))
	}

	if run.Latency == nil {
		return
	}
	if run.Latency.Min != nil && *run.Latency.Min < 0 {
		errs.Add("run.latency.min", fmt.Sprintf("latency min must be >= 0, got %v", run.Latency.Min))
	}
	if run.Latency.Max != nil && *run.Latency.Max < 0 {
		errs.Add("run.latency.max", fmt.Sprintf("latency max must be >= 0, got %v", run.Latency.Max))
	}
	if run.Latency.Min != nil && run.Latency.Max != nil && *run.Latency.Min > *run.Latency.Max {
		errs.Add("run.latency", fmt.Sprintf("latency min (%v) must not exceed max (%v)", run.Latency.Min, run.Latency.Max))
	}
}
