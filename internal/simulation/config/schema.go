// Package config loads, validates and defaults storesim run files.
package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/juancast26/storesim/internal/simulation/threshold"
)

// TestConfig is the root configuration for a simulated load run.
//
// Example YAML:
//
//	name: "Black Friday orders"
//	workload: orders
//	run:
//	  tasks: 500
//	  concurrency: 20
//	  latency:
//	    min: 50ms
//	    max: 250ms
//	  failureProbability: 0.05
//	  cpuIterations: 20000
//	thresholds:
//	  task_failed: ["rate < 0.1"]
type TestConfig struct {
	// Name of the run (for reporting)
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Description of the run (optional)
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Workload selects the payload kind and its defaults: "orders" or "users"
	Workload string `json:"workload,omitempty" yaml:"workload,omitempty"`

	// Run holds the batch parameters. Unset fields take the workload defaults.
	Run RunSettings `json:"run,omitempty" yaml:"run,omitempty"`

	// Thresholds define pass/fail criteria for the run
	Thresholds *threshold.Criteria `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
}

// RunSettings are the batch parameters. Pointers distinguish "unset" from
// an explicit zero, which is meaningful for every field.
type RunSettings struct {
	Tasks              *int           `json:"tasks,omitempty" yaml:"tasks,omitempty"`
	Concurrency        *int           `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
	Latency            *LatencyConfig `json:"latency,omitempty" yaml:"latency,omitempty"`
	FailureProbability *float64       `json:"failureProbability,omitempty" yaml:"failureProbability,omitempty"`
	CPUIterations      *int           `json:"cpuIterations,omitempty" yaml:"cpuIterations,omitempty"`
	Seed               int64          `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// LatencyConfig is the inclusive range of the simulated delay.
type LatencyConfig struct {
	Min *Duration `json:"min,omitempty" yaml:"min,omitempty"`
	Max *Duration `json:"max,omitempty" yaml:"max,omitempty"`
}

// Duration is a time.Duration that can be unmarshaled from JSON/YAML.
// Strings use Go duration syntax; bare numbers are milliseconds.
type Duration time.Duration

// NewDuration returns a pointer to d as a Duration.
func NewDuration(d time.Duration) *Duration {
	v := Duration(d)
	return &v
}

// GetDuration returns the duration or a default if nil.
func (d *Duration) GetDuration(defaultValue time.Duration) time.Duration {
	if d == nil {
		return defaultValue
	}
	return time.Duration(*d)
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*d = 0
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return d.set(s)
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", value.Line)
	}
	return d.set(value.Value)
}

func (d *Duration) set(s string) error {
	dur, err := ParseDurationString(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// String returns the duration as a string.
func (d Duration) String() string {
	return time.Duration(d).String()
}
