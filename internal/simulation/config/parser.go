package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/juancast26/storesim/internal/simulation/batch"
	"github.com/juancast26/storesim/internal/simulation/workload"
)

// Defaults shared by every workload.
const (
	DefaultWorkload    = workload.KindOrders
	DefaultTasks       = 500
	DefaultConcurrency = 20
)

// EnvPrefix prefixes the environment variables read by ApplyEnv.
const EnvPrefix = "STORESIM_"

// LoadConfig loads a run configuration from a file.
//
// The file format is determined by extension:
//   - .yaml, .yml -> YAML
//   - .json -> JSON
//
// The document is checked against the embedded JSON Schema before decoding.
func LoadConfig(path string) (*TestConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := ValidateSchema(data, path); err != nil {
		return nil, err
	}

	return ParseConfig(data, path)
}

// ParseConfig parses configuration data.
//
// The format is determined by the file extension in path, or defaults to YAML
// if the path is empty or has an unknown extension.
func ParseConfig(data []byte, path string) (*TestConfig, error) {
	var config TestConfig

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config (unknown format %s): %w", ext, err)
		}
	}

	return &config, nil
}

// ParseDurationString parses a duration string.
//
// Supported formats:
//   - Standard Go duration: "250ms", "1.5s", "2m"
//   - Integer milliseconds: "250"
func ParseDurationString(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}

	return 0, fmt.Errorf("invalid duration format: %s", s)
}

// ApplyDefaults fills unset fields from the workload preset. An unknown
// workload is left for Validate to report.
func ApplyDefaults(config *TestConfig) {
	if config.Workload == "" {
		config.Workload = string(DefaultWorkload)
	}
	if config.Name == "" {
		config.Name = "storesim-" + config.Workload
	}

	run := &config.Run
	if run.Tasks == nil {
		run.Tasks = intPtr(DefaultTasks)
	}
	if run.Concurrency == nil {
		run.Concurrency = intPtr(DefaultConcurrency)
	}

	preset, err := workload.Preset(workload.Kind(config.Workload))
	if err != nil {
		return
	}

	if run.Latency == nil {
		run.Latency = &LatencyConfig{}
	}
	if run.Latency.Min == nil {
		run.Latency.Min = NewDuration(preset.Latency.Min)
	}
	if run.Latency.Max == nil {
		run.Latency.Max = NewDuration(preset.Latency.Max)
	}
	if run.FailureProbability == nil {
		p := preset.FailureProbability
		run.FailureProbability = &p
	}
	if run.CPUIterations == nil {
		run.CPUIterations = intPtr(preset.CPUIterations)
	}
}

// ApplyEnv overrides fields from STORESIM_* variables found by lookup,
// typically os.LookupEnv.
func ApplyEnv(config *TestConfig, lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(EnvPrefix + key)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}

	if v, ok := get("NAME"); ok {
		config.Name = v
	}
	if v, ok := get("WORKLOAD"); ok {
		config.Workload = v
	}

	ints := []struct {
		key string
		dst **int
	}{
		{"TASKS", &config.Run.Tasks},
		{"CONCURRENCY", &config.Run.Concurrency},
		{"CPU_ITERATIONS", &config.Run.CPUIterations},
	}
	for _, f := range ints {
		v, ok := get(f.key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: invalid integer %q", EnvPrefix, f.key, v)
		}
		*f.dst = intPtr(n)
	}

	if v, ok := get("FAILURE_PROBABILITY"); ok {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sFAILURE_PROBABILITY: invalid number %q", EnvPrefix, v)
		}
		config.Run.FailureProbability = &p
	}

	if v, ok := get("SEED"); ok {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sSEED: invalid integer %q", EnvPrefix, v)
		}
		config.Run.Seed = seed
	}

	for _, key := range []string{"LATENCY_MIN", "LATENCY_MAX"} {
		v, ok := get(key)
		if !ok {
			continue
		}
		d, err := ParseDurationString(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		if config.Run.Latency == nil {
			config.Run.Latency = &LatencyConfig{}
		}
		if key == "LATENCY_MIN" {
			config.Run.Latency.Min = NewDuration(d)
		} else {
			config.Run.Latency.Max = NewDuration(d)
		}
	}

	return nil
}

// ToRunConfig converts a defaulted and validated configuration into the
// parameters of a batch run.
func (c *TestConfig) ToRunConfig() (batch.RunConfig, error) {
	run := c.Run
	if run.Tasks == nil || run.Concurrency == nil || run.Latency == nil ||
		run.FailureProbability == nil || run.CPUIterations == nil {
		return batch.RunConfig{}, fmt.Errorf("config %q is incomplete: apply defaults first", c.Name)
	}

	return batch.RunConfig{
		Concurrency: *run.Concurrency,
		Tasks:       *run.Tasks,
		Latency: workload.LatencyRange{
			Min: run.Latency.Min.GetDuration(0),
			Max: run.Latency.Max.GetDuration(0),
		},
		FailureProbability: *run.FailureProbability,
		CPUIterations:      *run.CPUIterations,
		Seed:               run.Seed,
	}, nil
}

func intPtr(n int) *int {
	return &n
}
