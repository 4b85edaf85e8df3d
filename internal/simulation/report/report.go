// Package report builds the JSON document describing a finished run.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/juancast26/storesim/internal/simulation/batch"
	"github.com/juancast26/storesim/internal/simulation/metrics"
	"github.com/juancast26/storesim/internal/simulation/threshold"
)

// Report is the machine-readable result of one run.
type Report struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Workload    string    `json:"workload"`
	GeneratedAt time.Time `json:"generatedAt"`

	Config  Settings      `json:"config"`
	Summary batch.Summary `json:"summary"`
	Latency LatencyMs     `json:"latency"`

	Passed     bool               `json:"passed"`
	Thresholds []threshold.Result `json:"thresholds,omitempty"`

	TimeSeries []*metrics.TimeBucket `json:"timeSeries,omitempty"`
}

// Settings echoes the run configuration with durations in milliseconds.
type Settings struct {
	Tasks              int     `json:"tasks"`
	Concurrency        int     `json:"concurrency"`
	LatencyMinMs       float64 `json:"latencyMinMs"`
	LatencyMaxMs       float64 `json:"latencyMaxMs"`
	FailureProbability float64 `json:"failureProbability"`
	CPUIterations      int     `json:"cpuIterations"`
	Seed               int64   `json:"seed,omitempty"`
}

// LatencyMs is metrics.LatencyStats in milliseconds.
type LatencyMs struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
	P50    float64 `json:"p50"`
	P90    float64 `json:"p90"`
	P95    float64 `json:"p95"`
	P99    float64 `json:"p99"`
	Count  int64   `json:"count"`
}

// Meta identifies a run in its report.
type Meta struct {
	Name        string
	Description string
	Workload    string
}

// Build assembles the report of a finished run and evaluates criteria
// against it. engine may be nil, in which case latency and time series
// are left empty.
func Build(meta Meta, cfg batch.RunConfig, summary batch.Summary, engine *metrics.Engine, criteria *threshold.Criteria) *Report {
	r := &Report{
		Name:        meta.Name,
		Description: meta.Description,
		Workload:    meta.Workload,
		GeneratedAt: time.Now().UTC(),
		Config: Settings{
			Tasks:              cfg.Tasks,
			Concurrency:        cfg.Concurrency,
			LatencyMinMs:       ms(cfg.Latency.Min),
			LatencyMaxMs:       ms(cfg.Latency.Max),
			FailureProbability: cfg.FailureProbability,
			CPUIterations:      cfg.CPUIterations,
			Seed:               cfg.Seed,
		},
		Summary: summary,
	}

	var latency metrics.LatencyStats
	if engine != nil {
		latency = engine.GetLatencyStats()
		r.TimeSeries = engine.GetTimeSeries()
	}
	r.Latency = toMs(latency)

	r.Thresholds = threshold.Evaluate(criteria, threshold.Measurements{
		Latency:    latency,
		Count:      int64(summary.Tasks),
		ErrorRate:  summary.ErrorRate,
		Throughput: summary.Throughput,
	})
	r.Passed = threshold.AllPassed(r.Thresholds)

	return r
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func toMs(l metrics.LatencyStats) LatencyMs {
	return LatencyMs{
		Min:    ms(l.Min),
		Max:    ms(l.Max),
		Mean:   ms(l.Mean),
		StdDev: ms(l.StdDev),
		P50:    ms(l.P50),
		P90:    ms(l.P90),
		P95:    ms(l.P95),
		P99:    ms(l.P99),
		Count:  l.Count,
	}
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// Save writes the report to the file at path. Use WriteJSON for streams.
func (r *Report) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := r.WriteJSON(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
