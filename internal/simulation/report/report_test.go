package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juancast26/storesim/internal/simulation/batch"
	"github.com/juancast26/storesim/internal/simulation/metrics"
	"github.com/juancast26/storesim/internal/simulation/threshold"
	"github.com/juancast26/storesim/internal/simulation/workload"
)

func sampleReport(t *testing.T) *Report {
	t.Helper()

	engine := metrics.NewEngine()
	for i := 1; i <= 10; i++ {
		engine.RecordLatency(time.Duration(i)*10*time.Millisecond, i != 10)
	}
	engine.Stop()

	cfg := batch.RunConfig{
		Tasks:              10,
		Concurrency:        2,
		Latency:            workload.LatencyRange{Min: 10 * time.Millisecond, Max: 100 * time.Millisecond},
		FailureProbability: 0.1,
		CPUIterations:      20000,
	}
	summary := batch.Summary{
		Tasks:          10,
		Concurrency:    2,
		Workers:        2,
		Successes:      9,
		Failures:       1,
		ElapsedMs:      300,
		Throughput:     30,
		ErrorRate:      0.1,
		FailureReasons: []batch.FailureCount{{Reason: "simulated backend error", Count: 1}},
	}
	criteria := &threshold.Criteria{
		TaskDuration: []string{"p95 < 1s"},
		TaskFailed:   []string{"rate < 0.05"},
	}

	return Build(Meta{Name: "orders-run", Workload: "orders"}, cfg, summary, engine, criteria)
}

func TestBuild(t *testing.T) {
	r := sampleReport(t)

	assert.Equal(t, "orders-run", r.Name)
	assert.Equal(t, "orders", r.Workload)
	assert.Equal(t, 10.0, r.Config.LatencyMinMs)
	assert.Equal(t, 100.0, r.Config.LatencyMaxMs)
	assert.Equal(t, int64(10), r.Latency.Count)
	assert.InDelta(t, 100, r.Latency.Max, 1)
	assert.NotEmpty(t, r.TimeSeries)

	require.Len(t, r.Thresholds, 2)
	assert.True(t, r.Thresholds[0].Passed)
	assert.False(t, r.Thresholds[1].Passed)
	assert.False(t, r.Passed)
}

func TestBuild_NoEngineNoCriteria(t *testing.T) {
	r := Build(Meta{Name: "bare"}, batch.RunConfig{Concurrency: 1}, batch.Summary{}, nil, nil)

	assert.True(t, r.Passed)
	assert.Empty(t, r.Thresholds)
	assert.Empty(t, r.TimeSeries)
	assert.Zero(t, r.Latency.Count)
}

func TestWriteJSONAndQuery(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleReport(t).WriteJSON(&buf))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	data := buf.Bytes()
	tests := []struct {
		path string
		want string
	}{
		{"name", "orders-run"},
		{"$.summary.failures", "1"},
		{"summary.failureReasons.0.reason", "simulated backend error"},
		{"$.summary.failureReasons[0].count", "1"},
		{"$['config']['tasks']", "10"},
		{"passed", "false"},
		{"thresholds.#(passed==false).expression", "rate < 0.05"},
		{"thresholds.#", "2"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := Query(data, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuery_Errors(t *testing.T) {
	_, err := Query(nil, "name")
	assert.Error(t, err)

	_, err = Query([]byte(`{"name":`), "name")
	assert.Error(t, err)

	_, err = Query([]byte(`{"name":"x"}`), "")
	assert.Error(t, err)

	_, err = Query([]byte(`{"name":"x"}`), "missing")
	assert.Error(t, err)

	got, err := Query([]byte(`{"description":null}`), "$.description")
	require.NoError(t, err)
	assert.Equal(t, "null", got)
}

func TestToGjsonPath(t *testing.T) {
	tests := map[string]string{
		"$":                           "@this",
		"$.summary.failures":          "summary.failures",
		"$.timeSeries[2].phase":       "timeSeries.2.phase",
		"$['summary']['successes']":   "summary.successes",
		`$["latency"]["p95"]`:         "latency.p95",
		"summary.failures":            "summary.failures",
		"thresholds.#(passed==false)": "thresholds.#(passed==false)",
	}

	for in, want := range tests {
		assert.Equal(t, want, toGjsonPath(in), in)
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, sampleReport(t).Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	got, err := Query(data, "workload")
	require.NoError(t, err)
	assert.Equal(t, "orders", got)
}

func TestSave_Errors(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "missing", "report.json")} {
		err := sampleReport(t).Save(path)
		require.Error(t, err, "path %q", path)
		assert.Contains(t, err.Error(), "failed to create report file")
	}
}
