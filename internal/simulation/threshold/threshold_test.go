package threshold

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juancast26/storesim/internal/simulation/metrics"
)

func sampleMeasurements() Measurements {
	return Measurements{
		Latency: metrics.LatencyStats{
			Min:  50 * time.Millisecond,
			Max:  260 * time.Millisecond,
			Mean: 150 * time.Millisecond,
			P50:  150 * time.Millisecond,
			P90:  230 * time.Millisecond,
			P95:  240 * time.Millisecond,
			P99:  255 * time.Millisecond,
		},
		Count:      500,
		ErrorRate:  0.04,
		Throughput: 120.5,
	}
}

func TestParseExpression(t *testing.T) {
	tests := []struct {
		expr    string
		want    Expression
		wantErr bool
	}{
		{"p95 < 500ms", Expression{"p95", "<", "500ms"}, false},
		{"  rate<=0.01 ", Expression{"rate", "<=", "0.01"}, false},
		{"count >= 1000", Expression{"count", ">=", "1000"}, false},
		{"p95", Expression{}, true},
		{"p95 => 1s", Expression{}, true},
		{"", Expression{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := ParseExpression(tt.expr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		metric  Metric
		expr    string
		wantErr bool
	}{
		{MetricTaskDuration, "p95 < 300ms", false},
		{MetricTaskDuration, "avg < 1s", false},
		{MetricTaskDuration, "p42 < 300ms", true},
		{MetricTaskDuration, "p95 < 300", true},
		{MetricTaskFailed, "rate < 0.1", false},
		{MetricTaskFailed, "count < 10", true},
		{MetricTaskFailed, "rate < high", true},
		{MetricTasks, "count >= 500", false},
		{MetricTasks, "rate > 100", false},
		{MetricTasks, "p95 > 100", true},
		{"latency", "p95 < 1s", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.metric)+" "+tt.expr, func(t *testing.T) {
			err := Check(tt.metric, tt.expr)
			if (err != nil) != tt.wantErr {
				t.Errorf("Check() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEvaluate(t *testing.T) {
	c := &Criteria{
		TaskDuration: []string{"p95 < 300ms", "max < 250ms"},
		TaskFailed:   []string{"rate < 0.1"},
		Tasks:        []string{"count >= 500", "rate > 200"},
	}

	results := Evaluate(c, sampleMeasurements())
	require.Len(t, results, 5)

	want := []struct {
		metric Metric
		passed bool
	}{
		{MetricTaskDuration, true},
		{MetricTaskDuration, false},
		{MetricTaskFailed, true},
		{MetricTasks, true},
		{MetricTasks, false},
	}
	for i, w := range want {
		assert.Equal(t, w.metric, results[i].Metric, "result %d", i)
		assert.Equal(t, w.passed, results[i].Passed, "result %d: %s", i, results[i].Message)
	}

	assert.Equal(t, "240ms", results[0].Value)
	assert.Equal(t, "0.0400", results[2].Value)
	assert.Equal(t, "500.00", results[3].Value)
	assert.Contains(t, results[4].Message, "rate is 120.50")
	assert.False(t, AllPassed(results))
	assert.True(t, AllPassed(results[:1]))
}

func TestEvaluate_InvalidExpressionFails(t *testing.T) {
	results := Evaluate(&Criteria{TaskFailed: []string{"p95 < 1"}}, sampleMeasurements())
	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	assert.NotEmpty(t, results[0].Message)
}

func TestEvaluate_Nil(t *testing.T) {
	assert.Nil(t, Evaluate(nil, sampleMeasurements()))
	assert.True(t, AllPassed(nil))
}

func TestCriteria_AddFlag(t *testing.T) {
	var c Criteria
	require.NoError(t, c.AddFlag("task_duration: p95 < 300ms"))
	require.NoError(t, c.AddFlag("task_failed:rate<0.05"))
	require.NoError(t, c.AddFlag("tasks:count >= 10"))

	assert.Equal(t, []string{"p95 < 300ms"}, c.TaskDuration)
	assert.Equal(t, []string{"rate<0.05"}, c.TaskFailed)
	assert.Equal(t, []string{"count >= 10"}, c.Tasks)
	assert.False(t, c.Empty())

	assert.Error(t, c.AddFlag("p95 < 300ms"))
	assert.Error(t, c.AddFlag("bogus:p95 < 300ms"))
}

func TestCriteria_Validate(t *testing.T) {
	c := &Criteria{
		TaskDuration: []string{"p95 < 300ms", "nope"},
		Tasks:        []string{"rate > x"},
	}

	errs := c.Validate()
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), "thresholds.task_duration[1]")
	assert.Contains(t, errs[1].Error(), "thresholds.tasks[0]")

	var nilCriteria *Criteria
	assert.Empty(t, nilCriteria.Validate())
	assert.True(t, nilCriteria.Empty())
}

func TestCompareValues(t *testing.T) {
	tests := []struct {
		actual float64
		op     string
		limit  float64
		want   bool
	}{
		{1, "<", 2, true},
		{2, "<=", 2, true},
		{3, ">", 2, true},
		{2, ">=", 3, false},
		{2, "==", 2, true},
		{2, "=", 2, true},
		{2, "!=", 2, false},
		{1, "<>", 2, true},
		{1, "~", 2, false},
	}

	for _, tt := range tests {
		if got := compareValues(tt.actual, tt.op, tt.limit); got != tt.want {
			t.Errorf("compareValues(%v, %q, %v) = %v, want %v", tt.actual, tt.op, tt.limit, got, tt.want)
		}
	}
}
