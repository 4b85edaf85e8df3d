// Package threshold evaluates pass/fail criteria such as "p95 < 300ms"
// against the measurements of a finished run.
package threshold

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/juancast26/storesim/internal/simulation/metrics"
)

// Metric names a thresholded measurement.
type Metric string

const (
	// MetricTaskDuration thresholds task latency: min, max, avg, med, p50, p90, p95, p99.
	MetricTaskDuration Metric = "task_duration"

	// MetricTaskFailed thresholds the failure fraction: rate.
	MetricTaskFailed Metric = "task_failed"

	// MetricTasks thresholds volume: count, or rate (successes per second).
	MetricTasks Metric = "tasks"
)

var expressionRe = regexp.MustCompile(`^(\w+)\s*([<>=!]+)\s*(.+)$`)

var validOps = map[string]bool{
	"<": true, "<=": true, ">": true, ">=": true,
	"==": true, "=": true, "!=": true, "<>": true,
}

// Criteria groups threshold expressions by metric.
//
// Example YAML:
//
//	thresholds:
//	  task_duration: ["p95 < 300ms"]
//	  task_failed: ["rate < 0.1"]
//	  tasks: ["count >= 500"]
type Criteria struct {
	TaskDuration []string `json:"task_duration,omitempty" yaml:"task_duration,omitempty"`
	TaskFailed   []string `json:"task_failed,omitempty" yaml:"task_failed,omitempty"`
	Tasks        []string `json:"tasks,omitempty" yaml:"tasks,omitempty"`
}

// Measurements are the values thresholds are checked against.
type Measurements struct {
	Latency    metrics.LatencyStats
	Count      int64
	ErrorRate  float64
	Throughput float64
}

// Result contains the result of a threshold evaluation.
type Result struct {
	Metric     Metric `json:"metric"`
	Expression string `json:"expression"`
	Passed     bool   `json:"passed"`
	Value      string `json:"value"`
	Message    string `json:"message,omitempty"`
}

// Expression is a parsed "stat op value" clause.
type Expression struct {
	Stat  string
	Op    string
	Value string
}

// ParseExpression parses an expression like "p95 < 500ms".
func ParseExpression(expr string) (Expression, error) {
	matches := expressionRe.FindStringSubmatch(strings.TrimSpace(expr))
	if len(matches) != 4 {
		return Expression{}, fmt.Errorf("invalid expression format: %s", expr)
	}
	if !validOps[matches[2]] {
		return Expression{}, fmt.Errorf("unknown operator %q in %s", matches[2], expr)
	}
	return Expression{Stat: matches[1], Op: matches[2], Value: strings.TrimSpace(matches[3])}, nil
}

// Empty reports whether no thresholds are configured.
func (c *Criteria) Empty() bool {
	return c == nil || len(c.TaskDuration)+len(c.TaskFailed)+len(c.Tasks) == 0
}

// Add appends expr to the list of metric.
func (c *Criteria) Add(metric Metric, expr string) error {
	if err := Check(metric, expr); err != nil {
		return err
	}
	switch metric {
	case MetricTaskDuration:
		c.TaskDuration = append(c.TaskDuration, expr)
	case MetricTaskFailed:
		c.TaskFailed = append(c.TaskFailed, expr)
	case MetricTasks:
		c.Tasks = append(c.Tasks, expr)
	}
	return nil
}

// AddFlag parses a "metric:expression" command-line value and adds it.
func (c *Criteria) AddFlag(value string) error {
	metric, expr, ok := strings.Cut(value, ":")
	if !ok {
		return fmt.Errorf("threshold %q must have the form metric:expression", value)
	}
	return c.Add(Metric(strings.TrimSpace(metric)), strings.TrimSpace(expr))
}

// Validate checks every expression and returns one error per invalid entry.
func (c *Criteria) Validate() []error {
	if c == nil {
		return nil
	}

	var errs []error
	for _, group := range c.groups() {
		for i, expr := range group.exprs {
			if err := Check(group.metric, expr); err != nil {
				errs = append(errs, fmt.Errorf("thresholds.%s[%d]: %w", group.metric, i, err))
			}
		}
	}
	return errs
}

type group struct {
	metric Metric
	exprs  []string
}

func (c *Criteria) groups() []group {
	return []group{
		{MetricTaskDuration, c.TaskDuration},
		{MetricTaskFailed, c.TaskFailed},
		{MetricTasks, c.Tasks},
	}
}

// Check validates expr for metric without evaluating it.
func Check(metric Metric, expr string) error {
	e, err := ParseExpression(expr)
	if err != nil {
		return err
	}

	switch metric {
	case MetricTaskDuration:
		if _, ok := latencyStat(metrics.LatencyStats{}, e.Stat); !ok {
			return fmt.Errorf("unknown %s stat: %s", metric, e.Stat)
		}
		if _, err := time.ParseDuration(e.Value); err != nil {
			return fmt.Errorf("invalid duration %q: %w", e.Value, err)
		}
	case MetricTaskFailed:
		if e.Stat != "rate" {
			return fmt.Errorf("%s only supports 'rate', got: %s", metric, e.Stat)
		}
		if _, err := strconv.ParseFloat(e.Value, 64); err != nil {
			return fmt.Errorf("invalid number %q: %w", e.Value, err)
		}
	case MetricTasks:
		if e.Stat != "count" && e.Stat != "rate" {
			return fmt.Errorf("%s only supports 'count' or 'rate', got: %s", metric, e.Stat)
		}
		if _, err := strconv.ParseFloat(e.Value, 64); err != nil {
			return fmt.Errorf("invalid number %q: %w", e.Value, err)
		}
	default:
		return fmt.Errorf("unknown metric: %s", metric)
	}
	return nil
}

// Evaluate checks every configured threshold against m.
func Evaluate(c *Criteria, m Measurements) []Result {
	if c == nil {
		return nil
	}

	var results []Result
	for _, expr := range c.TaskDuration {
		results = append(results, evaluateDuration(expr, m))
	}
	for _, expr := range c.TaskFailed {
		results = append(results, evaluateFailed(expr, m))
	}
	for _, expr := range c.Tasks {
		results = append(results, evaluateTasks(expr, m))
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

func evaluateDuration(expr string, m Measurements) Result {
	result := Result{Metric: MetricTaskDuration, Expression: expr}

	e, err := ParseExpression(expr)
	if err != nil {
		result.Message = fmt.Sprintf("failed to parse expression: %v", err)
		return result
	}

	actual, ok := latencyStat(m.Latency, e.Stat)
	if !ok {
		result.Message = fmt.Sprintf("unknown metric: %s", e.Stat)
		return result
	}

	limit, err := time.ParseDuration(e.Value)
	if err != nil {
		result.Message = fmt.Sprintf("failed to parse threshold value: %v", err)
		return result
	}

	result.Value = actual.String()
	result.Passed = compareValues(float64(actual), e.Op, float64(limit))
	if !result.Passed {
		result.Message = fmt.Sprintf("%s is %s, threshold: %s %s", e.Stat, actual, e.Op, limit)
	}
	return result
}

func evaluateFailed(expr string, m Measurements) Result {
	result := Result{Metric: MetricTaskFailed, Expression: expr}

	e, err := ParseExpression(expr)
	if err != nil {
		result.Message = fmt.Sprintf("failed to parse expression: %v", err)
		return result
	}
	if e.Stat != "rate" {
		result.Message = fmt.Sprintf("task_failed only supports 'rate' metric, got: %s", e.Stat)
		return result
	}

	limit, err := strconv.ParseFloat(e.Value, 64)
	if err != nil {
		result.Message = fmt.Sprintf("failed to parse threshold value: %v", err)
		return result
	}

	result.Value = fmt.Sprintf("%.4f", m.ErrorRate)
	result.Passed = compareValues(m.ErrorRate, e.Op, limit)
	if !result.Passed {
		result.Message = fmt.Sprintf("error rate is %.4f, threshold: %s %.4f", m.ErrorRate, e.Op, limit)
	}
	return result
}

func evaluateTasks(expr string, m Measurements) Result {
	result := Result{Metric: MetricTasks, Expression: expr}

	e, err := ParseExpression(expr)
	if err != nil {
		result.Message = fmt.Sprintf("failed to parse expression: %v", err)
		return result
	}

	limit, err := strconv.ParseFloat(e.Value, 64)
	if err != nil {
		result.Message = fmt.Sprintf("failed to parse threshold value: %v", err)
		return result
	}

	var actual float64
	switch e.Stat {
	case "count":
		actual = float64(m.Count)
	case "rate":
		actual = m.Throughput
	default:
		result.Message = fmt.Sprintf("tasks only supports 'count' or 'rate' metrics, got: %s", e.Stat)
		return result
	}

	result.Value = fmt.Sprintf("%.2f", actual)
	result.Passed = compareValues(actual, e.Op, limit)
	if !result.Passed {
		result.Message = fmt.Sprintf("%s is %.2f, threshold: %s %.2f", e.Stat, actual, e.Op, limit)
	}
	return result
}

func latencyStat(l metrics.LatencyStats, stat string) (time.Duration, bool) {
	switch stat {
	case "min":
		return l.Min, true
	case "max":
		return l.Max, true
	case "avg":
		return l.Mean, true
	case "med", "p50":
		return l.P50, true
	case "p90":
		return l.P90, true
	case "p95":
		return l.P95, true
	case "p99":
		return l.P99, true
	}
	return 0, false
}

// compareValues compares two values using the given operator.
func compareValues(actual float64, op string, limit float64) bool {
	switch op {
	case "<":
		return actual < limit
	case "<=":
		return actual <= limit
	case ">":
		return actual > limit
	case ">=":
		return actual >= limit
	case "==", "=":
		return actual == limit
	case "!=", "<>":
		return actual != limit
	default:
		return false
	}
}
