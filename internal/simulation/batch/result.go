package batch

import (
	"sort"
	"time"

	"github.com/juancast26/storesim/internal/simulation/executor"
	"github.com/juancast26/storesim/internal/simulation/workload"
)

// Result is the aggregate of one batch run. Successes + Failures always
// equals the number of tasks.
type Result[P any] struct {
	Config     RunConfig
	Successes  int
	Failures   int
	Elapsed    time.Duration
	Throughput float64 // successes per second
	Workers    int     // effective concurrency

	// Outcomes is index-aligned with the submitted tasks.
	Outcomes []executor.Outcome[workload.Accepted[P]]
}

// Summary is the payload-independent view of a Result.
type Summary struct {
	Tasks          int            `json:"tasks"`
	Concurrency    int            `json:"concurrency"`
	Workers        int            `json:"workers"`
	Successes      int            `json:"successes"`
	Failures       int            `json:"failures"`
	ElapsedMs      int64          `json:"elapsedMs"`
	Throughput     float64        `json:"throughput"`
	ErrorRate      float64        `json:"errorRate"`
	FailureReasons []FailureCount `json:"failureReasons,omitempty"`
}

// FailureCount is the number of tasks that failed with one reason.
type FailureCount struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

func reduce[P any](cfg RunConfig, outcomes []executor.Outcome[workload.Accepted[P]], elapsed time.Duration, workers int) *Result[P] {
	r := &Result[P]{
		Config:   cfg,
		Elapsed:  elapsed,
		Workers:  workers,
		Outcomes: outcomes,
	}

	for _, o := range outcomes {
		if o.Success() {
			r.Successes++
		} else {
			r.Failures++
		}
	}

	// Same time base as ElapsedMillis, so a sub-millisecond run reports 0.
	if ms := r.ElapsedMillis(); ms > 0 && r.Successes > 0 {
		r.Throughput = float64(r.Successes) / (float64(ms) / 1000)
	}

	return r
}

// Total returns the number of tasks run.
func (r *Result[P]) Total() int {
	return r.Successes + r.Failures
}

// ElapsedMillis returns the elapsed time in whole milliseconds.
func (r *Result[P]) ElapsedMillis() int64 {
	return r.Elapsed.Milliseconds()
}

// ErrorRate returns the fraction of failed tasks.
func (r *Result[P]) ErrorRate() float64 {
	if r.Total() == 0 {
		return 0
	}
	return float64(r.Failures) / float64(r.Total())
}

// Accepted returns the responses of successful tasks in task order.
func (r *Result[P]) Accepted() []workload.Accepted[P] {
	out := make([]workload.Accepted[P], 0, r.Successes)
	for _, o := range r.Outcomes {
		if o.Success() {
			out = append(out, o.Value)
		}
	}
	return out
}

// FailureReasons counts failed tasks by error message, most frequent first.
func (r *Result[P]) FailureReasons() []FailureCount {
	counts := make(map[string]int)
	for _, o := range r.Outcomes {
		if o.Err != nil {
			counts[o.Err.Error()]++
		}
	}

	reasons := make([]FailureCount, 0, len(counts))
	for reason, n := range counts {
		reasons = append(reasons, FailureCount{Reason: reason, Count: n})
	}
	sort.Slice(reasons, func(i, j int) bool {
		if reasons[i].Count != reasons[j].Count {
			return reasons[i].Count > reasons[j].Count
		}
		return reasons[i].Reason < reasons[j].Reason
	})
	return reasons
}

// Summary returns the payload-independent view of the result.
func (r *Result[P]) Summary() Summary {
	return Summary{
		Tasks:          r.Total(),
		Concurrency:    r.Config.Concurrency,
		Workers:        r.Workers,
		Successes:      r.Successes,
		Failures:       r.Failures,
		ElapsedMs:      r.ElapsedMillis(),
		Throughput:     r.Throughput,
		ErrorRate:      r.ErrorRate(),
		FailureReasons: r.FailureReasons(),
	}
}
