// Package workload simulates a backend call: a random latency, a fixed CPU
// cost and a random chance of failure.
package workload

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSimulatedFailure is returned when a simulated call fails.
var ErrSimulatedFailure = errors.New("simulated backend error")

// LatencyRange is an inclusive range for the simulated delay.
type LatencyRange struct {
	Min time.Duration `json:"min" yaml:"min"`
	Max time.Duration `json:"max" yaml:"max"`
}

// Profile describes the cost and reliability of one simulated call.
type Profile struct {
	// Latency is the range the per-call delay is drawn from.
	Latency LatencyRange `json:"latency" yaml:"latency"`

	// CPUIterations is the size of the CPU burn loop run after the delay.
	CPUIterations int `json:"cpuIterations" yaml:"cpuIterations"`

	// FailureProbability is the chance, in [0, 1], that a call fails.
	FailureProbability float64 `json:"failureProbability" yaml:"failureProbability"`
}

// Validate checks the profile bounds.
func (p Profile) Validate() error {
	if p.Latency.Min < 0 {
		return fmt.Errorf("latency min must be >= 0, got %v", p.Latency.Min)
	}
	if p.Latency.Max < p.Latency.Min {
		return fmt.Errorf("latency min (%v) must not exceed max (%v)", p.Latency.Min, p.Latency.Max)
	}
	if p.CPUIterations < 0 {
		return fmt.Errorf("cpu iterations must be >= 0, got %d", p.CPUIterations)
	}
	if p.FailureProbability < 0 || p.FailureProbability > 1 {
		return fmt.Errorf("failure probability must be within [0, 1], got %v", p.FailureProbability)
	}
	return nil
}

// Accepted is the response of a successful simulated call.
type Accepted[P any] struct {
	RequestID string        `json:"requestId"`
	Payload   P             `json:"payload"`
	Latency   time.Duration `json:"latency"`
}

// Simulator executes simulated calls according to a Profile.
// It is safe for concurrent use.
type Simulator struct {
	profile Profile
	rng     *lockedRand
	sleep   func(time.Duration)
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithSeed makes the random draws reproducible. A zero seed keeps the
// process-global source.
func WithSeed(seed int64) Option {
	return func(s *Simulator) {
		if seed != 0 {
			s.rng = newLockedRand(seed)
		}
	}
}

// WithSleep replaces time.Sleep for the simulated delay.
func WithSleep(sleep func(time.Duration)) Option {
	return func(s *Simulator) {
		s.sleep = sleep
	}
}

// NewSimulator creates a simulator for the given profile.
func NewSimulator(profile Profile, opts ...Option) (*Simulator, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	s := &Simulator{
		profile: profile,
		sleep:   time.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Profile returns the simulator profile.
func (s *Simulator) Profile() Profile {
	return s.profile
}

// Delay draws a delay uniformly from the inclusive latency range.
func (s *Simulator) Delay() time.Duration {
	lo, hi := s.profile.Latency.Min, s.profile.Latency.Max
	if hi <= lo {
		return lo
	}
	span := int64(hi - lo)
	if span == math.MaxInt64 {
		// Int63 already covers [0, MaxInt64].
		return lo + time.Duration(s.int63())
	}
	return lo + time.Duration(s.int63n(span+1))
}

// Fails draws whether a call fails.
func (s *Simulator) Fails() bool {
	return s.randFloat() < s.profile.FailureProbability
}

// Simulate performs one simulated call carrying payload: it waits a random
// delay, burns CPU, then either fails with ErrSimulatedFailure or accepts
// the payload under a fresh request ID.
func Simulate[P any](s *Simulator, payload P) (Accepted[P], error) {
	delay := s.Delay()
	if delay > 0 {
		s.sleep(delay)
	}

	BurnCPU(s.profile.CPUIterations)

	if s.Fails() {
		return Accepted[P]{}, ErrSimulatedFailure
	}

	return Accepted[P]{
		RequestID: uuid.NewString(),
		Payload:   payload,
		Latency:   delay,
	}, nil
}

// BurnCPU runs a fixed arithmetic loop of the given size and returns the
// accumulator so the loop is not optimized away.
func BurnCPU(iterations int) int {
	acc := 0
	for i := 0; i < iterations; i++ {
		acc = (acc*33 + i) % 999983
	}
	return acc
}

// Intn draws from the simulator's random source. Payload factories use it
// so a seeded run is reproducible end to end.
func (s *Simulator) Intn(n int) int {
	return int(s.int63n(int64(n)))
}

func (s *Simulator) int63n(n int64) int64 {
	if s.rng != nil {
		return s.rng.Int63n(n)
	}
	return rand.Int63n(n)
}

func (s *Simulator) int63() int64 {
	if s.rng != nil {
		return s.rng.Int63()
	}
	return rand.Int63()
}

func (s *Simulator) randFloat() float64 {
	if s.rng != nil {
		return s.rng.Float64()
	}
	return rand.Float64()
}

// lockedRand guards a seeded source, which is not safe for concurrent use.
type lockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func newLockedRand(seed int64) *lockedRand {
	return &lockedRand{rnd: rand.New(rand.NewSource(seed))}
}

func (r *lockedRand) Int63n(n int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Int63n(n)
}

func (r *lockedRand) Int63() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Int63()
}

func (r *lockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Float64()
}
