package workload

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(time.Duration) {}

func TestProfile_Validate(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		wantErr bool
	}{
		{"zero profile", Profile{}, false},
		{"orders preset", presets[KindOrders], false},
		{"fixed latency", Profile{Latency: LatencyRange{Min: 5 * time.Millisecond, Max: 5 * time.Millisecond}}, false},
		{"negative min", Profile{Latency: LatencyRange{Min: -1, Max: 10}}, true},
		{"min above max", Profile{Latency: LatencyRange{Min: 20, Max: 10}}, true},
		{"negative iterations", Profile{CPUIterations: -1}, true},
		{"probability below zero", Profile{FailureProbability: -0.1}, true},
		{"probability above one", Profile{FailureProbability: 1.5}, true},
		{"probability one", Profile{FailureProbability: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.profile.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewSimulator_RejectsInvalidProfile(t *testing.T) {
	_, err := NewSimulator(Profile{FailureProbability: 2})
	assert.Error(t, err)
}

func TestBurnCPU(t *testing.T) {
	assert.Equal(t, 0, BurnCPU(0))
	assert.Equal(t, 0, BurnCPU(1))
	// acc: 0 -> 0 -> 1 -> 35
	assert.Equal(t, 35, BurnCPU(3))
	assert.Equal(t, BurnCPU(20000), BurnCPU(20000))
	assert.Less(t, BurnCPU(20000), 999983)
}

func TestSimulator_DelayWithinRange(t *testing.T) {
	s, err := NewSimulator(Profile{Latency: LatencyRange{Min: 10 * time.Millisecond, Max: 12 * time.Millisecond}}, WithSeed(7))
	require.NoError(t, err)

	for i := 0; i < 1000; i++ {
		d := s.Delay()
		require.GreaterOrEqual(t, d, 10*time.Millisecond)
		require.LessOrEqual(t, d, 12*time.Millisecond)
	}
}

func TestSimulator_DelayFullRange(t *testing.T) {
	for _, seed := range []int64{0, 3} {
		s, err := NewSimulator(Profile{Latency: LatencyRange{Min: 0, Max: math.MaxInt64}}, WithSeed(seed), WithSleep(noSleep))
		require.NoError(t, err)

		for i := 0; i < 100; i++ {
			assert.GreaterOrEqual(t, s.Delay(), time.Duration(0))
		}
		_, err = Simulate(s, "order")
		assert.NoError(t, err)
	}
}

func TestSimulator_FixedDelay(t *testing.T) {
	s, err := NewSimulator(Profile{Latency: LatencyRange{Min: 3 * time.Millisecond, Max: 3 * time.Millisecond}})
	require.NoError(t, err)
	assert.Equal(t, 3*time.Millisecond, s.Delay())
}

func TestSimulate_Deterministic(t *testing.T) {
	tests := []struct {
		name        string
		probability float64
		wantErr     error
	}{
		{"never fails", 0, nil},
		{"always fails", 1, ErrSimulatedFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSimulator(Profile{FailureProbability: tt.probability}, WithSleep(noSleep))
			require.NoError(t, err)

			for i := 0; i < 200; i++ {
				res, err := Simulate(s, i)
				if tt.wantErr != nil {
					require.ErrorIs(t, err, tt.wantErr)
					assert.Equal(t, "simulated backend error", err.Error())
					continue
				}
				require.NoError(t, err)
				assert.Equal(t, i, res.Payload)
				_, parseErr := uuid.Parse(res.RequestID)
				assert.NoError(t, parseErr)
			}
		})
	}
}

func TestSimulate_SleepsForDrawnDelay(t *testing.T) {
	var mu sync.Mutex
	var slept []time.Duration
	sleep := func(d time.Duration) {
		mu.Lock()
		slept = append(slept, d)
		mu.Unlock()
	}

	s, err := NewSimulator(Profile{Latency: LatencyRange{Min: time.Millisecond, Max: 5 * time.Millisecond}}, WithSleep(sleep), WithSeed(1))
	require.NoError(t, err)

	res, err := Simulate(s, "payload")
	require.NoError(t, err)

	require.Len(t, slept, 1)
	assert.Equal(t, slept[0], res.Latency)
}

func TestSimulate_ZeroLatencyDoesNotSleep(t *testing.T) {
	called := false
	s, err := NewSimulator(Profile{}, WithSleep(func(time.Duration) { called = true }))
	require.NoError(t, err)

	_, err = Simulate(s, struct{}{})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestSimulate_RealLatency(t *testing.T) {
	s, err := NewSimulator(Profile{Latency: LatencyRange{Min: 5 * time.Millisecond, Max: 10 * time.Millisecond}})
	require.NoError(t, err)

	start := time.Now()
	res, err := Simulate(s, 1)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, elapsed, 5*time.Millisecond)
	assert.GreaterOrEqual(t, elapsed, res.Latency)
}

func TestSimulate_FailureRate(t *testing.T) {
	s, err := NewSimulator(Profile{FailureProbability: 0.05}, WithSleep(noSleep))
	require.NoError(t, err)

	const n = 10000
	failures := 0
	for i := 0; i < n; i++ {
		if _, err := Simulate(s, i); errors.Is(err, ErrSimulatedFailure) {
			failures++
		}
	}

	rate := float64(failures) / n
	assert.InDelta(t, 0.05, rate, 0.02)
}

func TestSimulate_SeededIsReproducible(t *testing.T) {
	draw := func() []time.Duration {
		s, err := NewSimulator(Profile{Latency: LatencyRange{Min: 0, Max: time.Second}}, WithSeed(42))
		require.NoError(t, err)
		out := make([]time.Duration, 20)
		for i := range out {
			out[i] = s.Delay()
		}
		return out
	}

	assert.Equal(t, draw(), draw())
}

func TestSimulator_ConcurrentUse(t *testing.T) {
	s, err := NewSimulator(Profile{Latency: LatencyRange{Max: time.Millisecond}, FailureProbability: 0.5}, WithSeed(3), WithSleep(noSleep))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				_, _ = Simulate(s, i)
				_ = s.Intn(10)
			}
		}()
	}
	wg.Wait()
}

func TestPreset(t *testing.T) {
	orders, err := Preset(KindOrders)
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, orders.Latency.Min)
	assert.Equal(t, 250*time.Millisecond, orders.Latency.Max)
	assert.Equal(t, 20000, orders.CPUIterations)
	assert.Equal(t, 0.05, orders.FailureProbability)

	users, err := Preset(KindUsers)
	require.NoError(t, err)
	assert.Equal(t, 20*time.Millisecond, users.Latency.Min)
	assert.Equal(t, 100*time.Millisecond, users.Latency.Max)
	assert.Equal(t, 5000, users.CPUIterations)

	_, err = Preset("refunds")
	assert.Error(t, err)

	assert.Equal(t, []Kind{KindOrders, KindUsers}, Kinds())
	assert.True(t, IsValidKind("users"))
	assert.False(t, IsValidKind("refunds"))
}
