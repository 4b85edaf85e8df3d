package workload

import (
	"fmt"
	"sort"
	"time"
)

// Kind names a built-in workload.
type Kind string

const (
	// KindOrders simulates store purchases.
	KindOrders Kind = "orders"

	// KindUsers simulates user sign-ups.
	KindUsers Kind = "users"
)

// DefaultFailureProbability is the failure chance used by every preset.
const DefaultFailureProbability = 0.05

var presets = map[Kind]Profile{
	KindOrders: {
		Latency:            LatencyRange{Min: 50 * time.Millisecond, Max: 250 * time.Millisecond},
		CPUIterations:      20000,
		FailureProbability: DefaultFailureProbability,
	},
	KindUsers: {
		Latency:            LatencyRange{Min: 20 * time.Millisecond, Max: 100 * time.Millisecond},
		CPUIterations:      5000,
		FailureProbability: DefaultFailureProbability,
	},
}

// Preset returns the default profile for a workload kind.
func Preset(kind Kind) (Profile, error) {
	p, ok := presets[kind]
	if !ok {
		return Profile{}, fmt.Errorf("unknown workload %q (supported: %v)", kind, Kinds())
	}
	return p, nil
}

// Kinds lists the built-in workload kinds.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(presets))
	for k := range presets {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// IsValidKind returns true if kind names a built-in workload.
func IsValidKind(kind string) bool {
	_, ok := presets[Kind(kind)]
	return ok
}
