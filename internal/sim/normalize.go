package sim

import (
	"math"
	"math/rand"
)

// NormalizeRUL post-processes a raw model prediction into the bounded RUL
// shown on the dashboard. Time degradation pulls estimates down as the roll
// progresses; a unit jitter keeps consecutive cycles from looking frozen.
//
// A negative raw value is the model signalling imminent failure and is
// mapped into [1, 20]. Implausibly large values (>200) are capped at 150.
// The result is never below 1.
func NormalizeRUL(raw float64, simTime int, rng *rand.Rand) float64 {
	deg := math.Min(float64(simTime)/50.0, 1.0)
	j := rng.Float64()*2 - 1

	switch {
	case raw < 0:
		return math.Max(1, math.Min(20, math.Abs(raw)+j-deg*5))
	case raw > 200:
		return math.Min(raw-deg*20+j, 150)
	default:
		return math.Max(1, raw-deg*10+j)
	}
}
