package sim

import (
	"math/rand"

	"takeoff_monitor/internal/models"
)

// Per-subsystem degradation slopes (RUL lost per simulated second) used by
// the synthetic generator when the inference service is unreachable.
var fallbackSlopes = map[models.Subsystem]float64{
	models.SubsystemEngine:         2.8,
	models.SubsystemHydraulic:      2.4,
	models.SubsystemElectrical:     1.8,
	models.SubsystemControlSurface: 1.5,
	models.SubsystemCabin:          1.2,
	models.SubsystemAltimeter:      2.0,
}

const (
	fallbackHealthyUntil  = 10
	fallbackCriticalAfter = 20
	fallbackHealthyBase   = 115.0
)

// FallbackRUL yields a deterministic-looking synthetic RUL keyed on
// simulation time bands: healthy early roll, linear degradation through the
// mid roll, then a steeper critical phase with per-subsystem failure rolls.
// It never fails and always returns a value >= 1.
func FallbackRUL(sub models.Subsystem, simTime int, rng *rand.Rand) float64 {
	slope, ok := fallbackSlopes[sub]
	if !ok {
		slope = 2.0
	}

	var rul float64
	switch {
	case simTime <= fallbackHealthyUntil:
		rul = fallbackHealthyBase + rng.Float64()*5
	case simTime <= fallbackCriticalAfter:
		over := float64(simTime - fallbackHealthyUntil)
		rul = fallbackHealthyBase + 3 - slope*over + (rng.Float64()*4 - 2)
	default:
		over := float64(simTime - fallbackCriticalAfter)
		rul = fallbackHealthyBase + 3 - slope*10 - 2*slope*over + (rng.Float64()*4 - 2)
		failP := 0.04 + 0.007*over
		if failP > 0.25 {
			failP = 0.25
		}
		if rng.Float64() < failP {
			rul = 1 + rng.Float64()*19
		}
	}

	if rul < 1 {
		rul = 1
	}
	return rul
}
