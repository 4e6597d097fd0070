package sim

import (
	"math"
	"math/rand"

	"takeoff_monitor/internal/models"
)

// SequenceLength is the fixed history window the subsystem models expect.
const SequenceLength = 50

// Per-channel floors the synthetic history may never dip below, keyed by
// subsystem in the same channel order as SubsystemSensorReading.Channels.
var sequenceFloors = map[models.Subsystem][]float64{
	models.SubsystemHydraulic:      {2400.0, 80.0, 0.0},
	models.SubsystemElectrical:     {100.0, 0.0},
	models.SubsystemControlSurface: {0.5},
	models.SubsystemCabin:          {10.0},
	models.SubsystemAltimeter:      {0.0},
}

// BuildSequence synthesizes the 50-sample history ending at the current
// reading. Older samples are linearly healthier (a ~2% spread across the
// window) with per-sample jitter, so the window shows a plausible
// degradation trend toward the present value.
//
// The result is either exactly SequenceLength rows of finite values or nil;
// a nil return means the caller must skip the remote call this cycle.
func BuildSequence(sub models.Subsystem, reading models.SubsystemSensorReading, simTime int, rng *rand.Rand) [][]float64 {
	current := reading.Channels(sub)
	width := models.SubsystemChannels[sub]
	if len(current) != width {
		return nil
	}
	floors := sequenceFloors[sub]

	seq := make([][]float64, SequenceLength)
	for i := 0; i < SequenceLength; i++ {
		age := float64(SequenceLength-1-i) / float64(SequenceLength-1)
		row := make([]float64, width)
		for c := 0; c < width; c++ {
			v := current[c]
			if i < SequenceLength-1 {
				// 2% healthier at the oldest sample, decaying linearly to now.
				v = v * (1 + 0.02*age)
				v += v * 0.003 * (rng.Float64()*2 - 1)
			}
			if v < floors[c] {
				v = floors[c]
			}
			row[c] = v
		}
		seq[i] = row
	}

	if !sequenceFinite(seq, width) {
		return nil
	}
	return seq
}

func sequenceFinite(seq [][]float64, width int) bool {
	if len(seq) != SequenceLength {
		return false
	}
	for _, row := range seq {
		if len(row) != width {
			return false
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
