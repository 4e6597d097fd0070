package sim

import (
	"math"
	"math/rand"
	"testing"

	"takeoff_monitor/internal/models"
)

func TestBuildSequenceShape(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	reading := NewSubsystemReading()

	for _, sub := range models.AllSubsystems {
		seq := BuildSequence(sub, reading, 12, rng)
		if seq == nil {
			t.Fatalf("%s: expected a sequence, got nil", sub)
		}
		if len(seq) != SequenceLength {
			t.Fatalf("%s: expected %d rows, got %d", sub, SequenceLength, len(seq))
		}
		width := models.SubsystemChannels[sub]
		for i, row := range seq {
			if len(row) != width {
				t.Fatalf("%s: row %d has width %d, want %d", sub, i, len(row), width)
			}
			for _, v := range row {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					t.Fatalf("%s: row %d contains non-finite value", sub, i)
				}
			}
		}

		// newest row is the current reading, untouched
		current := reading.Channels(sub)
		last := seq[SequenceLength-1]
		for c := range current {
			if last[c] != current[c] {
				t.Fatalf("%s: last row channel %d = %f, want current %f", sub, c, last[c], current[c])
			}
		}
	}
}

func TestBuildSequenceTrendsHealthierBackwards(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	reading := NewSubsystemReading()
	reading.HydraulicPressure = 2800.0

	seq := BuildSequence(models.SubsystemHydraulic, reading, 30, rng)
	if seq == nil {
		t.Fatalf("expected a sequence")
	}
	oldest := seq[0][0]
	newest := seq[SequenceLength-1][0]
	if oldest <= newest {
		t.Fatalf("oldest sample (%f) should read healthier than newest (%f)", oldest, newest)
	}
}

func TestBuildSequenceRejectsNonFiniteReading(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	reading := NewSubsystemReading()
	reading.HydraulicPressure = math.NaN()

	if seq := BuildSequence(models.SubsystemHydraulic, reading, 6, rng); seq != nil {
		t.Fatalf("expected nil sequence for a NaN reading")
	}
	// other subsystems are unaffected
	if seq := BuildSequence(models.SubsystemCabin, reading, 6, rng); seq == nil {
		t.Fatalf("cabin sequence should still build")
	}
}
