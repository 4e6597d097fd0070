package sim

import (
	"math"
	"math/rand"
	"testing"

	"takeoff_monitor/internal/models"
)

func TestFallbackHealthyBand(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		rul := FallbackRUL(models.SubsystemEngine, 5, rng)
		if rul < fallbackHealthyBase || rul > fallbackHealthyBase+5 {
			t.Fatalf("healthy-band RUL out of range: %f", rul)
		}
	}
}

func TestFallbackDegradationBand(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	slope := fallbackSlopes[models.SubsystemEngine]
	for i := 0; i < 100; i++ {
		rul := FallbackRUL(models.SubsystemEngine, 15, rng)
		center := fallbackHealthyBase + 3 - slope*5
		if math.Abs(rul-center) > 2.0001 {
			t.Fatalf("degradation-band RUL %f too far from %f", rul, center)
		}
	}
}

func TestFallbackNeverBelowOne(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	subs := append([]models.Subsystem{models.SubsystemEngine, "unknown"}, models.AllSubsystems...)
	for simTime := 0; simTime <= 60; simTime++ {
		for _, sub := range subs {
			if rul := FallbackRUL(sub, simTime, rng); rul < 1 {
				t.Fatalf("FallbackRUL(%s, %d) = %f, want >= 1", sub, simTime, rul)
			}
		}
	}
}
