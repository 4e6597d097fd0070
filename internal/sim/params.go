package sim

import (
	"math/rand"

	"takeoff_monitor/internal/models"
)

// Ramp profiles driving the per-channel targets. Throttle reaches full
// position 10 seconds into the roll; accumulated mechanical stress keeps
// building until rotation speed at 45 seconds.
const (
	throttleRampSeconds = 10.0
	stressRampSeconds   = 45.0
)

func throttlePosition(elapsed int) float64 {
	return ramp(elapsed, throttleRampSeconds)
}

func stressFactor(elapsed int) float64 {
	return ramp(elapsed, stressRampSeconds)
}

func ramp(elapsed int, span float64) float64 {
	if elapsed <= 0 {
		return 0
	}
	f := float64(elapsed) / span
	if f > 1 {
		return 1
	}
	return f
}

// NewEngineReading returns the idle-state engine reading the roll starts from.
func NewEngineReading() models.EngineSensorReading {
	return models.EngineSensorReading{
		OpSetting3:         100,
		FanInletTemp:       518.67,
		LPCOutletTemp:      641.8,
		HPCOutletTemp:      1580.5,
		LPTOutletTemp:      1398.9,
		FanInletPressure:   14.62,
		BypassDuctPressure: 21.61,
		HPCOutletPressure:  551.4,
		FanSpeed:           2388.0,
		CoreSpeed:          9050.2,
		EnginePressRatio:   1.3,
		HPCStaticPressure:  47.2,
		FuelFlowRatio:      521.7,
		CorrectedFanSpeed:  2388.0,
		CorrectedCoreSpeed: 8128.7,
		BypassRatio:        8.42,
		BurnerFuelAirRatio: 0.03,
		BleedEnthalpy:      391.5,
		DemandedFanSpeed:   2388.0,
		DemandedCorrFanSpd: 100.0,
		HPTCoolantBleed:    39.0,
		LPTCoolantBleed:    23.42,
	}
}

// NewSubsystemReading returns the idle-state subsystem reading.
func NewSubsystemReading() models.SubsystemSensorReading {
	return models.SubsystemSensorReading{
		HydraulicPressure: 3000.0,
		HydraulicFluidLvl: 100.0,
		HydraulicTemp:     45.0,
		BusVoltage:        115.0,
		BusCurrent:        82.0,
		SurfaceResponse:   1.0,
		CabinPressure:     11.8,
		AltimeterReading:  0.0,
		AltimeterDrift:    0.0,
	}
}

// AdvanceEngine produces the next engine reading for the given simulation
// time. Each channel is pulled halfway toward its throttle- or
// stress-driven target, clamped to its physical range, then jittered.
// Operational settings carry no jitter so the feature vector stays stable
// for the model.
func AdvanceEngine(prev models.EngineSensorReading, elapsed int, rng *rand.Rand) models.EngineSensorReading {
	tp := throttlePosition(elapsed)
	sf := stressFactor(elapsed)
	next := prev

	next.OpSetting1 = approach(prev.OpSetting1, 0.0023*tp, 0, 0.0023)
	next.OpSetting2 = approach(prev.OpSetting2, 0.0003*tp, 0, 0.0003)
	next.OpSetting3 = 100

	next.FanInletTemp = jitter(approach(prev.FanInletTemp, 518.67, 518.0, 519.5), rng)
	next.LPCOutletTemp = jitter(approach(prev.LPCOutletTemp, 641.8+2.6*sf, 640.0, 645.0), rng)
	next.HPCOutletTemp = jitter(approach(prev.HPCOutletTemp, 1580.5+28.0*sf, 1570.0, 1615.0), rng)
	next.LPTOutletTemp = jitter(approach(prev.LPTOutletTemp, 1398.9+38.0*sf, 1380.0, 1445.0), rng)
	next.FanInletPressure = jitter(approach(prev.FanInletPressure, 14.62, 14.5, 14.75), rng)
	next.BypassDuctPressure = jitter(approach(prev.BypassDuctPressure, 21.61+0.05*tp, 21.5, 21.75), rng)
	next.HPCOutletPressure = jitter(approach(prev.HPCOutletPressure, 551.4+4.8*tp, 548.0, 558.0), rng)
	next.FanSpeed = jitter(approach(prev.FanSpeed, 2388.0+3.4*tp, 2380.0, 2395.0), rng)
	next.CoreSpeed = jitter(approach(prev.CoreSpeed, 9050.2+32.0*tp, 9040.0, 9090.0), rng)
	next.EnginePressRatio = jitter(approach(prev.EnginePressRatio, 1.3, 1.28, 1.32), rng)
	next.HPCStaticPressure = jitter(approach(prev.HPCStaticPressure, 47.2+0.45*sf, 46.8, 47.9), rng)
	next.FuelFlowRatio = jitter(approach(prev.FuelFlowRatio, 521.7+2.2*tp, 518.0, 525.0), rng)
	next.CorrectedFanSpeed = jitter(approach(prev.CorrectedFanSpeed, 2388.0+0.6*tp, 2386.0, 2391.0), rng)
	next.CorrectedCoreSpeed = jitter(approach(prev.CorrectedCoreSpeed, 8128.7+10.5*tp, 8120.0, 8145.0), rng)
	next.BypassRatio = jitter(approach(prev.BypassRatio, 8.42+0.05*sf, 8.38, 8.5), rng)
	next.BurnerFuelAirRatio = jitter(approach(prev.BurnerFuelAirRatio, 0.03, 0.029, 0.031), rng)
	next.BleedEnthalpy = jitter(approach(prev.BleedEnthalpy, 391.5+2.8*sf, 390.0, 396.0), rng)
	next.DemandedFanSpeed = jitter(approach(prev.DemandedFanSpeed, 2388.0, 2387.0, 2389.0), rng)
	next.DemandedCorrFanSpd = jitter(approach(prev.DemandedCorrFanSpd, 100.0, 99.5, 100.5), rng)
	// Coolant bleed flows sag as the pumps wear under sustained load.
	next.HPTCoolantBleed = jitter(approach(prev.HPTCoolantBleed, 39.0-0.45*sf, 38.3, 39.3), rng)
	next.LPTCoolantBleed = jitter(approach(prev.LPTCoolantBleed, 23.42-0.25*sf, 23.0, 23.6), rng)

	return next
}

// AdvanceSubsystems produces the next subsystem reading for the given
// simulation time.
func AdvanceSubsystems(prev models.SubsystemSensorReading, elapsed int, rng *rand.Rand) models.SubsystemSensorReading {
	tp := throttlePosition(elapsed)
	sf := stressFactor(elapsed)
	next := prev

	// Hydraulic pressure and fluid bleed down under accumulated stress.
	next.HydraulicPressure = jitter(approach(prev.HydraulicPressure, 3000.0-145.0*sf, 2400.0, 3050.0), rng)
	next.HydraulicFluidLvl = jitter(approach(prev.HydraulicFluidLvl, 100.0-5.5*sf, 80.0, 100.0), rng)
	next.HydraulicTemp = jitter(approach(prev.HydraulicTemp, 45.0+29.0*sf, 40.0, 80.0), rng)
	next.BusVoltage = jitter(approach(prev.BusVoltage, 115.0-2.4*sf, 108.0, 116.0), rng)
	next.BusCurrent = jitter(approach(prev.BusCurrent, 82.0+56.0*tp, 75.0, 145.0), rng)
	next.SurfaceResponse = jitter(approach(prev.SurfaceResponse, 1.0-0.07*sf, 0.85, 1.0), rng)
	next.CabinPressure = jitter(approach(prev.CabinPressure, 11.8-0.55*sf, 11.0, 12.0), rng)
	next.AltimeterReading = jitter(approach(prev.AltimeterReading, 1500.0*sf*sf, 0.0, 1600.0), rng)
	next.AltimeterDrift = clamp(prev.AltimeterDrift+(rng.Float64()*2-1)*1.5, -8.0, 8.0)

	return next
}

// approach pulls value halfway toward target and clamps it.
func approach(value, target, min, max float64) float64 {
	return clamp(value+(target-value)*0.5, min, max)
}

// jitter applies +/-0.5%-1% multiplicative noise.
func jitter(v float64, rng *rand.Rand) float64 {
	mag := 0.005 + rng.Float64()*0.005
	if rng.Float64() < 0.5 {
		mag = -mag
	}
	return v * (1 + mag)
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
