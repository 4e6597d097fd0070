package models

// Subsystem identifies one independently monitored aircraft subsystem.
type Subsystem string

const (
	SubsystemHydraulic      Subsystem = "hydraulic"
	SubsystemElectrical     Subsystem = "electrical"
	SubsystemControlSurface Subsystem = "control_surface"
	SubsystemCabin          Subsystem = "cabin"
	SubsystemAltimeter      Subsystem = "altimeter"

	// SubsystemEngine is not part of AllSubsystems: the engine is predicted
	// from a flat 24-channel feature vector rather than a time sequence.
	SubsystemEngine Subsystem = "engine"
)

// AllSubsystems lists the sequence-predicted subsystems in display order.
var AllSubsystems = []Subsystem{
	SubsystemHydraulic,
	SubsystemElectrical,
	SubsystemControlSurface,
	SubsystemCabin,
	SubsystemAltimeter,
}

// SubsystemChannels maps each subsystem to the width of its model input rows.
var SubsystemChannels = map[Subsystem]int{
	SubsystemHydraulic:      3,
	SubsystemElectrical:     2,
	SubsystemControlSurface: 1,
	SubsystemCabin:          1,
	SubsystemAltimeter:      1,
}

// ValidSubsystem reports whether name is a predictable subsystem (engine included).
func ValidSubsystem(name Subsystem) bool {
	if name == SubsystemEngine {
		return true
	}
	_, ok := SubsystemChannels[name]
	return ok
}

type RiskTier string

const (
	RiskSafe    RiskTier = "safe"
	RiskWarning RiskTier = "warning"
	RiskDanger  RiskTier = "danger"
)

// EngineSensorReading holds the 24 engine channels: three operational
// settings followed by the 21 sensor channels of a turbofan degradation
// feature vector.
type EngineSensorReading struct {
	OpSetting1 float64 `json:"op_setting_1"`
	OpSetting2 float64 `json:"op_setting_2"`
	OpSetting3 float64 `json:"op_setting_3"`

	FanInletTemp       float64 `json:"fan_inlet_temp"`
	LPCOutletTemp      float64 `json:"lpc_outlet_temp"`
	HPCOutletTemp      float64 `json:"hpc_outlet_temp"`
	LPTOutletTemp      float64 `json:"lpt_outlet_temp"`
	FanInletPressure   float64 `json:"fan_inlet_pressure"`
	BypassDuctPressure float64 `json:"bypass_duct_pressure"`
	HPCOutletPressure  float64 `json:"hpc_outlet_pressure"`
	FanSpeed           float64 `json:"fan_speed"`
	CoreSpeed          float64 `json:"core_speed"`
	EnginePressRatio   float64 `json:"engine_pressure_ratio"`
	HPCStaticPressure  float64 `json:"hpc_static_pressure"`
	FuelFlowRatio      float64 `json:"fuel_flow_ratio"`
	CorrectedFanSpeed  float64 `json:"corrected_fan_speed"`
	CorrectedCoreSpeed float64 `json:"corrected_core_speed"`
	BypassRatio        float64 `json:"bypass_ratio"`
	BurnerFuelAirRatio float64 `json:"burner_fuel_air_ratio"`
	BleedEnthalpy      float64 `json:"bleed_enthalpy"`
	DemandedFanSpeed   float64 `json:"demanded_fan_speed"`
	DemandedCorrFanSpd float64 `json:"demanded_corrected_fan_speed"`
	HPTCoolantBleed    float64 `json:"hpt_coolant_bleed"`
	LPTCoolantBleed    float64 `json:"lpt_coolant_bleed"`
}

// Features flattens the reading into the 24-length vector the inference
// service expects, operational settings first.
func (r EngineSensorReading) Features() []float64 {
	return []float64{
		r.OpSetting1, r.OpSetting2, r.OpSetting3,
		r.FanInletTemp, r.LPCOutletTemp, r.HPCOutletTemp, r.LPTOutletTemp,
		r.FanInletPressure, r.BypassDuctPressure, r.HPCOutletPressure,
		r.FanSpeed, r.CoreSpeed, r.EnginePressRatio, r.HPCStaticPressure,
		r.FuelFlowRatio, r.CorrectedFanSpeed, r.CorrectedCoreSpeed,
		r.BypassRatio, r.BurnerFuelAirRatio, r.BleedEnthalpy,
		r.DemandedFanSpeed, r.DemandedCorrFanSpd,
		r.HPTCoolantBleed, r.LPTCoolantBleed,
	}
}

// SubsystemSensorReading holds the nine subsystem channels. Eight of them
// feed the per-subsystem model inputs; AltimeterDrift is display-only.
type SubsystemSensorReading struct {
	HydraulicPressure float64 `json:"hydraulic_pressure_psi"`
	HydraulicFluidLvl float64 `json:"hydraulic_fluid_level_pct"`
	HydraulicTemp     float64 `json:"hydraulic_temp_c"`
	BusVoltage        float64 `json:"bus_voltage_v"`
	BusCurrent        float64 `json:"bus_current_a"`
	SurfaceResponse   float64 `json:"surface_response"`
	CabinPressure     float64 `json:"cabin_pressure_psi"`
	AltimeterReading  float64 `json:"altimeter_reading_ft"`
	AltimeterDrift    float64 `json:"altimeter_drift_ft"`
}

// Channels returns the model input channels for one subsystem, in the
// fixed order the remote model was trained with.
func (r SubsystemSensorReading) Channels(sub Subsystem) []float64 {
	switch sub {
	case SubsystemHydraulic:
		return []float64{r.HydraulicPressure, r.HydraulicFluidLvl, r.HydraulicTemp}
	case SubsystemElectrical:
		return []float64{r.BusVoltage, r.BusCurrent}
	case SubsystemControlSurface:
		return []float64{r.SurfaceResponse}
	case SubsystemCabin:
		return []float64{r.CabinPressure}
	case SubsystemAltimeter:
		return []float64{r.AltimeterReading}
	}
	return nil
}

// PredictionSource records whether a result came from the remote model or
// the local fallback generator.
type PredictionSource string

const (
	SourceModel    PredictionSource = "model"
	SourceFallback PredictionSource = "fallback"
)

// PredictionResult is one subsystem's RUL estimate for one prediction cycle.
// Results are immutable once created; the next cycle supersedes them.
type PredictionResult struct {
	Subsystem   Subsystem        `json:"subsystem"`
	RUL         float64          `json:"rul"`
	Risk        RiskTier         `json:"risk"`
	StatusLabel string           `json:"status_label"`
	Source      PredictionSource `json:"source"`
	Tick        int              `json:"tick"`
}

// SimPhase is the clock state machine phase.
type SimPhase string

const (
	PhaseIdle    SimPhase = "idle"
	PhaseRunning SimPhase = "running"
	PhasePaused  SimPhase = "paused"
)

// SimState is the control-surface view of the clock.
type SimState struct {
	SessionID string   `json:"session_id,omitempty"`
	Phase     SimPhase `json:"phase"`
	Time      int      `json:"time"`
	Speed     float64  `json:"speed"`
}

// SimulationSnapshot is the unit broadcast to display consumers each tick.
// EngineRisk is the worst tier among the engine's own classification and
// all subsystem classifications.
type SimulationSnapshot struct {
	SessionID        string             `json:"session_id,omitempty"`
	Time             int                `json:"time"`
	Speed            float64            `json:"speed"`
	PhaseLabel       string             `json:"phase_label"`
	IsRunning        bool               `json:"is_running"`
	IsPaused         bool               `json:"is_paused"`
	EngineRisk       RiskTier           `json:"engine_risk"`
	EngineRUL        *float64           `json:"engine_rul"`
	SubsystemResults []PredictionResult `json:"subsystem_results"`
}

// SessionInfo summarizes one recorded simulation run.
type SessionInfo struct {
	ID            string `json:"id"`
	StartedAt     string `json:"started_at"`
	EndedAt       string `json:"ended_at,omitempty"`
	SnapshotCount int    `json:"snapshot_count"`
}
