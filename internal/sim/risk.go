package sim

import "takeoff_monitor/internal/models"

// Risk thresholds. The engine and subsystem scales are intentionally
// different: the engine model was trained on longer cycle horizons.
const (
	engineDangerRUL  = 30
	engineWarningRUL = 80

	subsystemDangerRUL  = 25
	subsystemWarningRUL = 60
)

// ClassifyEngine maps an engine RUL onto a risk tier.
func ClassifyEngine(rul float64) models.RiskTier {
	switch {
	case rul < engineDangerRUL:
		return models.RiskDanger
	case rul < engineWarningRUL:
		return models.RiskWarning
	default:
		return models.RiskSafe
	}
}

// ClassifySubsystem maps a subsystem RUL onto a risk tier.
func ClassifySubsystem(rul float64) models.RiskTier {
	switch {
	case rul < subsystemDangerRUL:
		return models.RiskDanger
	case rul < subsystemWarningRUL:
		return models.RiskWarning
	default:
		return models.RiskSafe
	}
}

// Classify dispatches on the subsystem name.
func Classify(sub models.Subsystem, rul float64) models.RiskTier {
	if sub == models.SubsystemEngine {
		return ClassifyEngine(rul)
	}
	return ClassifySubsystem(rul)
}

var tierSeverity = map[models.RiskTier]int{
	models.RiskSafe:    0,
	models.RiskWarning: 1,
	models.RiskDanger:  2,
}

// WorstTier returns the highest-severity tier among the arguments, safe when
// none are given.
func WorstTier(tiers ...models.RiskTier) models.RiskTier {
	worst := models.RiskSafe
	for _, t := range tiers {
		if tierSeverity[t] > tierSeverity[worst] {
			worst = t
		}
	}
	return worst
}

// StatusLabel is the short status-card text for a tier.
func StatusLabel(t models.RiskTier) string {
	switch t {
	case models.RiskDanger:
		return "REPLACE SOON"
	case models.RiskWarning:
		return "MONITOR"
	default:
		return "OK"
	}
}
