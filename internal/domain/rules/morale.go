package rules

import "github.com/MRamiBalles/kairo-condition/internal/domain/athlete"

// InitialMorale is where every athlete starts.
const InitialMorale = 50.0

var moraleDeltas = map[athlete.MoraleEvent]float64{
	athlete.EventWin:              15,
	athlete.EventLoss:             -15,
	athlete.EventGreatPerformance: 10,
	athlete.EventPoorPerformance:  -10,
	athlete.EventTrainingSuccess:  5,
	athlete.EventTrainingFailure:  -8,
	athlete.EventRestDay:          3,
	athlete.EventBenchWarm:        -2,
}

// MoraleDelta returns the morale shift of an event.
func MoraleDelta(e athlete.MoraleEvent) (float64, bool) {
	d, ok := moraleDeltas[e]
	return d, ok
}

// MoraleBand maps a morale value onto its band. Bands are closed on the upper bound.
func MoraleBand(value float64) athlete.MoraleState {
	v := Clamp(value, 0, 100)
	switch {
	case v <= 20:
		return athlete.MoraleDreadful
	case v <= 40:
		return athlete.MoralePoor
	case v <= 60:
		return athlete.MoraleNeutral
	case v <= 80:
		return athlete.MoraleGood
	default:
		return athlete.MoraleExcellent
	}
}

// MoraleEffects are the multipliers a morale band applies.
type MoraleEffects struct {
	TrainingEfficiency float64 `json:"training_efficiency"`
	Performance        float64 `json:"performance"`
	InjuryRisk         float64 `json:"injury_risk"`
}

var moraleEffects = map[athlete.MoraleState]MoraleEffects{
	athlete.MoraleDreadful:  {TrainingEfficiency: 0.5, Performance: 0.7, InjuryRisk: 1.5},
	athlete.MoralePoor:      {TrainingEfficiency: 0.8, Performance: 0.9, InjuryRisk: 1.2},
	athlete.MoraleNeutral:   {TrainingEfficiency: 1.0, Performance: 1.0, InjuryRisk: 1.0},
	athlete.MoraleGood:      {TrainingEfficiency: 1.1, Performance: 1.1, InjuryRisk: 0.9},
	athlete.MoraleExcellent: {TrainingEfficiency: 1.3, Performance: 1.2, InjuryRisk: 0.8},
}

// EffectsFor returns the multipliers of a band. Unknown bands are neutral.
func EffectsFor(s athlete.MoraleState) MoraleEffects {
	if e, ok := moraleEffects[s]; ok {
		return e
	}
	return moraleEffects[athlete.MoraleNeutral]
}
