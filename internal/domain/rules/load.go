package rules

import "github.com/MRamiBalles/kairo-condition/internal/domain/athlete"

// Stamina system constants.
const (
	MaxFatigue              = 100.0
	BaseRecoveryPerTick     = 5.0
	BaseFatigueDecay        = 2.0
	FatigueCeilingFactor    = 0.5 // Share of base stamina lost at full fatigue
	SupercompensationRatio  = 0.2 // Of MaxFatigue
	SupercompensationMin    = 0.01
	SupercompensationScale  = 0.01
	OvertrainingDecayPerDay = 0.001
)

// LoadParams are the stamina coefficients of a load class.
type LoadParams struct {
	CostFraction float64 // Of max stamina
	FatigueGain  float64 // Negative for recovery work
	GrowthFactor float64 // Supercompensation accumulation
}

var loadTable = map[athlete.LoadClass]LoadParams{
	athlete.LoadLight:         {CostFraction: 0.05, FatigueGain: 5, GrowthFactor: 0.1},
	athlete.LoadModerate:      {CostFraction: 0.15, FatigueGain: 15, GrowthFactor: 0.3},
	athlete.LoadHighIntensity: {CostFraction: 0.30, FatigueGain: 35, GrowthFactor: 0.6},
	athlete.LoadGame:          {CostFraction: 0.50, FatigueGain: 60, GrowthFactor: 1.0},
	athlete.LoadRecovery:      {CostFraction: 0.01, FatigueGain: -10, GrowthFactor: 0},
}

// LookupLoad returns the stamina coefficients of a load class.
func LookupLoad(l athlete.LoadClass) (LoadParams, bool) {
	p, ok := loadTable[l]
	return p, ok
}

// SupercompensationThreshold is the fatigue below which gains consolidate.
func SupercompensationThreshold() float64 {
	return MaxFatigue * SupercompensationRatio
}

// MaxStamina is the effective stamina ceiling at a fatigue level.
func MaxStamina(baseStamina, fatigue float64) float64 {
	return baseStamina * (1 - (Clamp(fatigue, 0, MaxFatigue)/MaxFatigue)*FatigueCeilingFactor)
}

// FatigueGain scales a load's fatigue by the athlete's resistance.
// Recovery work removes its raw amount.
func FatigueGain(p LoadParams, fatigueResistance float64) float64 {
	if p.FatigueGain < 0 {
		return p.FatigueGain
	}
	return p.FatigueGain * (1 - fatigueResistance/100)
}

// StaminaRecovery is the stamina restored by one tick.
func StaminaRecovery(recoveryRate float64) float64 {
	return BaseRecoveryPerTick * (1 + recoveryRate/100)
}

// FatigueDecay is the fatigue shed by one tick.
func FatigueDecay(fatigueResistance float64) float64 {
	return BaseFatigueDecay * (1 + fatigueResistance/100)
}

// SupercompensationGrowth is the permanent base stamina gain once fatigue drops
// under the threshold.
func SupercompensationGrowth(potential, progress, fatigue float64) float64 {
	return potential * progress * (1 - fatigue/SupercompensationThreshold()) * SupercompensationScale
}
