package rules

import (
	"math"

	"github.com/MRamiBalles/kairo-condition/internal/domain/athlete"
)

// Injury risk constants.
const (
	BaseInjuryChance      = 0.005
	FatigueRiskMultiplier = 1.15 // Per 10 fatigue
	LoadRiskMultiplier    = 1.1  // Per 10 load
	DurabilityRiskDivisor = 1.05 // Per 10 durability
	ChronicRiskPerInjury  = 0.01
	MaxInjuryChance       = 0.5
	ChronicProbability    = 0.1
	MinInjurySeverity     = 40
	MaxInjurySeverity     = 100
)

// PlayerCondition is the per-cycle snapshot the injury model reads.
type PlayerCondition struct {
	Fatigue                float64 `json:"fatigue"`         // 0-100
	LoadManagement         float64 `json:"load_management"` // 0-100
	Durability             float64 `json:"durability"`      // 0-100
	RecoveryRateMultiplier float64 `json:"recovery_rate_multiplier"`
}

// Normalize clamps every field into its documented range.
// A non-positive recovery multiplier falls back to 1.
func (c PlayerCondition) Normalize() PlayerCondition {
	c.Fatigue = Clamp(c.Fatigue, 0, 100)
	c.LoadManagement = Clamp(c.LoadManagement, 0, 100)
	c.Durability = Clamp(c.Durability, 0, 100)
	if math.IsNaN(c.RecoveryRateMultiplier) || c.RecoveryRateMultiplier <= 0 {
		c.RecoveryRateMultiplier = 1
	}
	return c
}

// InjuryChance is the probability of getting hurt this cycle, in [0, MaxInjuryChance].
func InjuryChance(c PlayerCondition, chronicCount int) float64 {
	c = c.Normalize()
	if chronicCount < 0 {
		chronicCount = 0
	}
	chance := BaseInjuryChance
	chance *= math.Pow(FatigueRiskMultiplier, math.Floor(c.Fatigue/10))
	chance *= math.Pow(LoadRiskMultiplier, math.Floor(c.LoadManagement/10))
	chance /= math.Pow(DurabilityRiskDivisor, math.Floor(c.Durability/10))
	chance += ChronicRiskPerInjury * float64(chronicCount)
	return Clamp(chance, 0, MaxInjuryChance)
}

// InjuryProfile is the fixed balance entry of an injury class.
type InjuryProfile struct {
	MinDays   int
	MaxDays   int
	Reduction float64 // Training effect penalty at severity 100
}

var injuryTable = map[athlete.InjuryType]InjuryProfile{
	athlete.MinorStrain:     {MinDays: 1, MaxDays: 3, Reduction: -0.10},
	athlete.ModerateSprain:  {MinDays: 4, MaxDays: 10, Reduction: -0.30},
	athlete.SevereTear:      {MinDays: 11, MaxDays: 30, Reduction: -0.60},
	athlete.FatigueFracture: {MinDays: 30, MaxDays: 90, Reduction: -0.80},
	athlete.Concussion:      {MinDays: 7, MaxDays: 21, Reduction: -0.50},
}

// LookupInjury returns the balance entry of an injury class.
func LookupInjury(t athlete.InjuryType) (InjuryProfile, bool) {
	p, ok := injuryTable[t]
	return p, ok
}

// PickIndex maps a uniform [0,1) draw onto an index in [0, n).
func PickIndex(r float64, n int) int {
	if n <= 0 {
		return 0
	}
	i := int(math.Floor(Clamp(r, 0, 1) * float64(n)))
	if i >= n {
		i = n - 1
	}
	return i
}

// SeverityFromRoll maps a uniform [0,1) draw onto an integer severity in [40,100].
func SeverityFromRoll(r float64) int {
	return MinInjurySeverity + PickIndex(r, MaxInjurySeverity-MinInjurySeverity+1)
}

// SeverityScale stretches recovery time for severe injuries: 0.95 at 40, 1.25 at 100.
func SeverityScale(severity int) float64 {
	return float64(severity)/100*0.5 + 0.75
}

// RecoveryDays draws a whole number of base days in [MinDays, MaxDays] from a
// uniform [0,1) roll and scales it by severity.
func RecoveryDays(p InjuryProfile, severity int, r float64) int {
	base := p.MinDays + PickIndex(r, p.MaxDays-p.MinDays+1)
	return int(math.Round(float64(base) * SeverityScale(severity)))
}

// InjuryPenalty is the signed training penalty of one injury.
func InjuryPenalty(inj athlete.Injury) float64 {
	p, ok := injuryTable[inj.Type]
	if !ok {
		return 0
	}
	return p.Reduction * float64(inj.Severity) / 100
}

// TrainingMultiplier is 1 plus the worst penalty among the injuries.
func TrainingMultiplier(injuries []athlete.Injury) float64 {
	worst := 0.0
	for _, inj := range injuries {
		if pen := InjuryPenalty(inj); pen < worst {
			worst = pen
		}
	}
	return 1 + worst
}

// RecoverySpeed is how many recovery days elapse per simulated day.
func RecoverySpeed(c PlayerCondition) float64 {
	c = c.Normalize()
	return (1 + c.Durability/100*0.5) * c.RecoveryRateMultiplier
}
