// Package rules contains the pure calculation logic for player condition and progression.
// This package is PURE and must NOT import any infrastructure packages.
//
// Every balance constant here is tuned game data. Keep the values as they are.
package rules

import (
	"math"

	"github.com/MRamiBalles/kairo-condition/internal/domain/athlete"
)

// AttributeWeight is one attribute touched by a drill and how strongly.
type AttributeWeight struct {
	Attribute athlete.Attribute
	Weight    float64
}

// DrillSpec is the fixed balance entry of a drill.
type DrillSpec struct {
	Weights []AttributeWeight // Primary first
	Load    athlete.LoadClass
}

var drillTable = map[athlete.Drill]DrillSpec{
	athlete.WeightLifting: {
		Weights: []AttributeWeight{{athlete.Strength, 2.0}, {athlete.Stamina, 0.5}},
		Load:    athlete.LoadModerate,
	},
	athlete.SprintDrills: {
		Weights: []AttributeWeight{{athlete.Speed, 1.5}, {athlete.Stamina, 1.5}},
		Load:    athlete.LoadHighIntensity,
	},
	athlete.Plyometrics: {
		Weights: []AttributeWeight{{athlete.Jumping, 1.8}, {athlete.Speed, 0.8}},
		Load:    athlete.LoadHighIntensity,
	},
	athlete.ShootingPractice: {
		Weights: []AttributeWeight{{athlete.Shooting, 2.0}, {athlete.Clutch, 0.5}},
		Load:    athlete.LoadLight,
	},
	athlete.BallHandling: {
		Weights: []AttributeWeight{{athlete.Dribbling, 1.8}, {athlete.Passing, 1.0}},
		Load:    athlete.LoadLight,
	},
	athlete.FinishingDrills: {
		Weights: []AttributeWeight{{athlete.Finishing, 2.0}, {athlete.Strength, 0.5}},
		Load:    athlete.LoadModerate,
	},
	athlete.DefensiveFootwork: {
		Weights: []AttributeWeight{{athlete.PerimeterDefense, 1.8}, {athlete.Speed, 0.5}},
		Load:    athlete.LoadModerate,
	},
	athlete.PostDefense: {
		Weights: []AttributeWeight{{athlete.InteriorDefense, 1.8}, {athlete.Rebounding, 1.0}, {athlete.Strength, 0.5}},
		Load:    athlete.LoadModerate,
	},
	athlete.FilmStudy: {
		Weights: []AttributeWeight{{athlete.IQ, 2.0}, {athlete.Passing, 0.5}, {athlete.Clutch, 0.5}},
		Load:    athlete.LoadLight,
	},
	athlete.Scrimmage:       {Load: athlete.LoadGame},
	athlete.RecoverySession: {Load: athlete.LoadRecovery},
}

// LookupDrill returns the balance entry of a drill.
// The returned weights slice is a copy.
func LookupDrill(d athlete.Drill) (DrillSpec, bool) {
	spec, ok := drillTable[d]
	if !ok {
		return DrillSpec{}, false
	}
	spec.Weights = append([]AttributeWeight(nil), spec.Weights...)
	return spec, true
}

// Clamp bounds v to [lo, hi]. NaN collapses to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// BaseGrowth is the raw growth of one session before age and difficulty.
func BaseGrowth(intensity, potential float64) float64 {
	return 0.5 * Clamp(intensity, 0, 1) * (0.5 + Clamp(potential, 0, 1))
}

// AgeModifier favours young players and penalises veterans.
func AgeModifier(age int) float64 {
	switch {
	case age <= 24:
		return 1.5
	case age >= 30:
		return 0.75
	default:
		return 1.0
	}
}

// Difficulty gives diminishing returns as an attribute approaches 100.
// At 100 the factor is 0.2, but the clamp keeps the attribute capped.
func Difficulty(current float64) float64 {
	return 1 - (Clamp(current, 0, 100)/100)*0.8
}

// GrowthDelta is the change applied to one attribute by one session.
func GrowthDelta(baseGrowth float64, age int, current, weight float64) float64 {
	return baseGrowth * AgeModifier(age) * Difficulty(current) * weight
}

// DecayFactor is the yearly multiplier applied to physical attributes at a given age.
func DecayFactor(age int) float64 {
	switch {
	case age >= 38:
		return 0.97
	case age >= 35:
		return 0.985
	case age >= 30:
		return 0.995
	default:
		return 1.0
	}
}

// AgingGroup says how an attribute responds to yearly decay.
type AgingGroup int

const (
	AgingNone      AgingGroup = iota // Mental, defensive and finishing skills hold
	AgingPhysical                    // Full decay
	AgingTechnical                   // Half decay
)

// AgingGroupOf classifies an attribute for aging.
func AgingGroupOf(a athlete.Attribute) AgingGroup {
	switch a {
	case athlete.Strength, athlete.Speed, athlete.Stamina, athlete.Jumping:
		return AgingPhysical
	case athlete.Shooting, athlete.Dribbling, athlete.Passing:
		return AgingTechnical
	default:
		return AgingNone
	}
}

// AgedValue applies one year of decay to an attribute value.
func AgedValue(a athlete.Attribute, value float64, decay float64) float64 {
	switch AgingGroupOf(a) {
	case AgingPhysical:
		return value * decay
	case AgingTechnical:
		return value * (1 - (1-decay)*0.5)
	default:
		return value
	}
}
