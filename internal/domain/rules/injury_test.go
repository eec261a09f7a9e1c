package rules

import (
	"math"
	"testing"

	"github.com/MRamiBalles/kairo-condition/internal/domain/athlete"
)

func TestInjuryChanceBaseline(t *testing.T) {
	got := InjuryChance(PlayerCondition{}, 0)
	if !approx(got, 0.005) {
		t.Errorf("Expected baseline 0.005, got %v", got)
	}

	tired := InjuryChance(PlayerCondition{Fatigue: 100, LoadManagement: 100}, 0)
	want := 0.005 * math.Pow(1.15, 10) * math.Pow(1.1, 10)
	if !approx(tired, want) {
		t.Errorf("Expected %v at full fatigue and load, got %v", want, tired)
	}

	sturdy := InjuryChance(PlayerCondition{Durability: 100}, 0)
	if !approx(sturdy, 0.005/math.Pow(1.05, 10)) {
		t.Errorf("Durability should divide the chance, got %v", sturdy)
	}

	chronic := InjuryChance(PlayerCondition{}, 2)
	if !approx(chronic, 0.025) {
		t.Errorf("Expected 0.025 with two chronic injuries, got %v", chronic)
	}
}

func TestInjuryChanceBounded(t *testing.T) {
	inputs := []float64{-50, 0, 9.99, 10, 55, 100, 250, math.NaN()}
	for _, f := range inputs {
		for _, l := range inputs {
			for _, d := range inputs {
				for _, chronic := range []int{-1, 0, 3, 100} {
					c := PlayerCondition{Fatigue: f, LoadManagement: l, Durability: d}
					got := InjuryChance(c, chronic)
					if got < 0 || got > MaxInjuryChance || math.IsNaN(got) {
						t.Fatalf("InjuryChance(%+v, %d) = %v out of range", c, chronic, got)
					}
				}
			}
		}
	}
}

func TestSeverityFromRoll(t *testing.T) {
	tests := []struct {
		roll float64
		want int
	}{
		{0, 40},
		{0.5, 70},
		{0.99999, 100},
		{1, 100},
		{-3, 40},
	}
	for _, tc := range tests {
		if got := SeverityFromRoll(tc.roll); got != tc.want {
			t.Errorf("SeverityFromRoll(%v) = %d, want %d", tc.roll, got, tc.want)
		}
	}
}

func TestRecoveryDaysScaling(t *testing.T) {
	minor, _ := LookupInjury(athlete.MinorStrain)
	if got := RecoveryDays(minor, 40, 0); got != 1 {
		t.Errorf("Expected 1 day for a light minor strain, got %d", got)
	}
	if got := RecoveryDays(minor, 100, 0.99); got != 4 {
		t.Errorf("Expected 4 days for a maximal minor strain, got %d", got)
	}

	fracture, _ := LookupInjury(athlete.FatigueFracture)
	if got := RecoveryDays(fracture, 100, 0.999); got != 113 {
		t.Errorf("Expected 113 days for a maximal fracture, got %d", got)
	}
}

func TestTrainingMultiplierPicksWorst(t *testing.T) {
	if TrainingMultiplier(nil) != 1 {
		t.Error("Expected multiplier 1 without injuries")
	}
	injuries := []athlete.Injury{
		{Type: athlete.MinorStrain, Severity: 50},
		{Type: athlete.SevereTear, Severity: 100},
		{Type: athlete.ModerateSprain, Severity: 80},
	}
	if got := TrainingMultiplier(injuries); !approx(got, 0.4) {
		t.Errorf("Expected 0.4, got %v", got)
	}
}

func TestRecoverySpeed(t *testing.T) {
	if got := RecoverySpeed(PlayerCondition{Durability: 50, RecoveryRateMultiplier: 1}); !approx(got, 1.25) {
		t.Errorf("Expected 1.25, got %v", got)
	}
	if got := RecoverySpeed(PlayerCondition{Durability: 100, RecoveryRateMultiplier: 2}); !approx(got, 3) {
		t.Errorf("Expected 3, got %v", got)
	}
	if got := RecoverySpeed(PlayerCondition{}); got != 1 {
		t.Errorf("Unset multiplier should default to 1, got %v", got)
	}
}
