package engine

import (
	"io"
	"testing"

	"github.com/MRamiBalles/kairo-condition/internal/domain/athlete"
	"github.com/MRamiBalles/kairo-condition/internal/domain/rules"
	"github.com/MRamiBalles/kairo-condition/internal/platform/logger"
	"github.com/MRamiBalles/kairo-condition/internal/random"
)

func quietLogger() *logger.Logger {
	return logger.NewWithWriter(io.Discard)
}

func TestTryInjureScripted(t *testing.T) {
	// Setup: hit, MinorStrain, Hamstring, severity 70, 3 base days, chronic
	rng := random.NewSequence(0, 0, 0.3, 0.5, 0.99, 0.05)
	m := NewInjuryManager(rng, quietLogger())

	// Act
	inj := m.TryInjure("P1", rules.PlayerCondition{Fatigue: 50}, 4)

	// Assert
	if inj == nil {
		t.Fatal("Expected an injury")
	}
	if inj.Type != athlete.MinorStrain || inj.Location != athlete.Hamstring {
		t.Errorf("Unexpected injury %s/%s", inj.Type, inj.Location)
	}
	if inj.Severity != 70 {
		t.Errorf("Expected severity 70, got %d", inj.Severity)
	}
	if inj.InitialRecoveryDays != 3 || inj.RecoveryDaysRemaining != 3 {
		t.Errorf("Expected 3 recovery days, got %d/%v", inj.InitialRecoveryDays, inj.RecoveryDaysRemaining)
	}
	if !inj.IsChronic || inj.OnsetDay != 4 {
		t.Errorf("Expected chronic injury on day 4, got %+v", inj)
	}
	if rng.Drawn() != 6 {
		t.Errorf("Expected 6 draws, got %d", rng.Drawn())
	}
	if got := m.TrainingEffectMultiplier("P1"); !approx(got, 0.93) {
		t.Errorf("Expected multiplier 0.93, got %v", got)
	}
	if m.TrainingEffectMultiplier("P2") != 1 {
		t.Error("Healthy athlete should have multiplier 1")
	}
}

func TestTryInjureMiss(t *testing.T) {
	rng := random.NewSequence(0.9)
	m := NewInjuryManager(rng, quietLogger())

	if inj := m.TryInjure("P1", rules.PlayerCondition{Fatigue: 100, LoadManagement: 100}, 1); inj != nil {
		t.Fatalf("Expected no injury, got %+v", inj)
	}
	if rng.Drawn() != 1 {
		t.Errorf("A miss should draw once, drew %d", rng.Drawn())
	}
	if len(m.Injuries("P1")) != 0 {
		t.Error("Miss stored an injury")
	}
}

func TestDailyRecoveryAndChronicHistory(t *testing.T) {
	rng := random.NewSequence(0, 0, 0.3, 0.5, 0.99, 0.05)
	m := NewInjuryManager(rng, quietLogger())
	m.TryInjure("P1", rules.PlayerCondition{}, 1)
	cond := rules.PlayerCondition{Durability: 0, RecoveryRateMultiplier: 1}

	if rec := m.UpdateDailyRecovery("P1", cond); len(rec) != 0 {
		t.Fatalf("Recovered too early: %+v", rec)
	}
	if rec := m.UpdateDailyRecovery("P1", cond); len(rec) != 0 {
		t.Fatalf("Recovered too early: %+v", rec)
	}
	if got := m.Injuries("P1")[0].RecoveryDaysRemaining; got != 1 {
		t.Errorf("Expected 1 day remaining, got %v", got)
	}

	rec := m.UpdateDailyRecovery("P1", cond)
	if len(rec) != 1 {
		t.Fatalf("Expected recovery on day 3, got %+v", rec)
	}
	if len(m.Injuries("P1")) != 0 {
		t.Error("Recovered injury still active")
	}
	if m.ChronicCount("P1") != 1 {
		t.Errorf("Chronic history should survive recovery, got %d", m.ChronicCount("P1"))
	}
	if got := m.CalculateInjuryChance("P1", rules.PlayerCondition{}); !approx(got, 0.015) {
		t.Errorf("Expected chronic risk in chance, got %v", got)
	}
}

func TestDurabilitySpeedsRecovery(t *testing.T) {
	m := NewInjuryManager(random.NewSequence(), quietLogger())
	m.Restore("P1", []athlete.Injury{{Type: athlete.SevereTear, Severity: 80, RecoveryDaysRemaining: 10, InitialRecoveryDays: 10}}, 0)

	m.UpdateDailyRecovery("P1", rules.PlayerCondition{Durability: 100, RecoveryRateMultiplier: 2})

	if got := m.Injuries("P1")[0].RecoveryDaysRemaining; !approx(got, 7) {
		t.Errorf("Expected 7 days left after a 3x day, got %v", got)
	}
}

func TestSimulateDayRollsThenHeals(t *testing.T) {
	// Hit, MinorStrain, Ankle, severity 40, 1 base day -> 1 day, not chronic
	rng := random.NewSequence(0, 0, 0, 0, 0, 0.5)
	m := NewInjuryManager(rng, quietLogger())

	newInjury, recovered := m.SimulateDay("P1", rules.PlayerCondition{RecoveryRateMultiplier: 1}, 2)

	if newInjury == nil || newInjury.InitialRecoveryDays != 1 {
		t.Fatalf("Expected a one-day injury, got %+v", newInjury)
	}
	if len(recovered) != 1 {
		t.Errorf("Expected the new injury to heal the same day, got %+v", recovered)
	}
	if m.ChronicCount("P1") != 0 {
		t.Errorf("Expected no chronic history, got %d", m.ChronicCount("P1"))
	}
}

func TestInjuriesReturnsCopy(t *testing.T) {
	m := NewInjuryManager(random.NewSequence(), quietLogger())
	m.Restore("P1", []athlete.Injury{{Type: athlete.Concussion, Severity: 60, RecoveryDaysRemaining: 5}}, 0)

	list := m.Injuries("P1")
	list[0].RecoveryDaysRemaining = -1

	if m.Injuries("P1")[0].RecoveryDaysRemaining != 5 {
		t.Error("Injuries exposed internal state")
	}
}

func TestRestoreClampsAndDropsHealed(t *testing.T) {
	m := NewInjuryManager(random.NewSequence(), quietLogger())
	m.Restore("P1", []athlete.Injury{
		{Type: athlete.MinorStrain, Severity: 5, RecoveryDaysRemaining: 2},
		{Type: athlete.MinorStrain, Severity: 50, RecoveryDaysRemaining: 0},
		{Type: athlete.FatigueFracture, Severity: 300, RecoveryDaysRemaining: 40, IsChronic: true},
	}, 3)

	list := m.Injuries("P1")
	if len(list) != 2 {
		t.Fatalf("Expected 2 active injuries, got %d", len(list))
	}
	if list[0].Severity != 40 || list[1].Severity != 100 {
		t.Errorf("Expected severities clamped to 40/100, got %d/%d", list[0].Severity, list[1].Severity)
	}
	if m.ChronicCount("P1") != 4 {
		t.Errorf("Expected 3 healed + 1 active chronic, got %d", m.ChronicCount("P1"))
	}
}

func TestChanceNeverExceedsCap(t *testing.T) {
	m := NewInjuryManager(random.NewSequence(), quietLogger())
	m.Restore("P1", nil, 200)

	if got := m.CalculateInjuryChance("P1", rules.PlayerCondition{Fatigue: 100, LoadManagement: 100}); got != 0.5 {
		t.Errorf("Expected chance capped at 0.5, got %v", got)
	}
}
