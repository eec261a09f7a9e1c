package engine

import (
	"fmt"

	"github.com/MRamiBalles/kairo-condition/internal/domain/athlete"
	"github.com/MRamiBalles/kairo-condition/internal/domain/rules"
	"github.com/MRamiBalles/kairo-condition/internal/platform/logger"
	"github.com/MRamiBalles/kairo-condition/internal/random"
)

// InjuryManager owns the active injuries of every athlete, keyed by id.
// All randomness comes from the injected source.
type InjuryManager struct {
	rng    random.Source
	logger *logger.Logger

	active map[string][]athlete.Injury
	// Chronic injuries that already healed still raise risk.
	chronicHealed map[string]int
}

// NewInjuryManager creates an injury manager drawing from rng.
func NewInjuryManager(rng random.Source, log *logger.Logger) *InjuryManager {
	return &InjuryManager{
		rng:           rng,
		logger:        log,
		active:        make(map[string][]athlete.Injury),
		chronicHealed: make(map[string]int),
	}
}

// ChronicCount is every chronic injury the athlete has ever carried.
func (m *InjuryManager) ChronicCount(id string) int {
	n := m.chronicHealed[id]
	for _, inj := range m.active[id] {
		if inj.IsChronic {
			n++
		}
	}
	return n
}

// ChronicHealed is the number of healed chronic injuries, for snapshots.
func (m *InjuryManager) ChronicHealed(id string) int {
	return m.chronicHealed[id]
}

// CalculateInjuryChance is the probability of an injury this cycle, in [0, 0.5].
func (m *InjuryManager) CalculateInjuryChance(id string, cond rules.PlayerCondition) float64 {
	return rules.InjuryChance(cond, m.ChronicCount(id))
}

// TryInjure rolls for an injury. On a hit the new injury is stored and returned.
func (m *InjuryManager) TryInjure(id string, cond rules.PlayerCondition, day int) *athlete.Injury {
	chance := m.CalculateInjuryChance(id, cond)
	if m.rng.Float64() >= chance {
		return nil
	}

	inj := m.generate(day)
	m.active[id] = append(m.active[id], inj)
	m.logger.Event("INJURY", id, fmt.Sprintf("%s %s severity:%d days:%d chronic:%t",
		inj.Type, inj.Location, inj.Severity, inj.InitialRecoveryDays, inj.IsChronic))
	return &inj
}

// generate draws type, location, severity, length and chronic flag, in that order.
func (m *InjuryManager) generate(day int) athlete.Injury {
	types := athlete.AllInjuryTypes()
	locations := athlete.AllInjuryLocations()

	injType := types[rules.PickIndex(m.rng.Float64(), len(types))]
	location := locations[rules.PickIndex(m.rng.Float64(), len(locations))]
	severity := rules.SeverityFromRoll(m.rng.Float64())

	profile, ok := rules.LookupInjury(injType)
	if !ok {
		panic(fmt.Sprintf("injury table has no entry for %s", injType))
	}
	days := rules.RecoveryDays(profile, severity, m.rng.Float64())

	return athlete.Injury{
		Type:                  injType,
		Location:              location,
		Severity:              severity,
		RecoveryDaysRemaining: float64(days),
		InitialRecoveryDays:   days,
		OnsetDay:              day,
		IsChronic:             m.rng.Float64() < rules.ChronicProbability,
	}
}

// TrainingEffectMultiplier is 1 minus the worst active injury penalty.
func (m *InjuryManager) TrainingEffectMultiplier(id string) float64 {
	return rules.TrainingMultiplier(m.active[id])
}

// UpdateDailyRecovery heals one day's worth and returns injuries that cleared.
func (m *InjuryManager) UpdateDailyRecovery(id string, cond rules.PlayerCondition) []athlete.Injury {
	injuries := m.active[id]
	if len(injuries) == 0 {
		return nil
	}

	speed := rules.RecoverySpeed(cond)
	var recovered []athlete.Injury
	remaining := injuries[:0]
	for _, inj := range injuries {
		inj.RecoveryDaysRemaining -= speed
		if inj.RecoveryDaysRemaining <= 0 {
			recovered = append(recovered, inj)
			if inj.IsChronic {
				m.chronicHealed[id]++
			}
			m.logger.Event("RECOVERED", id, fmt.Sprintf("%s %s", inj.Type, inj.Location))
			continue
		}
		remaining = append(remaining, inj)
	}

	if len(remaining) == 0 {
		delete(m.active, id)
	} else {
		m.active[id] = remaining
	}
	return recovered
}

// SimulateDay rolls for a new injury, then runs daily recovery.
func (m *InjuryManager) SimulateDay(id string, cond rules.PlayerCondition, day int) (*athlete.Injury, []athlete.Injury) {
	newInjury := m.TryInjure(id, cond, day)
	recovered := m.UpdateDailyRecovery(id, cond)
	return newInjury, recovered
}

// Injuries returns a copy of the athlete's active injuries.
func (m *InjuryManager) Injuries(id string) []athlete.Injury {
	src := m.active[id]
	if len(src) == 0 {
		return nil
	}
	out := make([]athlete.Injury, len(src))
	copy(out, src)
	return out
}

// Restore replaces an athlete's injury state from a snapshot.
// Severities are clamped and already-healed entries dropped.
func (m *InjuryManager) Restore(id string, injuries []athlete.Injury, chronicHealed int) {
	var kept []athlete.Injury
	for _, inj := range injuries {
		if inj.RecoveryDaysRemaining <= 0 {
			continue
		}
		if inj.Severity < rules.MinInjurySeverity {
			inj.Severity = rules.MinInjurySeverity
		}
		if inj.Severity > rules.MaxInjurySeverity {
			inj.Severity = rules.MaxInjurySeverity
		}
		kept = append(kept, inj)
	}
	if len(kept) == 0 {
		delete(m.active, id)
	} else {
		m.active[id] = kept
	}
	if chronicHealed < 0 {
		chronicHealed = 0
	}
	m.chronicHealed[id] = chronicHealed
}

// Forget drops every record of an athlete.
func (m *InjuryManager) Forget(id string) {
	delete(m.active, id)
	delete(m.chronicHealed, id)
}
