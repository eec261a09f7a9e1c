package engine

import (
	"fmt"
	"math"

	"github.com/MRamiBalles/kairo-condition/internal/domain/athlete"
	"github.com/MRamiBalles/kairo-condition/internal/domain/rules"
)

// StaminaStats are the slow-moving traits of an athlete's stamina system.
type StaminaStats struct {
	BaseStamina       float64 `json:"base_stamina" yaml:"base"`
	RecoveryRate      float64 `json:"recovery_rate" yaml:"recovery_rate"`           // Percent bonus on tick recovery
	FatigueResistance float64 `json:"fatigue_resistance" yaml:"fatigue_resistance"` // 0-100
	Potential         float64 `json:"potential" yaml:"potential"`                   // 0-1, scales supercompensation
	Level             int     `json:"level" yaml:"level"`
}

// StaminaState is the short-term energy picture of an athlete.
type StaminaState struct {
	Current                   float64 `json:"current"`
	Max                       float64 `json:"max"`
	Fatigue                   float64 `json:"fatigue"`
	MaxFatigue                float64 `json:"max_fatigue"`
	SupercompensationProgress float64 `json:"supercompensation_progress"`
}

// StaminaTracker owns the energy and fatigue of one athlete.
type StaminaTracker struct {
	stats StaminaStats
	state StaminaState
}

// NewStaminaTracker starts an athlete fresh: full stamina, no fatigue.
func NewStaminaTracker(stats StaminaStats) *StaminaTracker {
	stats = normalizeStats(stats)
	return &StaminaTracker{
		stats: stats,
		state: StaminaState{
			Current:    stats.BaseStamina,
			Max:        stats.BaseStamina,
			MaxFatigue: rules.MaxFatigue,
		},
	}
}

// RestoreStaminaTracker rebuilds a tracker from a snapshot, repairing any
// out-of-range values.
func RestoreStaminaTracker(stats StaminaStats, state StaminaState) *StaminaTracker {
	s := &StaminaTracker{stats: normalizeStats(stats), state: state}
	s.state.MaxFatigue = rules.MaxFatigue
	s.state.Fatigue = rules.Clamp(s.state.Fatigue, 0, rules.MaxFatigue)
	s.state.SupercompensationProgress = rules.Clamp(s.state.SupercompensationProgress, 0, 1)
	s.state.Current = rules.Clamp(s.state.Current, 0, math.MaxFloat64)
	s.updateMax()
	return s
}

func normalizeStats(s StaminaStats) StaminaStats {
	s.BaseStamina = rules.Clamp(s.BaseStamina, 0, math.MaxFloat64)
	s.RecoveryRate = rules.Clamp(s.RecoveryRate, 0, math.MaxFloat64)
	s.FatigueResistance = rules.Clamp(s.FatigueResistance, 0, 100)
	s.Potential = rules.Clamp(s.Potential, 0, 1)
	return s
}

// Stats returns the tracker's traits.
func (s *StaminaTracker) Stats() StaminaStats {
	return s.stats
}

// State returns a copy of the current state.
func (s *StaminaTracker) State() StaminaState {
	return s.state
}

// Ratio is current over max stamina, 0 when max is 0.
func (s *StaminaTracker) Ratio() float64 {
	if s.state.Max <= 0 {
		return 0
	}
	return s.state.Current / s.state.Max
}

// LoadManagement is how much of the ceiling is spent, on a 0-100 scale.
func (s *StaminaTracker) LoadManagement() float64 {
	return rules.Clamp((1-s.Ratio())*100, 0, 100)
}

// Cost is what a load class would take from current stamina right now.
func (s *StaminaTracker) Cost(load athlete.LoadClass) (float64, error) {
	p, ok := rules.LookupLoad(load)
	if !ok {
		return 0, fmt.Errorf("%w: load %q", ErrUnknownTrainingType, load)
	}
	return s.state.Max * p.CostFraction, nil
}

// Train spends stamina on a session. When the athlete cannot afford it,
// ErrInsufficientStamina is returned and nothing changes.
func (s *StaminaTracker) Train(load athlete.LoadClass) error {
	p, ok := rules.LookupLoad(load)
	if !ok {
		return fmt.Errorf("%w: load %q", ErrUnknownTrainingType, load)
	}

	cost := s.state.Max * p.CostFraction
	if s.state.Current < cost {
		return fmt.Errorf("%w: need %.1f, have %.1f", ErrInsufficientStamina, cost, s.state.Current)
	}

	s.state.Current -= cost
	s.state.Fatigue = rules.Clamp(s.state.Fatigue+rules.FatigueGain(p, s.stats.FatigueResistance), 0, rules.MaxFatigue)
	s.state.SupercompensationProgress = rules.Clamp(
		s.state.SupercompensationProgress+p.GrowthFactor*(s.state.Fatigue/rules.MaxFatigue), 0, 1)
	s.updateMax()
	return nil
}

// Tick runs one recovery step. It returns the permanent base stamina gained,
// which is non-zero only on the tick supercompensation consolidates.
func (s *StaminaTracker) Tick() float64 {
	s.state.Current = math.Min(s.state.Current+rules.StaminaRecovery(s.stats.RecoveryRate), s.state.Max)
	s.state.Fatigue = rules.Clamp(s.state.Fatigue-rules.FatigueDecay(s.stats.FatigueResistance), 0, rules.MaxFatigue)
	growth := s.supercompensate()
	s.updateMax()
	return growth
}

func (s *StaminaTracker) supercompensate() float64 {
	threshold := rules.SupercompensationThreshold()
	switch {
	case s.state.Fatigue < threshold && s.state.SupercompensationProgress > rules.SupercompensationMin:
		growth := rules.SupercompensationGrowth(s.stats.Potential, s.state.SupercompensationProgress, s.state.Fatigue)
		s.stats.BaseStamina += growth
		s.state.SupercompensationProgress = 0
		return growth
	case s.state.Fatigue >= threshold:
		s.state.SupercompensationProgress = math.Max(0, s.state.SupercompensationProgress-rules.OvertrainingDecayPerDay)
	}
	return 0
}

func (s *StaminaTracker) updateMax() {
	s.state.Max = rules.MaxStamina(s.stats.BaseStamina, s.state.Fatigue)
	if s.state.Current > s.state.Max {
		s.state.Current = s.state.Max
	}
}
