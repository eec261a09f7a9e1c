// Package engine contains the player condition and progression simulation.
//
// ARCHITECTURAL RULE: The engine is synchronous. It starts no goroutines and
// takes no locks; hosts serialize every call (see internal/session).
// Each change is journaled to the EventLog for UI and recap layers.
package engine

import (
	"errors"
	"fmt"
	"sort"

	"github.com/MRamiBalles/kairo-condition/internal/domain/athlete"
	"github.com/MRamiBalles/kairo-condition/internal/domain/rules"
	"github.com/MRamiBalles/kairo-condition/internal/events"
	"github.com/MRamiBalles/kairo-condition/internal/platform/logger"
	"github.com/MRamiBalles/kairo-condition/internal/platform/metrics"
	"github.com/MRamiBalles/kairo-condition/internal/random"
)

// Outcome classifies a training call.
type Outcome string

const (
	OutcomeCompleted           Outcome = "COMPLETED"
	OutcomeInsufficientStamina Outcome = "INSUFFICIENT_STAMINA"
	OutcomeIgnored             Outcome = "IGNORED"
)

// Registration is everything needed to start tracking an athlete.
type Registration struct {
	Athlete    athlete.Athlete
	Age        int
	Attributes athlete.Attributes
	Stamina    StaminaStats
	Morale     float64
	StartDay   int
}

// TrainingReport is the result of ExecuteTraining.
type TrainingReport struct {
	AthleteID       string                        `json:"athlete_id"`
	Drill           athlete.Drill                 `json:"drill"`
	Outcome         Outcome                       `json:"outcome"`
	Modifier        float64                       `json:"modifier"`
	AttributeDeltas map[athlete.Attribute]float64 `json:"attribute_deltas,omitempty"`
	Stamina         StaminaState                  `json:"stamina"`
	NewInjury       *athlete.Injury               `json:"new_injury,omitempty"`
	Morale          athlete.MoraleRecord          `json:"morale"`
}

// DayReport is the result of AdvanceDay.
type DayReport struct {
	AthleteID     string               `json:"athlete_id"`
	Day           int                  `json:"day"`
	StaminaGrowth float64              `json:"stamina_growth"`
	Recovered     []athlete.Injury     `json:"recovered,omitempty"`
	Stamina       StaminaState         `json:"stamina"`
	Injuries      []athlete.Injury     `json:"injuries,omitempty"`
	Morale        athlete.MoraleRecord `json:"morale"`
}

// Readiness is the read-only view match resolution consumes.
// InjuryChance is the chance TryInjure rolls against during training.
// InjuryRisk is reported separately for callers that weigh morale themselves.
type Readiness struct {
	AthleteID     string              `json:"athlete_id"`
	Effective     athlete.Attributes  `json:"effective"`
	StaminaRatio  float64             `json:"stamina_ratio"`
	InjuryPenalty float64             `json:"injury_penalty"` // Training effect multiplier, 1 when healthy
	Performance   float64             `json:"performance"`    // Morale performance multiplier
	InjuryRisk    float64             `json:"injury_risk"`    // Morale injury risk multiplier, not applied to InjuryChance
	InjuryChance  float64             `json:"injury_chance"`  // Per-session roll chance; morale does not enter it
	Morale        athlete.MoraleState `json:"morale"`
}

// Snapshot is the persisted state of one athlete.
type Snapshot struct {
	Athlete       athlete.Athlete      `json:"athlete"`
	Day           int                  `json:"day"`
	Age           int                  `json:"age"`
	Attributes    athlete.Attributes   `json:"attributes"`
	StaminaStats  StaminaStats         `json:"stamina_stats"`
	Stamina       StaminaState         `json:"stamina"`
	Injuries      []athlete.Injury     `json:"injuries"`
	ChronicHealed int                  `json:"chronic_healed"`
	Morale        athlete.MoraleRecord `json:"morale"`
}

// Event payloads.
type (
	TrainingPayload struct {
		Drill     athlete.Drill                 `json:"drill"`
		Intensity float64                       `json:"intensity"`
		Modifier  float64                       `json:"modifier"`
		Deltas    map[athlete.Attribute]float64 `json:"deltas,omitempty"`
		Reason    string                        `json:"reason,omitempty"`
	}
	InjuryPayload struct {
		Injury athlete.Injury `json:"injury"`
	}
	MoralePayload struct {
		Event athlete.MoraleEvent `json:"event"`
		Delta float64             `json:"delta"`
		Value float64             `json:"value"`
		State athlete.MoraleState `json:"state"`
	}
	SupercompensationPayload struct {
		Growth      float64 `json:"growth"`
		BaseStamina float64 `json:"base_stamina"`
	}
	DayPayload struct {
		StaminaRatio float64 `json:"stamina_ratio"`
		Fatigue      float64 `json:"fatigue"`
		Injuries     int     `json:"injuries"`
	}
	AgePayload struct {
		Age    int                           `json:"age"`
		Deltas map[athlete.Attribute]float64 `json:"deltas,omitempty"`
	}
)

type player struct {
	info    athlete.Athlete
	profile *AttributeProfile
	stamina *StaminaTracker
	morale  *MoraleTracker
	day     int
}

// Coordinator composes the condition components of every registered athlete.
type Coordinator struct {
	eventLog *events.EventLog
	logger   *logger.Logger
	metrics  *metrics.Collector // optional
	injuries *InjuryManager
	players  map[string]*player
}

// NewCoordinator wires the engine. m may be nil.
func NewCoordinator(rng random.Source, eventLog *events.EventLog, log *logger.Logger, m *metrics.Collector) *Coordinator {
	return &Coordinator{
		eventLog: eventLog,
		logger:   log,
		metrics:  m,
		injuries: NewInjuryManager(rng, log),
		players:  make(map[string]*player),
	}
}

// Register starts tracking an athlete.
func (c *Coordinator) Register(reg Registration) error {
	id := reg.Athlete.ID
	if id == "" {
		return fmt.Errorf("%w: empty id", ErrUnknownAthlete)
	}
	if _, ok := c.players[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateAthlete, id)
	}

	c.players[id] = &player{
		info:    normalizeAthlete(reg.Athlete),
		profile: NewAttributeProfile(reg.Attributes, reg.Age),
		stamina: NewStaminaTracker(reg.Stamina),
		morale:  NewMoraleTracker(reg.Morale, reg.StartDay),
		day:     reg.StartDay,
	}
	c.logger.Infof("Registered athlete %s (%s), age %d", id, reg.Athlete.Name, reg.Age)
	return nil
}

// Restore loads an athlete from a snapshot, replacing any tracked state.
func (c *Coordinator) Restore(s Snapshot) error {
	id := s.Athlete.ID
	if id == "" {
		return fmt.Errorf("%w: empty id", ErrUnknownAthlete)
	}

	c.players[id] = &player{
		info:    normalizeAthlete(s.Athlete),
		profile: NewAttributeProfile(s.Attributes, s.Age),
		stamina: RestoreStaminaTracker(s.StaminaStats, s.Stamina),
		morale:  RestoreMoraleTracker(s.Morale),
		day:     s.Day,
	}
	c.injuries.Restore(id, s.Injuries, s.ChronicHealed)
	return nil
}

func normalizeAthlete(a athlete.Athlete) athlete.Athlete {
	a.Potential = rules.Clamp(a.Potential, 0, 1)
	a.Durability = rules.Clamp(a.Durability, 0, 100)
	if !(a.RecoveryRateMultiplier > 0) {
		a.RecoveryRateMultiplier = 1
	}
	return a
}

// IDs returns every registered athlete id in sorted order.
func (c *Coordinator) IDs() []string {
	ids := make([]string, 0, len(c.players))
	for id := range c.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Day returns the last simulated day of an athlete.
func (c *Coordinator) Day(id string) (int, error) {
	p, err := c.get(id)
	if err != nil {
		return 0, err
	}
	return p.day, nil
}

func (c *Coordinator) get(id string) (*player, error) {
	p, ok := c.players[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAthlete, id)
	}
	return p, nil
}

func (c *Coordinator) condition(p *player) rules.PlayerCondition {
	return rules.PlayerCondition{
		Fatigue:                p.stamina.State().Fatigue,
		LoadManagement:         p.stamina.LoadManagement(),
		Durability:             p.info.Durability,
		RecoveryRateMultiplier: p.info.RecoveryRateMultiplier,
	}
}

// Condition returns the composed condition the injury model would see now.
func (c *Coordinator) Condition(id string) (rules.PlayerCondition, error) {
	p, err := c.get(id)
	if err != nil {
		return rules.PlayerCondition{}, err
	}
	return c.condition(p), nil
}

// ExecuteTraining runs one training session.
//
// An unaffordable session returns ErrInsufficientStamina with no state change.
// An unknown drill is logged and ignored, returning ErrUnknownTrainingType.
func (c *Coordinator) ExecuteTraining(id string, drill athlete.Drill, intensity float64) (TrainingReport, error) {
	p, err := c.get(id)
	if err != nil {
		return TrainingReport{}, err
	}

	report := TrainingReport{AthleteID: id, Drill: drill, Morale: p.morale.Record()}
	spec, ok := rules.LookupDrill(drill)
	if !ok {
		c.logger.Warnf("Ignoring unknown drill %q for %s", drill, id)
		c.recordTraining(false, true)
		report.Outcome = OutcomeIgnored
		report.Stamina = p.stamina.State()
		return report, fmt.Errorf("%w: %q", ErrUnknownTrainingType, drill)
	}

	cond := c.condition(p)

	if err := p.stamina.Train(spec.Load); err != nil {
		report.Stamina = p.stamina.State()
		if errors.Is(err, ErrInsufficientStamina) {
			report.Outcome = OutcomeInsufficientStamina
			c.recordTraining(true, false)
			c.eventLog.Append(events.GameEvent{
				Type:      events.EventTypeTrainingBlocked,
				AthleteID: id,
				GameDay:   p.day,
				Payload:   TrainingPayload{Drill: drill, Intensity: intensity, Reason: err.Error()},
			})
		}
		return report, err
	}

	modifier := p.morale.Effects().TrainingEfficiency * c.injuries.TrainingEffectMultiplier(id)
	deltas, err := p.profile.TrainActivity(athlete.Activity{
		Drill:     drill,
		Intensity: intensity,
		Potential: p.info.Potential,
		Modifier:  modifier,
	})
	if err != nil {
		// Drill was found above; the tables disagree.
		panic(err)
	}

	report.NewInjury = c.injuries.TryInjure(id, cond, p.day)
	report.Outcome = OutcomeCompleted
	report.Modifier = modifier
	report.AttributeDeltas = deltas
	report.Stamina = p.stamina.State()
	c.recordTraining(false, false)

	c.eventLog.Append(events.GameEvent{
		Type:      events.EventTypeTrainingCompleted,
		AthleteID: id,
		GameDay:   p.day,
		Payload:   TrainingPayload{Drill: drill, Intensity: intensity, Modifier: modifier, Deltas: deltas},
	})
	if report.NewInjury != nil {
		c.injuryEvent(id, p.day, *report.NewInjury)
	}
	return report, nil
}

func (c *Coordinator) injuryEvent(id string, day int, inj athlete.Injury) {
	if c.metrics != nil {
		c.metrics.RecordInjury()
	}
	c.eventLog.Append(events.GameEvent{
		Type:      events.EventTypeInjurySustained,
		AthleteID: id,
		GameDay:   day,
		Payload:   InjuryPayload{Injury: inj},
	})
}

func (c *Coordinator) recordTraining(blocked, ignored bool) {
	if c.metrics != nil {
		c.metrics.RecordTraining(blocked, ignored)
	}
}

// AdvanceDay runs one recovery tick and one day of injury healing.
// day must be after the athlete's last simulated day.
func (c *Coordinator) AdvanceDay(id string, day int) (DayReport, error) {
	p, err := c.get(id)
	if err != nil {
		return DayReport{}, err
	}
	if day <= p.day {
		c.logger.Warnf("Stale day %d for %s (last %d)", day, id, p.day)
		return DayReport{}, fmt.Errorf("%w: %d after %d", ErrDayOutOfOrder, day, p.day)
	}

	growth := p.stamina.Tick()
	recovered := c.injuries.UpdateDailyRecovery(id, c.condition(p))
	p.day = day

	if growth > 0 {
		c.logger.Event("SUPERCOMPENSATION", id, fmt.Sprintf("base stamina +%.4f", growth))
		if c.metrics != nil {
			c.metrics.RecordSupercompensation()
		}
		c.eventLog.Append(events.GameEvent{
			Type:      events.EventTypeSupercompensation,
			AthleteID: id,
			GameDay:   day,
			Payload:   SupercompensationPayload{Growth: growth, BaseStamina: p.stamina.Stats().BaseStamina},
		})
	}
	for _, inj := range recovered {
		c.eventLog.Append(events.GameEvent{
			Type:      events.EventTypeInjuryRecovered,
			AthleteID: id,
			GameDay:   day,
			Payload:   InjuryPayload{Injury: inj},
		})
	}
	if c.metrics != nil && len(recovered) > 0 {
		c.metrics.RecordRecoveries(len(recovered))
	}

	report := DayReport{
		AthleteID:     id,
		Day:           day,
		StaminaGrowth: growth,
		Recovered:     recovered,
		Stamina:       p.stamina.State(),
		Injuries:      c.injuries.Injuries(id),
		Morale:        p.morale.Record(),
	}
	c.eventLog.Append(events.GameEvent{
		Type:      events.EventTypeDayAdvanced,
		AthleteID: id,
		GameDay:   day,
		Payload: DayPayload{
			StaminaRatio: p.stamina.Ratio(),
			Fatigue:      report.Stamina.Fatigue,
			Injuries:     len(report.Injuries),
		},
	})
	return report, nil
}

// AgeUp adds a year to an athlete and returns the attribute changes.
func (c *Coordinator) AgeUp(id string) (map[athlete.Attribute]float64, error) {
	p, err := c.get(id)
	if err != nil {
		return nil, err
	}

	deltas := p.profile.AgeUp()
	c.eventLog.Append(events.GameEvent{
		Type:      events.EventTypeAgedUp,
		AthleteID: id,
		GameDay:   p.day,
		Payload:   AgePayload{Age: p.profile.Age(), Deltas: deltas},
	})
	return deltas, nil
}

// ApplyMoraleEvent feeds a discrete event into an athlete's morale.
// Unknown events are logged and ignored, returning ErrUnknownMoraleEvent.
func (c *Coordinator) ApplyMoraleEvent(id string, event athlete.MoraleEvent) (athlete.MoraleRecord, error) {
	p, err := c.get(id)
	if err != nil {
		return athlete.MoraleRecord{}, err
	}

	delta, err := p.morale.Update(event, p.day)
	if err != nil {
		c.logger.Warnf("Ignoring morale event %q for %s", event, id)
		return p.morale.Record(), err
	}

	rec := p.morale.Record()
	if c.metrics != nil {
		c.metrics.RecordMoraleEvent()
	}
	c.eventLog.Append(events.GameEvent{
		Type:      events.EventTypeMoraleChanged,
		AthleteID: id,
		GameDay:   p.day,
		Payload:   MoralePayload{Event: event, Delta: delta, Value: rec.Value, State: rec.State},
	})
	return rec, nil
}

// Readiness returns the effective, read-only condition of an athlete.
func (c *Coordinator) Readiness(id string) (Readiness, error) {
	p, err := c.get(id)
	if err != nil {
		return Readiness{}, err
	}

	effects := p.morale.Effects()
	penalty := c.injuries.TrainingEffectMultiplier(id)
	scale := effects.Performance * penalty

	effective := p.profile.Attributes()
	for _, attr := range athlete.AllAttributes() {
		v, err := effective.Get(attr)
		if err != nil {
			panic(err)
		}
		if err := effective.Set(attr, v*scale); err != nil {
			panic(err)
		}
	}

	return Readiness{
		AthleteID:     id,
		Effective:     effective,
		StaminaRatio:  p.stamina.Ratio(),
		InjuryPenalty: penalty,
		Performance:   effects.Performance,
		InjuryRisk:    effects.InjuryRisk,
		InjuryChance:  c.injuries.CalculateInjuryChance(id, c.condition(p)),
		Morale:        p.morale.Record().State,
	}, nil
}

// Snapshot returns the persisted state of an athlete.
func (c *Coordinator) Snapshot(id string) (Snapshot, error) {
	p, err := c.get(id)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Athlete:       p.info,
		Day:           p.day,
		Age:           p.profile.Age(),
		Attributes:    p.profile.Attributes(),
		StaminaStats:  p.stamina.Stats(),
		Stamina:       p.stamina.State(),
		Injuries:      c.injuries.Injuries(id),
		ChronicHealed: c.injuries.ChronicHealed(id),
		Morale:        p.morale.Record(),
	}, nil
}

// Snapshots returns every athlete's state in id order.
func (c *Coordinator) Snapshots() []Snapshot {
	out := make([]Snapshot, 0, len(c.players))
	for _, id := range c.IDs() {
		s, _ := c.Snapshot(id)
		out = append(out, s)
	}
	return out
}
