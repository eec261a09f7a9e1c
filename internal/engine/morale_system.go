package engine

import (
	"fmt"

	"github.com/MRamiBalles/kairo-condition/internal/domain/athlete"
	"github.com/MRamiBalles/kairo-condition/internal/domain/rules"
)

// MoraleTracker owns the morale of one athlete. The band is always derived
// from the clamped value.
type MoraleTracker struct {
	record athlete.MoraleRecord
}

// NewMoraleTracker starts morale at value on day.
func NewMoraleTracker(value float64, day int) *MoraleTracker {
	v := rules.Clamp(value, 0, 100)
	return &MoraleTracker{record: athlete.MoraleRecord{
		Value:          v,
		State:          rules.MoraleBand(v),
		LastUpdatedDay: day,
	}}
}

// RestoreMoraleTracker rebuilds a tracker from a snapshot. The stored band is
// ignored and recomputed.
func RestoreMoraleTracker(rec athlete.MoraleRecord) *MoraleTracker {
	return NewMoraleTracker(rec.Value, rec.LastUpdatedDay)
}

// Update applies an event. Unknown events return ErrUnknownMoraleEvent and
// leave the record untouched. The returned delta is the change actually applied.
func (t *MoraleTracker) Update(event athlete.MoraleEvent, day int) (float64, error) {
	d, ok := rules.MoraleDelta(event)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownMoraleEvent, event)
	}

	before := t.record.Value
	t.record.Value = rules.Clamp(before+d, 0, 100)
	t.record.State = rules.MoraleBand(t.record.Value)
	t.record.LastUpdatedDay = day
	return t.record.Value - before, nil
}

// Record returns a copy of the morale record.
func (t *MoraleTracker) Record() athlete.MoraleRecord {
	return t.record
}

// Effects returns the multipliers of the current band.
func (t *MoraleTracker) Effects() rules.MoraleEffects {
	return rules.EffectsFor(t.record.State)
}
