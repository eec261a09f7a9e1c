package engine

import (
	"fmt"

	"github.com/MRamiBalles/kairo-condition/internal/domain/athlete"
	"github.com/MRamiBalles/kairo-condition/internal/domain/rules"
)

// AttributeProfile owns the skill sheet and age of one athlete.
// Every write goes through the clamped setter on athlete.Attributes.
type AttributeProfile struct {
	attrs athlete.Attributes
	age   int
}

// NewAttributeProfile creates a profile, clamping the starting sheet.
func NewAttributeProfile(attrs athlete.Attributes, age int) *AttributeProfile {
	attrs.Clamp()
	if age < 0 {
		age = 0
	}
	return &AttributeProfile{attrs: attrs, age: age}
}

// Attributes returns a copy of the sheet.
func (p *AttributeProfile) Attributes() athlete.Attributes {
	return p.attrs
}

// Age returns the athlete's age in years.
func (p *AttributeProfile) Age() int {
	return p.age
}

// Train applies one session at full effect.
func (p *AttributeProfile) Train(drill athlete.Drill, intensity, potential float64) (map[athlete.Attribute]float64, error) {
	return p.TrainActivity(athlete.Activity{Drill: drill, Intensity: intensity, Potential: potential, Modifier: 1})
}

// TrainActivity applies one session and returns the change actually applied to
// each touched attribute. Drills without attribute weights return an empty map.
func (p *AttributeProfile) TrainActivity(a athlete.Activity) (map[athlete.Attribute]float64, error) {
	spec, ok := rules.LookupDrill(a.Drill)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTrainingType, a.Drill)
	}

	base := rules.BaseGrowth(a.Intensity, a.Potential) * rules.Clamp(a.Modifier, 0, 10)
	deltas := make(map[athlete.Attribute]float64, len(spec.Weights))
	for _, w := range spec.Weights {
		before := p.mustGet(w.Attribute)
		p.mustSet(w.Attribute, before+rules.GrowthDelta(base, p.age, before, w.Weight))
		deltas[w.Attribute] = p.mustGet(w.Attribute) - before
	}
	return deltas, nil
}

// AgeUp adds a year and applies age decay. It returns the applied changes.
func (p *AttributeProfile) AgeUp() map[athlete.Attribute]float64 {
	p.age++
	deltas := make(map[athlete.Attribute]float64)
	if p.age < 30 {
		return deltas
	}

	decay := rules.DecayFactor(p.age)
	for _, attr := range athlete.AllAttributes() {
		before := p.mustGet(attr)
		p.mustSet(attr, rules.AgedValue(attr, before, decay))
		if d := p.mustGet(attr) - before; d != 0 {
			deltas[attr] = d
		}
	}
	return deltas
}

// mustGet and mustSet are only fed attributes from the balance tables.
// A miss there is a programming error.
func (p *AttributeProfile) mustGet(attr athlete.Attribute) float64 {
	v, err := p.attrs.Get(attr)
	if err != nil {
		panic(err)
	}
	return v
}

func (p *AttributeProfile) mustSet(attr athlete.Attribute, v float64) {
	if err := p.attrs.Set(attr, v); err != nil {
		panic(err)
	}
}
