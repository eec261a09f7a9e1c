// Package athlete defines the core domain entities for players tracked by the condition engine.
// This package is PURE and must NOT import any infrastructure packages (network, events, platform).
package athlete

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidAttributeKey is returned when an attribute name is not one of the 13 known skills.
var ErrInvalidAttributeKey = errors.New("invalid attribute key")

// Attribute names one skill rating on the player sheet.
type Attribute string

const (
	// Physical
	Strength Attribute = "strength" // Contact, finishing at the rim, rebounding
	Speed    Attribute = "speed"    // Transition offense, recovery on defense
	Stamina  Attribute = "stamina"  // Late-game attribute fade
	Jumping  Attribute = "jumping"  // Blocks, rebounds, dunks

	// Offense
	Shooting  Attribute = "shooting"
	Dribbling Attribute = "dribbling"
	Passing   Attribute = "passing"
	Finishing Attribute = "finishing"

	// Defense
	PerimeterDefense Attribute = "perimeterDefense"
	InteriorDefense  Attribute = "interiorDefense"
	Rebounding       Attribute = "rebounding"

	// Mental
	IQ     Attribute = "iq"
	Clutch Attribute = "clutch"
)

var sheetOrder = [...]Attribute{
	Strength, Speed, Stamina, Jumping,
	Shooting, Dribbling, Passing, Finishing,
	PerimeterDefense, InteriorDefense, Rebounding,
	IQ, Clutch,
}

// AllAttributes returns every attribute in sheet order.
func AllAttributes() []Attribute {
	out := make([]Attribute, len(sheetOrder))
	copy(out, sheetOrder[:])
	return out
}

// ParseAttribute resolves a case-insensitive attribute name.
func ParseAttribute(name string) (Attribute, error) {
	for _, a := range sheetOrder {
		if strings.EqualFold(string(a), name) {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAttributeKey, name)
}

// Attributes is the 0-100 skill sheet of a player.
type Attributes struct {
	Strength float64 `json:"strength" yaml:"strength"`
	Speed    float64 `json:"speed" yaml:"speed"`
	Stamina  float64 `json:"stamina" yaml:"stamina"`
	Jumping  float64 `json:"jumping" yaml:"jumping"`

	Shooting  float64 `json:"shooting" yaml:"shooting"`
	Dribbling float64 `json:"dribbling" yaml:"dribbling"`
	Passing   float64 `json:"passing" yaml:"passing"`
	Finishing float64 `json:"finishing" yaml:"finishing"`

	PerimeterDefense float64 `json:"perimeterDefense" yaml:"perimeterDefense"`
	InteriorDefense  float64 `json:"interiorDefense" yaml:"interiorDefense"`
	Rebounding       float64 `json:"rebounding" yaml:"rebounding"`

	IQ     float64 `json:"iq" yaml:"iq"`
	Clutch float64 `json:"clutch" yaml:"clutch"`
}

func (a *Attributes) field(attr Attribute) *float64 {
	switch attr {
	case Strength:
		return &a.Strength
	case Speed:
		return &a.Speed
	case Stamina:
		return &a.Stamina
	case Jumping:
		return &a.Jumping
	case Shooting:
		return &a.Shooting
	case Dribbling:
		return &a.Dribbling
	case Passing:
		return &a.Passing
	case Finishing:
		return &a.Finishing
	case PerimeterDefense:
		return &a.PerimeterDefense
	case InteriorDefense:
		return &a.InteriorDefense
	case Rebounding:
		return &a.Rebounding
	case IQ:
		return &a.IQ
	case Clutch:
		return &a.Clutch
	}
	return nil
}

// Get returns the value of one attribute.
func (a Attributes) Get(attr Attribute) (float64, error) {
	p := a.field(attr)
	if p == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAttributeKey, attr)
	}
	return *p, nil
}

// Set writes one attribute, clamped to 0-100.
func (a *Attributes) Set(attr Attribute, value float64) error {
	p := a.field(attr)
	if p == nil {
		return fmt.Errorf("%w: %q", ErrInvalidAttributeKey, attr)
	}
	*p = clamp100(value)
	return nil
}

// Clamp forces every attribute back into 0-100. NaN collapses to 0.
func (a *Attributes) Clamp() {
	for _, attr := range sheetOrder {
		p := a.field(attr)
		*p = clamp100(*p)
	}
}

// Map returns the sheet keyed by attribute.
func (a Attributes) Map() map[Attribute]float64 {
	out := make(map[Attribute]float64, len(sheetOrder))
	for _, attr := range sheetOrder {
		out[attr] = *a.field(attr)
	}
	return out
}

// String renders the sheet one attribute per line.
func (a Attributes) String() string {
	var b strings.Builder
	for _, attr := range sheetOrder {
		fmt.Fprintf(&b, "%-17s %6.2f\n", attr, *a.field(attr))
	}
	return b.String()
}

func clamp100(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Athlete carries the intrinsic, slow-changing traits of a player.
// Condition state (stamina, injuries, morale) is owned by the engine.
type Athlete struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	Potential              float64 `json:"potential"`                // 0-1, scales training growth
	Durability             float64 `json:"durability"`               // 0-100, injury resistance and healing
	RecoveryRateMultiplier float64 `json:"recovery_rate_multiplier"` // Nutrition/sleep, 1.0 baseline
}

// NewAthlete creates an athlete with average intrinsic traits.
func NewAthlete(id, name string) *Athlete {
	return &Athlete{
		ID:                     id,
		Name:                   name,
		Potential:              0.5,
		Durability:             50,
		RecoveryRateMultiplier: 1.0,
	}
}
