// Package roster reads and writes team rosters as YAML.
package roster

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MRamiBalles/kairo-condition/internal/domain/athlete"
	"github.com/MRamiBalles/kairo-condition/internal/domain/rules"
	"github.com/MRamiBalles/kairo-condition/internal/engine"
)

// DefaultBaseStamina is used when an entry gives no stamina block.
const DefaultBaseStamina = 100.0

var ErrInvalidRoster = errors.New("invalid roster")

// Entry is one athlete in a roster file. Pointer fields fall back to defaults when omitted.
type Entry struct {
	ID                 string              `yaml:"id"`
	Name               string              `yaml:"name"`
	Age                int                 `yaml:"age"`
	Potential          *float64            `yaml:"potential,omitempty"`
	Durability         *float64            `yaml:"durability,omitempty"`
	RecoveryMultiplier *float64            `yaml:"recovery_multiplier,omitempty"`
	Morale             *float64            `yaml:"morale,omitempty"`
	Stamina            engine.StaminaStats `yaml:"stamina"`
	Attributes         athlete.Attributes  `yaml:"attributes"`
}

// Roster is a season's starting lineup.
type Roster struct {
	Season   string  `yaml:"season"`
	StartDay int     `yaml:"start_day"`
	Athletes []Entry `yaml:"athletes"`
}

// Load reads a roster file.
func Load(path string) (*Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open roster: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses and validates a roster. Unknown keys are rejected.
func Decode(r io.Reader) (*Roster, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var ro Roster
	if err := dec.Decode(&ro); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidRoster)
		}
		return nil, fmt.Errorf("failed to decode roster: %w", err)
	}
	if err := ro.Validate(); err != nil {
		return nil, err
	}
	return &ro, nil
}

// Parse is Decode over a byte slice.
func Parse(data []byte) (*Roster, error) {
	return Decode(bytes.NewReader(data))
}

// Validate checks ids are present and unique.
func (r *Roster) Validate() error {
	if len(r.Athletes) == 0 {
		return fmt.Errorf("%w: no athletes", ErrInvalidRoster)
	}
	seen := make(map[string]bool, len(r.Athletes))
	for i, e := range r.Athletes {
		if e.ID == "" {
			return fmt.Errorf("%w: athlete %d has no id", ErrInvalidRoster, i)
		}
		if seen[e.ID] {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidRoster, e.ID)
		}
		seen[e.ID] = true
		if e.Age < 0 {
			return fmt.Errorf("%w: %s has negative age", ErrInvalidRoster, e.ID)
		}
	}
	return nil
}

// Registration converts an entry into an engine registration.
func (e Entry) Registration(startDay int) engine.Registration {
	a := athlete.NewAthlete(e.ID, e.Name)
	if e.Potential != nil {
		a.Potential = *e.Potential
	}
	if e.Durability != nil {
		a.Durability = *e.Durability
	}
	if e.RecoveryMultiplier != nil {
		a.RecoveryRateMultiplier = *e.RecoveryMultiplier
	}

	morale := rules.InitialMorale
	if e.Morale != nil {
		morale = *e.Morale
	}

	stamina := e.Stamina
	if stamina.BaseStamina <= 0 {
		stamina.BaseStamina = DefaultBaseStamina
	}
	// Supercompensation scales with stamina potential; zero would disable it.
	if stamina.Potential <= 0 {
		stamina.Potential = a.Potential
	}

	return engine.Registration{
		Athlete:    *a,
		Age:        e.Age,
		Attributes: e.Attributes,
		Stamina:    stamina,
		Morale:     morale,
		StartDay:   startDay,
	}
}

// Registrations converts every entry, in file order.
func (r *Roster) Registrations() []engine.Registration {
	out := make([]engine.Registration, 0, len(r.Athletes))
	for _, e := range r.Athletes {
		out = append(out, e.Registration(r.StartDay))
	}
	return out
}

// FromSnapshots builds a roster describing the current state of a season.
func FromSnapshots(season string, snaps []engine.Snapshot) *Roster {
	ro := &Roster{Season: season}
	for _, s := range snaps {
		potential := s.Athlete.Potential
		durability := s.Athlete.Durability
		recovery := s.Athlete.RecoveryRateMultiplier
		morale := s.Morale.Value
		if s.Day > ro.StartDay {
			ro.StartDay = s.Day
		}
		ro.Athletes = append(ro.Athletes, Entry{
			ID:                 s.Athlete.ID,
			Name:               s.Athlete.Name,
			Age:                s.Age,
			Potential:          &potential,
			Durability:         &durability,
			RecoveryMultiplier: &recovery,
			Morale:             &morale,
			Stamina:            s.StaminaStats,
			Attributes:         s.Attributes,
		})
	}
	return ro
}

// Encode writes a roster as YAML.
func Encode(w io.Writer, r *Roster) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode roster: %w", err)
	}
	return enc.Close()
}
