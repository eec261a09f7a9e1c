// Package storage - reconstructor.go
// Condition recap: rebuilds what happened to an athlete from the event ledger.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/MRamiBalles/kairo-condition/internal/events"
)

// Reconstructor reads the event ledger back into summaries.
// Used for the "while you were away" screen and for auditing.
type Reconstructor struct {
	eventRepo EventRepository
}

// NewReconstructor creates a new recap reader.
func NewReconstructor(eventRepo EventRepository) *Reconstructor {
	return &Reconstructor{eventRepo: eventRepo}
}

// RecapEvent is a simplified event for the recap screen.
type RecapEvent struct {
	GameDay   int    `json:"game_day"`
	EventType string `json:"event_type"`
	Summary   string `json:"summary"` // Human-readable description
	Impact    string `json:"impact"`  // "POSITIVE", "NEGATIVE", "NEUTRAL"
}

// Recap aggregates an athlete's ledger since a given day.
type Recap struct {
	AthleteID   string       `json:"athlete_id"`
	SinceDay    int          `json:"since_day"`
	Sessions    int          `json:"sessions"`
	Blocked     int          `json:"blocked"`
	Injuries    int          `json:"injuries"`
	Recovered   int          `json:"recovered"`
	MoraleNet   float64      `json:"morale_net"`
	MoraleValue *float64     `json:"morale_value,omitempty"` // Last known value, nil if unchanged
	StaminaGain float64      `json:"stamina_gain"`
	Events      []RecapEvent `json:"events"`
}

// GenerateRecap builds the recap for an athlete from sinceDay onwards.
func (r *Reconstructor) GenerateRecap(ctx context.Context, gameID, athleteID string, sinceDay int) (*Recap, error) {
	records, err := r.eventRepo.GetByAthlete(ctx, gameID, athleteID)
	if err != nil {
		return nil, fmt.Errorf("failed to get events for athlete: %w", err)
	}

	recap := &Recap{AthleteID: athleteID, SinceDay: sinceDay}
	for _, e := range records {
		if e.GameDay < sinceDay {
			continue
		}
		apply(recap, e)
		if e.EventType == string(events.EventTypeDayAdvanced) {
			continue
		}
		recap.Events = append(recap.Events, RecapEvent{
			GameDay:   e.GameDay,
			EventType: e.EventType,
			Summary:   summarizeEvent(e),
			Impact:    determineImpact(e),
		})
	}
	return recap, nil
}

func apply(recap *Recap, e EventRecord) {
	switch events.EventType(e.EventType) {
	case events.EventTypeTrainingCompleted:
		recap.Sessions++
	case events.EventTypeTrainingBlocked:
		recap.Blocked++
	case events.EventTypeInjurySustained:
		recap.Injuries++
	case events.EventTypeInjuryRecovered:
		recap.Recovered++
	case events.EventTypeMoraleChanged:
		recap.MoraleNet += number(e.Payload, "delta")
		if v, ok := e.Payload["value"].(float64); ok {
			recap.MoraleValue = &v
		}
	case events.EventTypeSupercompensation:
		recap.StaminaGain += number(e.Payload, "growth")
	}
}

func number(payload map[string]interface{}, key string) float64 {
	if v, ok := payload[key].(float64); ok {
		return v
	}
	return 0
}

func text(payload map[string]interface{}, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

func injuryText(payload map[string]interface{}) string {
	inj, ok := payload["injury"].(map[string]interface{})
	if !ok {
		return "injury"
	}
	desc := strings.ToLower(text(inj, "location") + " " + text(inj, "type"))
	return strings.TrimSpace(strings.ReplaceAll(desc, "_", " "))
}

// summarizeEvent creates a human-readable summary.
func summarizeEvent(e EventRecord) string {
	switch events.EventType(e.EventType) {
	case events.EventTypeTrainingCompleted:
		return fmt.Sprintf("Completed %s.", text(e.Payload, "drill"))
	case events.EventTypeTrainingBlocked:
		return fmt.Sprintf("Too tired for %s.", text(e.Payload, "drill"))
	case events.EventTypeInjurySustained:
		return fmt.Sprintf("Picked up a %s.", injuryText(e.Payload))
	case events.EventTypeInjuryRecovered:
		return fmt.Sprintf("Recovered from a %s.", injuryText(e.Payload))
	case events.EventTypeMoraleChanged:
		return fmt.Sprintf("Morale %+.0f after %s.", number(e.Payload, "delta"), text(e.Payload, "event"))
	case events.EventTypeSupercompensation:
		return fmt.Sprintf("Base stamina grew by %.2f.", number(e.Payload, "growth"))
	case events.EventTypeAgedUp:
		return fmt.Sprintf("Turned %.0f.", number(e.Payload, "age"))
	default:
		return "Something changed."
	}
}

// determineImpact classifies the event impact.
func determineImpact(e EventRecord) string {
	switch events.EventType(e.EventType) {
	case events.EventTypeTrainingBlocked, events.EventTypeInjurySustained:
		return "NEGATIVE"
	case events.EventTypeTrainingCompleted, events.EventTypeInjuryRecovered, events.EventTypeSupercompensation:
		return "POSITIVE"
	case events.EventTypeMoraleChanged:
		if number(e.Payload, "delta") < 0 {
			return "NEGATIVE"
		}
		return "POSITIVE"
	default:
		return "NEUTRAL"
	}
}
