package command

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/MRamiBalles/kairo-condition/internal/domain/athlete"
	"github.com/MRamiBalles/kairo-condition/internal/engine"
)

const HelpText = `commands:
  train <drill> [intensity]   e.g. "train shooting 0.8" or "train sprints 90%"
  morale <event>              win, loss, great, poor, success, failure, rest, bench
  day                         advance the season one day
  age                         add a year to the athlete
  status                      readiness, stamina, injuries and morale`

func signed(v float64) string {
	if v >= 0 {
		return "+" + humanize.FtoaWithDigits(v, 3)
	}
	return humanize.FtoaWithDigits(v, 3)
}

func formatDeltas(deltas map[athlete.Attribute]float64) string {
	if len(deltas) == 0 {
		return "no attribute change"
	}
	attrs := make([]string, 0, len(deltas))
	for a := range deltas {
		attrs = append(attrs, string(a))
	}
	sort.Strings(attrs)

	parts := make([]string, 0, len(attrs))
	for _, a := range attrs {
		parts = append(parts, fmt.Sprintf("%s %s", a, signed(deltas[athlete.Attribute(a)])))
	}
	return strings.Join(parts, ", ")
}

func formatStamina(s engine.StaminaState) string {
	pct := 0.0
	if s.Max > 0 {
		pct = s.Current / s.Max * 100
	}
	return fmt.Sprintf("stamina %s/%s (%.0f%%), fatigue %.1f",
		humanize.CommafWithDigits(s.Current, 1), humanize.CommafWithDigits(s.Max, 1), pct, s.Fatigue)
}

func formatInjury(inj athlete.Injury) string {
	chronic := ""
	if inj.IsChronic {
		chronic = ", chronic"
	}
	return fmt.Sprintf("%s (%s, severity %d, %s days left%s)",
		inj.Type, inj.Location, inj.Severity, humanize.FtoaWithDigits(inj.RecoveryDaysRemaining, 1), chronic)
}

// FormatTraining renders a training report for a coach.
func FormatTraining(r engine.TrainingReport) string {
	var b strings.Builder
	switch r.Outcome {
	case engine.OutcomeInsufficientStamina:
		fmt.Fprintf(&b, "%s blocked: not enough stamina. %s", r.Drill, formatStamina(r.Stamina))
		return b.String()
	case engine.OutcomeIgnored:
		fmt.Fprintf(&b, "%s ignored: unknown drill", r.Drill)
		return b.String()
	}

	fmt.Fprintf(&b, "%s done at x%s: %s. %s. morale %s",
		r.Drill, humanize.FtoaWithDigits(r.Modifier, 2), formatDeltas(r.AttributeDeltas),
		formatStamina(r.Stamina), r.Morale.State)
	if r.NewInjury != nil {
		fmt.Fprintf(&b, ". INJURED: %s", formatInjury(*r.NewInjury))
	}
	return b.String()
}

// FormatDay renders a day report.
func FormatDay(r engine.DayReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s, %s day: %s", r.AthleteID, humanize.Ordinal(r.Day), formatStamina(r.Stamina))
	if r.StaminaGrowth > 0 {
		fmt.Fprintf(&b, ". base stamina grew by %s", humanize.FtoaWithDigits(r.StaminaGrowth, 4))
	}
	for _, inj := range r.Recovered {
		fmt.Fprintf(&b, ". recovered from %s (%s)", inj.Type, inj.Location)
	}
	if n := len(r.Injuries); n > 0 {
		fmt.Fprintf(&b, ". %d active %s", n, plural(n, "injury", "injuries"))
	}
	return b.String()
}

// FormatStatus renders readiness and a snapshot side by side.
func FormatStatus(r engine.Readiness, s engine.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s), age %d, %s day\n", s.Athlete.Name, s.Athlete.ID, s.Age, humanize.Ordinal(s.Day))
	fmt.Fprintf(&b, "%s\n", formatStamina(s.Stamina))
	fmt.Fprintf(&b, "morale %s (%.0f): performance x%s, injury risk x%s\n",
		r.Morale, s.Morale.Value, humanize.FtoaWithDigits(r.Performance, 2), humanize.FtoaWithDigits(r.InjuryRisk, 2))
	fmt.Fprintf(&b, "injury chance %s%%, training effect x%s\n",
		humanize.FtoaWithDigits(r.InjuryChance*100, 2), humanize.FtoaWithDigits(r.InjuryPenalty, 2))
	for _, inj := range s.Injuries {
		fmt.Fprintf(&b, "  %s\n", formatInjury(inj))
	}
	b.WriteString(r.Effective.String())
	return b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// FormatMorale renders the result of a morale event.
func FormatMorale(ev athlete.MoraleEvent, rec athlete.MoraleRecord) string {
	return fmt.Sprintf("%s: morale now %s (%.0f)", ev, rec.State, rec.Value)
}

// FormatAge renders a birthday.
func FormatAge(age int, deltas map[athlete.Attribute]float64) string {
	return fmt.Sprintf("turned %d: %s", age, formatDeltas(deltas))
}
