// Package command parses the text commands coaches type into the condition server.
package command

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/MRamiBalles/kairo-condition/internal/domain/athlete"
)

type Kind string

const (
	Train  Kind = "train"
	Morale Kind = "morale"
	Day    Kind = "day"
	Age    Kind = "age"
	Status Kind = "status"
	Help   Kind = "help"
)

// DefaultIntensity is used when a train command gives none.
const DefaultIntensity = 0.7

var ErrEmpty = errors.New("empty command")

type Command struct {
	Kind      Kind
	Drill     athlete.Drill
	Intensity float64
	Event     athlete.MoraleEvent
	Raw       string
}

// ParseError is a command that could not be mapped. Suggestions holds the
// closest known names, if any.
type ParseError struct {
	Msg         string
	Suggestions []string
}

func (e *ParseError) Error() string {
	if len(e.Suggestions) == 0 {
		return e.Msg
	}
	return fmt.Sprintf("%s (did you mean %s?)", e.Msg, strings.Join(e.Suggestions, " or "))
}

var verbs = map[string]Kind{
	"train":     Train,
	"t":         Train,
	"drill":     Train,
	"practice":  Train,
	"morale":    Morale,
	"m":         Morale,
	"event":     Morale,
	"day":       Day,
	"next":      Day,
	"advance":   Day,
	"age":       Age,
	"birthday":  Age,
	"status":    Status,
	"s":         Status,
	"readiness": Status,
	"show":      Status,
	"help":      Help,
	"h":         Help,
	"?":         Help,
}

var drillAliases = map[string]athlete.Drill{
	"weights":   athlete.WeightLifting,
	"lifting":   athlete.WeightLifting,
	"sprints":   athlete.SprintDrills,
	"sprint":    athlete.SprintDrills,
	"plyo":      athlete.Plyometrics,
	"shooting":  athlete.ShootingPractice,
	"shots":     athlete.ShootingPractice,
	"handles":   athlete.BallHandling,
	"dribbling": athlete.BallHandling,
	"finishing": athlete.FinishingDrills,
	"footwork":  athlete.DefensiveFootwork,
	"post":      athlete.PostDefense,
	"film":      athlete.FilmStudy,
	"scrim":     athlete.Scrimmage,
	"recovery":  athlete.RecoverySession,
	"rehab":     athlete.RecoverySession,
}

var eventAliases = map[string]athlete.MoraleEvent{
	"win":     athlete.EventWin,
	"won":     athlete.EventWin,
	"loss":    athlete.EventLoss,
	"lose":    athlete.EventLoss,
	"lost":    athlete.EventLoss,
	"great":   athlete.EventGreatPerformance,
	"poor":    athlete.EventPoorPerformance,
	"success": athlete.EventTrainingSuccess,
	"failure": athlete.EventTrainingFailure,
	"fail":    athlete.EventTrainingFailure,
	"rest":    athlete.EventRestDay,
	"bench":   athlete.EventBenchWarm,
}

func Parse(raw string) (Command, error) {
	tokens := strings.Fields(strings.ToLower(strings.TrimSpace(raw)))
	if len(tokens) == 0 {
		return Command{}, ErrEmpty
	}

	kind, err := matchVerb(tokens[0])
	if err != nil {
		return Command{}, err
	}
	cmd := Command{Kind: kind, Raw: raw}
	args := tokens[1:]

	switch kind {
	case Train:
		return parseTrain(cmd, args)
	case Morale:
		if len(args) == 0 {
			return Command{}, &ParseError{Msg: "morale needs an event"}
		}
		ev, err := matchEvent(strings.Join(args, " "))
		if err != nil {
			return Command{}, err
		}
		cmd.Event = ev
	}
	return cmd, nil
}

func parseTrain(cmd Command, args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, &ParseError{Msg: "train needs a drill"}
	}

	cmd.Intensity = DefaultIntensity
	if len(args) > 1 {
		if v, ok := parseIntensity(args[len(args)-1]); ok {
			cmd.Intensity = v
			args = args[:len(args)-1]
		}
	}

	d, err := matchDrill(strings.Join(args, " "))
	if err != nil {
		return Command{}, err
	}
	cmd.Drill = d
	return cmd, nil
}

// parseIntensity accepts 0.8, 80 and 80%.
func parseIntensity(tok string) (float64, bool) {
	pct := strings.HasSuffix(tok, "%")
	v, err := strconv.ParseFloat(strings.TrimSuffix(tok, "%"), 64)
	if err != nil {
		return 0, false
	}
	if pct || v > 1 {
		v /= 100
	}
	return v, true
}

func normaliseName(s string) string {
	r := strings.NewReplacer("_", "", "-", "", " ", "")
	return r.Replace(strings.ToLower(strings.TrimSpace(s)))
}

func matchVerb(tok string) (Kind, error) {
	k, err := matchName(tok, verbs)
	if err != nil {
		return "", &ParseError{Msg: fmt.Sprintf("unknown command %q", tok), Suggestions: suggestions(err)}
	}
	return k, nil
}

func matchDrill(name string) (athlete.Drill, error) {
	table := make(map[string]athlete.Drill)
	for _, d := range athlete.AllDrills() {
		table[normaliseName(string(d))] = d
	}
	for alias, d := range drillAliases {
		table[alias] = d
	}
	d, err := matchName(name, table)
	if err != nil {
		return "", &ParseError{Msg: fmt.Sprintf("unknown drill %q", name), Suggestions: suggestions(err)}
	}
	return d, nil
}

func matchEvent(name string) (athlete.MoraleEvent, error) {
	table := make(map[string]athlete.MoraleEvent)
	for _, e := range athlete.AllMoraleEvents() {
		table[normaliseName(string(e))] = e
	}
	for alias, e := range eventAliases {
		table[alias] = e
	}
	e, err := matchName(name, table)
	if err != nil {
		return "", &ParseError{Msg: fmt.Sprintf("unknown morale event %q", name), Suggestions: suggestions(err)}
	}
	return e, nil
}

type noMatch struct{ options []string }

func (n noMatch) Error() string { return "no match" }

func suggestions(err error) []string {
	var nm noMatch
	if errors.As(err, &nm) {
		return nm.options
	}
	return nil
}

// matchName resolves exact, then unique prefix, then unique closest edit distance.
func matchName[T comparable](name string, table map[string]T) (T, error) {
	var zero T
	key := normaliseName(name)
	if v, ok := table[key]; ok {
		return v, nil
	}

	var prefixed []string
	if len(key) >= 3 {
		for k := range table {
			if strings.HasPrefix(k, key) {
				prefixed = append(prefixed, k)
			}
		}
	}
	if v, ok := unique(prefixed, table); ok {
		return v, nil
	}

	hits := closest(key, keys(table))
	if v, ok := unique(hits, table); ok {
		return v, nil
	}
	if len(hits) == 0 {
		hits = prefixed
	}
	sort.Strings(hits)
	return zero, noMatch{options: hits}
}

// unique reports the single value the names point at, if they all agree.
func unique[T comparable](names []string, table map[string]T) (T, bool) {
	var zero T
	if len(names) == 0 {
		return zero, false
	}
	first := table[names[0]]
	for _, n := range names[1:] {
		if table[n] != first {
			return zero, false
		}
	}
	return first, true
}

// closest returns every candidate at the smallest edit distance within the limit.
func closest(token string, candidates []string) []string {
	best := -1
	var hits []string
	for _, cand := range candidates {
		dist := levenshtein.ComputeDistance(token, cand)
		if dist > levenshteinLimit(len(cand)) {
			continue
		}
		switch {
		case best < 0 || dist < best:
			best = dist
			hits = []string{cand}
		case dist == best:
			hits = append(hits, cand)
		}
	}
	sort.Strings(hits)
	return hits
}

func keys[T any](m map[string]T) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func levenshteinLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}
