// Package main - season-sim
// Runs a seeded offline season over a roster and prints a condition report.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/MRamiBalles/kairo-condition/internal/command"
	"github.com/MRamiBalles/kairo-condition/internal/domain/athlete"
	"github.com/MRamiBalles/kairo-condition/internal/engine"
	"github.com/MRamiBalles/kairo-condition/internal/events"
	"github.com/MRamiBalles/kairo-condition/internal/platform/logger"
	"github.com/MRamiBalles/kairo-condition/internal/platform/metrics"
	"github.com/MRamiBalles/kairo-condition/internal/random"
	"github.com/MRamiBalles/kairo-condition/internal/roster"
)

type session struct {
	drill     athlete.Drill
	intensity float64
}

// weekPlan is a seven day microcycle. The last day is game day.
var weekPlan = [7][]session{
	{{athlete.WeightLifting, 0.8}, {athlete.ShootingPractice, 0.6}},
	{{athlete.SprintDrills, 0.7}, {athlete.BallHandling, 0.6}},
	{{athlete.RecoverySession, 0.5}, {athlete.FilmStudy, 0.5}},
	{{athlete.Plyometrics, 0.8}, {athlete.FinishingDrills, 0.7}},
	{{athlete.DefensiveFootwork, 0.7}, {athlete.PostDefense, 0.6}},
	{{athlete.ShootingPractice, 0.5}, {athlete.FilmStudy, 0.4}},
	{{athlete.Scrimmage, 1.0}},
}

type tally struct {
	sessions  int
	blocked   int
	injuries  int
	recovered int
	growth    float64
}

func main() {
	rosterPath := flag.String("roster", "roster.yaml", "Roster YAML to simulate")
	seed := flag.Int64("seed", 1, "Season seed")
	days := flag.Int("days", 28, "Days to simulate")
	out := flag.String("out", "", "Write the end-of-season roster to this file")
	verbose := flag.Bool("v", false, "Log every engine event")
	flag.Parse()

	fmt.Println("=========================================")
	fmt.Println("KAIRO - Season Simulation")
	fmt.Println("=========================================")

	r, err := roster.Load(*rosterPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "roster: %v\n", err)
		os.Exit(1)
	}

	var logW io.Writer = io.Discard
	if *verbose {
		logW = os.Stderr
	}
	log := logger.NewWithWriter(logW)
	m := metrics.NewCollector()
	coord := engine.NewCoordinator(random.NewSeeded(*seed), events.NewMemoryLog(), log, m)

	for _, reg := range r.Registrations() {
		if err := coord.Register(reg); err != nil {
			fmt.Fprintf(os.Stderr, "register %s: %v\n", reg.Athlete.ID, err)
			os.Exit(1)
		}
	}

	fmt.Printf("Season:   %s\n", r.Season)
	fmt.Printf("Athletes: %d\n", len(coord.IDs()))
	fmt.Printf("Seed:     %d\n", *seed)
	fmt.Printf("Days:     %d (from day %d)\n\n", *days, r.StartDay)

	// Game results draw from their own stream so the injury rolls stay stable.
	results := random.Derive(*seed, "results")
	tallies := make(map[string]*tally)
	for _, id := range coord.IDs() {
		tallies[id] = &tally{}
	}

	for d := 1; d <= *days; d++ {
		day := r.StartDay + d
		plan := weekPlan[(d-1)%len(weekPlan)]
		gameDay := (d-1)%len(weekPlan) == len(weekPlan)-1

		for _, id := range coord.IDs() {
			t := tallies[id]
			for _, s := range plan {
				rep, err := coord.ExecuteTraining(id, s.drill, s.intensity)
				if err != nil {
					// Blocked sessions are expected late in the week.
					t.blocked++
					continue
				}
				t.sessions++
				if rep.NewInjury != nil {
					t.injuries++
				}
			}

			if gameDay {
				ev := athlete.EventLoss
				if results.Float64() < 0.5 {
					ev = athlete.EventWin
				}
				_, _ = coord.ApplyMoraleEvent(id, ev)
			} else if plan[0].drill == athlete.RecoverySession {
				_, _ = coord.ApplyMoraleEvent(id, athlete.EventRestDay)
			}

			rep, err := coord.AdvanceDay(id, day)
			if err != nil {
				fmt.Fprintf(os.Stderr, "day %d %s: %v\n", day, id, err)
				os.Exit(1)
			}
			t.recovered += len(rep.Recovered)
			t.growth += rep.StaminaGrowth
		}
	}

	printReport(coord, tallies)

	fmt.Println("\n-----------------------------------------")
	fmt.Printf("Sessions: %s completed, %s blocked\n",
		humanize.Comma(m.TrainingSessions), humanize.Comma(m.TrainingBlocked))
	fmt.Printf("Injuries: %s, recoveries %s\n",
		humanize.Comma(m.InjuriesSustained), humanize.Comma(m.InjuriesRecovered))
	fmt.Println("=========================================")

	if *out != "" {
		if err := writeRoster(*out, r.Season, coord.Snapshots()); err != nil {
			fmt.Fprintf(os.Stderr, "write roster: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Roster saved to %s\n", *out)
	}
}

func printReport(coord *engine.Coordinator, tallies map[string]*tally) {
	ids := coord.IDs()
	sort.Strings(ids)
	for _, id := range ids {
		snap, err := coord.Snapshot(id)
		if err != nil {
			continue
		}
		ready, err := coord.Readiness(id)
		if err != nil {
			continue
		}
		t := tallies[id]

		fmt.Println(strings.Repeat("-", 41))
		fmt.Print(command.FormatStatus(ready, snap))
		fmt.Println()
		fmt.Printf("sessions %d, blocked %d, injuries %d, recovered %d, base stamina +%s\n",
			t.sessions, t.blocked, t.injuries, t.recovered, humanize.FtoaWithDigits(t.growth, 3))
	}
}

func writeRoster(path, season string, snaps []engine.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := roster.Encode(f, roster.FromSnapshots(season, snaps)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
