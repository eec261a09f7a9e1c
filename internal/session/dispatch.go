package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/MRamiBalles/kairo-condition/internal/command"
	"github.com/MRamiBalles/kairo-condition/internal/engine"
)

// Dispatcher turns text commands into engine calls for one athlete.
type Dispatcher struct {
	runner *Runner
	ticker *Ticker
}

// NewDispatcher binds the command surface to a running session.
func NewDispatcher(runner *Runner, ticker *Ticker) *Dispatcher {
	return &Dispatcher{runner: runner, ticker: ticker}
}

// Dispatch parses line and runs it for athleteID, returning the reply.
// A blocked training session is a normal reply, not an error.
func (d *Dispatcher) Dispatch(ctx context.Context, athleteID, line string) (string, error) {
	cmd, err := command.Parse(line)
	if err != nil {
		return "", err
	}

	switch cmd.Kind {
	case command.Help:
		return command.HelpText, nil

	case command.Train:
		var report engine.TrainingReport
		err := d.runner.Do(ctx, func(c *engine.Coordinator) error {
			var err error
			report, err = c.ExecuteTraining(athleteID, cmd.Drill, cmd.Intensity)
			return err
		})
		if err != nil && !errors.Is(err, engine.ErrInsufficientStamina) {
			return "", err
		}
		return command.FormatTraining(report), nil

	case command.Morale:
		var reply string
		err := d.runner.Do(ctx, func(c *engine.Coordinator) error {
			rec, err := c.ApplyMoraleEvent(athleteID, cmd.Event)
			if err != nil {
				return err
			}
			reply = command.FormatMorale(cmd.Event, rec)
			return nil
		})
		return reply, err

	case command.Day:
		if err := d.requireAthlete(ctx, athleteID); err != nil {
			return "", err
		}
		day, reports, err := d.ticker.Advance(ctx)
		if err != nil {
			return "", err
		}
		for _, r := range reports {
			if r.AthleteID == athleteID {
				return command.FormatDay(r), nil
			}
		}
		return fmt.Sprintf("%s is already at day %d or later", athleteID, day), nil

	case command.Age:
		var reply string
		err := d.runner.Do(ctx, func(c *engine.Coordinator) error {
			deltas, err := c.AgeUp(athleteID)
			if err != nil {
				return err
			}
			snap, err := c.Snapshot(athleteID)
			if err != nil {
				return err
			}
			reply = command.FormatAge(snap.Age, deltas)
			return nil
		})
		return reply, err

	case command.Status:
		var reply string
		err := d.runner.Do(ctx, func(c *engine.Coordinator) error {
			r, err := c.Readiness(athleteID)
			if err != nil {
				return err
			}
			snap, err := c.Snapshot(athleteID)
			if err != nil {
				return err
			}
			reply = command.FormatStatus(r, snap)
			return nil
		})
		return reply, err
	}
	return "", fmt.Errorf("unhandled command %q", cmd.Kind)
}

func (d *Dispatcher) requireAthlete(ctx context.Context, athleteID string) error {
	return d.runner.Do(ctx, func(c *engine.Coordinator) error {
		_, err := c.Day(athleteID)
		return err
	})
}
