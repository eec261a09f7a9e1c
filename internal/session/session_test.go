package session

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MRamiBalles/kairo-condition/internal/command"
	"github.com/MRamiBalles/kairo-condition/internal/domain/athlete"
	"github.com/MRamiBalles/kairo-condition/internal/engine"
	"github.com/MRamiBalles/kairo-condition/internal/events"
	"github.com/MRamiBalles/kairo-condition/internal/platform/logger"
	"github.com/MRamiBalles/kairo-condition/internal/platform/metrics"
	"github.com/MRamiBalles/kairo-condition/internal/random"
)

type harness struct {
	runner  *Runner
	ticker  *Ticker
	log     *events.EventLog
	metrics *metrics.Collector
}

func newHarness(t *testing.T, ids ...string) *harness {
	t.Helper()
	quiet := logger.NewWithWriter(io.Discard)
	el := events.NewMemoryLog()
	m := metrics.NewCollector()
	coord := engine.NewCoordinator(random.NewSequence(0.999), el, quiet, m)
	for _, id := range ids {
		a := athlete.NewAthlete(id, strings.ToUpper(id))
		err := coord.Register(engine.Registration{
			Athlete:    *a,
			Age:        22,
			Attributes: athlete.Attributes{Shooting: 50, Speed: 50},
			Stamina:    engine.StaminaStats{BaseStamina: 400, RecoveryRate: 0, FatigueResistance: 0, Potential: 0.5},
			Morale:     50,
		})
		if err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}

	runner := NewRunner(coord, quiet, 4)
	ctx, cancel := context.WithCancel(context.Background())
	go runner.Run(ctx)
	t.Cleanup(cancel)

	return &harness{
		runner:  runner,
		ticker:  NewTicker(runner, quiet, m, time.Hour, 0),
		log:     el,
		metrics: m,
	}
}

func TestRunnerSerializesCalls(t *testing.T) {
	h := newHarness(t, "kai")

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.runner.Do(context.Background(), func(c *engine.Coordinator) error {
				_, err := c.ApplyMoraleEvent("kai", athlete.EventRestDay)
				return err
			})
		}()
	}
	wg.Wait()

	var value float64
	_ = h.runner.Do(context.Background(), func(c *engine.Coordinator) error {
		s, err := c.Snapshot("kai")
		value = s.Morale.Value
		return err
	})
	if value != 65 {
		t.Errorf("Expected 5 rest days to lift morale to 65, got %v", value)
	}
}

func TestRunnerRecoversPanics(t *testing.T) {
	h := newHarness(t)
	err := h.runner.Do(context.Background(), func(*engine.Coordinator) error { panic("boom") })
	if err == nil {
		t.Fatal("Expected an error from a panicking job")
	}
	// Still alive
	if err := h.runner.Do(context.Background(), func(*engine.Coordinator) error { return nil }); err != nil {
		t.Errorf("Expected runner to keep serving, got %v", err)
	}
}

func TestRunnerStopped(t *testing.T) {
	coord := engine.NewCoordinator(random.NewSequence(0.5), events.NewMemoryLog(), logger.NewWithWriter(io.Discard), nil)
	r := NewRunner(coord, logger.NewWithWriter(io.Discard), 0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	err := r.Do(context.Background(), func(*engine.Coordinator) error { return nil })
	if !errors.Is(err, ErrStopped) {
		t.Errorf("Expected ErrStopped, got %v", err)
	}
}

func TestRunnerSkipsJobsPastDeadline(t *testing.T) {
	h := newHarness(t, "kai")

	release := make(chan struct{})
	busy := make(chan struct{})
	go h.runner.Do(context.Background(), func(*engine.Coordinator) error {
		close(busy)
		<-release
		return nil
	})
	<-busy

	var ran atomic.Bool
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := h.runner.Do(ctx, func(c *engine.Coordinator) error {
		ran.Store(true)
		_, err := c.ExecuteTraining("kai", athlete.SprintDrills, 0.8)
		return err
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected DeadlineExceeded, got %v", err)
	}
	close(release)

	// Anything queued behind the expired job has run once this returns.
	var current float64
	if err := h.runner.Do(context.Background(), func(c *engine.Coordinator) error {
		snap, err := c.Snapshot("kai")
		current = snap.Stamina.Current
		return err
	}); err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if ran.Load() {
		t.Error("Expected the expired job never to run")
	}
	if current != 400 {
		t.Errorf("Expected stamina 400, got %v", current)
	}
}

func TestRunnerFinishesStartedJob(t *testing.T) {
	h := newHarness(t, "kai")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	var report engine.TrainingReport
	err := h.runner.Do(ctx, func(c *engine.Coordinator) error {
		time.Sleep(60 * time.Millisecond)
		var err error
		report, err = c.ExecuteTraining("kai", athlete.SprintDrills, 0.8)
		return err
	})
	if err != nil {
		t.Fatalf("Expected the started job's own result, got %v", err)
	}
	if report.Outcome != engine.OutcomeCompleted {
		t.Errorf("Expected COMPLETED, got %s", report.Outcome)
	}
}

func TestTickerAdvance(t *testing.T) {
	h := newHarness(t, "kai", "ren")
	var hooked []int
	h.ticker.OnDay(func(day int, reports []engine.DayReport) {
		hooked = append(hooked, day)
	})

	day, reports, err := h.ticker.Advance(context.Background())
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if day != 1 || len(reports) != 2 {
		t.Errorf("Expected day 1 for 2 athletes, got day %d with %d reports", day, len(reports))
	}
	h.ticker.Advance(context.Background())

	if h.ticker.Day() != 2 {
		t.Errorf("Expected day 2, got %d", h.ticker.Day())
	}
	if len(hooked) != 2 || hooked[1] != 2 {
		t.Errorf("Expected hooks for days 1 and 2, got %v", hooked)
	}
	if got := atomic.LoadInt64(&h.metrics.TickCount); got != 2 {
		t.Errorf("Expected 2 ticks recorded, got %d", got)
	}

	days := 0
	for _, e := range h.log.Replay() {
		if e.Type == events.EventTypeDayAdvanced {
			days++
		}
	}
	if days != 4 {
		t.Errorf("Expected 4 DAY_ADVANCED events, got %d", days)
	}
}

func TestTickerSkipsAthletesAhead(t *testing.T) {
	h := newHarness(t, "kai", "ren")
	_ = h.runner.Do(context.Background(), func(c *engine.Coordinator) error {
		_, err := c.AdvanceDay("ren", 3)
		return err
	})

	_, reports, err := h.ticker.Advance(context.Background())
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if len(reports) != 1 || reports[0].AthleteID != "kai" {
		t.Errorf("Expected only kai to advance, got %+v", reports)
	}
}

func TestTickerStartStop(t *testing.T) {
	h := newHarness(t, "kai")
	h.ticker.interval = 5 * time.Millisecond

	done := make(chan struct{})
	go func() {
		h.ticker.Start(context.Background())
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for h.ticker.Day() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("Expected the clock to advance")
		}
		time.Sleep(time.Millisecond)
	}
	h.ticker.Stop()
	h.ticker.Stop()
	<-done
}

func TestDispatch(t *testing.T) {
	h := newHarness(t, "kai")
	d := NewDispatcher(h.runner, h.ticker)
	ctx := context.Background()

	tests := []struct {
		line string
		want string
	}{
		{"help", "commands:"},
		{"train shooting 0.8", "SHOOTING_PRACTICE done"},
		{"morale win", "WIN: morale now GOOD (65)"},
		{"day", "kai, 1st day"},
		{"age", "turned 23"},
		{"status", "KAI (kai), age 23, 1st day"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			out, err := d.Dispatch(ctx, "kai", tt.line)
			if err != nil {
				t.Fatalf("Dispatch failed: %v", err)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("Expected %q in %q", tt.want, out)
			}
		})
	}
}

func TestDispatchBlockedAndErrors(t *testing.T) {
	h := newHarness(t, "kai")
	d := NewDispatcher(h.runner, h.ticker)
	ctx := context.Background()

	blocked := false
	for i := 0; i < 10 && !blocked; i++ {
		out, err := d.Dispatch(ctx, "kai", "train scrim")
		if err != nil {
			t.Fatalf("Expected blocked training to be a reply, got %v", err)
		}
		blocked = strings.Contains(out, "blocked")
	}
	if !blocked {
		t.Error("Expected repeated scrimmages to run out of stamina")
	}

	var perr *command.ParseError
	if _, err := d.Dispatch(ctx, "kai", "train juggling"); !errors.As(err, &perr) {
		t.Errorf("Expected a parse error, got %v", err)
	}
	if _, err := d.Dispatch(ctx, "ghost", "status"); !errors.Is(err, engine.ErrUnknownAthlete) {
		t.Errorf("Expected ErrUnknownAthlete, got %v", err)
	}
	if _, err := d.Dispatch(ctx, "ghost", "day"); !errors.Is(err, engine.ErrUnknownAthlete) {
		t.Errorf("Expected ErrUnknownAthlete before advancing, got %v", err)
	}
	if h.ticker.Day() != 0 {
		t.Errorf("Expected unknown athlete not to move the clock, got day %d", h.ticker.Day())
	}
}
