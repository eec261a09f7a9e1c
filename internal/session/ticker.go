package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MRamiBalles/kairo-condition/internal/engine"
	"github.com/MRamiBalles/kairo-condition/internal/platform/logger"
	"github.com/MRamiBalles/kairo-condition/internal/platform/metrics"
)

// DayHook is told about every completed day.
type DayHook func(day int, reports []engine.DayReport)

// Ticker is the season clock. Each tick advances every athlete one day.
// It does NOT know about stamina or injuries, only the calendar.
type Ticker struct {
	runner   *Runner
	logger   *logger.Logger
	metrics  *metrics.Collector // optional
	interval time.Duration
	day      atomic.Int64
	advance  sync.Mutex
	hooks    []DayHook
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewTicker creates a clock at startDay.
func NewTicker(runner *Runner, log *logger.Logger, m *metrics.Collector, interval time.Duration, startDay int) *Ticker {
	t := &Ticker{
		runner:   runner,
		logger:   log,
		metrics:  m,
		interval: interval,
		stopChan: make(chan struct{}),
	}
	t.day.Store(int64(startDay))
	return t
}

// OnDay registers a hook. Not safe to call once Start is running.
func (t *Ticker) OnDay(h DayHook) {
	t.hooks = append(t.hooks, h)
}

// Day returns the current season day.
func (t *Ticker) Day() int {
	return int(t.day.Load())
}

// Start begins the season clock. Call in a goroutine.
func (t *Ticker) Start(ctx context.Context) {
	t.logger.Infof("Season clock started at day %d, one day every %s", t.Day(), t.interval)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Season clock stopped by context")
			return
		case <-t.stopChan:
			t.logger.Info("Season clock stopped manually")
			return
		case <-ticker.C:
			if _, _, err := t.Advance(ctx); err != nil && !errors.Is(err, context.Canceled) {
				t.logger.Errorf("Day advance failed: %v", err)
			}
		}
	}
}

// Stop gracefully stops the clock.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() { close(t.stopChan) })
}

// Advance moves the whole roster to the next day.
// Athletes already at or past that day are left alone.
func (t *Ticker) Advance(ctx context.Context) (int, []engine.DayReport, error) {
	t.advance.Lock()
	defer t.advance.Unlock()

	start := time.Now()
	next := t.Day() + 1
	var reports []engine.DayReport

	err := t.runner.Do(ctx, func(c *engine.Coordinator) error {
		for _, id := range c.IDs() {
			last, err := c.Day(id)
			if err != nil {
				return err
			}
			if last >= next {
				continue
			}
			r, err := c.AdvanceDay(id, next)
			if err != nil {
				return err
			}
			reports = append(reports, r)
		}
		return nil
	})
	if err != nil {
		return t.Day(), nil, err
	}

	t.day.Store(int64(next))
	if t.metrics != nil {
		t.metrics.RecordTick(time.Since(start))
	}
	t.logger.Event("DAY", "ALL", fmt.Sprintf("Day %d for %d athletes", next, len(reports)))

	for _, h := range t.hooks {
		h(next, reports)
	}
	return next, reports, nil
}
