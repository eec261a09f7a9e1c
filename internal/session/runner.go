// Package session hosts the engine for a running server: a single goroutine
// owns the Coordinator and every mutation is queued through it.
package session

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/MRamiBalles/kairo-condition/internal/engine"
	"github.com/MRamiBalles/kairo-condition/internal/platform/logger"
)

// ErrStopped is returned by Do once Run has exited.
var ErrStopped = errors.New("session stopped")

const (
	jobPending int32 = iota
	jobRunning
	jobCancelled
)

// job is claimed exactly once: by the runner, or by a caller giving up on it.
type job struct {
	ctx    context.Context
	fn     func(*engine.Coordinator) error
	state  atomic.Int32
	result chan error
}

// Runner serializes access to a Coordinator.
type Runner struct {
	coord   *engine.Coordinator
	logger  *logger.Logger
	jobs    chan *job
	stopped chan struct{}
}

// NewRunner wraps coord. buffer sizes the command queue.
func NewRunner(coord *engine.Coordinator, log *logger.Logger, buffer int) *Runner {
	if buffer < 0 {
		buffer = 0
	}
	return &Runner{
		coord:   coord,
		logger:  log,
		jobs:    make(chan *job, buffer),
		stopped: make(chan struct{}),
	}
}

// Run executes queued jobs until ctx is done. Call in a goroutine.
func (r *Runner) Run(ctx context.Context) {
	r.logger.Info("Session runner started")
	defer close(r.stopped)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Session runner stopped")
			return
		case j := <-r.jobs:
			if !j.state.CompareAndSwap(jobPending, jobRunning) {
				continue
			}
			if err := j.ctx.Err(); err != nil {
				j.result <- err
				continue
			}
			j.result <- r.exec(j.fn)
		}
	}
}

func (r *Runner) exec(fn func(*engine.Coordinator) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Errorf("Recovered panic in session job: %v", p)
			err = errors.New("internal error")
		}
	}()
	return fn(r.coord)
}

// Do runs fn on the runner goroutine and waits for it.
// fn must not retain the Coordinator.
//
// When Do returns ctx.Err() or ErrStopped, fn has not run and never will, so
// values it would have captured are untouched. Once fn has started, Do waits
// for it even past the deadline.
func (r *Runner) Do(ctx context.Context, fn func(*engine.Coordinator) error) error {
	j := &job{ctx: ctx, fn: fn, result: make(chan error, 1)}

	select {
	case r.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	case <-r.stopped:
		return ErrStopped
	}

	select {
	case err := <-j.result:
		return err
	case <-ctx.Done():
		if j.state.CompareAndSwap(jobPending, jobCancelled) {
			return ctx.Err()
		}
	case <-r.stopped:
		if j.state.CompareAndSwap(jobPending, jobCancelled) {
			return ErrStopped
		}
	}
	// The runner claimed the job first.
	return <-j.result
}
