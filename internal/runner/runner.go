// Package runner implements the MDA event loop: the lifecycle state
// machine, the per-event timing wait, and the wiring between a
// caller-supplied core.Engine, an internal/dispatch.Dispatcher, and the
// internal/engineiter cancel/pause signaling wrapper (spec.md §4.1,
// §4.4).
//
// Grounded on modules/framesupplier/internal/supplier.go's
// Start/Stop/loop-goroutine orchestration (a lifecycle object that owns
// a context-scoped loop and reports its outcome through a structured
// result), generalized from a single distribution loop to the full
// event → engine → dispatcher pipeline.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/e7canasta/mda-runner/internal/core"
	"github.com/e7canasta/mda-runner/internal/dispatch"
	"github.com/e7canasta/mda-runner/internal/engineiter"
)

// eventWaitPoll is the busy-wait granularity for the
// wait-for-min-start-time loop, matching the polling interval of the
// original reference's wait loop (pymmcore_plus/mda/_engine.py's
// time.sleep(0.1)).
const eventWaitPoll = 100 * time.Millisecond

// ErrAlreadyRunning is returned by Run when called while a previous Run
// on the same Runner has not yet returned.
var ErrAlreadyRunning = errors.New("mda: runner already running")

type state int

const (
	stateIdle state = iota
	statePreparing
	stateRunning
	stateClosing
	stateFinished
)

// Runner owns the event loop for one run at a time. A Runner is safe
// for concurrent use: Cancel and TogglePause may be called from any
// goroutine while Run is in progress (spec §5); Run itself must not be
// called concurrently with another Run on the same Runner.
type Runner struct {
	logger  *slog.Logger
	clock   core.Clock
	signals core.Signals

	mu         sync.Mutex
	state      state
	runClock   *core.RunClock
	dispatcher *dispatch.Dispatcher
}

// New returns a Runner. logger defaults to slog.Default(); clock
// defaults to core.SystemClock.
func New(logger *slog.Logger, clock core.Clock, signals core.Signals) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger, clock: clock, signals: signals}
}

// Cancel idempotently requests cancellation of the in-progress run. A
// no-op if no run is in progress.
func (r *Runner) Cancel() {
	r.mu.Lock()
	rc := r.runClock
	r.mu.Unlock()
	if rc != nil {
		rc.Cancel()
	}
}

// TogglePause idempotently toggles the paused state of the in-progress
// run and returns the new state. A no-op (returning false) if no run is
// in progress.
func (r *Runner) TogglePause() bool {
	r.mu.Lock()
	rc := r.runClock
	r.mu.Unlock()
	if rc == nil {
		return false
	}
	paused := rc.TogglePause()
	if r.signals.SequencePauseToggled != nil {
		r.signals.SequencePauseToggled(paused)
	}
	return paused
}

// IsRunning reports whether a run is currently in progress.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state != stateIdle
}

// IsPaused reports the paused state of the in-progress run.
func (r *Runner) IsPaused() bool {
	r.mu.Lock()
	rc := r.runClock
	r.mu.Unlock()
	if rc == nil {
		return false
	}
	return rc.IsPaused()
}

// SecondsElapsed returns the in-progress run's monotonic seconds since
// the event-timer reference, minus accumulated paused time.
func (r *Runner) SecondsElapsed() time.Duration {
	r.mu.Lock()
	rc := r.runClock
	r.mu.Unlock()
	if rc == nil {
		return 0
	}
	return rc.SecondsElapsed()
}

// QueueStatus snapshots {consumer name: (pending, capacity)} for the
// in-progress run's dispatcher.
func (r *Runner) QueueStatus() map[string][2]int {
	r.mu.Lock()
	d := r.dispatcher
	r.mu.Unlock()
	if d == nil {
		return nil
	}
	return d.QueueStatus()
}

// Run drives one MDA sequence to completion: engine sequence setup,
// the dispatcher's consumer lifecycle, the event loop, and dispatcher
// close, in that order, per spec §4.1's state machine and algorithm.
func (r *Runner) Run(
	ctx context.Context,
	sequence core.Sequence,
	events core.EventSource,
	engine core.Engine,
	consumers []core.ConsumerSpec,
	policy core.RunPolicy,
) (core.RunReport, error) {
	r.mu.Lock()
	if r.state != stateIdle {
		r.mu.Unlock()
		return core.RunReport{}, ErrAlreadyRunning
	}
	r.state = statePreparing
	rc := core.NewRunClock(r.clock)
	r.runClock = rc
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.state = stateIdle
		r.runClock = nil
		r.dispatcher = nil
		r.mu.Unlock()
	}()

	rc.ResetEventTimer()
	startedAt := time.Now()

	d := dispatch.New(policy, r.logger)
	for _, spec := range consumers {
		d.AddConsumer(spec)
	}

	status := core.StatusCompleted
	var runErr error
	var summaryMeta map[string]any

	if se, ok := engine.(core.SequenceSetupEngine); ok {
		m, err := se.SetupSequence(ctx, sequence)
		if err != nil {
			// Aborts before sequenceStarted; no consumer receives setup
			// (spec §4.1 Failure semantics). d.Start is never called, so
			// Close below has zero workers to join/finish — but it still
			// runs, so dispatcher.close() and sequenceFinished still fire
			// exactly once, per spec §4.1/§7.
			status = core.StatusFailed
			runErr = fmt.Errorf("engine setup_sequence: %w", err)
		}
		summaryMeta = m
	}

	if runErr == nil {
		if err := d.Start(ctx, sequence, summaryMeta); err != nil {
			status = core.StatusFailed
			runErr = err
		} else {
			r.mu.Lock()
			r.dispatcher = d
			r.state = stateRunning
			r.mu.Unlock()

			if r.signals.SequenceStarted != nil {
				r.signals.SequenceStarted(sequence, summaryMeta)
			}

			eventSource := events
			if eie, ok := engine.(core.EventIteratorEngine); ok {
				eventSource = eie.EventIterator(events)
			}

			status, runErr = r.loop(ctx, rc, d, engine, eventSource)
			if rc.IsCanceled() && status != core.StatusFailed {
				status = core.StatusCanceled
				if r.signals.SequenceCanceled != nil {
					r.signals.SequenceCanceled(sequence)
				}
			}
		}
	}

	r.mu.Lock()
	r.state = stateClosing
	r.mu.Unlock()

	report, closeErr := d.Close(ctx, sequence, status)
	if runErr == nil {
		runErr = closeErr
	} else if closeErr != nil {
		r.logger.Error("dispatcher close error after prior fatal error", "error", closeErr)
	}
	report.StartedAt = startedAt

	if te, ok := engine.(core.SequenceTeardownEngine); ok {
		if err := te.TeardownSequence(ctx, sequence); err != nil {
			r.logger.Error("engine teardown_sequence error", "error", err)
		}
	}

	r.mu.Lock()
	r.state = stateFinished
	r.mu.Unlock()

	if r.signals.SequenceFinished != nil {
		r.signals.SequenceFinished(sequence, report)
	}

	return report, runErr
}

// loop implements the per-event algorithm of spec §4.1 step 3.
func (r *Runner) loop(ctx context.Context, rc *core.RunClock, d *dispatch.Dispatcher, engine core.Engine, events core.EventSource) (core.RunStatus, error) {
	for {
		if rc.IsCanceled() || ctx.Err() != nil {
			rc.Cancel()
			break
		}

		event, ok, err := events.Next(ctx)
		if err != nil {
			return core.StatusFailed, fmt.Errorf("event source: %w", err)
		}
		if !ok {
			break
		}

		if event.ResetEventTimer() {
			rc.ResetEventTimer()
		}

		if !r.waitForEventTime(ctx, rc, event) {
			break
		}

		if r.signals.EventStarted != nil {
			r.signals.EventStarted(event)
		}

		if err := engine.SetupEvent(ctx, event); err != nil {
			r.teardownEvent(ctx, engine, event)
			return core.StatusFailed, fmt.Errorf("engine setup_event: %w", err)
		}

		frames, err := engine.ExecEvent(ctx, event)
		if err != nil {
			r.teardownEvent(ctx, engine, event)
			return core.StatusFailed, fmt.Errorf("engine exec_event: %w", err)
		}

		canceled, ferr := r.drainFrames(ctx, rc, d, frames)
		r.teardownEvent(ctx, engine, event)
		if ferr != nil {
			return core.StatusFailed, ferr
		}
		if canceled {
			rc.Cancel()
			break
		}
	}

	if rc.IsCanceled() {
		return core.StatusCanceled, nil
	}
	return core.StatusCompleted, nil
}

// waitForEventTime blocks until seconds_elapsed() reaches
// event.MinStartTime(), servicing pause, per spec §4.1 step 3b. It
// returns false if cancellation (from the caller or from ctx) was
// observed during the wait.
func (r *Runner) waitForEventTime(ctx context.Context, rc *core.RunClock, event core.Event) bool {
	minStart := event.MinStartTime()
	for {
		if rc.IsCanceled() {
			return false
		}
		if rc.IsPaused() {
			if !sleepCtx(ctx, rc, eventWaitPoll) {
				return false
			}
			continue
		}

		remaining := minStart - rc.SecondsElapsed()
		if remaining <= 0 {
			return true
		}
		if r.signals.AwaitingEvent != nil {
			r.signals.AwaitingEvent(event, remaining)
		}

		wait := eventWaitPoll
		if remaining < wait {
			wait = remaining
		}
		if !sleepCtx(ctx, rc, wait) {
			return false
		}
	}
}

// drainFrames iterates the frames yielded by one event through the
// cancel/pause signaling wrapper, decorating, publishing, and
// submitting each one (spec §4.1 step 3f).
func (r *Runner) drainFrames(ctx context.Context, rc *core.RunClock, d *dispatch.Dispatcher, frames core.FrameIterator) (canceled bool, err error) {
	wrapped := engineiter.Wrap(frames, engineiter.StateFuncs{
		Canceled: rc.IsCanceled,
		Paused:   rc.IsPaused,
	})

	for {
		frame, ok, ferr := wrapped.Next(ctx)
		if ferr != nil {
			return false, fmt.Errorf("engine frame iteration: %w", ferr)
		}
		if !ok {
			return false, nil
		}

		if frame.Meta == nil {
			frame.Meta = map[string]any{}
		}
		if _, exists := frame.Meta["runner_time_ms"]; !exists {
			frame.Meta["runner_time_ms"] = rc.SecondsElapsed().Milliseconds()
		}

		if r.signals.FrameReady != nil {
			r.signals.FrameReady(frame.Image, frame.Event, frame.Meta)
		}

		if err := d.Submit(frame.Image, frame.Event, frame.Meta); err != nil {
			// FAIL-policy buffer-full error: treated as a fatal engine
			// event-level failure that requests cancellation (spec §7
			// item 6).
			return true, fmt.Errorf("dispatcher submit: %w", err)
		}

		if d.ShouldCancel() {
			return true, nil
		}
	}
}

func (r *Runner) teardownEvent(ctx context.Context, engine core.Engine, event core.Event) {
	te, ok := engine.(core.EventTeardownEngine)
	if !ok {
		return
	}
	if err := te.TeardownEvent(ctx, event); err != nil {
		r.logger.Error("engine teardown_event error", "event", event, "error", err)
	}
}

func sleepCtx(ctx context.Context, rc *core.RunClock, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		rc.Cancel()
		return false
	}
}
