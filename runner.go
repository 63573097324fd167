package mda

import (
	"context"
	"log/slog"
	"time"

	internalrunner "github.com/e7canasta/mda-runner/internal/runner"
)

// ErrAlreadyRunning is returned by Run when called while a previous Run
// on the same Runner has not yet returned.
var ErrAlreadyRunning = internalrunner.ErrAlreadyRunning

// Runner owns one MDA sequence's event loop at a time: engine sequence
// setup, the dispatcher's consumer lifecycle, per-event timing with
// pause/cancel, and dispatcher close.
type Runner interface {
	// Run drives events through engine and fans resulting frames out to
	// consumers under policy, blocking until the sequence completes,
	// is canceled, or fails. sequence is the opaque descriptor reported
	// to every Consumer's Setup/Finish and to Engine.SetupSequence.
	Run(ctx context.Context, sequence Sequence, events EventSource, engine Engine, consumers []ConsumerSpec, policy RunPolicy) (RunReport, error)

	// Cancel idempotently requests cancellation of the in-progress run.
	// Safe to call from any goroutine.
	Cancel()

	// TogglePause idempotently toggles the paused state of the
	// in-progress run and returns the new state. Safe to call from any
	// goroutine.
	TogglePause() bool

	// IsRunning reports whether a run is currently in progress.
	IsRunning() bool

	// IsPaused reports the paused state of the in-progress run.
	IsPaused() bool

	// SecondsElapsed returns the in-progress run's monotonic seconds
	// since the event-timer reference, minus accumulated paused time.
	SecondsElapsed() time.Duration

	// QueueStatus snapshots {consumer name: (pending, capacity)} for the
	// in-progress run's dispatcher.
	QueueStatus() map[string][2]int
}

// RunnerOption configures a Runner built by New. Grounded on the
// original Python reference's MDARunner.__init__, which takes an
// injectable signal_emitter rather than relying on ambient state.
type RunnerOption func(*runnerConfig)

type runnerConfig struct {
	logger  *slog.Logger
	clock   Clock
	signals Signals
}

// WithLogger injects a *slog.Logger for the runner and its dispatcher
// to log through. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(c *runnerConfig) { c.logger = logger }
}

// WithClock injects the Clock a run reads the current time from for its
// elapsed-time and pause accounting. The wait between event-time polls
// still uses real timers. Defaults to SystemClock.
func WithClock(clock Clock) RunnerOption {
	return func(c *runnerConfig) { c.clock = clock }
}

// WithSignals connects observers to a run's lifecycle signals. Any nil
// field of signals is simply never invoked.
func WithSignals(signals Signals) RunnerOption {
	return func(c *runnerConfig) { c.signals = signals }
}

// New returns a Runner configured by opts.
func New(opts ...RunnerOption) Runner {
	cfg := &runnerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	return internalrunner.New(cfg.logger, cfg.clock, cfg.signals)
}
