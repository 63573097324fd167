package core

import (
	"sync"
	"time"
)

// Clock abstracts time.Now so RunClock's elapsed-time and paused-time
// arithmetic is testable without real sleeps. It only supplies the
// current time: the runner's wait-for-event-time loop (spec §4.1 step
// 3b) still sleeps between polls on real timers. The teacher injects its
// lifecycle context at Start(ctx) rather than reaching for a package
// global; this follows the same preference for an injectable
// collaborator over an ambient singleton (spec §9 explicitly excludes
// "ambient singleton state" from the core's design).
type Clock interface {
	Now() time.Time
}

// SystemClock is the default Clock, backed by time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// RunClock tracks the event-timer reference, accumulated paused
// duration, and the pause/cancel flags for one run. All methods are
// safe for concurrent use: Cancel and TogglePause may be called from
// any goroutine per spec §5 ("cancel and toggle_pause are safe from any
// thread via atomic flags"). Exported so internal/runner, which
// orchestrates core alongside internal/dispatch and
// internal/engineiter, can own one per run.
type RunClock struct {
	clock Clock

	mu        sync.Mutex
	ref       time.Time // event-timer reference (reset at run start / ResetEventTimer)
	pausedAt  time.Time // zero if not currently paused
	pausedAcc time.Duration
	paused    bool
	canceled  bool
}

// NewRunClock returns a RunClock backed by clock, defaulting to
// SystemClock when clock is nil.
func NewRunClock(clock Clock) *RunClock {
	if clock == nil {
		clock = SystemClock{}
	}
	return &RunClock{clock: clock}
}

// ResetEventTimer sets the event-timer reference to now and clears
// accumulated paused time, per spec §4.1 step 2 (run start) and step
// 3a (per-event reset request).
func (c *RunClock) ResetEventTimer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ref = c.clock.Now()
	c.pausedAcc = 0
	if c.paused {
		c.pausedAt = c.ref
	}
}

// SecondsElapsed returns monotonic seconds since the event-timer
// reference, minus accumulated paused intervals.
func (c *RunClock) SecondsElapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsedLocked()
}

func (c *RunClock) elapsedLocked() time.Duration {
	elapsed := c.clock.Now().Sub(c.ref)
	paused := c.pausedAcc
	if c.paused {
		paused += c.clock.Now().Sub(c.pausedAt)
	}
	elapsed -= paused
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// TogglePause flips the paused flag, accumulating paused time across
// the toggle-off transition, and returns the new state.
func (c *RunClock) TogglePause() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock.Now()
	if c.paused {
		c.pausedAcc += now.Sub(c.pausedAt)
		c.paused = false
	} else {
		c.paused = true
		c.pausedAt = now
	}
	return c.paused
}

// IsPaused reports the current paused state.
func (c *RunClock) IsPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Cancel sets the monotonic canceled flag. Idempotent.
func (c *RunClock) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.canceled = true
}

// IsCanceled reports whether Cancel has been called.
func (c *RunClock) IsCanceled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canceled
}
