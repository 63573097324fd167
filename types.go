package mda

import (
	"github.com/e7canasta/mda-runner/internal/core"
)

// Event, Sequence, and Frame are re-exported from internal/core to
// avoid import cycles, following framesupplier.go's
// `type X = internal.X` pattern.
type (
	Event    = core.Event
	Sequence = core.Sequence
	Frame    = core.Frame
)

// RunStatus is the terminal outcome of a run.
type RunStatus = core.RunStatus

const (
	StatusCompleted = core.StatusCompleted
	StatusCanceled  = core.StatusCanceled
	StatusFailed    = core.StatusFailed
)

// CriticalErrorPolicy governs what happens when a critical consumer's
// setup, frame, or finish call returns an error.
type CriticalErrorPolicy = core.CriticalErrorPolicy

const (
	CriticalErrorRaise    = core.CriticalErrorRaise
	CriticalErrorCancel   = core.CriticalErrorCancel
	CriticalErrorContinue = core.CriticalErrorContinue
)

// NonCriticalErrorPolicy governs what happens when a non-critical
// consumer (an observer) returns an error.
type NonCriticalErrorPolicy = core.NonCriticalErrorPolicy

const (
	NonCriticalErrorLog        = core.NonCriticalErrorLog
	NonCriticalErrorDisconnect = core.NonCriticalErrorDisconnect
)

// BackpressurePolicy governs what a dispatcher worker does when its
// queue is full at submission time.
type BackpressurePolicy = core.BackpressurePolicy

const (
	BackpressureBlock      = core.BackpressureBlock
	BackpressureDropOldest = core.BackpressureDropOldest
	BackpressureDropNewest = core.BackpressureDropNewest
	BackpressureFail       = core.BackpressureFail
)

// RunPolicy is the immutable configuration for one run.
type RunPolicy = core.RunPolicy

// DefaultRunPolicy returns RAISE / LOG / BLOCK with queue capacity 256.
func DefaultRunPolicy() RunPolicy { return core.DefaultRunPolicy() }

// ConsumerReport carries one consumer's monotonic counters and the
// ordered list of errors its Frame calls returned, including the one
// that stopped its worker, if any.
type ConsumerReport = core.ConsumerReport

// RunReport is produced exactly once per run.
type RunReport = core.RunReport

// Consumer is the capability set every frame sink must implement.
type Consumer = core.Consumer

// ConsumerSpec registers a Consumer for the duration of a run.
type ConsumerSpec = core.ConsumerSpec

// ConsumerDispatchError wraps an error surfaced by a critical consumer
// under the RAISE policy.
type ConsumerDispatchError = core.ConsumerDispatchError

// BufferFullError is returned under the FAIL backpressure policy when a
// consumer's queue has no room at submission time.
type BufferFullError = core.BufferFullError

// Clock abstracts time.Now for a run's elapsed-time and pause
// accounting. The wait between event-time polls still uses real timers.
type Clock = core.Clock

// SystemClock is the default Clock, backed by time.Now.
type SystemClock = core.SystemClock

// Signals is the observational hook set a run emits lifecycle events
// to, independent of the Consumer interface.
type Signals = core.Signals
