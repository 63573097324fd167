// Package engineiter implements the cooperative cancel/pause signal
// protocol the runner uses to drive the frame iterator an engine
// returns from ExecEvent (spec.md §4.4).
//
// Grounded on modules/framesupplier/internal/worker_slot.go's mailbox
// handoff (a dedicated object mediating between a producer and a
// blocked consumer) adapted from a blocking single-slot mailbox to a
// pull-based wrapper that injects a signal before every resumption —
// the Go rendering of spec §9's design note: "implementations in
// languages without bidirectional generators should model the engine's
// per-event execution as an object with next() and signal(kind)
// methods."
package engineiter

import (
	"context"

	"github.com/e7canasta/mda-runner/internal/core"
)

// StateFuncs supplies the runner's current canceled/paused flags to the
// wrapper, read fresh on every resumption.
type StateFuncs struct {
	Canceled func() bool
	Paused   func() bool
}

// Wrapper drives an engine's FrameIterator, delivering a cancel/pause
// signal before each resumption when the iterator implements
// core.SignalableFrameIterator, and simply advancing it otherwise.
type Wrapper struct {
	inner      core.FrameIterator
	signalable core.SignalableFrameIterator
	state      StateFuncs
	started    bool
}

// Wrap returns a Wrapper around inner. inner may be nil, in which case
// Next always reports exhaustion immediately (the spec's "treat None as
// an empty iterable").
func Wrap(inner core.FrameIterator, state StateFuncs) *Wrapper {
	w := &Wrapper{inner: inner, state: state}
	if inner != nil {
		w.signalable, _ = inner.(core.SignalableFrameIterator)
	}
	return w
}

// Next advances the wrapped iterator by one frame.
//
// Algorithm (spec §4.4):
//  1. First call: advance to the first item, no signal sent.
//  2. Later calls: read canceled/paused, choose the signal, deliver it
//     via Signal if the iterator supports it, then advance.
func (w *Wrapper) Next(ctx context.Context) (core.Frame, bool, error) {
	if w.inner == nil {
		return core.Frame{}, false, nil
	}

	if w.started && w.signalable != nil {
		w.signalable.Signal(w.chooseSignal())
	}
	w.started = true

	return w.inner.Next(ctx)
}

func (w *Wrapper) chooseSignal() core.SignalKind {
	switch {
	case w.state.Canceled != nil && w.state.Canceled():
		return core.SignalCancel
	case w.state.Paused != nil && w.state.Paused():
		return core.SignalPause
	default:
		return core.SignalNone
	}
}
