package mda

import "github.com/e7canasta/mda-runner/internal/core"

// Engine turns events into frames by driving instrumentation. It never
// references the Runner: all communication flows through event inputs,
// the returned FrameIterator, and the signal protocol below.
type Engine = core.Engine

// SequenceSetupEngine is the optional capability to prepare system
// state once at the start of a sequence and return opaque summary
// metadata that is reported to every consumer's Setup call.
type SequenceSetupEngine = core.SequenceSetupEngine

// EventTeardownEngine is the optional capability to clean up after one
// event, called even when the event (or the iteration of its frames)
// failed.
type EventTeardownEngine = core.EventTeardownEngine

// SequenceTeardownEngine is the optional capability to clean up once
// after the whole sequence has run.
type SequenceTeardownEngine = core.SequenceTeardownEngine

// EventIteratorEngine is the optional capability to wrap or replace the
// caller-supplied event stream with a custom iterator.
type EventIteratorEngine = core.EventIteratorEngine

// EventSource is a pull-based iterator over events.
type EventSource = core.EventSource

// SignalKind is the per-iteration signal a SignalableFrameIterator may
// receive between yielded frames.
type SignalKind = core.SignalKind

const (
	SignalNone   = core.SignalNone
	SignalCancel = core.SignalCancel
	SignalPause  = core.SignalPause
)

// FrameIterator is returned by Engine.ExecEvent.
type FrameIterator = core.FrameIterator

// SignalableFrameIterator is the optional capability of a FrameIterator
// to receive a cancel/pause signal before its next Next call.
type SignalableFrameIterator = core.SignalableFrameIterator
