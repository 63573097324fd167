package core

import "time"

// Signals is the observational hook set the runner emits lifecycle
// events to, independent of the Consumer interface (spec §4.1, §6).
// Listeners connect before calling Run by supplying a populated Signals
// value via mda.WithSignals; any nil field is simply not invoked,
// mirroring the teacher's nil-checked optional-callback style
// (_LegacyAdapter's "if callable" guards in the Python reference, and
// framesupplier's nil-safe Subscribe/Unsubscribe idempotency).
//
// Open Question (spec §9) resolved here: FrameReady fires on the
// runner's own goroutine, synchronously with frame submission to the
// dispatcher — not on the signal-relay consumer's worker goroutine —
// so observers see frames in exact engine-yield order with no
// extra hop. This costs the hot loop one extra function-pointer check
// per frame; see DESIGN.md.
type Signals struct {
	SequenceStarted      func(sequence Sequence, summaryMeta map[string]any)
	SequencePauseToggled func(paused bool)
	SequenceCanceled     func(sequence Sequence)
	SequenceFinished     func(sequence Sequence, report RunReport)
	EventStarted         func(event Event)
	AwaitingEvent        func(event Event, remaining time.Duration)
	FrameReady           func(image any, event Event, meta map[string]any)
}
