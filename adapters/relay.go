package adapters

import (
	"context"

	"github.com/e7canasta/mda-runner/internal/core"
)

// SignalRelay is a non-critical Consumer whose Frame method emits
// signals.FrameReady, per spec §4.5's "internal signal relay consumer".
//
// This module's Runner (internal/runner) resolves the §9 Open Question
// on frameReady's firing thread by emitting it directly from the
// runner's own goroutine (see internal/core/signals.go), so registering
// SignalRelay alongside a non-nil Signals.FrameReady double-delivers
// that signal. Use SignalRelay only when a caller wants frameReady
// delivered from a dedicated worker goroutine instead — e.g. to keep the
// callback off the runner's own loop — and in that case leave
// frameReady delivery to this relay alone. Like every consumer, the
// relay has its own queue and goroutine, so its deliveries are not
// ordered against any other consumer's frame processing.
type SignalRelay struct {
	signals core.Signals
}

// NewSignalRelay returns a SignalRelay that emits through signals.
func NewSignalRelay(signals core.Signals) *SignalRelay {
	return &SignalRelay{signals: signals}
}

func (r *SignalRelay) Setup(context.Context, core.Sequence, map[string]any) error { return nil }

func (r *SignalRelay) Frame(_ context.Context, image any, event core.Event, meta map[string]any) error {
	if r.signals.FrameReady != nil {
		r.signals.FrameReady(image, event, meta)
	}
	return nil
}

func (r *SignalRelay) Finish(context.Context, core.Sequence, core.RunStatus) error { return nil }

// NewSignalRelaySpec wraps a SignalRelay as a non-critical ConsumerSpec
// named "signal-relay".
func NewSignalRelaySpec(signals core.Signals) core.ConsumerSpec {
	return core.ConsumerSpec{Name: "signal-relay", Consumer: NewSignalRelay(signals), Critical: false}
}
