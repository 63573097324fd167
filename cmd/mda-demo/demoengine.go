package main

import (
	"context"
	"fmt"
	"time"

	mda "github.com/e7canasta/mda-runner"
)

// DemoEvent is the concrete Event the demo engine understands: a
// channel label and a start offset from the run's event-timer
// reference.
type DemoEvent struct {
	Channel  string
	MinStart time.Duration
}

func (e DemoEvent) MinStartTime() time.Duration { return e.MinStart }
func (e DemoEvent) ResetEventTimer() bool        { return false }
func (e DemoEvent) Meta() map[string]any         { return map[string]any{"channel": e.Channel} }

// demoEventSource is a finite mda.EventSource built from a fixed slice,
// standing in for a hardware- or protocol-driven event stream.
type demoEventSource struct {
	events []mda.Event
	idx    int
}

func newDemoEventSource(events []mda.Event) *demoEventSource {
	return &demoEventSource{events: events}
}

func (s *demoEventSource) Next(context.Context) (mda.Event, bool, error) {
	if s.idx >= len(s.events) {
		return nil, false, nil
	}
	e := s.events[s.idx]
	s.idx++
	return e, true, nil
}

// DemoEngine simulates an acquisition engine: each event yields exactly
// one frame after a fixed exposure delay, standing in for the real
// instrumentation calls spec.md's Non-goals exclude from this module.
type DemoEngine struct {
	Exposure time.Duration
}

func (e *DemoEngine) SetupSequence(context.Context, mda.Sequence) (map[string]any, error) {
	return map[string]any{"engine": "demo"}, nil
}

func (e *DemoEngine) SetupEvent(context.Context, mda.Event) error { return nil }

func (e *DemoEngine) ExecEvent(ctx context.Context, event mda.Event) (mda.FrameIterator, error) {
	select {
	case <-time.After(e.Exposure):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &singleFrameIterator{frame: mda.Frame{
		Image: fmt.Sprintf("pixels-for-%v", event.Meta()["channel"]),
		Event: event,
		Meta:  map[string]any{},
	}}, nil
}

func (e *DemoEngine) TeardownEvent(context.Context, mda.Event) error       { return nil }
func (e *DemoEngine) TeardownSequence(context.Context, mda.Sequence) error { return nil }

// singleFrameIterator yields exactly one frame, then reports exhausted.
type singleFrameIterator struct {
	frame mda.Frame
	done  bool
}

func (it *singleFrameIterator) Next(context.Context) (mda.Frame, bool, error) {
	if it.done {
		return mda.Frame{}, false, nil
	}
	it.done = true
	return it.frame, true, nil
}
