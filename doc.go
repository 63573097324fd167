// Package mda implements the concurrent event-driven dispatch core of a
// multi-dimensional acquisition (MDA) runner for scientific microscope
// acquisition engines.
//
// # Philosophy
//
// The runner consumes an ordered, possibly open-ended stream of
// acquisition events, drives a pluggable engine that produces zero or
// more frames per event, and fans each frame out to a set of registered
// consumers (writers, viewers, metric collectors) under explicit
// concurrency, backpressure, and error policies.
//
// The core does not write files, render images, transport frames across
// machines, or schedule over distributed nodes. It does not own event
// definitions (events are supplied) nor metadata schemas (meta maps are
// opaque). It performs no retry of frames: dropped or failed frames are
// reported, not re-delivered.
//
// # Architecture
//
// Event source → Runner (timing, pause/cancel, engine driving)
//
//	→ Dispatcher (per-consumer worker goroutines, bounded queues)
//	  → Consumer (writer, viewer, metric collector)
//
// One runner goroutine produces frames. One worker goroutine per
// registered consumer drains that consumer's bounded queue in FIFO
// order. A slow or blocked consumer cannot starve the others: each has
// its own queue and its own goroutine.
//
// # Basic usage
//
//	runner := mda.New()
//	report, err := runner.Run(ctx, sequence, events, engine, []mda.ConsumerSpec{
//	    {Name: "writer", Consumer: writer, Critical: true},
//	    {Name: "viewer", Consumer: viewer, Critical: false},
//	}, mda.RunPolicy{
//	    CriticalError: mda.CriticalErrorCancel,
//	    Backpressure:  mda.BackpressureBlock,
//	})
//
// Call runner.Cancel() from any goroutine to request early termination,
// and runner.TogglePause() to pause/resume the wait-for-next-event
// timing loop.
package mda
