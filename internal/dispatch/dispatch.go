// Package dispatch implements the MDA runner's fan-out dispatcher: one
// bounded-queue worker goroutine per registered consumer, lifecycle
// (setup/finish) run synchronously on the caller's goroutine, and the
// four backpressure policies from spec.md §4.2-§4.3.
//
// The queue itself is grounded on modules/framebus/internal/bus/bus.go's
// per-subscriber channel fan-out (DropNew/DropOld), generalized from
// two drop policies keyed to a bare channel into four backpressure
// policies keyed to a worker object that also owns consumer lifecycle,
// error-policy enforcement, and per-consumer reporting.
package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/e7canasta/mda-runner/internal/core"
)

// stopSentinel is enqueued to ask a worker to drain no further items.
// It is distinct from any valid frame message and, because Dispatcher
// only ever sends it via a plain (possibly blocking) channel send, it
// is never subject to the drop-oldest eviction that can apply to
// frame messages — eviction only ever happens inside Submit.
type stopSentinel struct{}

type frameMsg struct {
	image any
	event core.Event
	meta  map[string]any
}

// Dispatcher is the single object the runner interacts with to manage
// consumer lifecycle and frame fan-out.
type Dispatcher struct {
	policy  core.RunPolicy
	logger  *slog.Logger
	specs   []core.ConsumerSpec
	workers []*consumerWorker

	cancelRequested bool

	// fatalErr captures a RAISE-policy setup/finish failure. Per spec
	// §7 ("re-raise is preferred under RAISE and is always deferred to
	// close()"), Start never returns this directly — it is surfaced
	// only from Close, after every surviving consumer has had Finish
	// called.
	fatalErr error
}

// New creates a Dispatcher bound to policy. Register consumers with
// AddConsumer before calling Start.
func New(policy core.RunPolicy, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{policy: policy.Normalized(), logger: logger}
}

// AddConsumer registers spec. Must be called before Start.
func (d *Dispatcher) AddConsumer(spec core.ConsumerSpec) {
	d.specs = append(d.specs, spec)
}

// Start calls Setup synchronously on every registered consumer (in
// registration order), applies the lifecycle error-handling matrix
// (spec §4.2), and spawns one worker goroutine per surviving consumer.
// A RAISE-policy failure excludes only the failing consumer here; it is
// not returned until Close (spec §7).
func (d *Dispatcher) Start(ctx context.Context, sequence core.Sequence, summaryMeta map[string]any) error {
	surviving := make([]core.ConsumerSpec, 0, len(d.specs))
	for _, spec := range d.specs {
		if err := spec.Consumer.Setup(ctx, sequence, summaryMeta); err != nil {
			keep, fatalErr := d.handleLifecycleError(spec, err, "setup")
			if fatalErr != nil && d.fatalErr == nil {
				d.fatalErr = fatalErr
			}
			if !keep {
				continue
			}
		}
		surviving = append(surviving, spec)
	}

	d.workers = make([]*consumerWorker, len(surviving))
	for i, spec := range surviving {
		w := newConsumerWorker(spec, d.policy, d.logger)
		d.workers[i] = w
		go w.run(ctx)
	}
	return nil
}

// Submit fans one frame out to every active worker, per each worker's
// backpressure policy. Called only from the runner's own goroutine.
func (d *Dispatcher) Submit(image any, event core.Event, meta map[string]any) error {
	msg := &frameMsg{image: image, event: event, meta: meta}
	for _, w := range d.workers {
		if err := w.submit(msg); err != nil {
			return err
		}
	}
	return nil
}

// ShouldCancel reports whether a critical consumer has requested
// cancellation since Start: either an active critical worker stopped
// itself after a Frame error, or a critical Setup/Finish failure under
// the CANCEL policy excluded its consumer.
func (d *Dispatcher) ShouldCancel() bool {
	if d.cancelRequested {
		return true
	}
	for _, w := range d.workers {
		if w.spec.Critical && w.stopRequested.Load() {
			return true
		}
	}
	return false
}

// QueueStatus returns a snapshot of {name: (pending, capacity)} for
// every active worker.
func (d *Dispatcher) QueueStatus() map[string][2]int {
	out := make(map[string][2]int, len(d.workers))
	for _, w := range d.workers {
		out[w.spec.Name] = [2]int{len(w.queue), w.capacity}
	}
	return out
}

// stopWorkerTimeout bounds how long Close waits to hand a worker its
// stop sentinel and then to join it, surfacing a deadlocked consumer
// (one that never returns from Frame) as a reported anomaly instead of
// blocking the whole run forever (spec §5, §7 item 8).
const stopWorkerTimeout = 30 * time.Second

// Close asks every worker to stop after draining its queue, joins them
// (bounded wait), calls Finish synchronously on every surviving
// consumer, and returns the run report. If a fatal error was captured
// and the critical-error policy is RAISE, it is returned as err.
// The returned report's StartedAt is left zero; the caller (the
// package orchestrating Start/Close across one run) fills it in from
// its own run-start timestamp.
func (d *Dispatcher) Close(ctx context.Context, sequence core.Sequence, status core.RunStatus) (core.RunReport, error) {
	for _, w := range d.workers {
		w.requestStop(d.logger, stopWorkerTimeout)
	}
	for _, w := range d.workers {
		w.join(d.logger, stopWorkerTimeout)
	}

	for _, w := range d.workers {
		if err := w.spec.Consumer.Finish(ctx, sequence, status); err != nil {
			keep, fatalErr := d.handleLifecycleError(w.spec, err, "finish")
			_ = keep // finish errors never exclude a consumer from the report
			if fatalErr != nil {
				if d.fatalErr == nil {
					d.fatalErr = fatalErr
				} else {
					d.logger.Error("consumer finish error after prior failure",
						"consumer", w.spec.Name, "error", err)
				}
			}
		}
	}

	reports := make([]core.ConsumerReport, len(d.workers))
	for i, w := range d.workers {
		reports[i] = w.report()
	}

	report := core.RunReport{
		Status:          status,
		FinishedAt:      time.Now(),
		ConsumerReports: reports,
	}

	// The first fatal error, in order: a RAISE-policy setup/finish
	// failure captured above, else the first worker's RAISE-policy
	// frame failure.
	if d.fatalErr != nil {
		return report, d.fatalErr
	}
	for _, w := range d.workers {
		if fatal := w.fatal(); fatal != nil {
			return report, fatal
		}
	}
	return report, nil
}

// handleLifecycleError applies the lifecycle (setup/finish) error
// matrix from spec §4.2. keep reports whether the consumer should
// remain registered; a non-nil fatalErr means the critical-error policy
// is RAISE, and the caller records it as the run's deferred fatal error
// (surfaced only once, from Close — see spec §7's "re-raise ... is
// always deferred to close()").
func (d *Dispatcher) handleLifecycleError(spec core.ConsumerSpec, err error, phase string) (keep bool, fatalErr error) {
	if spec.Critical {
		switch d.policy.CriticalError {
		case core.CriticalErrorRaise:
			return false, &core.ConsumerDispatchError{ConsumerName: spec.Name, Err: err}
		case core.CriticalErrorCancel:
			d.logger.Error("critical consumer error, canceling run",
				"consumer", spec.Name, "phase", phase, "error", err)
			d.cancelRequested = true
			return false, nil
		default: // CONTINUE
			d.logger.Error("critical consumer lifecycle error, excluding consumer",
				"consumer", spec.Name, "phase", phase, "error", err)
			return false, nil
		}
	}
	switch d.policy.NonCriticalError {
	case core.NonCriticalErrorDisconnect:
		d.logger.Warn("non-critical consumer disconnected",
			"consumer", spec.Name, "phase", phase, "error", err)
		return false, nil
	default: // LOG
		d.logger.Error("non-critical consumer error",
			"consumer", spec.Name, "phase", phase, "error", err)
		return true, nil
	}
}
