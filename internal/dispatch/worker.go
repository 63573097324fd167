package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/e7canasta/mda-runner/internal/core"
)

// consumerWorker is one consumer's dedicated goroutine and bounded
// queue. Grounded on modules/framesupplier/internal/worker_slot.go's
// per-worker mailbox (a dedicated struct owning its own synchronization
// primitive), generalized from a single-slot overwrite mailbox to a
// capacity-N channel with four backpressure policies.
type consumerWorker struct {
	spec     core.ConsumerSpec
	policy   core.RunPolicy
	capacity int
	queue    chan any
	logger   *slog.Logger

	submitted atomic.Uint64
	dropped   atomic.Uint64
	processed atomic.Uint64

	mu       sync.Mutex
	errs     []error
	fatalErr error

	stopRequested atomic.Bool
	disconnected  atomic.Bool
	done          chan struct{}
}

func newConsumerWorker(spec core.ConsumerSpec, policy core.RunPolicy, logger *slog.Logger) *consumerWorker {
	capacity := policy.ObserverQueue
	if spec.Critical {
		capacity = policy.CriticalQueue
	}
	return &consumerWorker{
		spec:     spec,
		policy:   policy,
		capacity: capacity,
		queue:    make(chan any, capacity),
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// submit enqueues msg per the configured backpressure policy. Called
// only from the runner's goroutine (spec §5).
func (w *consumerWorker) submit(msg *frameMsg) error {
	if w.disconnected.Load() || w.stopRequested.Load() {
		w.dropped.Add(1)
		return nil
	}
	w.submitted.Add(1)

	switch w.policy.Backpressure {
	case core.BackpressureDropNewest:
		select {
		case w.queue <- msg:
		default:
			w.dropped.Add(1)
		}
		return nil

	case core.BackpressureDropOldest:
		for {
			select {
			case w.queue <- msg:
				return nil
			default:
				select {
				case <-w.queue:
					w.dropped.Add(1)
				default:
					// raced with the worker draining the last item;
					// retry the send.
				}
			}
		}

	case core.BackpressureFail:
		select {
		case w.queue <- msg:
			return nil
		default:
			w.dropped.Add(1)
			return &core.BufferFullError{ConsumerName: w.spec.Name, Capacity: w.capacity}
		}

	default: // BackpressureBlock
		w.queue <- msg
		return nil
	}
}

// requestStop hands the worker its stop sentinel, bounded by timeout so
// a deadlocked consumer (one whose Frame call never returns) cannot
// hang Dispatcher.Close forever (spec §5, §7 item 8).
func (w *consumerWorker) requestStop(logger *slog.Logger, timeout time.Duration) {
	select {
	case w.queue <- stopSentinel{}:
	case <-time.After(timeout):
		logger.Warn("consumer worker did not accept stop sentinel in time",
			"consumer", w.spec.Name, "timeout", timeout)
	}
}

func (w *consumerWorker) join(logger *slog.Logger, timeout time.Duration) {
	select {
	case <-w.done:
	case <-time.After(timeout):
		logger.Warn("consumer worker did not exit in time", "consumer", w.spec.Name, "timeout", timeout)
	}
}

func (w *consumerWorker) run(ctx context.Context) {
	defer close(w.done)
	for {
		item := <-w.queue
		if _, stop := item.(stopSentinel); stop {
			return
		}
		msg := item.(*frameMsg)
		if err := w.spec.Consumer.Frame(ctx, msg.image, msg.event, msg.meta); err != nil {
			w.recordError(err)
			if w.stopRequested.Load() || w.disconnected.Load() {
				return
			}
			continue
		}
		w.processed.Add(1)
	}
}

func (w *consumerWorker) recordError(err error) {
	w.mu.Lock()
	w.errs = append(w.errs, err)
	w.mu.Unlock()

	if w.spec.Critical {
		switch w.policy.CriticalError {
		case core.CriticalErrorContinue:
			w.logger.Error("critical consumer frame error, continuing", "consumer", w.spec.Name, "error", err)
		case core.CriticalErrorCancel:
			w.logger.Error("critical consumer frame error, canceling run", "consumer", w.spec.Name, "error", err)
			w.stopRequested.Store(true)
		default: // RAISE
			w.mu.Lock()
			w.fatalErr = &core.ConsumerDispatchError{ConsumerName: w.spec.Name, Err: err}
			w.mu.Unlock()
			w.stopRequested.Store(true)
		}
		return
	}

	switch w.policy.NonCriticalError {
	case core.NonCriticalErrorDisconnect:
		w.logger.Warn("non-critical consumer disconnected on frame error", "consumer", w.spec.Name, "error", err)
		w.disconnected.Store(true)
	default: // LOG
		w.logger.Error("non-critical consumer frame error", "consumer", w.spec.Name, "error", err)
	}
}

func (w *consumerWorker) fatal() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fatalErr
}

func (w *consumerWorker) report() core.ConsumerReport {
	w.mu.Lock()
	errs := append([]error(nil), w.errs...)
	w.mu.Unlock()
	return core.ConsumerReport{
		Name:      w.spec.Name,
		Submitted: w.submitted.Load(),
		Processed: w.processed.Load(),
		Dropped:   w.dropped.Load(),
		Errors:    errs,
	}
}
