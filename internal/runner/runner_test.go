package runner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/e7canasta/mda-runner/internal/core"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

type fakeEvent struct {
	channel string
}

func (fakeEvent) MinStartTime() time.Duration { return 0 }
func (fakeEvent) ResetEventTimer() bool       { return false }
func (e fakeEvent) Meta() map[string]any      { return map[string]any{"channel": e.channel} }

// sliceEventSource yields a fixed slice of events, then ends.
type sliceEventSource struct {
	events []core.Event
	idx    int
	err    error // if set, returned after exhausting events
}

func (s *sliceEventSource) Next(context.Context) (core.Event, bool, error) {
	if s.idx >= len(s.events) {
		if s.err != nil {
			return nil, false, s.err
		}
		return nil, false, nil
	}
	e := s.events[s.idx]
	s.idx++
	return e, true, nil
}

// oneFrameIterator yields exactly one frame.
type oneFrameIterator struct {
	frame core.Frame
	done  bool
}

func (it *oneFrameIterator) Next(context.Context) (core.Frame, bool, error) {
	if it.done {
		return core.Frame{}, false, nil
	}
	it.done = true
	return it.frame, true, nil
}

// echoEngine yields one frame per event, unless configured to fail.
type echoEngine struct {
	setupSequenceErr error
	setupEventErr    error
	execEventErr     error
	onSetupEvent     func(core.Event)
}

func (e *echoEngine) SetupSequence(context.Context, core.Sequence) (map[string]any, error) {
	return map[string]any{"engine": "echo"}, e.setupSequenceErr
}

func (e *echoEngine) SetupEvent(_ context.Context, event core.Event) error {
	if e.onSetupEvent != nil {
		e.onSetupEvent(event)
	}
	return e.setupEventErr
}

func (e *echoEngine) ExecEvent(_ context.Context, event core.Event) (core.FrameIterator, error) {
	if e.execEventErr != nil {
		return nil, e.execEventErr
	}
	return &oneFrameIterator{frame: core.Frame{Image: "img", Event: event, Meta: map[string]any{}}}, nil
}

// recordingConsumer accumulates every Frame call it receives.
type recordingConsumer struct {
	mu        sync.Mutex
	setupMeta map[string]any
	frames    []core.Event
	finishes  []core.RunStatus
}

func (c *recordingConsumer) Setup(_ context.Context, _ core.Sequence, summaryMeta map[string]any) error {
	c.mu.Lock()
	c.setupMeta = summaryMeta
	c.mu.Unlock()
	return nil
}

func (c *recordingConsumer) Frame(_ context.Context, _ any, event core.Event, _ map[string]any) error {
	c.mu.Lock()
	c.frames = append(c.frames, event)
	c.mu.Unlock()
	return nil
}

func (c *recordingConsumer) Finish(_ context.Context, _ core.Sequence, status core.RunStatus) error {
	c.mu.Lock()
	c.finishes = append(c.finishes, status)
	c.mu.Unlock()
	return nil
}

func (c *recordingConsumer) frameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func testPolicy() core.RunPolicy {
	return core.RunPolicy{
		CriticalError:    core.CriticalErrorRaise,
		NonCriticalError: core.NonCriticalErrorLog,
		Backpressure:     core.BackpressureBlock,
		CriticalQueue:    16,
		ObserverQueue:    16,
	}
}

func TestRunner_HappyPath(t *testing.T) {
	r := New(discardLogger(), nil, core.Signals{})
	events := &sliceEventSource{events: []core.Event{
		fakeEvent{channel: "a"}, fakeEvent{channel: "b"}, fakeEvent{channel: "c"},
	}}
	consumer := &recordingConsumer{}
	engine := &echoEngine{}

	report, err := r.Run(context.Background(), "seq-1", events, engine,
		[]core.ConsumerSpec{{Name: "c", Consumer: consumer, Critical: true}}, testPolicy())

	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, report.Status)
	assert.False(t, report.StartedAt.IsZero())
	assert.False(t, report.FinishedAt.IsZero())
	require.Len(t, report.ConsumerReports, 1)
	assert.EqualValues(t, 3, report.ConsumerReports[0].Processed)
	assert.Equal(t, 3, consumer.frameCount())
	assert.Equal(t, map[string]any{"engine": "echo"}, consumer.setupMeta)
	assert.Equal(t, []core.RunStatus{core.StatusCompleted}, consumer.finishes)
	assert.False(t, r.IsRunning())
}

func TestRunner_SetupSequenceFailure_NoConsumerSetupCalled(t *testing.T) {
	var finishedReport core.RunReport
	finishedCount := 0
	signals := core.Signals{
		SequenceFinished: func(_ core.Sequence, report core.RunReport) {
			finishedCount++
			finishedReport = report
		},
	}
	r := New(discardLogger(), nil, signals)
	events := &sliceEventSource{events: []core.Event{fakeEvent{channel: "a"}}}
	consumer := &recordingConsumer{}
	engine := &echoEngine{setupSequenceErr: errors.New("hardware not ready")}

	report, err := r.Run(context.Background(), "seq-1", events, engine,
		[]core.ConsumerSpec{{Name: "c", Consumer: consumer, Critical: true}}, testPolicy())

	require.Error(t, err)
	assert.Equal(t, core.StatusFailed, report.Status)
	assert.Nil(t, consumer.setupMeta)
	assert.Equal(t, 0, consumer.frameCount())

	// A setup_sequence failure must still close the dispatcher and emit
	// sequenceFinished exactly once (spec.md:227, :219, :88) even though
	// it aborts before any consumer is set up.
	assert.Equal(t, 1, finishedCount)
	assert.Equal(t, core.StatusFailed, finishedReport.Status)
	assert.Empty(t, finishedReport.ConsumerReports)
}

func TestRunner_EventSourceError_FailsRun(t *testing.T) {
	r := New(discardLogger(), nil, core.Signals{})
	events := &sliceEventSource{events: nil, err: errors.New("camera disconnected")}
	consumer := &recordingConsumer{}
	engine := &echoEngine{}

	report, err := r.Run(context.Background(), "seq-1", events, engine,
		[]core.ConsumerSpec{{Name: "c", Consumer: consumer, Critical: false}}, testPolicy())

	require.Error(t, err)
	assert.Equal(t, core.StatusFailed, report.Status)
	// Finish is still called: the consumer was already set up.
	assert.Equal(t, []core.RunStatus{core.StatusFailed}, consumer.finishes)
}

func TestRunner_CancelMidRun_StopsBeforeLaterEvents(t *testing.T) {
	r := New(discardLogger(), nil, core.Signals{})
	events := &sliceEventSource{events: []core.Event{
		fakeEvent{channel: "a"}, fakeEvent{channel: "b"}, fakeEvent{channel: "c"},
	}}
	consumer := &recordingConsumer{}
	engine := &echoEngine{}
	first := true
	engine.onSetupEvent = func(core.Event) {
		if first {
			r.Cancel()
			first = false
		}
	}

	report, err := r.Run(context.Background(), "seq-1", events, engine,
		[]core.ConsumerSpec{{Name: "c", Consumer: consumer, Critical: false}}, testPolicy())

	require.NoError(t, err)
	assert.Equal(t, core.StatusCanceled, report.Status)
	// The first event still completes (cancel is observed at the top of
	// the next loop iteration), but later events never run.
	assert.LessOrEqual(t, consumer.frameCount(), 1)
}

func TestRunner_ErrAlreadyRunning(t *testing.T) {
	r := New(discardLogger(), nil, core.Signals{})
	release := make(chan struct{})
	events := &blockingEventSource{release: release}
	engine := &echoEngine{}

	go func() {
		_, _ = r.Run(context.Background(), "seq-1", events, engine, nil, testPolicy())
	}()

	require.Eventually(t, r.IsRunning, time.Second, time.Millisecond)

	_, err := r.Run(context.Background(), "seq-2", &sliceEventSource{}, engine, nil, testPolicy())
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(release)
	require.Eventually(t, func() bool { return !r.IsRunning() }, time.Second, time.Millisecond)
}

// blockingEventSource blocks Next until release is closed, then ends.
type blockingEventSource struct {
	release chan struct{}
}

func (s *blockingEventSource) Next(ctx context.Context) (core.Event, bool, error) {
	select {
	case <-s.release:
		return nil, false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

func TestRunner_TogglePauseAndSignal(t *testing.T) {
	var toggled []bool
	r := New(discardLogger(), nil, core.Signals{
		SequencePauseToggled: func(paused bool) { toggled = append(toggled, paused) },
	})

	// No run in progress: no-op.
	assert.False(t, r.TogglePause())
	assert.Empty(t, toggled)

	release := make(chan struct{})
	go func() {
		_, _ = r.Run(context.Background(), "seq-1", &blockingEventSource{release: release}, &echoEngine{}, nil, testPolicy())
	}()
	require.Eventually(t, r.IsRunning, time.Second, time.Millisecond)

	assert.True(t, r.TogglePause())
	assert.True(t, r.IsPaused())
	assert.False(t, r.TogglePause())
	assert.Equal(t, []bool{true, false}, toggled)

	close(release)
	require.Eventually(t, func() bool { return !r.IsRunning() }, time.Second, time.Millisecond)
}

func TestRunner_QueueStatus_NilWhenIdle(t *testing.T) {
	r := New(discardLogger(), nil, core.Signals{})
	assert.Nil(t, r.QueueStatus())
}
