package adapters

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/e7canasta/mda-runner/internal/core"
)

type demoEvent struct{}

func (demoEvent) MinStartTime() time.Duration { return 0 }
func (demoEvent) ResetEventTimer() bool       { return false }
func (demoEvent) Meta() map[string]any        { return nil }

// fullHandler implements all three historical callbacks.
type fullHandler struct {
	started  []string
	frames   []string
	finished []string
}

func (h *fullHandler) SequenceStarted(sequence core.Sequence, summaryMeta map[string]any) {
	h.started = append(h.started, sequence.(string))
}

func (h *fullHandler) FrameReady(image any, event core.Event, meta map[string]any) {
	h.frames = append(h.frames, image.(string))
}

func (h *fullHandler) SequenceFinished(sequence core.Sequence) {
	h.finished = append(h.finished, sequence.(string))
}

// partialHandler only implements FrameReady, with a narrower arity (one
// argument instead of three) — exercises the clipped-arity call path.
type partialHandler struct {
	images []string
}

func (h *partialHandler) FrameReady(image any) {
	h.images = append(h.images, image.(string))
}

func TestLegacyAdapter_FullHandler_DispatchesAllThree(t *testing.T) {
	h := &fullHandler{}
	a := NewLegacyAdapter(h)
	ctx := context.Background()

	require.NoError(t, a.Setup(ctx, "seq-1", map[string]any{"k": "v"}))
	require.NoError(t, a.Frame(ctx, "image-1", demoEvent{}, map[string]any{}))
	require.NoError(t, a.Finish(ctx, "seq-1", core.StatusCompleted))

	assert.Equal(t, []string{"seq-1"}, h.started)
	assert.Equal(t, []string{"image-1"}, h.frames)
	assert.Equal(t, []string{"seq-1"}, h.finished)
}

func TestLegacyAdapter_PartialHandler_ClipsToDeclaredArity(t *testing.T) {
	h := &partialHandler{}
	a := NewLegacyAdapter(h)
	ctx := context.Background()

	// Setup and Finish are silent no-ops: h implements neither.
	require.NoError(t, a.Setup(ctx, "seq-1", map[string]any{}))
	require.NoError(t, a.Frame(ctx, "image-1", demoEvent{}, map[string]any{}))
	require.NoError(t, a.Finish(ctx, "seq-1", core.StatusCompleted))

	assert.Equal(t, []string{"image-1"}, h.images)
}

func TestLegacyAdapter_EmptyHandler_AllNoOps(t *testing.T) {
	a := NewLegacyAdapter(struct{}{})
	ctx := context.Background()

	assert.NoError(t, a.Setup(ctx, "seq-1", map[string]any{}))
	assert.NoError(t, a.Frame(ctx, "image-1", demoEvent{}, map[string]any{}))
	assert.NoError(t, a.Finish(ctx, "seq-1", core.StatusCompleted))
}

func TestNewLegacySpec_IsCritical(t *testing.T) {
	spec := NewLegacySpec("legacy", &fullHandler{})
	assert.Equal(t, "legacy", spec.Name)
	assert.True(t, spec.Critical)
	assert.NotNil(t, spec.Consumer)
}
