package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunPolicy_Normalized_FillsZeroFields(t *testing.T) {
	p := RunPolicy{}.Normalized()
	assert.Equal(t, DefaultRunPolicy(), p)
}

func TestRunPolicy_Normalized_PreservesSetFields(t *testing.T) {
	p := RunPolicy{CriticalError: CriticalErrorCancel, CriticalQueue: 4}.Normalized()
	assert.Equal(t, CriticalErrorCancel, p.CriticalError)
	assert.Equal(t, 4, p.CriticalQueue)
	// Unset fields still fall back to the defaults.
	assert.Equal(t, NonCriticalErrorLog, p.NonCriticalError)
	assert.Equal(t, BackpressureBlock, p.Backpressure)
	assert.Equal(t, 256, p.ObserverQueue)
}

func TestConsumerDispatchError_UnwrapAndMessage(t *testing.T) {
	inner := assertError("disk full")
	err := &ConsumerDispatchError{ConsumerName: "writer", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "writer")
	assert.Contains(t, err.Error(), "disk full")
}

func TestBufferFullError_Message(t *testing.T) {
	err := &BufferFullError{ConsumerName: "viewer", Capacity: 16}
	assert.Contains(t, err.Error(), "viewer")
	assert.Contains(t, err.Error(), "16")
}

type assertError string

func (e assertError) Error() string { return string(e) }
