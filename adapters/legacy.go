// Package adapters implements the three bridges between the MDA core
// and the outside world that spec.md §4.5 calls out as re-architected
// from the original source: a legacy-handler wrapper, path-based output
// coercion, and the internal signal-relay consumer.
//
// Grounded on examples/orion-pipeline's pattern of wrapping an external
// sink behind a narrow interface (FrameSaver, StatsDisplay) and on the
// Python reference's _LegacyAdapter / _call_with_fallback /
// _SignalRelay (_examples/original_source/src/pymmcore_plus/mda/_dispatch.py).
package adapters

import (
	"context"
	"reflect"

	"github.com/e7canasta/mda-runner/internal/core"
)

// LegacyHandler is any object exposing a subset of the three historical
// callback methods below. Each is optional; a handler implementing none
// of them is a valid (silent) no-op consumer.
//
//	SequenceStarted(sequence core.Sequence, summaryMeta map[string]any)
//	FrameReady(image any, event core.Event, meta map[string]any)
//	SequenceFinished(sequence core.Sequence)
//
// Each method may itself declare fewer parameters than listed (e.g. a
// FrameReady that only wants the image); LegacyAdapter calls it with
// exactly as many leading arguments as it declares.
type LegacyHandler any

// legacyMethod is a callback resolved once at adapter construction,
// caching its declared arity. Spec §9 describes the source's runtime
// arity probing ("try 3, then 2, then 1, then 0") as a design pattern
// to re-architect away from per-call reflection; in Go, a method's
// arity is static, so resolving it once via reflect.Type.NumIn() at
// construction already gives the exact answer — no trial calls, at
// construction or at delivery, are needed.
type legacyMethod struct {
	fn    reflect.Value
	arity int
	valid bool
}

func resolveLegacyMethod(v reflect.Value, name string) legacyMethod {
	if !v.IsValid() {
		return legacyMethod{}
	}
	m := v.MethodByName(name)
	if !m.IsValid() {
		return legacyMethod{}
	}
	return legacyMethod{fn: m, arity: m.Type().NumIn(), valid: true}
}

// call invokes m with the leading min(m.arity, len(args)) arguments. A
// no-op if m was never resolved (the handler did not implement it).
func (m legacyMethod) call(args ...any) {
	if !m.valid {
		return
	}
	n := m.arity
	if n > len(args) {
		n = len(args)
	}
	in := make([]reflect.Value, n)
	for i := 0; i < n; i++ {
		in[i] = reflect.ValueOf(args[i])
	}
	m.fn.Call(in)
}

// LegacyAdapter wraps a LegacyHandler as a core.Consumer. It is treated
// as critical by default — see NewLegacySpec.
type LegacyAdapter struct {
	sequenceStarted  legacyMethod
	frameReady       legacyMethod
	sequenceFinished legacyMethod
}

// NewLegacyAdapter resolves handler's callback methods once and returns
// a Consumer that dispatches to whichever of them are present.
func NewLegacyAdapter(handler LegacyHandler) *LegacyAdapter {
	v := reflect.ValueOf(handler)
	return &LegacyAdapter{
		sequenceStarted:  resolveLegacyMethod(v, "SequenceStarted"),
		frameReady:       resolveLegacyMethod(v, "FrameReady"),
		sequenceFinished: resolveLegacyMethod(v, "SequenceFinished"),
	}
}

func (a *LegacyAdapter) Setup(_ context.Context, sequence core.Sequence, summaryMeta map[string]any) error {
	a.sequenceStarted.call(sequence, summaryMeta)
	return nil
}

func (a *LegacyAdapter) Frame(_ context.Context, image any, event core.Event, meta map[string]any) error {
	a.frameReady.call(image, event, meta)
	return nil
}

// Finish calls SequenceFinished with only sequence — the historical
// signature it mirrors never received a status, so status is not
// passed even though this method receives one.
func (a *LegacyAdapter) Finish(_ context.Context, sequence core.Sequence, _ core.RunStatus) error {
	a.sequenceFinished.call(sequence)
	return nil
}

// NewLegacySpec wraps handler as a critical ConsumerSpec named name.
func NewLegacySpec(name string, handler LegacyHandler) core.ConsumerSpec {
	return core.ConsumerSpec{Name: name, Consumer: NewLegacyAdapter(handler), Critical: true}
}
