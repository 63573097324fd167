package adapters

import (
	"fmt"
	"path/filepath"

	"github.com/e7canasta/mda-runner/internal/core"
)

// WriterFactory builds a Consumer that writes frames to path. Extension
// registries are supplied by the caller — the core module does not
// itself know how to write any file format (spec.md §1 Non-goals).
type WriterFactory func(path string) (core.Consumer, error)

// OutputResolver maps filesystem path extensions to WriterFactory
// implementations, the Go rendering of spec §4.5's "path-based output
// coercion": outputs given as paths become writer consumer specs
// without the caller naming a Consumer type directly. Grounded on
// examples/orion-pipeline/frame_saver.go's format-string dispatch
// (png vs jpeg), generalized from a fixed two-way switch to an open,
// caller-extensible registry.
type OutputResolver struct {
	factories map[string]WriterFactory
}

// NewOutputResolver returns an empty resolver; register extensions with
// Register before calling Resolve.
func NewOutputResolver() *OutputResolver {
	return &OutputResolver{factories: make(map[string]WriterFactory)}
}

// Register associates ext (including the leading dot, e.g. ".tiff")
// with factory. A later call with the same ext replaces the factory.
func (r *OutputResolver) Register(ext string, factory WriterFactory) {
	r.factories[ext] = factory
}

// Resolve builds a critical ConsumerSpec named name from path, using
// the factory registered for path's extension.
func (r *OutputResolver) Resolve(name, path string) (core.ConsumerSpec, error) {
	ext := filepath.Ext(path)
	factory, ok := r.factories[ext]
	if !ok {
		return core.ConsumerSpec{}, fmt.Errorf("adapters: no writer registered for extension %q (path %q)", ext, path)
	}
	consumer, err := factory(path)
	if err != nil {
		return core.ConsumerSpec{}, fmt.Errorf("adapters: writer factory for %q: %w", ext, err)
	}
	return core.ConsumerSpec{Name: name, Consumer: consumer, Critical: true}, nil
}
