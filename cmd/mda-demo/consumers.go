package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	mda "github.com/e7canasta/mda-runner"
)

// statsViewer is a non-critical Consumer that logs a running frame
// count, grounded on examples/orion-pipeline's periodic stats-reporter
// goroutine, simplified here to a per-frame log line under -v.
type statsViewer struct {
	logger *slog.Logger
	count  atomic.Uint64
}

func statsViewerSpec(logger *slog.Logger) mda.ConsumerSpec {
	return mda.ConsumerSpec{Name: "stats-viewer", Consumer: &statsViewer{logger: logger}, Critical: false}
}

func (v *statsViewer) Setup(context.Context, mda.Sequence, map[string]any) error {
	v.logger.Info("stats viewer attached")
	return nil
}

func (v *statsViewer) Frame(_ context.Context, _ any, _ mda.Event, meta map[string]any) error {
	n := v.count.Add(1)
	v.logger.Debug("frame observed", "count", n, "runner_time_ms", meta["runner_time_ms"])
	return nil
}

func (v *statsViewer) Finish(_ context.Context, _ mda.Sequence, status mda.RunStatus) error {
	v.logger.Info("stats viewer done", "status", status, "frames", v.count.Load())
	return nil
}

// jsonlWriter writes one JSON line per frame's metadata to a file that
// is truncated when the writer is created. Grounded on examples/orion-pipeline/frame_saver.go's
// pattern of a dedicated writer type behind a narrow Consumer-shaped
// interface, registered with adapters.OutputResolver under ".jsonl".
type jsonlWriter struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

func newJSONLWriter(path string) (mda.Consumer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	return &jsonlWriter{file: f, enc: json.NewEncoder(f)}, nil
}

func (w *jsonlWriter) Setup(context.Context, mda.Sequence, map[string]any) error { return nil }

func (w *jsonlWriter) Frame(_ context.Context, _ any, event mda.Event, meta map[string]any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(map[string]any{
		"channel": event.Meta()["channel"],
		"meta":    meta,
	})
}

func (w *jsonlWriter) Finish(context.Context, mda.Sequence, mda.RunStatus) error {
	return w.file.Close()
}
