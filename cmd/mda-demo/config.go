package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	mda "github.com/e7canasta/mda-runner"
)

// fileConfig is the on-disk YAML shape, grounded on
// _examples/roach88-nysm/brutalist/internal/harness/scenario.go's
// struct-tag-driven config loading.
type fileConfig struct {
	OutputPath       string `yaml:"output_path"`
	EventCount       int    `yaml:"event_count"`
	EventIntervalMS  int    `yaml:"event_interval_ms"`
	ExposureMS       int    `yaml:"exposure_ms"`
	CriticalError    string `yaml:"critical_error"`
	NonCriticalError string `yaml:"noncritical_error"`
	Backpressure     string `yaml:"backpressure"`
	CriticalQueue    int    `yaml:"critical_queue"`
	ObserverQueue    int    `yaml:"observer_queue"`
}

// config is the resolved, typed configuration for one demo run.
type config struct {
	OutputPath    string
	EventCount    int
	EventInterval time.Duration
	Exposure      time.Duration
	Policy        mda.RunPolicy
}

// loadConfig reads path (if non-empty) and fills in a RunPolicy via
// RunPolicy.Normalized, the same zero-value-defaulting contract the
// root mda package documents for a partially-populated policy literal.
func loadConfig(path string) (*config, error) {
	fc := fileConfig{EventCount: 5, EventIntervalMS: 200, ExposureMS: 50}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	policy := mda.RunPolicy{
		CriticalError:    mda.CriticalErrorPolicy(fc.CriticalError),
		NonCriticalError: mda.NonCriticalErrorPolicy(fc.NonCriticalError),
		Backpressure:     mda.BackpressurePolicy(fc.Backpressure),
		CriticalQueue:    fc.CriticalQueue,
		ObserverQueue:    fc.ObserverQueue,
	}.Normalized()

	return &config{
		OutputPath:    fc.OutputPath,
		EventCount:    fc.EventCount,
		EventInterval: time.Duration(fc.EventIntervalMS) * time.Millisecond,
		Exposure:      time.Duration(fc.ExposureMS) * time.Millisecond,
		Policy:        policy,
	}, nil
}
