package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	mda "github.com/e7canasta/mda-runner"
	"github.com/e7canasta/mda-runner/adapters"
)

// runOptions carries the run subcommand's own flags plus the inherited
// root flags, grounded on _examples/roach88-nysm/brutalist/internal/cli/run.go's
// options-struct-plus-RunE pattern.
type runOptions struct {
	*rootOptions
	ConfigPath string
}

func newRunCommand(root *rootOptions) *cobra.Command {
	opts := &runOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:           "run",
		Short:         "Run one simulated MDA sequence",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSequence(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to a YAML config file (optional)")
	return cmd
}

func runSequence(cmd *cobra.Command, opts *runOptions) error {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	runner := mda.New(
		mda.WithLogger(logger),
		mda.WithSignals(mda.Signals{
			SequenceStarted: func(sequence mda.Sequence, summaryMeta map[string]any) {
				logger.Info("sequence started", "sequence", sequence, "summary", summaryMeta)
			},
			SequencePauseToggled: func(paused bool) {
				logger.Info("sequence pause toggled", "paused", paused)
			},
			SequenceCanceled: func(mda.Sequence) {
				logger.Info("sequence canceled")
			},
			SequenceFinished: func(_ mda.Sequence, report mda.RunReport) {
				logger.Info("sequence finished", "status", report.Status)
			},
		}),
	)

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, canceling run", "signal", sig)
			runner.Cancel()
		case <-ctx.Done():
		}
	}()

	events := make([]mda.Event, cfg.EventCount)
	for i := range events {
		events[i] = DemoEvent{
			Channel:  fmt.Sprintf("channel-%d", i%2),
			MinStart: time.Duration(i) * cfg.EventInterval,
		}
	}

	consumers := []mda.ConsumerSpec{statsViewerSpec(logger)}
	if cfg.OutputPath != "" {
		resolver := adapters.NewOutputResolver()
		resolver.Register(".jsonl", newJSONLWriter)
		spec, err := resolver.Resolve("sequence-writer", cfg.OutputPath)
		if err != nil {
			return err
		}
		consumers = append(consumers, spec)
	}

	sequence := uuid.NewString()
	report, err := runner.Run(ctx, sequence, newDemoEventSource(events), &DemoEngine{Exposure: cfg.Exposure}, consumers, cfg.Policy)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "status=%s started=%s finished=%s\n",
		report.Status, report.StartedAt.Format(time.RFC3339), report.FinishedAt.Format(time.RFC3339))
	for _, cr := range report.ConsumerReports {
		fmt.Fprintf(out, "  %s: submitted=%d processed=%d dropped=%d errors=%d\n",
			cr.Name, cr.Submitted, cr.Processed, cr.Dropped, len(cr.Errors))
	}
	return nil
}
