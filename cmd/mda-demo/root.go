package main

import "github.com/spf13/cobra"

// rootOptions carries flags shared by every subcommand, grounded on
// _examples/roach88-nysm/brutalist/internal/cli/root.go's RootOptions.
type rootOptions struct {
	Verbose bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "mda-demo",
		Short:         "Run a simulated multi-dimensional acquisition sequence",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")
	cmd.AddCommand(newRunCommand(opts))
	return cmd
}
