// Command mda-demo runs one simulated multi-dimensional acquisition
// sequence through the mda package: a timed demo engine, an optional
// JSON-lines output writer, and a stats viewer, wired exactly the way a
// caller outside this module would use mda.New.
//
// Grounded on examples/orion-pipeline/main.go's flag-parsing + slog +
// signal-handling skeleton and _examples/roach88-nysm/brutalist's
// cobra root/subcommand layout.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
