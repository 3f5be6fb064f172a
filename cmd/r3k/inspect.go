package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/subcommands"

	"ncsr_holdings/pkg/core/config"
	"ncsr_holdings/pkg/core/holdings"
)

// inspectCmd holds the flags for the 'inspect' subcommand.
type inspectCmd struct {
	cfg        config.Config
	generation int
}

func (*inspectCmd) Name() string     { return "inspect" }
func (*inspectCmd) Synopsis() string { return "parse one filing and print the result as JSON" }
func (*inspectCmd) Usage() string {
	return `r3k inspect [-g 1|2] <file>

  Parses a single raw filing. Without -g the generation is derived from the
  <PERIOD_OF_REPORT>_ prefix of the file name.
`
}

func (c *inspectCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.generation, "g", 0, "layout generation: 1 legacy, 2 modern")
}

func (c *inspectCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: expected exactly one file")
		return subcommands.ExitUsageError
	}
	file := f.Arg(0)

	gen := holdings.Generation(c.generation)
	if gen == 0 {
		overrides, err := config.LoadOverrides(c.cfg.OverridesPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading overrides: %v\n", err)
			return subcommands.ExitFailure
		}
		base := filepath.Base(file)
		if len(base) < 10 {
			fmt.Fprintf(os.Stderr, "Error: cannot derive the period from %q, use -g\n", base)
			return subcommands.ExitUsageError
		}
		period, err := time.Parse("2006-01-02", base[:10])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot derive the period from %q, use -g\n", base)
			return subcommands.ExitUsageError
		}
		gen = overrides.Generation(period)
	}

	buf, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", file, err)
		return subcommands.ExitFailure
	}

	res, err := holdings.ParseFiling(buf, gen)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing %s: %v\n", file, err)
		return subcommands.ExitFailure
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding result: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
