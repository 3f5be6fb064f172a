package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"ncsr_holdings/pkg/core/config"
	"ncsr_holdings/pkg/core/ingest"
	"ncsr_holdings/pkg/core/pipeline"
)

// pullCmd holds the flags for the 'pull' subcommand.
type pullCmd struct {
	cfg       config.Config
	output    string
	userAgent string
	replace   bool
}

func (*pullCmd) Name() string     { return "pull" }
func (*pullCmd) Synopsis() string { return "download the filing index and every N-CSR filing" }
func (*pullCmd) Usage() string {
	return `r3k pull [-o <dir>] [-a "<name> <email>"] [-r]

  Lists the N-CSR/N-CSRS filings of the iShares Russell 3000 ETF on EDGAR,
  writes filing-index.csv and downloads each primary document into <dir>.
`
}

func (c *pullCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", c.cfg.DataDir, "directory for the raw filings")
	f.StringVar(&c.userAgent, "a", c.cfg.UserAgent, "name and email sent as the SEC User-Agent")
	f.BoolVar(&c.replace, "r", false, "download filings again even if present")
}

func (c *pullCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg := c.cfg
	cfg.UserAgent = c.userAgent
	if err := cfg.ValidateForPull(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	overrides, err := config.LoadOverrides(cfg.OverridesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading overrides: %v\n", err)
		return subcommands.ExitFailure
	}

	client := ingest.NewEDGARClient(cfg.UserAgent, cfg.RequestInterval, overrides)
	res, err := pipeline.Pull(ctx, client, c.output, c.replace)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error pulling filings: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("%d filings downloaded, %d already present in %s\n", res.Downloaded, res.Existing, c.output)
	return subcommands.ExitSuccess
}
