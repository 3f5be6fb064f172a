package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"ncsr_holdings/pkg/core/config"
	"ncsr_holdings/pkg/core/pipeline"
	"ncsr_holdings/pkg/core/store"
)

// parseCmd holds the flags for the 'parse' subcommand.
type parseCmd struct {
	cfg       config.Config
	input     string
	output    string
	replace   bool
	workers   int
	xlsx      string
	reportDir string
	useDB     bool
}

func (*parseCmd) Name() string     { return "parse" }
func (*parseCmd) Synopsis() string { return "extract holdings from downloaded filings" }
func (*parseCmd) Usage() string {
	return `r3k parse [-i <dir>] [-o <dir>] [-r] [-w <n>] [-xlsx <file>] [-report <dir>] [-db]

  Parses every filing listed in <input>/filing-index.csv and writes one CSV
  per period of report into <output>. Filings that fail to parse are listed
  in the report and do not stop the run.
`
}

func (c *parseCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.input, "i", c.cfg.DataDir, "directory holding the raw filings")
	f.StringVar(&c.output, "o", c.cfg.OutputDir, "directory for the parsed holdings")
	f.BoolVar(&c.replace, "r", false, "replace existing outputs")
	f.IntVar(&c.workers, "w", c.cfg.Workers, "number of filings parsed concurrently")
	f.StringVar(&c.xlsx, "xlsx", "", "also export every parsed filing to this workbook")
	f.StringVar(&c.reportDir, "report", "", "write report.md and report.html into this directory")
	f.BoolVar(&c.useDB, "db", false, "also store parsed filings in Postgres (DATABASE_URL)")
}

func (c *parseCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	overrides, err := config.LoadOverrides(c.cfg.OverridesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading overrides: %v\n", err)
		return subcommands.ExitFailure
	}

	runner := pipeline.NewRunner(overrides)
	if c.useDB {
		if err := store.InitDB(ctx, c.cfg.DatabaseURL, c.workers); err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting to database: %v\n", err)
			return subcommands.ExitFailure
		}
		defer store.Close()
		repo := store.NewHoldingsRepo(nil)
		if err := repo.EnsureSchema(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error preparing schema: %v\n", err)
			return subcommands.ExitFailure
		}
		runner.SetSink(repo)
	}

	report, err := runner.Run(ctx, pipeline.Options{
		InputDir:  c.input,
		OutputDir: c.output,
		Replace:   c.replace,
		Workers:   c.workers,
		XLSXPath:  c.xlsx,
		ReportDir: c.reportDir,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	s := report.Summary()
	fmt.Printf("%d parsed, %d skipped, %d failed\n", s.Parsed, s.Skipped, s.Failed)
	for _, o := range report.Outcomes {
		if o.Status == pipeline.StatusFailed {
			fmt.Printf("  FAILED %s: %s\n", o.File, o.Reason)
		}
	}
	return subcommands.ExitSuccess
}
