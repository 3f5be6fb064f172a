package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ncsr_holdings/pkg/core/config"
	"ncsr_holdings/pkg/core/holdings"
	"ncsr_holdings/pkg/core/ingest"
	"ncsr_holdings/pkg/core/store"
)

// Parser extracts the schedule from one raw filing.
type Parser func(buf []byte, gen holdings.Generation) (*holdings.FilingResult, error)

// Sink receives every successfully parsed filing, e.g. store.HoldingsRepo.
type Sink interface {
	Save(ctx context.Context, ref ingest.FilingRef, res *holdings.FilingResult) (uuid.UUID, error)
}

// Options controls one batch run.
type Options struct {
	InputDir  string // raw filings and filing-index.csv
	OutputDir string // one CSV per period of report
	Replace   bool   // re-parse filings whose output already exists
	Workers   int

	XLSXPath  string // optional workbook of every parsed filing
	ReportDir string // optional report.md / report.html
}

// Runner parses every filing listed in a filing index.
type Runner struct {
	parse     Parser
	overrides *config.Overrides
	sink      Sink
}

// NewRunner creates a runner that parses with holdings.ParseFiling.
func NewRunner(overrides *config.Overrides) *Runner {
	return &Runner{parse: holdings.ParseFiling, overrides: overrides}
}

// SetParser allows injecting a custom parser (e.g., for testing).
func (r *Runner) SetParser(p Parser) {
	r.parse = p
}

// SetSink adds a sink for parsed filings.
func (r *Runner) SetSink(s Sink) {
	r.sink = s
}

// Run parses the filings concurrently. A filing that fails to parse is
// recorded in the report and does not stop the run; I/O errors on the
// output side do.
func (r *Runner) Run(ctx context.Context, opts Options) (*BatchReport, error) {
	refs, err := store.ReadFilingIndex(filepath.Join(opts.InputDir, store.FilingIndexFile))
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	report := &BatchReport{
		RunID:    uuid.New(),
		Started:  time.Now(),
		Outcomes: make([]Outcome, len(refs)),
	}
	results := make([]*holdings.FilingResult, len(refs))
	log.Printf("[Pipeline] run %s: %d filings from %s", report.RunID, len(refs), opts.InputDir)

	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	// Filings sharing a period write the same output file, so each period is
	// handled by one worker in index order and the first parsed filing wins.
	for _, group := range groupByPeriod(refs) {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			written := false
			for _, i := range group {
				if written {
					report.Outcomes[i] = duplicateOutcome(refs[i])
					continue
				}
				out, res, err := r.processOne(gctx, refs[i], opts)
				report.Outcomes[i] = out
				results[i] = res
				if err != nil {
					return err
				}
				written = out.Status == StatusParsed
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	report.Finished = time.Now()

	if opts.XLSXPath != "" {
		var parsed []*holdings.FilingResult
		for _, res := range results {
			if res != nil {
				parsed = append(parsed, res)
			}
		}
		if err := store.ExportXLSX(opts.XLSXPath, parsed); err != nil {
			return nil, err
		}
	}
	if opts.ReportDir != "" {
		if err := report.WriteFiles(opts.ReportDir); err != nil {
			return nil, err
		}
	}

	s := report.Summary()
	log.Printf("[Pipeline] run %s done in %s: %d parsed, %d skipped, %d failed",
		report.RunID, report.Finished.Sub(report.Started).Round(time.Millisecond), s.Parsed, s.Skipped, s.Failed)
	return report, nil
}

// processOne handles a single filing. The returned error is fatal to the
// run; parse failures are reported through the Outcome instead.
func (r *Runner) processOne(ctx context.Context, ref ingest.FilingRef, opts Options) (Outcome, *holdings.FilingResult, error) {
	name := ref.FileName()
	period := ref.PeriodOfReport.Format("2006-01-02")
	out := Outcome{File: name, Period: period, Generation: ref.Generation}

	if r.overrides.Skip(name) {
		out.Status = StatusSkipped
		out.Reason = "on skip list"
		log.Printf("[Pipeline] skip %s: %s", name, out.Reason)
		return out, nil, nil
	}

	target := filepath.Join(opts.OutputDir, period)
	if !opts.Replace {
		if _, err := os.Stat(target); err == nil {
			out.Status = StatusSkipped
			out.Reason = "output exists"
			return out, nil, nil
		}
	}

	buf, err := os.ReadFile(filepath.Join(opts.InputDir, name))
	if err != nil {
		out.Status = StatusFailed
		out.Reason = fmt.Sprintf("read raw filing: %v", err)
		log.Printf("[Pipeline] FAILED %s: %s", name, out.Reason)
		return out, nil, nil
	}

	res, err := r.parse(buf, ref.Generation)
	if err != nil {
		out.Status = StatusFailed
		out.Kind = errorKind(err)
		out.Reason = err.Error()
		log.Printf("[Pipeline] FAILED %s: %v", name, err)
		return out, nil, nil
	}

	if err := store.SaveHoldingsCSV(target, res); err != nil {
		return out, nil, err
	}
	if r.sink != nil {
		if _, err := r.sink.Save(ctx, ref, res); err != nil {
			return out, nil, fmt.Errorf("save %s: %w", name, err)
		}
	}

	out.Status = StatusParsed
	out.Holdings = len(res.Holdings)
	out.Sectors = len(res.SectorTotals)
	out.GrandTotal = res.GrandTotal
	out.Layout = res.Layout
	return out, res, nil
}

// groupByPeriod returns the indexes of refs grouped by period of report,
// groups ordered by first appearance.
func groupByPeriod(refs []ingest.FilingRef) [][]int {
	var groups [][]int
	seen := make(map[string]int)
	for i, ref := range refs {
		period := ref.PeriodOfReport.Format("2006-01-02")
		g, ok := seen[period]
		if !ok {
			g = len(groups)
			seen[period] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}

func duplicateOutcome(ref ingest.FilingRef) Outcome {
	out := Outcome{
		File:       ref.FileName(),
		Period:     ref.PeriodOfReport.Format("2006-01-02"),
		Generation: ref.Generation,
		Status:     StatusSkipped,
		Reason:     "output exists",
	}
	log.Printf("[Pipeline] skip %s: period %s already written by an earlier filing", out.File, out.Period)
	return out
}

func errorKind(err error) string {
	var pe *holdings.ParseError
	if errors.As(err, &pe) {
		return pe.Kind.Error()
	}
	return "error"
}
