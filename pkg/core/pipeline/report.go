package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"ncsr_holdings/pkg/core/holdings"
	"ncsr_holdings/pkg/core/utils"
)

type Status string

const (
	StatusParsed  Status = "parsed"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Outcome is what happened to one filing in a run.
type Outcome struct {
	File       string
	Period     string
	Generation holdings.Generation
	Status     Status
	Kind       string // error kind for failures
	Reason     string

	Holdings   int
	Sectors    int
	GrandTotal int64
	Layout     holdings.Layout
}

// BatchReport summarises one parse run.
type BatchReport struct {
	RunID    uuid.UUID
	Started  time.Time
	Finished time.Time
	Outcomes []Outcome // filing index order
}

type Summary struct {
	Parsed, Skipped, Failed int
}

func (b *BatchReport) Summary() Summary {
	var s Summary
	for _, o := range b.Outcomes {
		switch o.Status {
		case StatusParsed:
			s.Parsed++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}

// Markdown renders the report as a Markdown document.
func (b *BatchReport) Markdown() string {
	var sb strings.Builder
	s := b.Summary()

	fmt.Fprintf(&sb, "# N-CSR parse run %s\n\n", b.RunID)
	fmt.Fprintf(&sb, "Started %s, finished in %s.\n\n", b.Started.Format(time.RFC3339), b.Finished.Sub(b.Started).Round(time.Millisecond))
	fmt.Fprintf(&sb, "**%d parsed**, %d skipped, %d failed.\n\n", s.Parsed, s.Skipped, s.Failed)

	sb.WriteString("| Period | File | Generation | Status | Holdings | Sectors | Total | Detail |\n")
	sb.WriteString("|---|---|---|---|---:|---:|---:|---|\n")
	for _, o := range b.Outcomes {
		detail := o.Reason
		if o.Status == StatusParsed {
			detail = o.Layout.String()
		} else if o.Kind != "" {
			detail = o.Kind + ": " + o.Reason
		}
		holdingsCol, sectorsCol, totalCol := "", "", ""
		if o.Status == StatusParsed {
			holdingsCol = fmt.Sprint(o.Holdings)
			sectorsCol = fmt.Sprint(o.Sectors)
			totalCol = fmt.Sprint(o.GrandTotal)
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s | %s | %s | %s |\n",
			o.Period, o.File, o.Generation, o.Status, holdingsCol, sectorsCol, totalCol, escapeCell(detail))
	}
	return sb.String()
}

// HTML renders the report as a standalone HTML page.
func (b *BatchReport) HTML() (string, error) {
	body, err := utils.MarkdownToHTML(b.Markdown())
	if err != nil {
		return "", err
	}
	return utils.HTMLPage("N-CSR parse run "+b.RunID.String(), body), nil
}

// WriteFiles writes report.md and report.html into dir.
func (b *BatchReport) WriteFiles(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create report dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "report.md"), []byte(b.Markdown()), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	html, err := b.HTML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "report.html"), []byte(html), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
