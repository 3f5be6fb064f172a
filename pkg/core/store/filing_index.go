package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"ncsr_holdings/pkg/core/holdings"
	"ncsr_holdings/pkg/core/ingest"
)

// FilingIndexFile is the name of the filing list stored next to the raw
// documents.
const FilingIndexFile = "filing-index.csv"

var filingIndexHeader = []string{"FILING_DATE", "PERIOD_OF_REPORT", "FORM_TYPE", "SIZE", "URI", "VERSION"}

// WriteFilingIndex writes the filing list to path.
func WriteFilingIndex(path string, refs []ingest.FilingRef) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(filingIndexHeader); err != nil {
		return err
	}
	for _, r := range refs {
		row := []string{
			r.FilingDate.Format(dateLayout),
			r.PeriodOfReport.Format(dateLayout),
			r.FormType,
			strconv.FormatInt(r.Size, 10),
			r.URI,
			strconv.Itoa(int(r.Generation)),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return f.Close()
}

// ReadFilingIndex reads a filing list written by WriteFilingIndex. Columns
// are located by header name.
func ReadFilingIndex(path string) ([]ingest.FilingRef, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open filing index: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read filing index: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("filing index %s is empty", path)
	}

	col := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		col[name] = i
	}
	for _, name := range filingIndexHeader {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("filing index %s: missing column %s", path, name)
		}
	}

	refs := make([]ingest.FilingRef, 0, len(records)-1)
	for i, rec := range records[1:] {
		line := i + 2
		filed, err := time.Parse(dateLayout, rec[col["FILING_DATE"]])
		if err != nil {
			return nil, fmt.Errorf("filing index line %d: FILING_DATE: %w", line, err)
		}
		period, err := time.Parse(dateLayout, rec[col["PERIOD_OF_REPORT"]])
		if err != nil {
			return nil, fmt.Errorf("filing index line %d: PERIOD_OF_REPORT: %w", line, err)
		}
		size, err := strconv.ParseInt(rec[col["SIZE"]], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("filing index line %d: SIZE: %w", line, err)
		}
		version, err := strconv.Atoi(rec[col["VERSION"]])
		if err != nil {
			return nil, fmt.Errorf("filing index line %d: VERSION: %w", line, err)
		}
		gen := holdings.Generation(version)
		if gen != holdings.GenerationLegacy && gen != holdings.GenerationModern {
			return nil, fmt.Errorf("filing index line %d: unknown VERSION %d", line, version)
		}
		refs = append(refs, ingest.FilingRef{
			FilingDate:     filed,
			PeriodOfReport: period,
			FormType:       rec[col["FORM_TYPE"]],
			Size:           size,
			URI:            rec[col["URI"]],
			Generation:     gen,
		})
	}
	return refs, nil
}
