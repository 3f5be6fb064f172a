package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"ncsr_holdings/pkg/core/holdings"
)

const dateLayout = "2006-01-02"

var holdingsHeader = []string{"SECTOR", "COMPANY_NAME", "SHARES", "VALUE", "REPORT_DATE", "ETF_NAME"}

// WriteHoldingsCSV writes one row per holding. Placeholder amounts are
// written as empty cells.
func WriteHoldingsCSV(w io.Writer, res *holdings.FilingResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(holdingsHeader); err != nil {
		return err
	}
	reportDate := res.ReportDate.Format(dateLayout)
	for _, h := range res.Holdings {
		row := []string{h.Sector, h.CompanyName, formatAmount(h.Shares), formatAmount(h.Value), reportDate, res.ETFName}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveHoldingsCSV writes the holdings of a filing to path, creating parent
// directories as needed.
func SaveHoldingsCSV(path string, res *holdings.FilingResult) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteHoldingsCSV(f, res); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func formatAmount(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
