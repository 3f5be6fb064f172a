package store

import (
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"ncsr_holdings/pkg/core/holdings"
)

const (
	holdingsSheet = "Holdings"
	sectorsSheet  = "Sectors"
)

// SectorWeight is a sector's share of the reported grand total.
type SectorWeight struct {
	Sector  string
	Total   int64
	Percent decimal.Decimal // rounded to 4 places
}

// Weight returns value as a percentage of total, rounded to 4 places.
// A zero total yields zero.
func Weight(value, total int64) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(value).Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(total)).Round(4)
}

// SectorWeights returns the reported sector totals of a filing with their
// weight in the grand total, in document order.
func SectorWeights(res *holdings.FilingResult) []SectorWeight {
	out := make([]SectorWeight, 0, len(res.SectorTotals))
	for _, t := range res.SectorTotals {
		out = append(out, SectorWeight{
			Sector:  t.Sector,
			Total:   t.TotalValue,
			Percent: Weight(t.TotalValue, res.GrandTotal),
		})
	}
	return out
}

// ExportXLSX writes all filings into one workbook with a holdings sheet and a
// sector sheet.
func ExportXLSX(path string, results []*holdings.FilingResult) error {
	f := excelize.NewFile()
	defer f.Close()

	// The default sheet becomes the holdings sheet.
	if err := f.SetSheetName("Sheet1", holdingsSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(sectorsSheet); err != nil {
		return err
	}
	activeIndex, _ := f.GetSheetIndex(holdingsSheet)
	f.SetActiveSheet(activeIndex)

	writeRow(f, holdingsSheet, 1, "Report Date", "ETF Name", "Sector", "Company Name", "Shares", "Value", "Weight %")
	writeRow(f, sectorsSheet, 1, "Report Date", "ETF Name", "Sector", "Reported Total", "Weight %")

	hRow, sRow := 2, 2
	for _, res := range results {
		date := res.ReportDate.Format(dateLayout)
		for _, h := range res.Holdings {
			var shares, value, weight any
			if h.Shares != nil {
				shares = *h.Shares
			}
			if h.Value != nil {
				value = *h.Value
				weight = Weight(*h.Value, res.GrandTotal).InexactFloat64()
			}
			writeRow(f, holdingsSheet, hRow, date, res.ETFName, h.Sector, h.CompanyName, shares, value, weight)
			hRow++
		}
		for _, sw := range SectorWeights(res) {
			writeRow(f, sectorsSheet, sRow, date, res.ETFName, sw.Sector, sw.Total, sw.Percent.InexactFloat64())
			sRow++
		}
	}

	_ = f.SetColWidth(holdingsSheet, "A", "B", 14)
	_ = f.SetColWidth(holdingsSheet, "C", "D", 36)
	_ = f.SetColWidth(holdingsSheet, "E", "G", 16)
	_ = f.SetColWidth(sectorsSheet, "A", "B", 14)
	_ = f.SetColWidth(sectorsSheet, "C", "C", 36)
	_ = f.SetColWidth(sectorsSheet, "D", "E", 16)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	log.Printf("[Export] %s: %d filings, %d holdings", path, len(results), hRow-2)
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) {
	for i, v := range values {
		if v == nil {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}
