// Package holdings extracts the Russell 3000 schedule of investments from
// iShares N-CSR filings and reconciles it against the totals printed in the
// filing itself.
package holdings

import (
	"fmt"
	"time"
)

// Generation identifies the major layout generation of a filing.
// The numeric values match the VERSION column of filing-index.csv.
type Generation int

const (
	GenerationLegacy Generation = 1 // pre 2010-09-30 filings, plus a few overrides
	GenerationModern Generation = 2
)

func (g Generation) String() string {
	switch g {
	case GenerationLegacy:
		return "legacy"
	case GenerationModern:
		return "modern"
	}
	return fmt.Sprintf("generation(%d)", int(g))
}

// Layout is the concrete page layout selected for a filing. It drives header
// extraction, column selection and header-row expectations.
type Layout int

const (
	LayoutUnknown Layout = iota
	// LayoutLegacy: header paragraphs on the first page only, every table is a column.
	LayoutLegacy
	// LayoutModernParagraphHeader: header paragraphs precede the first table,
	// tables[0:2] are the columns.
	LayoutModernParagraphHeader
	// LayoutModernTableHeader: header is tables[0], tables[1:3] are the columns.
	LayoutModernTableHeader
)

func (l Layout) String() string {
	switch l {
	case LayoutLegacy:
		return "legacy"
	case LayoutModernParagraphHeader:
		return "modern/paragraph-header"
	case LayoutModernTableHeader:
		return "modern/table-header"
	}
	return "unknown"
}

func (l Layout) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// HoldingRecord is one position in the schedule. Shares and Value are nil
// only when the source cell held a recognized placeholder.
type HoldingRecord struct {
	Sector      string `json:"sector"`
	CompanyName string `json:"company_name"`
	Shares      *int64 `json:"shares"`
	Value       *int64 `json:"value"`
}

// SectorTotal is a subtotal printed in the filing for one sector.
type SectorTotal struct {
	Sector     string `json:"sector"`
	TotalValue int64  `json:"total_value"`
}

// Header is the fund identity printed at the top of a schedule page.
type Header struct {
	ETFName    string    `json:"etf_name"`
	ReportDate time.Time `json:"report_date"`
}

// ParseState is threaded from column to column and page to page.
type ParseState struct {
	CurrentSector        string
	HitTotalCommonStocks bool
}

// FilingResult is the structured schedule of one filing.
type FilingResult struct {
	ETFName      string            `json:"etf_name"`
	ReportDate   time.Time         `json:"report_date"`
	Holdings     []HoldingRecord   `json:"holdings"`
	SectorTotals []SectorTotal     `json:"sector_totals"`
	GrandTotal   int64             `json:"grand_total"`
	Layout       Layout            `json:"layout"`
	Pages        int               `json:"pages"`
	Checkpoints  []AuditCheckpoint `json:"checkpoints"`
}

// TotalCommonStocks is the label under which the grand total is reported.
const TotalCommonStocks = "Total Common Stocks"
