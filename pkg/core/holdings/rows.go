package holdings

import (
	"regexp"

	"github.com/PuerkitoBio/goquery"
)

var (
	commonStockRe     = regexp.MustCompile(`(?is)common.*stock`)
	commonStocksRowRe = regexp.MustCompile(`(?is)common stocks`)
)

// RowKind is the shape of a listing row after empty cells and "$" tokens
// are dropped: a sector label or subtotal has one field, the split grand
// total two, a holding three (name, shares, value) and a footnoted holding
// four.
type RowKind int

const (
	RowEmpty RowKind = iota
	RowSectorLabel
	RowSectorTotal
	RowSplitTotal
	RowHolding
	RowHoldingFootnote
)

func (k RowKind) String() string {
	switch k {
	case RowEmpty:
		return "empty"
	case RowSectorLabel:
		return "sector-label"
	case RowSectorTotal:
		return "sector-total"
	case RowSplitTotal:
		return "split-total"
	case RowHolding:
		return "holding"
	case RowHoldingFootnote:
		return "holding-footnote"
	}
	return "unknown"
}

// Row is a classified listing row.
type Row struct {
	Kind   RowKind
	Fields []string
}

// ColumnRules are the header-row expectations for one column.
type ColumnRules struct {
	ExpectHeader       bool // first row is Security | Shares | Value
	ExpectSectionLabel bool // followed by the single "Common Stocks" row
}

// ColumnResult is what one column contributes to the filing.
type ColumnResult struct {
	Holdings     []HoldingRecord
	SectorTotals []SectorTotal
	GrandTotal   *int64
	// Done is set once the grand total has been read; nothing after it in
	// the document belongs to the schedule.
	Done bool
}

// ColumnRows returns the non-empty cell texts of every row of a column.
// Rows without any non-empty cell are dropped.
func ColumnRows(col *goquery.Selection) [][]string {
	var rows [][]string
	col.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			if t := ScrubText(td.Text()); t != "" {
				cells = append(cells, t)
			}
		})
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	})
	return rows
}

// RowFields drops empty cells and isolated "$" tokens.
func RowFields(cells []string) []string {
	fields := make([]string, 0, len(cells))
	for _, c := range cells {
		if t := ScrubText(c); t != "" && t != "$" {
			fields = append(fields, t)
		}
	}
	return fields
}

// ClassifyRow maps a row to its kind by field count and content.
func ClassifyRow(cells []string) (Row, error) {
	fields := RowFields(cells)
	row := Row{Fields: fields}
	switch len(fields) {
	case 0:
		row.Kind = RowEmpty
	case 1:
		if isNumeric(fields[0]) {
			row.Kind = RowSectorTotal
		} else {
			row.Kind = RowSectorLabel
		}
	case 2:
		row.Kind = RowSplitTotal
	case 3:
		row.Kind = RowHolding
	case 4:
		if !footnoteRe.MatchString(fields[3]) {
			return row, rowError(ErrStructuralDrift, fields, "unrecognized footnote marker %q", fields[3])
		}
		row.Kind = RowHoldingFootnote
	default:
		return row, rowError(ErrStructuralDrift, fields, "unexpected row with %d fields", len(fields))
	}
	return row, nil
}

func isHeaderRow(cells []string) bool {
	return len(cells) >= 3 && cells[0] == "Security" && cells[1] == "Shares" && cells[2] == "Value"
}

// ClassifyColumn runs the sector state machine over one column. The state
// returned is the state to pass to the next column.
func ClassifyColumn(rows [][]string, rules ColumnRules, state ParseState) (ColumnResult, ParseState, error) {
	var res ColumnResult
	start := 0
	if rules.ExpectHeader {
		if len(rows) == 0 || !isHeaderRow(rows[0]) {
			var got []string
			if len(rows) > 0 {
				got = rows[0]
			}
			return res, state, rowError(ErrStructuralDrift, got, "expected Security | Shares | Value header row")
		}
		start = 1
		if rules.ExpectSectionLabel {
			if len(rows) < 2 || len(rows[1]) != 1 || !commonStocksRowRe.MatchString(rows[1][0]) {
				var got []string
				if len(rows) > 1 {
					got = rows[1]
				}
				return res, state, rowError(ErrStructuralDrift, got, "expected common stocks section label")
			}
			start = 2
		}
	}

	recorded := make(map[string]bool)
	for _, cells := range rows[start:] {
		row, err := ClassifyRow(cells)
		if err != nil {
			return res, state, err
		}

		switch row.Kind {
		case RowEmpty:
			continue

		case RowSectorTotal:
			if state.CurrentSector == "" {
				return res, state, rowError(ErrStructuralDrift, row.Fields, "subtotal without a sector")
			}
			total, err := requireAmount(row.Fields[0], row.Fields)
			if err != nil {
				return res, state, err
			}
			if state.HitTotalCommonStocks {
				res.GrandTotal = &total
				res.Done = true
				return res, state, nil
			}
			if recorded[state.CurrentSector] {
				return res, state, rowError(ErrStructuralDrift, row.Fields, "duplicate subtotal for sector %q", state.CurrentSector)
			}
			recorded[state.CurrentSector] = true
			res.SectorTotals = append(res.SectorTotals, SectorTotal{Sector: state.CurrentSector, TotalValue: total})

		case RowSectorLabel:
			state.CurrentSector = NormalizeSector(row.Fields[0])
			if commonStockRe.MatchString(state.CurrentSector) {
				state.HitTotalCommonStocks = true
			}

		case RowSplitTotal:
			total, err := requireAmount(row.Fields[1], row.Fields)
			if err != nil {
				return res, state, err
			}
			state.HitTotalCommonStocks = true
			res.GrandTotal = &total
			res.Done = true
			return res, state, nil

		case RowHolding, RowHoldingFootnote:
			if state.CurrentSector == "" {
				return res, state, rowError(ErrStructuralDrift, row.Fields, "holding without a sector")
			}
			h, err := holdingFromFields(state.CurrentSector, row.Fields)
			if err != nil {
				return res, state, err
			}
			res.Holdings = append(res.Holdings, h)
		}
	}
	return res, state, nil
}

func holdingFromFields(sector string, fields []string) (HoldingRecord, error) {
	shares, err := ParseAmount(fields[1])
	if err != nil {
		return HoldingRecord{}, withRow(err, fields)
	}
	value, err := ParseAmount(fields[2])
	if err != nil {
		return HoldingRecord{}, withRow(err, fields)
	}
	return HoldingRecord{Sector: sector, CompanyName: fields[0], Shares: shares, Value: value}, nil
}

// requireAmount parses a total; totals never use placeholders.
func requireAmount(s string, fields []string) (int64, error) {
	v, err := ParseAmount(s)
	if err != nil {
		return 0, withRow(err, fields)
	}
	if v == nil {
		return 0, rowError(ErrValueParse, fields, "placeholder %q where a total was expected", s)
	}
	return *v, nil
}

func withRow(err error, fields []string) error {
	if pe, ok := err.(*ParseError); ok && pe.Row == nil {
		pe.Row = fields
	}
	return err
}
