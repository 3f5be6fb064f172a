package holdings

import (
	"log"
)

// ParseFiling extracts and reconciles the Russell 3000 schedule of
// investments from one raw filing. gen comes from the filing index and
// selects the page filter and layout family.
func ParseFiling(buf []byte, gen Generation) (*FilingResult, error) {
	pages, err := ExtractPages(DecodeDocument(buf), gen)
	if err != nil {
		return nil, err
	}
	layout, err := ClassifyLayout(&pages[0], gen)
	if err != nil {
		return nil, locate(err, pages[0].Index, -1)
	}

	agg := newAggregator()
	state := ParseState{}
	var header Header
	parsed := 0

scan:
	for pi := range pages {
		page := &pages[pi]
		parsed++

		if pi == 0 || layout.HeaderOnEveryPage() {
			h, err := ExtractHeader(page, layout)
			if err != nil {
				return nil, locate(err, page.Index, -1)
			}
			if pi == 0 {
				header = h
			} else if h.ETFName != header.ETFName || !h.ReportDate.Equal(header.ReportDate) {
				return nil, locate(newError(ErrIdentity, "header %q %s disagrees with first page %q %s",
					h.ETFName, h.ReportDate.Format("2006-01-02"), header.ETFName, header.ReportDate.Format("2006-01-02")), page.Index, -1)
			}
		}

		for ci, col := range layout.Columns(page) {
			res, next, err := ClassifyColumn(ColumnRows(col), layout.ColumnRules(pi == 0, ci), state)
			if err != nil {
				return nil, locate(err, page.Index, ci)
			}
			state = next
			if err := agg.add(res); err != nil {
				return nil, locate(err, page.Index, ci)
			}
			// the schedule ends in the column that reaches the common stocks
			// total label, whether or not the total itself was read there
			if res.Done || state.HitTotalCommonStocks {
				break scan
			}
		}
	}

	checkpoints, err := Reconcile(agg.holdings, agg.totals, agg.grandTotal)
	if err != nil {
		return nil, err
	}

	log.Printf("[Holdings] %s %s: %d holdings, %d sectors, %d pages, layout=%s",
		header.ETFName, header.ReportDate.Format("2006-01-02"), len(agg.holdings), len(agg.totals), parsed, layout)

	return &FilingResult{
		ETFName:      header.ETFName,
		ReportDate:   header.ReportDate,
		Holdings:     agg.holdings,
		SectorTotals: agg.totals,
		GrandTotal:   *agg.grandTotal,
		Layout:       layout,
		Pages:        parsed,
		Checkpoints:  checkpoints,
	}, nil
}

// aggregator merges column results in document order.
type aggregator struct {
	holdings   []HoldingRecord
	totals     []SectorTotal
	seen       map[string]bool
	grandTotal *int64
}

func newAggregator() *aggregator {
	return &aggregator{seen: make(map[string]bool)}
}

func (a *aggregator) add(res ColumnResult) error {
	a.holdings = append(a.holdings, res.Holdings...)
	for _, t := range res.SectorTotals {
		key := NormalizeSector(t.Sector)
		if a.seen[key] {
			return newError(ErrStructuralDrift, "duplicate subtotal for sector %q", key)
		}
		a.seen[key] = true
		a.totals = append(a.totals, t)
	}
	if res.GrandTotal != nil {
		if a.grandTotal != nil {
			return newError(ErrStructuralDrift, "duplicate %q total", TotalCommonStocks)
		}
		a.grandTotal = res.GrandTotal
	}
	return nil
}
