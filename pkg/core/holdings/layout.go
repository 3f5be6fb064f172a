package holdings

import (
	"github.com/PuerkitoBio/goquery"
)

// ClassifyLayout picks the layout that governs the whole filing from its
// first schedule page. Legacy filings have a single layout; modern ones are
// told apart by the number of tables on the page and whether the first table
// carries the schedule heading.
func ClassifyLayout(first *Page, gen Generation) (Layout, error) {
	switch gen {
	case GenerationLegacy:
		return LayoutLegacy, nil
	case GenerationModern:
	default:
		return LayoutUnknown, newError(ErrStructuralDrift, "unknown generation %d", int(gen))
	}

	tables := first.Doc.Find("table")
	switch n := tables.Length(); n {
	case 3:
		markup, err := goquery.OuterHtml(tables.First())
		if err != nil {
			return LayoutUnknown, newError(ErrStructuralDrift, "render first table: %v", err)
		}
		if !modernScheduleRe.MatchString(markup) {
			return LayoutModernParagraphHeader, nil
		}
		return LayoutModernTableHeader, nil
	case 4:
		return LayoutModernTableHeader, nil
	default:
		return LayoutUnknown, newError(ErrStructuralDrift, "unexpected number of tables on first schedule page: %d", n)
	}
}

// Columns returns the tables of a page that hold the listing.
func (l Layout) Columns(page *Page) []*goquery.Selection {
	tables := page.Doc.Find("table")
	n := tables.Length()
	var from, to int
	switch l {
	case LayoutLegacy:
		from, to = 0, n
	case LayoutModernParagraphHeader:
		from, to = 0, min(2, n)
	case LayoutModernTableHeader:
		from, to = min(1, n), min(3, n)
	}
	cols := make([]*goquery.Selection, 0, to-from)
	for i := from; i < to; i++ {
		cols = append(cols, tables.Eq(i))
	}
	return cols
}

// HeaderOnEveryPage reports whether continuation pages repeat the header.
func (l Layout) HeaderOnEveryPage() bool {
	return l != LayoutLegacy
}

// ColumnRules returns the header-row expectations for a column.
func (l Layout) ColumnRules(firstPage bool, column int) ColumnRules {
	if l == LayoutLegacy {
		// Only the first page carries column headings, and every table on it
		// opens the common stocks section.
		return ColumnRules{ExpectHeader: firstPage, ExpectSectionLabel: firstPage}
	}
	return ColumnRules{ExpectHeader: true, ExpectSectionLabel: firstPage && column == 0}
}
