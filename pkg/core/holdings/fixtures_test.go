package holdings

import (
	"strings"
)

const pageBreak = `<p style="page-break-before:always">&nbsp;</p>`

func r(cells ...string) []string { return cells }

var columnHeader = r("Security", "Shares", "Value")

func table(rows ...[]string) string {
	var b strings.Builder
	b.WriteString("<table>")
	for _, row := range rows {
		b.WriteString("<tr>")
		for _, c := range row {
			b.WriteString("<td>" + c + "</td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</table>")
	return b.String()
}

func mustPage(html string) *Page {
	pages, err := SplitPages(pageBreak + html + pageBreak)
	if err != nil || len(pages) != 1 {
		panic("fixture page did not split into exactly one page")
	}
	return &pages[0]
}

// tableHeaderPage lays out a modern page whose header is its own table:
// header, two listing columns and a footer table.
func tableHeaderPage(date, left, right string) string {
	header := table(r("Schedule of Investments"), r("iShares® Russell 3000 ETF"), r(date))
	footer := table(r("See notes to financial statements."))
	return pageBreak + header + left + right + footer
}

// paragraphHeaderPage lays out a modern page whose header is three
// paragraphs ahead of the two listing columns.
func paragraphHeaderPage(date, left, right string) string {
	header := "<p>Schedule of Investments</p><p>iShares® Russell 3000 Index Fund</p><p>" + date + "</p>"
	footer := table(r("See notes to financial statements."))
	return pageBreak + header + left + right + footer
}

func modernColumns() (p1Left, p1Right, p2Left, p2Right string) {
	p1Left = table(columnHeader,
		r("Common Stocks"),
		r("Information Technology — 40.0%"),
		r("Acme Corp", "1,000", "$", "50,000"),
		r("Beta Inc", "500", "10,000", "(a)"),
		r("$", "60,000"),
	)
	p1Right = table(columnHeader,
		r("Utilities — 50.0%"),
		r("Gamma Power", "200", "—"),
		r("Delta Water", "300", "40,000"),
	)
	p2Left = table(columnHeader,
		r("Utilities (continued)"),
		r("Epsilon Gas", "100", "5,000"),
		r("45,000"),
		r("Total Common Stocks — 99.9%"),
		r("105,000"),
	)
	p2Right = table(columnHeader,
		r("Short-Term Investments"),
		r("Money Market Fund", "1", "1"),
	)
	return
}

func noisePages() string {
	summary := pageBreak + "<p>Summary Schedule of Investments</p><p>iShares® Russell 3000 ETF</p>" +
		table(r("Other", "1", "1"))
	notes := pageBreak + "<p>Notes to Financial Statements</p>" +
		"<p>Schedule of investments of the iShares Russell 3000 ETF</p>"
	return summary + notes
}

func modernTableHeaderFiling() []byte {
	l1, r1, l2, r2 := modernColumns()
	doc := "<html><body><p>iShares Trust annual report</p>" +
		tableHeaderPage("September 30, 2018", l1, r1) +
		tableHeaderPage("September 30, 2018", l2, r2) +
		noisePages() + pageBreak + "</body></html>"
	return []byte(doc)
}

func modernParagraphHeaderFiling() []byte {
	l1, r1, l2, r2 := modernColumns()
	doc := "<html><body><p>iShares Trust annual report</p>" +
		paragraphHeaderPage("March 31, 2012", l1, r1) +
		paragraphHeaderPage("March 31, 2012", l2, r2) +
		noisePages() + pageBreak + "</body></html>"
	return []byte(doc)
}

// legacyFiling is Windows-1252 encoded, like the pre-2010 filings.
func legacyFiling() []byte {
	p1 := pageBreak +
		"<p>Schedule of Investments</p><p>iSHARES\xae RUSSELL 3000 INDEX FUND</p><p>September 30, 2008</p>" +
		table(columnHeader,
			r("COMMON STOCKS \x96 99.80%"),
			r("ADVERTISING \x96 0.12%"),
			r("Omnicom Group Inc.", "1,000", "40,000"),
			r("Macy\x92s Inc.", "500", "\x97"),
			r("40,000"),
			r("AIRLINES 0.05%"),
			r("Delta Air Lines Inc.", "2,000", "20,000"),
		)
	p2 := pageBreak + "<p>iShares Russell 3000 Index Fund</p>" +
		table(
			r("20,000"),
			r("TOTAL COMMON STOCKS"),
			r("60,000"),
		)
	notes := pageBreak + "<p>Notes to financial statements</p>"
	doc := "<html><body><p>Semi-annual report</p>" + p1 + p2 + notes + pageBreak + "</body></html>"
	return []byte(doc)
}
