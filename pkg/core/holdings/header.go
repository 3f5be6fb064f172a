package holdings

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	titleRe       = regexp.MustCompile(`(?is)schedule of investments`)
	legacyTitleRe = regexp.MustCompile(`(?i)^schedule\s+of\s+investments`)
	legacyNameRe  = regexp.MustCompile("(?i)^iSHARES® RUSSELL 3000 INDEX FUND")
	spaceCommaRe  = regexp.MustCompile(`\s*,\s*`)
)

// acceptedFundNames are the spellings the modern filings have used.
var acceptedFundNames = map[string]bool{
	"ishares® russell 3000 etf":        true,
	"ishares® russell 3000 index fund": true,
	"ishares russell 3000 index fund":  true,
}

var reportDateLayouts = []string{
	"January 2,2006",
	"January 2 2006",
	"Jan 2,2006",
	"Jan. 2,2006",
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
}

// ExtractHeader reads the title, fund name and report date of a page and
// checks that the page belongs to the Russell 3000 schedule.
func ExtractHeader(page *Page, layout Layout) (Header, error) {
	var title, name, date string
	switch layout {
	case LayoutLegacy:
		ps := nonEmptyTexts(page.Doc.Find("p"))
		if len(ps) < 3 {
			return Header{}, newError(ErrStructuralDrift, "expected 3 header paragraphs, found %d", len(ps))
		}
		title, name, date = ps[0], ps[1], ps[2]
		if !legacyTitleRe.MatchString(title) {
			return Header{}, newError(ErrIdentity, "unexpected schedule title %q", title)
		}
		if !legacyNameRe.MatchString(name) {
			return Header{}, newError(ErrIdentity, "unexpected fund name %q", name)
		}
	case LayoutModernParagraphHeader:
		ps := paragraphsBeforeTable(page.Doc)
		if len(ps) < 3 {
			return Header{}, newError(ErrStructuralDrift, "expected 3 header paragraphs before the first table, found %d", len(ps))
		}
		title, name, date = ps[0], ps[1], ps[2]
	case LayoutModernTableHeader:
		header := page.Doc.Find("table").First()
		if ps := nonEmptyTexts(header.Find("p")); len(ps) >= 3 {
			title, date, name = ps[0], ps[1], ps[2]
		} else if tds := nonEmptyTexts(header.Find("td")); len(tds) >= 3 {
			title, name, date = tds[0], tds[1], tds[2]
		} else {
			return Header{}, newError(ErrStructuralDrift, "header table has neither 3 paragraphs nor 3 cells")
		}
	default:
		return Header{}, newError(ErrStructuralDrift, "no header rule for layout %s", layout)
	}

	if layout != LayoutLegacy {
		if !titleRe.MatchString(title) {
			return Header{}, newError(ErrIdentity, "unexpected schedule title %q", title)
		}
		if !acceptedFundNames[strings.ToLower(name)] {
			return Header{}, newError(ErrIdentity, "unexpected fund name %q", name)
		}
	}

	reportDate, err := ParseReportDate(date)
	if err != nil {
		return Header{}, err
	}
	return Header{ETFName: strings.ToLower(name), ReportDate: reportDate}, nil
}

// ParseReportDate parses dates as printed in the header, e.g.
// "September 30, 2018" or "MARCH 31, 2009".
func ParseReportDate(s string) (time.Time, error) {
	v := spaceCommaRe.ReplaceAllString(strings.TrimRight(ScrubText(s), "."), ",")
	for _, layout := range reportDateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, newError(ErrValueParse, "cannot parse report date %q", s)
}

func nonEmptyTexts(sel *goquery.Selection) []string {
	var out []string
	sel.Each(func(_ int, s *goquery.Selection) {
		if t := ScrubText(s.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}

// paragraphsBeforeTable walks the page in document order and collects the
// non-empty paragraphs that appear before the first table.
func paragraphsBeforeTable(doc *goquery.Document) []string {
	var out []string
	done := false
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil && !done; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "table":
				done = true
				return
			case "p":
				if t := ScrubText(nodeText(c)); t != "" {
					out = append(out, t)
				}
			}
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return out
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return b.String()
}
