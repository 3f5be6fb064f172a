package holdings

import (
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// pageBreakRe finds the opening tag of a paragraph that forces a page break.
var pageBreakRe = regexp.MustCompile(`(?is)<p\b[^>]*page-break-before\s*:\s*always[^>]*>`)

var (
	modernScheduleRe = regexp.MustCompile(`(?is)schedule.*of.*investments.*russell.*3000`)
	legacyScheduleRe = regexp.MustCompile(`(?is)schedule\s+of\s+investments`)
	legacyFundRe     = regexp.MustCompile(`(?is)russell\s+3000\s+index\s+fund`)
	summaryRe        = regexp.MustCompile(`(?is)summary.*schedule.*of.*investments`)
	notesRe          = regexp.MustCompile(`(?is)notes\s+to\s+financial\s+statements`)
	seeNotesRe       = regexp.MustCompile(`(?is)see.{0,7}notes\s+to\s+financial\s+statements`)
	totalCommonRe    = regexp.MustCompile(`(?is)total.*common.*stocks`)
)

// Page is one page of the filing, delimited by two consecutive page breaks.
type Page struct {
	Index int // ordinal among all candidate pages
	Start int // offset of the opening page break in the decoded document
	End   int // offset of the next page break
	Doc   *goquery.Document
	Text  string
}

// PageSeparators returns every distinct page-break marker in the document,
// together with its single- and double-quoted variants.
func PageSeparators(doc string) []string {
	seen := make(map[string]bool)
	var seps []string
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			seps = append(seps, s)
		}
	}
	for _, m := range pageBreakRe.FindAllString(doc, -1) {
		add(m)
		add(strings.ReplaceAll(m, `"`, `'`))
		add(strings.ReplaceAll(m, `'`, `"`))
	}
	return seps
}

// BreakOffsets returns the sorted, de-duplicated start offsets of every
// occurrence of every page separator.
func BreakOffsets(doc string) []int {
	seen := make(map[int]bool)
	var offsets []int
	for _, sep := range PageSeparators(doc) {
		re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(sep))
		for _, loc := range re.FindAllStringIndex(doc, -1) {
			if !seen[loc[0]] {
				seen[loc[0]] = true
				offsets = append(offsets, loc[0])
			}
		}
	}
	sort.Ints(offsets)
	return offsets
}

// SplitPages cuts the document at every page break. The fragments before the
// first break and after the last one are dropped.
func SplitPages(doc string) ([]Page, error) {
	offsets := BreakOffsets(doc)
	if len(offsets) < 2 {
		return nil, nil
	}
	pages := make([]Page, 0, len(offsets)-1)
	for i := 0; i+1 < len(offsets); i++ {
		start, end := offsets[i], offsets[i+1]
		d, err := goquery.NewDocumentFromReader(strings.NewReader(doc[start:end]))
		if err != nil {
			return nil, newError(ErrStructuralDrift, "page %d: parse markup: %v", i, err)
		}
		pages = append(pages, Page{Index: i, Start: start, End: end, Doc: d, Text: d.Text()})
	}
	return pages, nil
}

// SelectSchedulePages keeps the pages that belong to the Russell 3000
// schedule of investments. The two generations apply their filters in a
// different order.
func SelectSchedulePages(pages []Page, gen Generation) []Page {
	if gen == GenerationLegacy {
		return selectLegacy(pages)
	}
	return selectModern(pages)
}

func isUnreferencedNotes(text string) bool {
	return notesRe.MatchString(text) && !seeNotesRe.MatchString(text)
}

func selectModern(pages []Page) []Page {
	var kept []Page
	for _, p := range pages {
		if !modernScheduleRe.MatchString(p.Text) {
			continue
		}
		if summaryRe.MatchString(p.Text) {
			continue
		}
		if isUnreferencedNotes(p.Text) {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

func selectLegacy(pages []Page) []Page {
	var kept []Page
	started := false
	for _, p := range pages {
		if !started {
			started = legacyScheduleRe.MatchString(p.Text) &&
				legacyFundRe.MatchString(p.Text) &&
				!summaryRe.MatchString(p.Text)
			if !started {
				continue
			}
		} else if isUnreferencedNotes(p.Text) {
			continue
		}
		kept = append(kept, p)
		if totalCommonRe.MatchString(p.Text) {
			break
		}
	}
	return kept
}

// ExtractPages segments decoded filing text and returns the relevant
// schedule pages in document order.
func ExtractPages(doc string, gen Generation) ([]Page, error) {
	pages, err := SplitPages(doc)
	if err != nil {
		return nil, err
	}
	kept := SelectSchedulePages(pages, gen)
	if len(kept) == 0 {
		return nil, newError(ErrStructuralDrift, "no %s schedule of investments pages among %d candidate pages", gen, len(pages))
	}
	return kept, nil
}
