package ingest

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// parseSECTable reads an EDGAR listing table: the first row holds <th>
// titles, every later row one record. Cells containing a link yield the
// link target instead of their text.
func parseSECTable(table *goquery.Selection) ([]map[string]string, error) {
	var titles []string
	var records []map[string]string
	var rowErr error

	table.Find("tr").EachWithBreak(func(i int, tr *goquery.Selection) bool {
		if i == 0 {
			tr.Find("th").Each(func(_ int, th *goquery.Selection) {
				titles = append(titles, strings.TrimSpace(th.Text()))
			})
			return true
		}

		var vals []string
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			if href, ok := td.Find("a[href]").First().Attr("href"); ok {
				vals = append(vals, href)
			} else {
				vals = append(vals, strings.TrimSpace(td.Text()))
			}
		})
		if len(vals) != len(titles) {
			rowErr = fmt.Errorf("table row %d has %d cells, header has %d", i, len(vals), len(titles))
			return false
		}
		record := make(map[string]string, len(titles))
		for j, title := range titles {
			record[title] = vals[j]
		}
		records = append(records, record)
		return true
	})

	if rowErr != nil {
		return nil, rowErr
	}
	return records, nil
}

// parseBrowsePage extracts the filing list from a browse-edgar company page.
// The filings are in the last table of the page.
func parseBrowsePage(body []byte) ([]map[string]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse filing list: %w", err)
	}
	tables := doc.Find("table")
	if tables.Length() == 0 {
		return nil, fmt.Errorf("filing list page has no tables")
	}
	return parseSECTable(tables.Last())
}

// parseFilingIndex extracts the infoHead/info pairs and the document table
// of a filing index page.
func parseFilingIndex(body []byte) (*FilingIndex, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse filing index: %w", err)
	}

	heads := doc.Find("div.infoHead")
	infos := doc.Find("div.info")
	fields := make(map[string]string)
	for i := 0; i < heads.Length() && i < infos.Length(); i++ {
		fields[strings.TrimSpace(heads.Eq(i).Text())] = strings.TrimSpace(infos.Eq(i).Text())
	}
	if _, ok := fields["Documents"]; !ok {
		return nil, fmt.Errorf("filing index has no Documents field")
	}

	tables := doc.Find("table")
	if tables.Length() == 0 {
		return nil, fmt.Errorf("filing index has no document table")
	}
	rows, err := parseSECTable(tables.First())
	if err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		d := Document{
			Seq:         row["Seq"],
			Description: row["Description"],
			Name:        row["Document"],
			Type:        row["Type"],
		}
		if s := strings.TrimSpace(row["Size"]); s != "" {
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("document %q: bad size %q", d.Name, s)
			}
			d.Size = n
		}
		docs = append(docs, d)
	}
	// Seq is compared as text; the summary row has an empty Seq and sorts first.
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].Seq < docs[j].Seq })

	return &FilingIndex{Fields: fields, Documents: docs}, nil
}
