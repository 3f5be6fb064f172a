package holdings

import (
	"errors"
	"testing"
	"time"
)

func TestExtractHeader(t *testing.T) {
	listing := table(columnHeader, r("Acme Corp", "1", "1"))
	footer := table(r("See notes to financial statements."))

	tests := []struct {
		name     string
		layout   Layout
		html     string
		wantName string
		wantDate time.Time
		wantErr  error
	}{
		{
			name:     "table header cells",
			layout:   LayoutModernTableHeader,
			html:     table(r("Schedule of Investments"), r("iShares® Russell 3000 ETF"), r("September 30, 2018")) + listing + listing + footer,
			wantName: "ishares® russell 3000 etf",
			wantDate: time.Date(2018, 9, 30, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "table header paragraphs put the date second",
			layout:   LayoutModernTableHeader,
			html:     "<table><tr><td><p>Schedule of Investments</p><p>March 31, 2014</p><p>iShares Russell 3000 Index Fund</p></td></tr></table>" + listing + listing + footer,
			wantName: "ishares russell 3000 index fund",
			wantDate: time.Date(2014, 3, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "paragraphs before first table",
			layout:   LayoutModernParagraphHeader,
			html:     "<div><p>Schedule of Investments</p></div><p>iShares® Russell 3000 Index Fund</p><p>March 31, 2012</p>" + listing + "<p>ignored</p>" + listing + footer,
			wantName: "ishares® russell 3000 index fund",
			wantDate: time.Date(2012, 3, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "legacy paragraphs",
			layout:   LayoutLegacy,
			html:     "<p>SCHEDULE OF INVESTMENTS (Unaudited)</p><p>iSHARES® RUSSELL 3000 INDEX FUND</p><p>MARCH 31, 2009</p>" + listing,
			wantName: "ishares® russell 3000 index fund",
			wantDate: time.Date(2009, 3, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "wrong fund",
			layout:  LayoutModernTableHeader,
			html:    table(r("Schedule of Investments"), r("iShares® Russell 2000 ETF"), r("September 30, 2018")) + listing + listing + footer,
			wantErr: ErrIdentity,
		},
		{
			name:    "wrong title",
			layout:  LayoutModernParagraphHeader,
			html:    "<p>Statement of Assets</p><p>iShares® Russell 3000 ETF</p><p>March 31, 2012</p>" + listing + listing + footer,
			wantErr: ErrIdentity,
		},
		{
			name:    "legacy wrong fund",
			layout:  LayoutLegacy,
			html:    "<p>Schedule of Investments</p><p>iSHARES® RUSSELL 3000 VALUE INDEX FUND</p><p>March 31, 2009</p>" + listing,
			wantErr: ErrIdentity,
		},
		{
			name:    "missing header paragraphs",
			layout:  LayoutModernParagraphHeader,
			html:    "<p>Schedule of Investments</p>" + listing + listing + footer,
			wantErr: ErrStructuralDrift,
		},
		{
			name:    "unparseable date",
			layout:  LayoutModernTableHeader,
			html:    table(r("Schedule of Investments"), r("iShares® Russell 3000 ETF"), r("Fiscal year end")) + listing + listing + footer,
			wantErr: ErrValueParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := ExtractHeader(mustPage(tt.html), tt.layout)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expected %v, got header=%+v err=%v", tt.wantErr, h, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractHeader() error = %v", err)
			}
			if h.ETFName != tt.wantName {
				t.Errorf("ETFName = %q, want %q", h.ETFName, tt.wantName)
			}
			if !h.ReportDate.Equal(tt.wantDate) {
				t.Errorf("ReportDate = %s, want %s", h.ReportDate, tt.wantDate)
			}
		})
	}
}

func TestParseReportDate(t *testing.T) {
	want := time.Date(2018, 9, 30, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{
		"September 30, 2018",
		"SEPTEMBER 30, 2018",
		"September 30 , 2018",
		"September\u00a030,\u00a02018",
		"September 30, 2018.",
		"Sep 30, 2018",
		"Sep. 30, 2018",
		"2018-09-30",
		"09/30/2018",
	} {
		got, err := ParseReportDate(in)
		if err != nil {
			t.Errorf("ParseReportDate(%q) error = %v", in, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("ParseReportDate(%q) = %s, want %s", in, got, want)
		}
	}

	if _, err := ParseReportDate("Sept. 30, 2018"); !errors.Is(err, ErrValueParse) {
		t.Errorf("Expected ErrValueParse for a non-standard abbreviation, got %v", err)
	}
}
