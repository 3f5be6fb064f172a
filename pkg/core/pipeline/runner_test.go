package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"ncsr_holdings/pkg/core/config"
	"ncsr_holdings/pkg/core/holdings"
	"ncsr_holdings/pkg/core/ingest"
	"ncsr_holdings/pkg/core/store"
)

// --- Mocks ---

type MockSink struct {
	mu    sync.Mutex
	saved []string
	err   error
}

func (m *MockSink) Save(ctx context.Context, ref ingest.FilingRef, res *holdings.FilingResult) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return uuid.Nil, m.err
	}
	m.saved = append(m.saved, ref.FileName())
	return uuid.New(), nil
}

type MockSource struct {
	refs  []ingest.FilingRef
	docs  map[string]string
	calls int
}

func (m *MockSource) ListFilings(ctx context.Context) ([]ingest.FilingRef, error) {
	return m.refs, nil
}

func (m *MockSource) Download(ctx context.Context, uri string) ([]byte, error) {
	m.calls++
	doc, ok := m.docs[uri]
	if !ok {
		return nil, fmt.Errorf("no document %s", uri)
	}
	return []byte(doc), nil
}

// --- Fixtures ---

func ref(period, file string, gen holdings.Generation) ingest.FilingRef {
	p, _ := time.Parse("2006-01-02", period)
	return ingest.FilingRef{
		FilingDate:     p.AddDate(0, 2, 0),
		PeriodOfReport: p,
		FormType:       "N-CSR",
		Size:           1,
		URI:            "/Archives/edgar/data/1100663/" + file,
		Generation:     gen,
	}
}

// fakeParse understands the one-word documents written by setupInput.
func fakeParse(buf []byte, gen holdings.Generation) (*holdings.FilingResult, error) {
	switch strings.TrimSpace(string(buf)) {
	case "ok":
		v := int64(100)
		return &holdings.FilingResult{
			ETFName:      "ishares® russell 3000 etf",
			ReportDate:   time.Date(2018, 9, 30, 0, 0, 0, 0, time.UTC),
			Holdings:     []holdings.HoldingRecord{{Sector: "Energy", CompanyName: "Oil Co", Shares: &v, Value: &v}},
			SectorTotals: []holdings.SectorTotal{{Sector: "Energy", TotalValue: 100}},
			GrandTotal:   100,
			Layout:       holdings.LayoutModernTableHeader,
		}, nil
	default:
		return nil, &holdings.ParseError{Kind: holdings.ErrReconciliation, Page: 3, Column: -1, Msg: "Energy reported 100, holdings sum to 90"}
	}
}

func setupInput(t *testing.T, docs map[ingest.FilingRef]string) string {
	t.Helper()
	dir := t.TempDir()
	var refs []ingest.FilingRef
	for r, body := range docs {
		refs = append(refs, r)
		if body == "" {
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, r.FileName()), []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.WriteFilingIndex(filepath.Join(dir, store.FilingIndexFile), refs); err != nil {
		t.Fatal(err)
	}
	return dir
}

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	o, err := config.DefaultOverrides()
	if err != nil {
		t.Fatalf("DefaultOverrides() error = %v", err)
	}
	r := NewRunner(o)
	r.SetParser(fakeParse)
	return r
}

// --- Tests ---

func TestRunner_Run(t *testing.T) {
	good := ref("2018-09-30", "d1ncsr.htm", holdings.GenerationModern)
	bad := ref("2017-09-30", "d2ncsr.htm", holdings.GenerationModern)
	skipped := ref("2013-09-30", "d609194dncsrs.htm", holdings.GenerationModern)
	missing := ref("2016-09-30", "d3ncsr.htm", holdings.GenerationModern)

	in := setupInput(t, map[ingest.FilingRef]string{good: "ok", bad: "broken", skipped: "ok", missing: ""})
	out := filepath.Join(t.TempDir(), "parsed")
	reportDir := filepath.Join(t.TempDir(), "report")
	xlsx := filepath.Join(t.TempDir(), "holdings.xlsx")

	runner := newTestRunner(t)
	sink := &MockSink{}
	runner.SetSink(sink)

	report, err := runner.Run(context.Background(), Options{
		InputDir: in, OutputDir: out, Workers: 3, ReportDir: reportDir, XLSXPath: xlsx,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	s := report.Summary()
	if s.Parsed != 1 || s.Skipped != 1 || s.Failed != 2 {
		t.Errorf("Summary() = %+v, want 1 parsed, 1 skipped, 2 failed", s)
	}
	byPeriod := make(map[string]Outcome)
	for _, o := range report.Outcomes {
		byPeriod[o.Period] = o
	}
	if o := byPeriod["2017-09-30"]; o.Kind != holdings.ErrReconciliation.Error() || !strings.Contains(o.Reason, "Energy") {
		t.Errorf("unexpected failure outcome %+v", o)
	}
	if o := byPeriod["2013-09-30"]; o.Status != StatusSkipped {
		t.Errorf("skip-list filing should be skipped, got %+v", o)
	}

	data, err := os.ReadFile(filepath.Join(out, "2018-09-30"))
	if err != nil {
		t.Fatalf("parsed output missing: %v", err)
	}
	if !strings.Contains(string(data), "Energy,Oil Co,100,100,2018-09-30,") {
		t.Errorf("unexpected output:\n%s", data)
	}
	if _, err := os.Stat(filepath.Join(out, "2017-09-30")); err == nil {
		t.Error("failed filing should not produce output")
	}
	if len(sink.saved) != 1 || sink.saved[0] != good.FileName() {
		t.Errorf("sink saved %v", sink.saved)
	}
	for _, f := range []string{filepath.Join(reportDir, "report.md"), filepath.Join(reportDir, "report.html"), xlsx} {
		if _, err := os.Stat(f); err != nil {
			t.Errorf("Expected %s: %v", f, err)
		}
	}
}

func TestRunner_SkipsExistingOutput(t *testing.T) {
	good := ref("2018-09-30", "d1ncsr.htm", holdings.GenerationModern)
	in := setupInput(t, map[ingest.FilingRef]string{good: "ok"})
	out := t.TempDir()
	target := filepath.Join(out, "2018-09-30")
	if err := os.WriteFile(target, []byte("previous"), 0644); err != nil {
		t.Fatal(err)
	}

	runner := newTestRunner(t)
	report, err := runner.Run(context.Background(), Options{InputDir: in, OutputDir: out, Workers: 1})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Outcomes[0].Status != StatusSkipped {
		t.Errorf("Expected existing output to be skipped, got %+v", report.Outcomes[0])
	}
	if data, _ := os.ReadFile(target); string(data) != "previous" {
		t.Error("existing output was overwritten without replace")
	}

	report, err = runner.Run(context.Background(), Options{InputDir: in, OutputDir: out, Workers: 1, Replace: true})
	if err != nil {
		t.Fatalf("Run(replace) error = %v", err)
	}
	if report.Outcomes[0].Status != StatusParsed {
		t.Errorf("Expected replace to re-parse, got %+v", report.Outcomes[0])
	}
}

func TestRunner_SamePeriodFirstFilingWins(t *testing.T) {
	first := ref("2013-09-30", "dfirstncsr.htm", holdings.GenerationModern)
	second := ref("2013-09-30", "dsecondncsr.htm", holdings.GenerationModern)
	other := ref("2014-09-30", "dotherncsr.htm", holdings.GenerationModern)

	in := t.TempDir()
	for _, r := range []ingest.FilingRef{first, second, other} {
		if err := os.WriteFile(filepath.Join(in, r.FileName()), []byte(r.FileName()), 0644); err != nil {
			t.Fatal(err)
		}
	}
	// index order matters here, so the index is written directly
	if err := store.WriteFilingIndex(filepath.Join(in, store.FilingIndexFile), []ingest.FilingRef{first, second, other}); err != nil {
		t.Fatal(err)
	}

	runner := newTestRunner(t)
	runner.SetParser(func(buf []byte, gen holdings.Generation) (*holdings.FilingResult, error) {
		if strings.Contains(string(buf), "dfirst") {
			time.Sleep(50 * time.Millisecond)
		}
		v := int64(1)
		return &holdings.FilingResult{
			ETFName:      "ishares russell 3000 etf",
			ReportDate:   time.Date(2013, 9, 30, 0, 0, 0, 0, time.UTC),
			Holdings:     []holdings.HoldingRecord{{Sector: "S", CompanyName: string(buf), Shares: &v, Value: &v}},
			SectorTotals: []holdings.SectorTotal{{Sector: "S", TotalValue: 1}},
			GrandTotal:   1,
		}, nil
	})
	sink := &MockSink{}
	runner.SetSink(sink)

	out := t.TempDir()
	report, err := runner.Run(context.Background(), Options{InputDir: in, OutputDir: out, Workers: 2})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []Status{StatusParsed, StatusSkipped, StatusParsed}
	for i, o := range report.Outcomes {
		if o.Status != want[i] {
			t.Errorf("Outcomes[%d] (%s): Expected %s, got %s", i, o.File, want[i], o.Status)
		}
	}
	data, err := os.ReadFile(filepath.Join(out, "2013-09-30"))
	if err != nil {
		t.Fatalf("output missing: %v", err)
	}
	if !strings.Contains(string(data), first.FileName()) || strings.Contains(string(data), second.FileName()) {
		t.Errorf("Expected output from %s, got:\n%s", first.FileName(), data)
	}
	if len(sink.saved) != 2 {
		t.Errorf("Expected 2 saved filings, got %v", sink.saved)
	}
}

func TestRunner_SamePeriodFallsThroughOnFailure(t *testing.T) {
	broken := ref("2013-09-30", "dbrokenncsr.htm", holdings.GenerationModern)
	good := ref("2013-09-30", "dgoodncsr.htm", holdings.GenerationModern)

	in := t.TempDir()
	for r, body := range map[ingest.FilingRef]string{broken: "broken", good: "ok"} {
		if err := os.WriteFile(filepath.Join(in, r.FileName()), []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.WriteFilingIndex(filepath.Join(in, store.FilingIndexFile), []ingest.FilingRef{broken, good}); err != nil {
		t.Fatal(err)
	}

	report, err := newTestRunner(t).Run(context.Background(), Options{InputDir: in, OutputDir: t.TempDir(), Workers: 2})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Outcomes[0].Status != StatusFailed || report.Outcomes[1].Status != StatusParsed {
		t.Errorf("Expected failed then parsed, got %+v", report.Outcomes)
	}
}

func TestRunner_SinkErrorIsFatal(t *testing.T) {
	good := ref("2018-09-30", "d1ncsr.htm", holdings.GenerationModern)
	in := setupInput(t, map[ingest.FilingRef]string{good: "ok"})

	runner := newTestRunner(t)
	runner.SetSink(&MockSink{err: errors.New("connection refused")})
	if _, err := runner.Run(context.Background(), Options{InputDir: in, OutputDir: t.TempDir(), Workers: 2}); err == nil {
		t.Fatal("Expected the sink error to abort the run")
	}
}

func TestRunner_MissingIndex(t *testing.T) {
	runner := newTestRunner(t)
	if _, err := runner.Run(context.Background(), Options{InputDir: t.TempDir(), OutputDir: t.TempDir()}); err == nil {
		t.Fatal("Expected an error without filing-index.csv")
	}
}

func TestRunner_RealParser(t *testing.T) {
	doc := `<html><body><p style="page-break-before:always">&nbsp;</p>` +
		`<table><tr><td>Schedule of Investments</td></tr><tr><td>iShares® Russell 3000 ETF</td></tr><tr><td>September 30, 2018</td></tr></table>` +
		`<table><tr><td>Security</td><td>Shares</td><td>Value</td></tr><tr><td>Common Stocks</td></tr>` +
		`<tr><td>Energy — 100.0%</td></tr><tr><td>Oil Co</td><td>10</td><td>$</td><td>1,000</td></tr><tr><td>1,000</td></tr></table>` +
		`<table><tr><td>Security</td><td>Shares</td><td>Value</td></tr><tr><td>Total Common Stocks</td></tr><tr><td>1,000</td></tr></table>` +
		`<table><tr><td>See notes to financial statements.</td></tr></table>` +
		`<p style="page-break-before:always">&nbsp;</p></body></html>`

	good := ref("2018-09-30", "d1ncsr.htm", holdings.GenerationModern)
	in := setupInput(t, map[ingest.FilingRef]string{good: doc})
	o, _ := config.DefaultOverrides()
	report, err := NewRunner(o).Run(context.Background(), Options{InputDir: in, OutputDir: t.TempDir(), Workers: 1})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	got := report.Outcomes[0]
	if got.Status != StatusParsed || got.Holdings != 1 || got.GrandTotal != 1000 || got.Layout != holdings.LayoutModernTableHeader {
		t.Errorf("unexpected outcome %+v", got)
	}
}

func TestPull(t *testing.T) {
	r1 := ref("2018-09-30", "d1ncsr.htm", holdings.GenerationModern)
	r2 := ref("2009-03-31", "dncsrs.htm", holdings.GenerationLegacy)
	src := &MockSource{
		refs: []ingest.FilingRef{r1, r2},
		docs: map[string]string{r1.URI: "one", r2.URI: "two"},
	}
	dir := filepath.Join(t.TempDir(), "raw")

	res, err := Pull(context.Background(), src, dir, false)
	if err != nil {
		t.Fatalf("Pull() error = %v", err)
	}
	if res.Downloaded != 2 || src.calls != 2 {
		t.Errorf("Pull() = %+v after %d calls", res, src.calls)
	}
	refs, err := store.ReadFilingIndex(filepath.Join(dir, store.FilingIndexFile))
	if err != nil || len(refs) != 2 {
		t.Fatalf("filing index not written: %v %v", refs, err)
	}
	if data, _ := os.ReadFile(filepath.Join(dir, "2009-03-31_dncsrs.htm")); string(data) != "two" {
		t.Errorf("unexpected raw file %q", data)
	}

	if res, err := Pull(context.Background(), src, dir, false); err != nil || res.Existing != 2 || src.calls != 2 {
		t.Errorf("second Pull() = %+v, %v after %d calls", res, err, src.calls)
	}
}
