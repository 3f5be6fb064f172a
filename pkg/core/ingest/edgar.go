// Package ingest retrieves iShares N-CSR filings from SEC EDGAR: the filing
// list of a fund series, the index page of each filing and the primary
// document itself.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"net/http"
	"path"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"ncsr_holdings/pkg/core/config"
	"ncsr_holdings/pkg/core/holdings"
)

const (
	// SEC EDGAR endpoints
	SECBaseURL      = "https://www.sec.gov"
	browseEDGARPath = "/cgi-bin/browse-edgar?action=getcompany&CIK=%s&type=%s&dateb=&count=100&scd=filings&search_text="

	MaxRetries = 3
)

// =============================================================================
// FILING TYPES
// =============================================================================

// FilingRef is one row of filing-index.csv: the primary document of a
// filing and the layout generation it is parsed with.
type FilingRef struct {
	FilingDate     time.Time           `json:"filing_date"`
	PeriodOfReport time.Time           `json:"period_of_report"`
	FormType       string              `json:"form_type"`
	Size           int64               `json:"size"`
	URI            string              `json:"uri"` // path relative to SECBaseURL
	Generation     holdings.Generation `json:"version"`
}

// FileName is the name the raw document is stored under:
// <PERIOD_OF_REPORT>_<basename>.
func (f FilingRef) FileName() string {
	return f.PeriodOfReport.Format("2006-01-02") + "_" + path.Base(f.URI)
}

// FilingIndex is the parsed index page of a single filing.
type FilingIndex struct {
	URI       string
	Fields    map[string]string // infoHead -> info, e.g. "Period of Report"
	Documents []Document        // sorted by Seq
}

// Document is one row of the document table on a filing index page.
type Document struct {
	Seq         string
	Description string
	Name        string // link to the document
	Type        string
	Size        int64
}

// StatusError is returned for non-200 responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("SEC returned status %d for %s", e.StatusCode, e.URL)
}

// =============================================================================
// SEC EDGAR CLIENT
// =============================================================================

// EDGARClient handles SEC EDGAR requests. All requests share one rate
// limiter so that the client stays under SEC's fair-access limits.
type EDGARClient struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	overrides  *config.Overrides
}

// NewEDGARClient creates a client that sends at most one request per
// interval.
func NewEDGARClient(userAgent string, interval time.Duration, overrides *config.Overrides) *EDGARClient {
	return &EDGARClient{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL:   SECBaseURL,
		userAgent: userAgent,
		limiter:   rate.NewLimiter(rate.Every(interval), 1),
		overrides: overrides,
	}
}

// WithBaseURL points the client at another host, e.g. a test server.
func (c *EDGARClient) WithBaseURL(baseURL string) *EDGARClient {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// ListFilings returns the primary document of every N-CSR/N-CSRS filing of
// the configured series, newest first as EDGAR lists them.
func (c *EDGARClient) ListFilings(ctx context.Context) ([]FilingRef, error) {
	listURL := c.baseURL + fmt.Sprintf(browseEDGARPath, c.overrides.Series, c.overrides.FormType)
	body, err := c.get(ctx, listURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch filing list: %w", err)
	}
	rows, err := parseBrowsePage(body)
	if err != nil {
		return nil, err
	}
	log.Printf("[EDGAR] %d filings listed for series %s", len(rows), c.overrides.Series)

	refs := make([]FilingRef, 0, len(rows))
	for _, row := range rows {
		link := row["Format"]
		if link == "" {
			return nil, fmt.Errorf("filing list row without an index link: %v", row)
		}
		idx, err := c.FetchFilingIndex(ctx, link)
		if err != nil {
			return nil, err
		}
		ref, err := c.primaryDocument(idx)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// FetchFilingIndex downloads and parses the index page of one filing.
func (c *EDGARClient) FetchFilingIndex(ctx context.Context, uri string) (*FilingIndex, error) {
	body, err := c.get(ctx, c.resolve(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch filing index %s: %w", uri, err)
	}
	idx, err := parseFilingIndex(body)
	if err != nil {
		return nil, fmt.Errorf("filing index %s: %w", uri, err)
	}
	idx.URI = uri
	return idx, nil
}

// Download returns the raw bytes of a document.
func (c *EDGARClient) Download(ctx context.Context, uri string) ([]byte, error) {
	body, err := c.get(ctx, c.resolve(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", uri, err)
	}
	return body, nil
}

// primaryDocument turns a filing index into a FilingRef. The primary
// document is the second row of the document table.
func (c *EDGARClient) primaryDocument(idx *FilingIndex) (FilingRef, error) {
	if len(idx.Documents) < 2 {
		return FilingRef{}, fmt.Errorf("filing index %s lists %d documents, expected at least 2", idx.URI, len(idx.Documents))
	}
	doc := idx.Documents[1]
	if !strings.Contains(strings.ToUpper(doc.Type), strings.ToUpper(c.overrides.FormType)) {
		return FilingRef{}, fmt.Errorf("filing index %s: primary document type %q is not %s", idx.URI, doc.Type, c.overrides.FormType)
	}

	filed, err := time.Parse("2006-01-02", idx.Fields["Filing Date"])
	if err != nil {
		return FilingRef{}, fmt.Errorf("filing index %s: filing date: %w", idx.URI, err)
	}
	period, err := time.Parse("2006-01-02", idx.Fields["Period of Report"])
	if err != nil {
		return FilingRef{}, fmt.Errorf("filing index %s: period of report: %w", idx.URI, err)
	}

	return FilingRef{
		FilingDate:     filed,
		PeriodOfReport: period,
		FormType:       doc.Type,
		Size:           doc.Size,
		URI:            doc.Name,
		Generation:     c.overrides.Generation(period),
	}, nil
}

func (c *EDGARClient) resolve(uri string) string {
	if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") {
		return uri
	}
	return c.baseURL + "/" + strings.TrimLeft(uri, "/")
}

// get performs a rate-limited GET, retrying throttled and server errors.
func (c *EDGARClient) get(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			wait := backoff(attempt - 1)
			log.Printf("[EDGAR] retrying %s in %s (attempt %d): %v", url, wait, attempt, lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, err := c.do(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *EDGARClient) do(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// SEC requires User-Agent header
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("SEC request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

func isRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}
	return false
}

// backoff returns a duration for attempt n (0-indexed) with jitter.
func backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}
