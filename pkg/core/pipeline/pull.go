package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"ncsr_holdings/pkg/core/ingest"
	"ncsr_holdings/pkg/core/store"
)

// FilingSource lists and downloads filings; *ingest.EDGARClient is one.
type FilingSource interface {
	ListFilings(ctx context.Context) ([]ingest.FilingRef, error)
	ingest.Downloader
}

// Pull refreshes dir with the current filing list and every primary
// document it names.
func Pull(ctx context.Context, src FilingSource, dir string, replace bool) (ingest.FetchResult, error) {
	refs, err := src.ListFilings(ctx)
	if err != nil {
		return ingest.FetchResult{}, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ingest.FetchResult{}, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	if err := store.WriteFilingIndex(filepath.Join(dir, store.FilingIndexFile), refs); err != nil {
		return ingest.FetchResult{}, err
	}

	res, err := ingest.NewFetcher(src, dir).FetchAll(ctx, refs, replace)
	if err != nil {
		return res, err
	}
	log.Printf("[Pipeline] pull: %d filings listed, %d downloaded, %d already present", len(refs), res.Downloaded, res.Existing)
	return res, nil
}
