package ingest

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Downloader fetches a document by its EDGAR URI.
type Downloader interface {
	Download(ctx context.Context, uri string) ([]byte, error)
}

// Fetcher stores the primary documents of a filing list in a local
// directory, one file per filing named by FilingRef.FileName.
type Fetcher struct {
	client Downloader
	dir    string
}

// NewFetcher creates a fetcher writing into dir.
func NewFetcher(client Downloader, dir string) *Fetcher {
	return &Fetcher{client: client, dir: dir}
}

// FetchResult summarises one FetchAll call.
type FetchResult struct {
	Downloaded int
	Existing   int
}

// FetchAll downloads every filing that is not already present. With replace
// set, present files are downloaded again.
func (f *Fetcher) FetchAll(ctx context.Context, refs []FilingRef, replace bool) (FetchResult, error) {
	var res FetchResult
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return res, fmt.Errorf("failed to create %s: %w", f.dir, err)
	}

	for _, ref := range refs {
		target := filepath.Join(f.dir, ref.FileName())
		if !replace {
			if _, err := os.Stat(target); err == nil {
				res.Existing++
				continue
			}
		}

		body, err := f.client.Download(ctx, ref.URI)
		if err != nil {
			return res, err
		}
		if err := writeFileAtomic(target, body); err != nil {
			return res, err
		}
		res.Downloaded++
		log.Printf("[Fetcher] %s (%d bytes)", ref.FileName(), len(body))
	}
	return res, nil
}

// writeFileAtomic writes through a temp file so an interrupted download
// never leaves a truncated filing that a later run would treat as present.
func writeFileAtomic(target string, body []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".download-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	return os.Rename(tmp.Name(), target)
}
