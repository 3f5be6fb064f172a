package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ncsr_holdings/pkg/core/holdings"
	"ncsr_holdings/pkg/core/ingest"
)

// Schema is the table layout HoldingsRepo writes to.
const Schema = `
CREATE TABLE IF NOT EXISTS ncsr_filings (
	id               UUID PRIMARY KEY,
	period_of_report DATE NOT NULL,
	filing_date      DATE NOT NULL,
	form_type        TEXT NOT NULL,
	uri              TEXT NOT NULL UNIQUE,
	etf_name         TEXT NOT NULL,
	report_date      DATE NOT NULL,
	layout           TEXT NOT NULL,
	grand_total      BIGINT NOT NULL,
	parsed_at        TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS ncsr_holdings (
	filing_id    UUID NOT NULL REFERENCES ncsr_filings(id) ON DELETE CASCADE,
	position     INT NOT NULL,
	sector       TEXT NOT NULL,
	company_name TEXT NOT NULL,
	shares       BIGINT,
	value        BIGINT,
	PRIMARY KEY (filing_id, position)
);

CREATE TABLE IF NOT EXISTS ncsr_sector_totals (
	filing_id   UUID NOT NULL REFERENCES ncsr_filings(id) ON DELETE CASCADE,
	sector      TEXT NOT NULL,
	total_value BIGINT NOT NULL,
	PRIMARY KEY (filing_id, sector)
);
`

// HoldingsRepo stores parsed filings in Postgres.
type HoldingsRepo struct {
	pool *pgxpool.Pool
}

// NewHoldingsRepo creates a repository on the given pool, or on the shared
// pool from InitDB when pool is nil.
func NewHoldingsRepo(p *pgxpool.Pool) *HoldingsRepo {
	if p == nil {
		p = GetPool()
	}
	return &HoldingsRepo{pool: p}
}

// EnsureSchema creates the tables if they do not exist.
func (r *HoldingsRepo) EnsureSchema(ctx context.Context) error {
	if r.pool == nil {
		return fmt.Errorf("database pool not initialized")
	}
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save replaces the stored copy of a filing with res. Filings are keyed by
// their EDGAR URI, so re-parsing a filing keeps its id.
func (r *HoldingsRepo) Save(ctx context.Context, ref ingest.FilingRef, res *holdings.FilingResult) (uuid.UUID, error) {
	if r.pool == nil {
		return uuid.Nil, fmt.Errorf("database pool not initialized")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	id := uuid.New()
	query := `
		INSERT INTO ncsr_filings (id, period_of_report, filing_date, form_type, uri, etf_name, report_date, layout, grand_total, parsed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (uri) DO UPDATE SET
			etf_name = EXCLUDED.etf_name,
			report_date = EXCLUDED.report_date,
			layout = EXCLUDED.layout,
			grand_total = EXCLUDED.grand_total,
			parsed_at = EXCLUDED.parsed_at
		RETURNING id
	`
	err = tx.QueryRow(ctx, query,
		id, ref.PeriodOfReport, ref.FilingDate, ref.FormType, ref.URI,
		res.ETFName, res.ReportDate, res.Layout.String(), res.GrandTotal, time.Now(),
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to upsert filing: %w", err)
	}

	for _, table := range []string{"ncsr_holdings", "ncsr_sector_totals"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table+" WHERE filing_id = $1", id); err != nil {
			return uuid.Nil, fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	rows := make([][]any, len(res.Holdings))
	for i, h := range res.Holdings {
		rows[i] = []any{id, i, h.Sector, h.CompanyName, h.Shares, h.Value}
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"ncsr_holdings"},
		[]string{"filing_id", "position", "sector", "company_name", "shares", "value"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return uuid.Nil, fmt.Errorf("failed to copy holdings: %w", err)
	}

	batch := &pgx.Batch{}
	for _, t := range res.SectorTotals {
		batch.Queue(`INSERT INTO ncsr_sector_totals (filing_id, sector, total_value) VALUES ($1, $2, $3)`, id, t.Sector, t.TotalValue)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert sector totals: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit: %w", err)
	}
	log.Printf("[Store] saved %s (%d holdings) as %s", ref.FileName(), len(res.Holdings), id)
	return id, nil
}
