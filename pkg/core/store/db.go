package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Holdings are saved from the batch runner's workers, one connection each,
// plus one for schema setup.
var (
	pool     *pgxpool.Pool
	poolOnce sync.Once
)

// PoolConfig builds the pool settings for a run with the given number of
// parse workers.
func PoolConfig(dbURL string, workers int) (*pgxpool.Config, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL not set")
	}
	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	if workers < 1 {
		workers = 1
	}
	cfg.MaxConns = int32(workers + 1)
	if cfg.ConnConfig.RuntimeParams == nil {
		cfg.ConnConfig.RuntimeParams = map[string]string{}
	}
	if _, ok := cfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		cfg.ConnConfig.RuntimeParams["application_name"] = "r3k"
	}
	return cfg, nil
}

// InitDB opens the shared holdings pool and checks that the server answers.
// Later calls are no-ops.
func InitDB(ctx context.Context, dbURL string, workers int) error {
	var err error
	poolOnce.Do(func() {
		var cfg *pgxpool.Config
		if cfg, err = PoolConfig(dbURL, workers); err != nil {
			return
		}
		var p *pgxpool.Pool
		if p, err = pgxpool.NewWithConfig(ctx, cfg); err != nil {
			err = fmt.Errorf("failed to open database pool: %w", err)
			return
		}
		if err = p.Ping(ctx); err != nil {
			p.Close()
			err = fmt.Errorf("database unreachable: %w", err)
			return
		}
		pool = p
	})
	return err
}

// GetPool returns the pool opened by InitDB, or nil.
func GetPool() *pgxpool.Pool {
	return pool
}

func Close() {
	if pool != nil {
		pool.Close()
	}
}
