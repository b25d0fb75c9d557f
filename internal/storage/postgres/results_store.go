// Package postgres persists crawl runs and their results in Postgres.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/domain-email-crawler/internal/report"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool and target tables.
type Config struct {
	DSN             string        `mapstructure:"dsn"`
	RunsTable       string        `mapstructure:"runs_table"`
	ResultsTable    string        `mapstructure:"results_table"`
	CreateTables    bool          `mapstructure:"create_tables"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Begin(context.Context) (pgx.Tx, error)
	Close()
}

// ResultsStore writes one row per run and one row per unique result.
type ResultsStore struct {
	pool         pool
	runsTable    string
	resultsTable string
}

// NewResultsStore connects to Postgres using cfg.
func NewResultsStore(ctx context.Context, cfg Config) (*ResultsStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("output.postgres.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewResultsStoreWithPool(p, cfg.RunsTable, cfg.ResultsTable)
	if err != nil {
		p.Close()
		return nil, err
	}
	if cfg.CreateTables {
		if err := store.EnsureSchema(ctx); err != nil {
			p.Close()
			return nil, err
		}
	}
	return store, nil
}

// NewResultsStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewResultsStoreWithPool(p pool, runsTable, resultsTable string) (*ResultsStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if runsTable == "" {
		runsTable = "crawl_runs"
	}
	if resultsTable == "" {
		resultsTable = "crawl_results"
	}
	for _, table := range []string{runsTable, resultsTable} {
		if !validTableName.MatchString(table) {
			return nil, fmt.Errorf("invalid table name %q", table)
		}
	}
	return &ResultsStore{pool: p, runsTable: runsTable, resultsTable: resultsTable}, nil
}

// Name identifies the writer in logs.
func (*ResultsStore) Name() string { return "postgres" }

// Close releases the underlying pool resources.
func (s *ResultsStore) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// EnsureSchema creates the runs and results tables when missing.
func (s *ResultsStore) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	run_id text PRIMARY KEY,
	seed_url text NOT NULL,
	started_at timestamptz NOT NULL,
	finished_at timestamptz NOT NULL,
	pages_visited bigint NOT NULL,
	pages_failed bigint NOT NULL,
	results_found bigint NOT NULL,
	interrupted boolean NOT NULL
);
CREATE TABLE IF NOT EXISTS %[2]s (
	run_id text NOT NULL REFERENCES %[1]s (run_id) ON DELETE CASCADE,
	value text NOT NULL,
	PRIMARY KEY (run_id, value)
)`, s.runsTable, s.resultsTable)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// Write stores the run and its results in a single transaction.
func (s *ResultsStore) Write(ctx context.Context, r report.Report) error {
	if r.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	runQuery := fmt.Sprintf(`
INSERT INTO %s (
	run_id,
	seed_url,
	started_at,
	finished_at,
	pages_visited,
	pages_failed,
	results_found,
	interrupted
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8
)`, s.runsTable)
	if _, err := tx.Exec(ctx, runQuery,
		r.RunID,
		r.SeedURL,
		r.StartedAt,
		r.FinishedAt,
		r.Stats.PagesVisited,
		r.Stats.PagesFailed,
		int64(len(r.Results)),
		r.Interrupted,
	); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("insert run: %w", err)
	}

	if len(r.Results) > 0 {
		resultsQuery := fmt.Sprintf(`
INSERT INTO %s (run_id, value)
SELECT $1, unnest($2::text[])
ON CONFLICT DO NOTHING`, s.resultsTable)
		if _, err := tx.Exec(ctx, resultsQuery, r.RunID, r.Results); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("insert results: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
