// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package postgres persists harvested papers and cursors in Postgres.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pdiddy/papertrail/pkg/types"
)

// pool is the subset of *pgxpool.Pool the store uses, so tests can swap in
// pgxmock.
type pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS papers (
		id TEXT PRIMARY KEY,
		category_codes TEXT[] NOT NULL,
		title TEXT NOT NULL,
		abstract TEXT NOT NULL,
		published TIMESTAMPTZ,
		updated TIMESTAMPTZ,
		authors JSONB NOT NULL,
		pdf_link TEXT NOT NULL,
		reference_ids JSONB,
		harvested_category TEXT NOT NULL,
		harvested_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_papers_harvested_category ON papers(harvested_category)`,
	`CREATE TABLE IF NOT EXISTS checkpoints (
		category TEXT PRIMARY KEY,
		next_offset BIGINT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS harvest_runs (
		id UUID PRIMARY KEY,
		category TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ,
		start_cursor BIGINT NOT NULL,
		final_cursor BIGINT NOT NULL,
		records INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		error TEXT
	)`,
}

const upsertPaper = `
INSERT INTO papers (
	id, category_codes, title, abstract, published, updated,
	authors, pdf_link, reference_ids, harvested_category, harvested_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO UPDATE SET
	category_codes = EXCLUDED.category_codes,
	title = EXCLUDED.title,
	abstract = EXCLUDED.abstract,
	published = EXCLUDED.published,
	updated = EXCLUDED.updated,
	authors = EXCLUDED.authors,
	pdf_link = EXCLUDED.pdf_link,
	reference_ids = COALESCE(EXCLUDED.reference_ids, papers.reference_ids),
	harvested_category = EXCLUDED.harvested_category,
	harvested_at = EXCLUDED.harvested_at`

const upsertCheckpoint = `
INSERT INTO checkpoints (category, next_offset, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (category) DO UPDATE SET
	next_offset = EXCLUDED.next_offset,
	updated_at = EXCLUDED.updated_at`

// Store writes papers, cursors, and runs to Postgres.
type Store struct {
	pool pool
	now  func() time.Time
}

// Open connects to dsn and creates the schema if needed.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("store.dsn is required for the postgres driver")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &Store{pool: p, now: time.Now}
	if err := s.EnsureSchema(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return s, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(p pool) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: p, now: time.Now}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// LoadCursor returns the saved cursor for category, or false when none
// exists.
func (s *Store) LoadCursor(ctx context.Context, category string) (types.Cursor, bool, error) {
	var c int64
	err := s.pool.QueryRow(ctx, `SELECT next_offset FROM checkpoints WHERE category = $1`, category).Scan(&c)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("load cursor for %s: %w", category, err)
	}
	return types.Cursor(c), true, nil
}

// SaveCursor stores cursor for category.
func (s *Store) SaveCursor(ctx context.Context, category string, cursor types.Cursor) error {
	if _, err := s.pool.Exec(ctx, upsertCheckpoint, category, int64(cursor), s.now().UTC()); err != nil {
		return fmt.Errorf("save cursor for %s: %w", category, err)
	}
	return nil
}

// Commit upserts the batch records and stores the batch cursor in one
// transaction.
func (s *Store) Commit(ctx context.Context, batch types.Batch) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	now := s.now().UTC()
	for _, rec := range batch.Records {
		args, err := paperArgs(rec, batch.Category, now)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, upsertPaper, args...); err != nil {
			return fmt.Errorf("upsert paper %s: %w", rec.ID, err)
		}
	}
	if _, err := tx.Exec(ctx, upsertCheckpoint, batch.Category, int64(batch.Cursor), now); err != nil {
		return fmt.Errorf("save cursor for %s: %w", batch.Category, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// StartRun records the start of a harvest run.
func (s *Store) StartRun(ctx context.Context, run types.HarvestRun) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO harvest_runs (id, category, started_at, start_cursor, final_cursor, status)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.Category, run.StartedAt, int64(run.StartCursor), int64(run.FinalCursor), string(run.Status),
	)
	if err != nil {
		return fmt.Errorf("record run start: %w", err)
	}
	return nil
}

// FinishRun records the outcome of a harvest run.
func (s *Store) FinishRun(ctx context.Context, run types.HarvestRun) error {
	var errMsg *string
	if run.Error != "" {
		errMsg = &run.Error
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE harvest_runs
		SET finished_at = $2, final_cursor = $3, records = $4, status = $5, error = $6
		WHERE id = $1`,
		run.ID, run.FinishedAt, int64(run.FinalCursor), run.Records, string(run.Status), errMsg,
	)
	if err != nil {
		return fmt.Errorf("record run finish: %w", err)
	}
	return nil
}

func paperArgs(rec types.PaperRecord, category string, now time.Time) ([]any, error) {
	authors := rec.Authors
	if authors == nil {
		authors = []types.Author{}
	}
	authorsJSON, err := json.Marshal(authors)
	if err != nil {
		return nil, fmt.Errorf("marshal authors of %s: %w", rec.ID, err)
	}
	var refsJSON []byte
	if rec.ReferencesLoaded {
		refs := rec.ReferenceIDs
		if refs == nil {
			refs = []string{}
		}
		if refsJSON, err = json.Marshal(refs); err != nil {
			return nil, fmt.Errorf("marshal references of %s: %w", rec.ID, err)
		}
	}
	cats := rec.CategoryCodes
	if cats == nil {
		cats = []string{}
	}
	return []any{
		rec.ID, cats, rec.Title, rec.Abstract,
		nullTime(rec.Published), nullTime(rec.Updated),
		authorsJSON, rec.PDFLink, refsJSON, category, now,
	}, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
