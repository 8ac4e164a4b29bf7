// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sqlite persists harvested papers, per-category cursors, and run
// history in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/papertrail/pkg/types"
)

// DefaultPath is the database file used when none is configured.
const DefaultPath = "./papers.db"

// Store manages the papers database.
type Store struct {
	db *sql.DB

	// beforeCommit runs inside Commit after all writes and before the
	// transaction commits. Tests use it to inject failures.
	beforeCommit func(tx *sql.Tx) error
}

// Open opens or creates the database at path and creates the schema if it
// does not exist.
func Open(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			id TEXT PRIMARY KEY,
			category_codes TEXT NOT NULL,
			title TEXT NOT NULL,
			abstract TEXT NOT NULL,
			published TEXT,
			updated TEXT,
			authors TEXT NOT NULL,
			pdf_link TEXT NOT NULL,
			reference_ids TEXT,
			harvested_category TEXT NOT NULL,
			harvested_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_harvested_category ON papers(harvested_category)`,
		`CREATE TABLE IF NOT EXISTS checkpoints (
			category TEXT PRIMARY KEY,
			next_offset INTEGER NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS harvest_runs (
			id TEXT PRIMARY KEY,
			category TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			start_cursor INTEGER NOT NULL,
			final_cursor INTEGER NOT NULL,
			records INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			error TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// LoadCursor returns the saved cursor for category, or false when none
// exists.
func (s *Store) LoadCursor(ctx context.Context, category string) (types.Cursor, bool, error) {
	var c int64
	err := s.db.QueryRowContext(ctx,
		`SELECT next_offset FROM checkpoints WHERE category = ?`, category,
	).Scan(&c)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("loading cursor for %s: %w", category, err)
	}
	return types.Cursor(c), true, nil
}

// SaveCursor stores cursor for category.
func (s *Store) SaveCursor(ctx context.Context, category string, cursor types.Cursor) error {
	if err := saveCursor(ctx, s.db, category, cursor); err != nil {
		return fmt.Errorf("saving cursor for %s: %w", category, err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func saveCursor(ctx context.Context, db execer, category string, cursor types.Cursor) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO checkpoints (category, next_offset, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(category) DO UPDATE SET next_offset = excluded.next_offset, updated_at = excluded.updated_at`,
		category, int64(cursor), formatTime(time.Now()),
	)
	return err
}

// Commit upserts every record of batch and stores batch.Cursor in one
// transaction. Records already present are replaced.
func (s *Store) Commit(ctx context.Context, batch types.Batch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO papers
		(id, category_codes, title, abstract, published, updated, authors, pdf_link, reference_ids, harvested_category, harvested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			category_codes = excluded.category_codes,
			title = excluded.title,
			abstract = excluded.abstract,
			published = excluded.published,
			updated = excluded.updated,
			authors = excluded.authors,
			pdf_link = excluded.pdf_link,
			reference_ids = COALESCE(excluded.reference_ids, papers.reference_ids),
			harvested_category = excluded.harvested_category,
			harvested_at = excluded.harvested_at`)
	if err != nil {
		return fmt.Errorf("preparing paper upsert: %w", err)
	}
	defer stmt.Close()

	now := formatTime(time.Now())
	for _, rec := range batch.Records {
		row, err := encodeRecord(rec)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			rec.ID, row.categories, rec.Title, rec.Abstract,
			nullTime(rec.Published), nullTime(rec.Updated),
			row.authors, rec.PDFLink, row.references, batch.Category, now,
		); err != nil {
			return fmt.Errorf("upserting paper %s: %w", rec.ID, err)
		}
	}

	if err := saveCursor(ctx, tx, batch.Category, batch.Cursor); err != nil {
		return fmt.Errorf("saving cursor for %s: %w", batch.Category, err)
	}

	if s.beforeCommit != nil {
		if err := s.beforeCommit(tx); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}
	return nil
}

type encodedRecord struct {
	categories string
	authors    string
	references sql.NullString
}

func encodeRecord(rec types.PaperRecord) (encodedRecord, error) {
	var out encodedRecord
	cats, err := json.Marshal(nonNil(rec.CategoryCodes))
	if err != nil {
		return out, fmt.Errorf("encoding categories of %s: %w", rec.ID, err)
	}
	authors := rec.Authors
	if authors == nil {
		authors = []types.Author{}
	}
	auth, err := json.Marshal(authors)
	if err != nil {
		return out, fmt.Errorf("encoding authors of %s: %w", rec.ID, err)
	}
	out.categories = string(cats)
	out.authors = string(auth)
	if rec.ReferencesLoaded {
		refs, err := json.Marshal(nonNil(rec.ReferenceIDs))
		if err != nil {
			return out, fmt.Errorf("encoding references of %s: %w", rec.ID, err)
		}
		out.references = sql.NullString{String: string(refs), Valid: true}
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

func parseTime(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s.String)
}
