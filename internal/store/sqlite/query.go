// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/papertrail/pkg/types"
)

const paperColumns = `id, category_codes, title, abstract, published, updated, authors, pdf_link, reference_ids`

// Paper returns the stored record for id, or types.ErrNotFound.
func (s *Store) Paper(ctx context.Context, id string) (types.PaperRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+paperColumns+` FROM papers WHERE id = ?`, id)
	rec, err := scanPaper(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.PaperRecord{}, types.NewHarvestError("load paper", id, types.ErrNotFound, nil)
	}
	return rec, err
}

// ListPapers returns stored records ordered by publication date. An empty
// category lists every paper; limit <= 0 means no limit.
func (s *Store) ListPapers(ctx context.Context, category string, limit int) ([]types.PaperRecord, error) {
	query := `SELECT ` + paperColumns + ` FROM papers`
	var args []any
	if category != "" {
		query += ` WHERE harvested_category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY published, id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing papers: %w", err)
	}
	defer rows.Close()

	var out []types.PaperRecord
	for rows.Next() {
		rec, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountPapers returns the number of stored papers for category, or of all
// papers when category is empty.
func (s *Store) CountPapers(ctx context.Context, category string) (int, error) {
	query := `SELECT count(*) FROM papers`
	var args []any
	if category != "" {
		query += ` WHERE harvested_category = ?`
		args = append(args, category)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting papers: %w", err)
	}
	return n, nil
}

// Checkpoints returns every stored cursor ordered by category.
func (s *Store) Checkpoints(ctx context.Context) ([]types.Checkpoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category, next_offset, updated_at FROM checkpoints ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("listing checkpoints: %w", err)
	}
	defer rows.Close()

	var out []types.Checkpoint
	for rows.Next() {
		var (
			cp      types.Checkpoint
			cursor  int64
			updated sql.NullString
		)
		if err := rows.Scan(&cp.Category, &cursor, &updated); err != nil {
			return nil, fmt.Errorf("scanning checkpoint: %w", err)
		}
		cp.Cursor = types.Cursor(cursor)
		if cp.UpdatedAt, err = parseTime(updated); err != nil {
			return nil, fmt.Errorf("parsing checkpoint time: %w", err)
		}
		out = append(out, cp)
	}
	return out, rows.Err()
}

// StartRun records the start of a harvest run.
func (s *Store) StartRun(ctx context.Context, run types.HarvestRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO harvest_runs (id, category, started_at, start_cursor, final_cursor, status)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.Category, formatTime(run.StartedAt),
		int64(run.StartCursor), int64(run.FinalCursor), string(run.Status),
	)
	if err != nil {
		return fmt.Errorf("recording run start: %w", err)
	}
	return nil
}

// FinishRun records the outcome of a harvest run.
func (s *Store) FinishRun(ctx context.Context, run types.HarvestRun) error {
	var finished sql.NullString
	if run.FinishedAt != nil {
		finished = nullTime(*run.FinishedAt)
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE harvest_runs SET finished_at = ?, final_cursor = ?, records = ?, status = ?, error = ?
		WHERE id = ?`,
		finished, int64(run.FinalCursor), run.Records, string(run.Status),
		sql.NullString{String: run.Error, Valid: run.Error != ""}, run.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("recording run finish: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]types.HarvestRun, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, category, started_at, finished_at, start_cursor, final_cursor, records, status, error
		FROM harvest_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []types.HarvestRun
	for rows.Next() {
		var (
			run                 types.HarvestRun
			id, started, status string
			finished, errMsg    sql.NullString
			start, final        int64
		)
		if err := rows.Scan(&id, &run.Category, &started, &finished, &start, &final, &run.Records, &status, &errMsg); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if run.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parsing run id %q: %w", id, err)
		}
		if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parsing run start: %w", err)
		}
		if finished.Valid {
			t, err := parseTime(finished)
			if err != nil {
				return nil, fmt.Errorf("parsing run finish: %w", err)
			}
			run.FinishedAt = &t
		}
		run.StartCursor = types.Cursor(start)
		run.FinalCursor = types.Cursor(final)
		run.Status = types.RunStatus(status)
		run.Error = errMsg.String
		out = append(out, run)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPaper(row scanner) (types.PaperRecord, error) {
	var (
		rec                      types.PaperRecord
		cats, authors            string
		published, updated, refs sql.NullString
	)
	if err := row.Scan(&rec.ID, &cats, &rec.Title, &rec.Abstract, &published, &updated, &authors, &rec.PDFLink, &refs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scanning paper: %w", err)
	}
	if err := json.Unmarshal([]byte(cats), &rec.CategoryCodes); err != nil {
		return rec, fmt.Errorf("decoding categories of %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(authors), &rec.Authors); err != nil {
		return rec, fmt.Errorf("decoding authors of %s: %w", rec.ID, err)
	}
	var err error
	if rec.Published, err = parseTime(published); err != nil {
		return rec, fmt.Errorf("parsing published of %s: %w", rec.ID, err)
	}
	if rec.Updated, err = parseTime(updated); err != nil {
		return rec, fmt.Errorf("parsing updated of %s: %w", rec.ID, err)
	}
	if refs.Valid {
		rec.ReferencesLoaded = true
		if err := json.Unmarshal([]byte(refs.String), &rec.ReferenceIDs); err != nil {
			return rec, fmt.Errorf("decoding references of %s: %w", rec.ID, err)
		}
	}
	return rec, nil
}
