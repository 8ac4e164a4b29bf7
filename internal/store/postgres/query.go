// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pdiddy/papertrail/pkg/types"
)

const paperColumns = `id, category_codes, title, abstract, published, updated, authors, pdf_link, reference_ids`

// Paper returns the stored record for id, or types.ErrNotFound.
func (s *Store) Paper(ctx context.Context, id string) (types.PaperRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+paperColumns+` FROM papers WHERE id = $1`, id)
	rec, err := scanPaper(row)
	if errors.Is(err, pgx.ErrNoRows) {
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
		args = append(args, category)
		query += fmt.Sprintf(` WHERE harvested_category = $%d`, len(args))
	}
	query += ` ORDER BY published, id`
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list papers: %w", err)
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
	var (
		n   int64
		err error
	)
	if category == "" {
		err = s.pool.QueryRow(ctx, `SELECT count(*) FROM papers`).Scan(&n)
	} else {
		err = s.pool.QueryRow(ctx, `SELECT count(*) FROM papers WHERE harvested_category = $1`, category).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count papers: %w", err)
	}
	return int(n), nil
}

// Checkpoints returns every stored cursor ordered by category.
func (s *Store) Checkpoints(ctx context.Context) ([]types.Checkpoint, error) {
	rows, err := s.pool.Query(ctx, `SELECT category, next_offset, updated_at FROM checkpoints ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	var out []types.Checkpoint
	for rows.Next() {
		var (
			cp     types.Checkpoint
			cursor int64
		)
		if err := rows.Scan(&cp.Category, &cursor, &cp.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		cp.Cursor = types.Cursor(cursor)
		out = append(out, cp)
	}
	return out, rows.Err()
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]types.HarvestRun, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, category, started_at, finished_at, start_cursor, final_cursor, records, status, error
		FROM harvest_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []types.HarvestRun
	for rows.Next() {
		var (
			run          types.HarvestRun
			start, final int64
			records      int32
			status       string
			errMsg       *string
		)
		if err := rows.Scan(&run.ID, &run.Category, &run.StartedAt, &run.FinishedAt,
			&start, &final, &records, &status, &errMsg); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartCursor = types.Cursor(start)
		run.FinalCursor = types.Cursor(final)
		run.Records = int(records)
		run.Status = types.RunStatus(status)
		if errMsg != nil {
			run.Error = *errMsg
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func scanPaper(row pgx.Row) (types.PaperRecord, error) {
	var (
		rec                types.PaperRecord
		authors, refs      []byte
		published, updated *time.Time
	)
	if err := row.Scan(&rec.ID, &rec.CategoryCodes, &rec.Title, &rec.Abstract,
		&published, &updated, &authors, &rec.PDFLink, &refs); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scan paper: %w", err)
	}
	if published != nil {
		rec.Published = published.UTC()
	}
	if updated != nil {
		rec.Updated = updated.UTC()
	}
	if err := json.Unmarshal(authors, &rec.Authors); err != nil {
		return rec, fmt.Errorf("decode authors of %s: %w", rec.ID, err)
	}
	if refs != nil {
		rec.ReferencesLoaded = true
		if err := json.Unmarshal(refs, &rec.ReferenceIDs); err != nil {
			return rec, fmt.Errorf("decode references of %s: %w", rec.ID, err)
		}
	}
	return rec, nil
}
