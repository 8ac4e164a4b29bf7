// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/mmcdole/gofeed/atom"
	"go.uber.org/zap"

	"github.com/pdiddy/papertrail/internal/metrics"
	"github.com/pdiddy/papertrail/pkg/types"
)

// DefaultPageSize is the number of entries requested per page.
const DefaultPageSize = 1000

// PageFetcher retrieves one page of a category. *Client satisfies it.
type PageFetcher interface {
	FetchPage(ctx context.Context, category string, start types.Cursor, pageSize int) (*Page, error)
}

// EntryParser turns one entry into a record. *Parser satisfies it.
type EntryParser interface {
	Parse(ctx context.Context, entry *atom.Entry, enrich bool) (types.PaperRecord, error)
}

// Item is one record together with the cursor that is safe to persist once
// the record is durable.
type Item struct {
	Record types.PaperRecord
	Cursor types.Cursor
}

// PagerConfig controls a Pager.
type PagerConfig struct {
	Category     string
	Start        types.Cursor
	PageSize     int
	Enrich       bool
	OnEntryError types.EntryErrorPolicy
}

// Pager yields records of one category in feed order, fetching a page at
// a time as the caller pulls. It is not safe for concurrent use.
//
// Every entry of a page is parsed before any record of that page is
// returned. Records carry the page's start offset as their cursor, except
// the last record of a page, which carries the next page's offset. Resuming
// from the cursor of any returned record therefore never skips an
// unreturned record.
type Pager struct {
	pages  PageFetcher
	parser EntryParser
	cfg    PagerConfig
	logger *zap.Logger

	next types.Cursor
	buf  []Item
	done bool
}

// NewPager returns a Pager starting at cfg.Start.
func NewPager(pages PageFetcher, parser EntryParser, cfg PagerConfig, logger *zap.Logger) *Pager {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.OnEntryError == "" {
		cfg.OnEntryError = types.OnEntryErrorAbort
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pager{pages: pages, parser: parser, cfg: cfg, logger: logger, next: cfg.Start}
}

// Next returns the next record, or io.EOF once a page comes back empty.
// A failed page is not consumed: the error is returned and the pager's
// position stays at that page.
func (p *Pager) Next(ctx context.Context) (Item, error) {
	for len(p.buf) == 0 {
		if p.done {
			return Item{}, io.EOF
		}
		if err := ctx.Err(); err != nil {
			return Item{}, err
		}
		if err := p.fill(ctx); err != nil {
			return Item{}, err
		}
	}
	item := p.buf[0]
	p.buf = p.buf[1:]
	return item, nil
}

// All adapts Next to a range-over-func iterator. Iteration stops after the
// first error is yielded.
func (p *Pager) All(ctx context.Context) iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		for {
			item, err := p.Next(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(item, err) || err != nil {
				return
			}
		}
	}
}

// Position returns the offset of the next page to fetch.
func (p *Pager) Position() types.Cursor { return p.next }

func (p *Pager) fill(ctx context.Context) error {
	start := p.next
	page, err := p.pages.FetchPage(ctx, p.cfg.Category, start, p.cfg.PageSize)
	if err != nil {
		return fmt.Errorf("page at %d: %w", start, err)
	}
	metrics.ObservePage(p.cfg.Category)

	if len(page.Entries) == 0 {
		p.logger.Info("feed exhausted", zap.String("category", p.cfg.Category), zap.Int64("cursor", int64(start)))
		p.done = true
		return nil
	}

	items := make([]Item, 0, len(page.Entries))
	for _, entry := range page.Entries {
		rec, err := p.parser.Parse(ctx, entry, p.cfg.Enrich)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if p.cfg.OnEntryError != types.OnEntryErrorSkip {
				return fmt.Errorf("page at %d: %w", start, err)
			}
			kind := types.ErrorKind(err)
			p.logger.Warn("skipping entry", zap.String("entry", entry.ID), zap.String("kind", kind), zap.Error(err))
			metrics.ObserveEntryError(kind)
			continue
		}
		items = append(items, Item{Record: rec, Cursor: start})
	}

	next := start + types.Cursor(p.cfg.PageSize)
	if len(items) > 0 {
		items[len(items)-1].Cursor = next
	}
	p.logger.Debug("page parsed",
		zap.String("category", p.cfg.Category),
		zap.Int64("start", int64(start)),
		zap.Int("entries", len(page.Entries)),
		zap.Int("records", len(items)),
		zap.Int("total_results", page.TotalResults),
	)
	p.next = next
	p.buf = items
	return nil
}
