// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/papertrail/internal/feed"
	"github.com/pdiddy/papertrail/internal/harvest"
	"github.com/pdiddy/papertrail/internal/httputil"
	"github.com/pdiddy/papertrail/internal/pdf"
	"github.com/pdiddy/papertrail/internal/pdftext"
	"github.com/pdiddy/papertrail/internal/ratelimit"
	"github.com/pdiddy/papertrail/internal/references"
	"github.com/pdiddy/papertrail/internal/store/postgres"
	"github.com/pdiddy/papertrail/internal/store/sqlite"
	"github.com/pdiddy/papertrail/pkg/types"
)

// paperStore is what the commands need from either store backend.
type paperStore interface {
	harvest.Sink
	harvest.RunRecorder
	Paper(ctx context.Context, id string) (types.PaperRecord, error)
	ListPapers(ctx context.Context, category string, limit int) ([]types.PaperRecord, error)
	CountPapers(ctx context.Context, category string) (int, error)
	Checkpoints(ctx context.Context) ([]types.Checkpoint, error)
	RecentRuns(ctx context.Context, limit int) ([]types.HarvestRun, error)
	Close() error
}

func openStore(ctx context.Context, c types.Config) (paperStore, error) {
	if c.Store.Driver == types.StorePostgres {
		s, err := postgres.Open(ctx, c.Store.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	s, err := sqlite.Open(c.Store.Path)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// pipeline holds the network-facing components shared by the commands.
// Every outbound request goes through the single limiter.
type pipeline struct {
	limiter *ratelimit.Limiter
	client  *httputil.Client
	feed    *feed.Client
	parser  *feed.Parser
	pdf     *pdf.Fetcher
	refs    *references.Extractor
}

// newPipeline wires the limiter, HTTP client, feed client, and parser. The
// PDF fetcher is only built when withPDF is set.
func newPipeline(ctx context.Context, c types.Config, withPDF bool, log *zap.Logger) (*pipeline, error) {
	if c.HTTP.RetryBaseDelay > 0 {
		httputil.RetryBaseDelay = c.HTTP.RetryBaseDelay
	}
	p := &pipeline{limiter: ratelimit.New(c.Feed.CallsPerSecond)}
	p.client = httputil.NewClient(p.limiter, c.HTTP.Timeout, c.HTTP.UserAgent, c.HTTP.MaxRetries, log)
	p.feed = feed.NewClient(p.client, c.Feed.BaseURL, log)

	refs, err := references.New(c.References.Patterns...)
	if err != nil {
		return nil, err
	}
	p.refs = refs

	var fetcher feed.TextFetcher
	if withPDF {
		ext, err := pdftext.New(ctx, c.PDF)
		if err != nil {
			return nil, fmt.Errorf("pdf extractor: %w", err)
		}
		p.pdf = pdf.NewFetcher(p.client, ext, c.PDF, log)
		fetcher = p.pdf
	}
	p.parser = feed.NewParser(fetcher, refs, log)
	return p, nil
}

// sources returns a factory for pagers over category.
func (p *pipeline) sources(c types.Config, category string, log *zap.Logger) harvest.SourceFactory {
	return func(start types.Cursor) harvest.Source {
		return feed.NewPager(p.feed, p.parser, feed.PagerConfig{
			Category:     category,
			Start:        start,
			PageSize:     c.Feed.PageSize,
			Enrich:       c.Harvest.Enrich,
			OnEntryError: c.Harvest.OnEntryError,
		}, log)
	}
}
