// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdf obtains the text of a paper's PDF from a local path or a
// remote URL. Remote documents are staged in a scratch file that is
// removed before FetchText returns.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/papertrail/internal/metrics"
	"github.com/pdiddy/papertrail/internal/pdftext"
	"github.com/pdiddy/papertrail/pkg/types"
)

// DefaultMaxBytes caps a single download.
const DefaultMaxBytes int64 = 64 << 20

const opFetch = "fetch pdf"

// Getter issues a rate-limited GET. *httputil.Client satisfies it.
type Getter interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// Fetcher downloads PDFs and extracts their text.
type Fetcher struct {
	client     Getter
	extractor  pdftext.Extractor
	scratchDir string
	maxBytes   int64
	logger     *zap.Logger
}

// NewFetcher builds a Fetcher. An empty scratch dir means os.TempDir().
func NewFetcher(client Getter, extractor pdftext.Extractor, cfg types.PDFConfig, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Fetcher{
		client:     client,
		extractor:  extractor,
		scratchDir: cfg.ScratchDir,
		maxBytes:   maxBytes,
		logger:     logger,
	}
}

// FetchText returns the text of the PDF at src, which is either a
// filesystem path or an http(s) URL.
//
// ok is false, with a nil error, when a URL answers with a non-PDF content
// type. Errors carry one of types.ErrNotFound, types.ErrFetchFailed, or
// types.ErrInvalidDocument.
func (f *Fetcher) FetchText(ctx context.Context, src string) (text string, ok bool, err error) {
	if isURL(src) {
		return f.fetchRemote(ctx, src)
	}
	return f.fetchLocal(ctx, src)
}

func isURL(src string) bool {
	u, err := url.Parse(src)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (f *Fetcher) fetchLocal(ctx context.Context, path string) (string, bool, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, types.NewHarvestError(opFetch, path, types.ErrNotFound, nil)
		}
		return "", false, fmt.Errorf("stat %s: %w", path, err)
	}
	text, err := f.extract(ctx, path, path)
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

func (f *Fetcher) fetchRemote(ctx context.Context, src string) (string, bool, error) {
	resp, err := f.client.Get(ctx, src)
	if err != nil {
		metrics.ObservePDFFetch("failed")
		return "", false, types.NewHarvestError(opFetch, src, types.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ObservePDFFetch("failed")
		return "", false, types.NewHarvestError(opFetch, src, types.ErrFetchFailed,
			fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	if ct := resp.Header.Get("Content-Type"); !strings.Contains(strings.ToLower(ct), "pdf") {
		metrics.ObservePDFFetch("not_pdf")
		f.logger.Debug("skipping non-pdf response",
			zap.String("url", src), zap.String("content_type", ct))
		return "", false, nil
	}

	tmpFile, err := os.CreateTemp(f.scratchDir, ".papertrail-*.pdf")
	if err != nil {
		return "", false, fmt.Errorf("creating scratch file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	n, copyErr := io.Copy(tmpFile, io.LimitReader(resp.Body, f.maxBytes+1))
	closeErr := tmpFile.Close()
	if copyErr != nil {
		metrics.ObservePDFFetch("failed")
		return "", false, types.NewHarvestError(opFetch, src, types.ErrFetchFailed, copyErr)
	}
	if closeErr != nil {
		return "", false, fmt.Errorf("closing scratch file: %w", closeErr)
	}
	if n > f.maxBytes {
		metrics.ObservePDFFetch("invalid")
		return "", false, types.NewHarvestError(opFetch, src, types.ErrInvalidDocument,
			fmt.Errorf("document exceeds %d bytes", f.maxBytes))
	}

	text, err := f.extract(ctx, tmpPath, src)
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

func (f *Fetcher) extract(ctx context.Context, path, src string) (string, error) {
	text, err := f.extractor.ExtractText(ctx, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		metrics.ObservePDFFetch("invalid")
		return "", types.NewHarvestError(opFetch, src, types.ErrInvalidDocument, err)
	}
	metrics.ObservePDFFetch("ok")
	return text, nil
}
