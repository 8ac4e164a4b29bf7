// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feed

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed/atom"
	"go.uber.org/zap"

	"github.com/pdiddy/papertrail/internal/metrics"
	"github.com/pdiddy/papertrail/internal/references"
	"github.com/pdiddy/papertrail/pkg/types"
)

// TextFetcher returns the text of a PDF. *pdf.Fetcher satisfies it.
type TextFetcher interface {
	FetchText(ctx context.Context, pathOrURL string) (string, bool, error)
}

// RefExtractor finds cited identifiers in text.
type RefExtractor interface {
	Extract(text *string) []string
}

// versionSuffixRe matches the trailing version of an arXiv id ("v2").
var versionSuffixRe = regexp.MustCompile(`v[0-9]+$`)

// Parser converts Atom entries into PaperRecords, optionally downloading
// each PDF to collect its references.
type Parser struct {
	fetcher   TextFetcher
	extractor RefExtractor
	logger    *zap.Logger
}

// NewParser builds a Parser. fetcher may be nil when enrichment is never
// requested; a nil extractor uses references.Default().
func NewParser(fetcher TextFetcher, extractor RefExtractor, logger *zap.Logger) *Parser {
	if extractor == nil {
		extractor = references.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{fetcher: fetcher, extractor: extractor, logger: logger}
}

// Parse builds a record from entry. With enrich false no network call is
// made and the record's references are left unloaded.
//
// An entry without a link titled "pdf" of type application/pdf fails with
// types.ErrNoPDFAvailable. A PDF the extractor cannot read is logged and
// yields an empty reference list; other fetch failures fail the parse.
func (p *Parser) Parse(ctx context.Context, entry *atom.Entry, enrich bool) (types.PaperRecord, error) {
	id := NormalizeID(entry.ID)

	pdfLink, ok := pdfLink(entry)
	if !ok {
		return types.PaperRecord{}, types.NewHarvestError("parse entry", entry.ID, types.ErrNoPDFAvailable, nil)
	}

	rec := types.PaperRecord{
		ID:            id,
		CategoryCodes: categories(entry),
		Title:         flatten(entry.Title),
		Abstract:      flatten(entry.Summary),
		Published:     timeOf(entry.PublishedParsed),
		Updated:       timeOf(entry.UpdatedParsed),
		Authors:       authors(entry),
		PDFLink:       pdfLink,
	}

	if !enrich {
		return rec, nil
	}
	if p.fetcher == nil {
		return types.PaperRecord{}, fmt.Errorf("parse entry %s: enrichment requested without a pdf fetcher", id)
	}

	text, found, err := p.fetcher.FetchText(ctx, pdfLink)
	switch {
	case err == nil:
	case errors.Is(err, types.ErrInvalidDocument):
		p.logger.Warn("unreadable pdf, storing paper without references",
			zap.String("id", id), zap.String("pdf", pdfLink), zap.Error(err))
		metrics.ObserveEntryWarning(types.ErrorKind(err))
		found = false
	default:
		return types.PaperRecord{}, fmt.Errorf("parse entry %s: %w", id, err)
	}

	rec.ReferencesLoaded = true
	if found {
		rec.ReferenceIDs = p.extractor.Extract(&text)
	} else {
		rec.ReferenceIDs = []string{}
	}
	return rec, nil
}

// NormalizeID reduces an entry id such as "http://arxiv.org/abs/1705.03122v2"
// to "1705.03122": the part after the last "/abs/", without the version
// suffix, keeping only digits and dots.
func NormalizeID(raw string) string {
	id := raw
	if i := strings.LastIndex(id, "/abs/"); i >= 0 {
		id = id[i+len("/abs/"):]
	}
	id = versionSuffixRe.ReplaceAllString(id, "")
	return references.Normalize(id)
}

func pdfLink(entry *atom.Entry) (string, bool) {
	for _, l := range entry.Links {
		if l == nil {
			continue
		}
		if l.Title == "pdf" && l.Type == "application/pdf" {
			return l.Href, true
		}
	}
	return "", false
}

func categories(entry *atom.Entry) []string {
	codes := make([]string, 0, len(entry.Categories))
	for _, c := range entry.Categories {
		if c != nil && c.Term != "" {
			codes = append(codes, c.Term)
		}
	}
	return codes
}

func authors(entry *atom.Entry) []types.Author {
	out := make([]types.Author, 0, len(entry.Authors))
	for _, a := range entry.Authors {
		if a == nil {
			continue
		}
		out = append(out, types.Author{Name: a.Name, Email: a.Email})
	}
	return out
}

func flatten(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}

func timeOf(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}
