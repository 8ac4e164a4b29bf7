// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export writes stored paper records to YAML or JSON files for
// downstream tools.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/papertrail/pkg/types"
)

// Format is an export file format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatYAML, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want yaml or json)", s)
	}
}

// Lister returns stored records. Both store backends satisfy it.
type Lister interface {
	ListPapers(ctx context.Context, category string, limit int) ([]types.PaperRecord, error)
}

// Options selects what is exported and where.
type Options struct {
	Dir      string
	Format   Format
	Category string
	Limit    int
}

// Entry is one exported paper.
type Entry struct {
	ID            string    `json:"id" yaml:"id"`
	Title         string    `json:"title" yaml:"title"`
	Authors       []string  `json:"authors" yaml:"authors"`
	CategoryCodes []string  `json:"category_codes" yaml:"category_codes"`
	Published     time.Time `json:"published" yaml:"published"`
	Updated       time.Time `json:"updated" yaml:"updated"`
	Abstract      string    `json:"abstract" yaml:"abstract"`
	AbsURL        string    `json:"abs_url" yaml:"abs_url"`
	PDFLink       string    `json:"pdf_link" yaml:"pdf_link"`
	ScholarURL    string    `json:"scholar_url" yaml:"scholar_url"`

	// References is nil when references were never extracted.
	References *[]string `json:"references,omitempty" yaml:"references,omitempty"`
}

// NewEntry converts a record into its export form.
func NewEntry(rec types.PaperRecord) Entry {
	e := Entry{
		ID:            rec.ID,
		Title:         rec.Title,
		Authors:       rec.AuthorNames(),
		CategoryCodes: rec.CategoryCodes,
		Published:     rec.Published,
		Updated:       rec.Updated,
		Abstract:      rec.Abstract,
		AbsURL:        rec.AbsURL(),
		PDFLink:       rec.PDFLink,
		ScholarURL:    rec.ScholarURL(),
	}
	if rec.ReferencesLoaded {
		refs := rec.ReferenceIDs
		if refs == nil {
			refs = []string{}
		}
		e.References = &refs
	}
	return e
}

// Write exports the selected records and returns the file written and the
// number of entries.
func Write(ctx context.Context, src Lister, opts Options) (string, int, error) {
	if opts.Format == "" {
		opts.Format = FormatYAML
	}
	papers, err := src.ListPapers(ctx, opts.Category, opts.Limit)
	if err != nil {
		return "", 0, fmt.Errorf("querying for export: %w", err)
	}
	entries := make([]Entry, len(papers))
	for i, p := range papers {
		entries[i] = NewEntry(p)
	}

	data, err := Marshal(entries, opts.Format)
	if err != nil {
		return "", 0, err
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("creating export directory: %w", err)
	}
	path := filepath.Join(opts.Dir, FileName(opts.Category, opts.Format))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", 0, fmt.Errorf("writing %s: %w", path, err)
	}
	return path, len(entries), nil
}

// Marshal encodes v in the given format.
func Marshal(v any, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling JSON: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshaling YAML: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

// FileName is papers.<ext>, or papers-<category>.<ext> when exporting one
// category.
func FileName(category string, format Format) string {
	if category == "" {
		return "papers." + string(format)
	}
	return "papers-" + category + "." + string(format)
}
