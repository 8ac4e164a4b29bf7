// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// Author is one paper author as listed in the feed.
type Author struct {
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email,omitempty" yaml:"email,omitempty"`
}

// PaperRecord holds the metadata harvested for one paper. A record is built
// once by the feed parser and is not modified afterwards.
type PaperRecord struct {
	// ID contains only digits and dots (e.g. "1705.03122").
	ID string `json:"id" yaml:"id"`

	// CategoryCodes lists the subject categories in feed order.
	CategoryCodes []string `json:"category_codes" yaml:"category_codes"`

	// Title and Abstract have newlines replaced by spaces.
	Title    string `json:"title" yaml:"title"`
	Abstract string `json:"abstract" yaml:"abstract"`

	Published time.Time `json:"published" yaml:"published"`
	Updated   time.Time `json:"updated" yaml:"updated"`

	// Authors lists the paper authors in source order.
	Authors []Author `json:"authors" yaml:"authors"`

	// PDFLink is the URL of the paper's PDF rendition.
	PDFLink string `json:"pdf_link" yaml:"pdf_link"`

	// ReferenceIDs holds identifiers cited by the paper. It is only
	// meaningful when ReferencesLoaded is true; an empty list then means
	// extraction ran and found nothing.
	ReferenceIDs     []string `json:"reference_ids,omitempty" yaml:"reference_ids,omitempty"`
	ReferencesLoaded bool     `json:"references_loaded" yaml:"references_loaded"`
}

// AbsURL returns the abstract page URL for the paper.
func (p PaperRecord) AbsURL() string {
	return fmt.Sprintf("https://arxiv.org/abs/%s", p.ID)
}

// ScholarURL returns a Google Scholar lookup URL for the paper.
func (p PaperRecord) ScholarURL() string {
	return fmt.Sprintf("https://scholar.google.com/scholar_lookup?arxiv_id=%s", p.ID)
}

// AuthorNames returns the author names in source order.
func (p PaperRecord) AuthorNames() []string {
	names := make([]string, len(p.Authors))
	for i, a := range p.Authors {
		names[i] = a.Name
	}
	return names
}

// Cursor is an offset into the remote feed. Within a session it never
// decreases.
type Cursor int64

// Batch is a group of records committed together with the cursor that
// follows them. Records and cursor are durable together or not at all.
type Batch struct {
	Category string
	Records  []PaperRecord
	Cursor   Cursor
}

// Len returns the number of records in the batch.
func (b *Batch) Len() int { return len(b.Records) }

// Add appends a record and advances the trailing cursor.
func (b *Batch) Add(rec PaperRecord, next Cursor) {
	b.Records = append(b.Records, rec)
	if next > b.Cursor {
		b.Cursor = next
	}
}

// Reset empties the batch while keeping its cursor and category.
func (b *Batch) Reset() {
	b.Records = nil
}
