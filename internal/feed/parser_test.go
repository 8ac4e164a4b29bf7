// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmcdole/gofeed/atom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/papertrail/pkg/types"
)

// stubFetcher returns canned results and counts calls.
type stubFetcher struct {
	text  string
	found bool
	err   error
	calls []string
}

func (s *stubFetcher) FetchText(_ context.Context, src string) (string, bool, error) {
	s.calls = append(s.calls, src)
	return s.text, s.found, s.err
}

// failingFetcher fails the test if it is ever called.
type failingFetcher struct{ t *testing.T }

func (f failingFetcher) FetchText(context.Context, string) (string, bool, error) {
	f.t.Fatal("fetcher must not be called")
	return "", false, nil
}

func sampleEntry() *atom.Entry {
	published := time.Date(2017, 6, 12, 17, 57, 34, 0, time.UTC)
	updated := time.Date(2017, 12, 6, 3, 30, 32, 0, time.UTC)
	return &atom.Entry{
		ID:              "http://arxiv.org/abs/1706.03762v5",
		Title:           "Attention Is All\nYou Need",
		Summary:         "The dominant sequence\ntransduction models.",
		PublishedParsed: &published,
		UpdatedParsed:   &updated,
		Authors: []*atom.Person{
			{Name: "Ashish Vaswani"},
			{Name: "Noam Shazeer", Email: "noam@example.com"},
		},
		Categories: []*atom.Category{{Term: "cs.CL"}, {Term: "cs.LG"}},
		Links: []*atom.Link{
			{Href: "http://arxiv.org/abs/1706.03762v5", Rel: "alternate", Type: "text/html"},
			{Href: "http://arxiv.org/pdf/1706.03762v5", Rel: "related", Type: "application/pdf", Title: "pdf"},
		},
	}
}

func TestParseWithoutEnrichment(t *testing.T) {
	p := NewParser(failingFetcher{t}, nil, nil)

	rec, err := p.Parse(context.Background(), sampleEntry(), false)
	require.NoError(t, err)

	assert.Equal(t, "1706.03762", rec.ID)
	assert.Equal(t, "Attention Is All You Need", rec.Title)
	assert.Equal(t, "The dominant sequence transduction models.", rec.Abstract)
	assert.Equal(t, []string{"cs.CL", "cs.LG"}, rec.CategoryCodes)
	assert.Equal(t, []types.Author{
		{Name: "Ashish Vaswani"},
		{Name: "Noam Shazeer", Email: "noam@example.com"},
	}, rec.Authors)
	assert.Equal(t, "http://arxiv.org/pdf/1706.03762v5", rec.PDFLink)
	assert.Equal(t, time.Date(2017, 6, 12, 17, 57, 34, 0, time.UTC), rec.Published)
	assert.Equal(t, time.Date(2017, 12, 6, 3, 30, 32, 0, time.UTC), rec.Updated)
	assert.False(t, rec.ReferencesLoaded)
	assert.Nil(t, rec.ReferenceIDs)
}

func TestParseRequiresPDFLink(t *testing.T) {
	tests := []struct {
		name  string
		links []*atom.Link
	}{
		{name: "no links", links: nil},
		{name: "pdf type without pdf title", links: []*atom.Link{
			{Href: "http://arxiv.org/pdf/1", Type: "application/pdf"},
		}},
		{name: "pdf title with wrong type", links: []*atom.Link{
			{Href: "http://arxiv.org/pdf/1", Title: "pdf", Type: "text/html"},
		}},
		{name: "doi link only", links: []*atom.Link{
			{Href: "http://dx.doi.org/10.1/x", Title: "doi", Rel: "related"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := sampleEntry()
			entry.Links = tt.links

			_, err := NewParser(failingFetcher{t}, nil, nil).Parse(context.Background(), entry, true)
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrNoPDFAvailable)
		})
	}
}

func TestParseWithEnrichment(t *testing.T) {
	tests := []struct {
		name     string
		fetcher  *stubFetcher
		wantRefs []string
		wantErr  error
	}{
		{
			name:     "references extracted",
			fetcher:  &stubFetcher{text: "See arXiv:1705.03122v2 and abs/1512.00567", found: true},
			wantRefs: []string{"1705.03122", "1512.00567"},
		},
		{
			name:     "non-pdf response yields empty list",
			fetcher:  &stubFetcher{found: false},
			wantRefs: []string{},
		},
		{
			name: "unreadable pdf yields empty list",
			fetcher: &stubFetcher{
				err: types.NewHarvestError("fetch pdf", "x", types.ErrInvalidDocument, errors.New("bad xref")),
			},
			wantRefs: []string{},
		},
		{
			name: "fetch failure fails the entry",
			fetcher: &stubFetcher{
				err: types.NewHarvestError("fetch pdf", "x", types.ErrFetchFailed, errors.New("timeout")),
			},
			wantErr: types.ErrFetchFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser(tt.fetcher, nil, nil)
			rec, err := p.Parse(context.Background(), sampleEntry(), true)
			require.Equal(t, []string{"http://arxiv.org/pdf/1706.03762v5"}, tt.fetcher.calls)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, rec.ReferencesLoaded)
			assert.Equal(t, tt.wantRefs, rec.ReferenceIDs)
		})
	}
}

func TestParseEnrichWithoutFetcher(t *testing.T) {
	_, err := NewParser(nil, nil, nil).Parse(context.Background(), sampleEntry(), true)
	require.Error(t, err)
}

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "http://arxiv.org/abs/1705.03122v2", want: "1705.03122"},
		{raw: "http://arxiv.org/abs/1705.03122", want: "1705.03122"},
		{raw: "http://arxiv.org/abs/2301.07041v12", want: "2301.07041"},
		{raw: "http://arxiv.org/abs/hep-th/9901001v1", want: "9901001"},
		{raw: "1512.00567v3", want: "1512.00567"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeID(tt.raw))
		})
	}
}
