// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/mmcdole/gofeed/atom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/papertrail/pkg/types"
)

// memoryFeed serves pages from a map keyed by start offset. Missing keys
// are empty pages.
type memoryFeed struct {
	pages  map[types.Cursor][]*atom.Entry
	errAt  map[types.Cursor]error
	starts []types.Cursor
}

func (m *memoryFeed) FetchPage(_ context.Context, _ string, start types.Cursor, _ int) (*Page, error) {
	m.starts = append(m.starts, start)
	if err := m.errAt[start]; err != nil {
		return nil, err
	}
	return &Page{Start: start, Entries: m.pages[start], TotalResults: -1}, nil
}

func entry(id string) *atom.Entry {
	return &atom.Entry{
		ID:    "http://arxiv.org/abs/" + id + "v1",
		Title: "Paper " + id,
		Links: []*atom.Link{{Href: "http://arxiv.org/pdf/" + id, Title: "pdf", Type: "application/pdf"}},
	}
}

func entryWithoutPDF(id string) *atom.Entry {
	e := entry(id)
	e.Links = nil
	return e
}

func drain(t *testing.T, p *Pager) ([]Item, error) {
	t.Helper()
	var items []Item
	for {
		item, err := p.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return items, nil
		}
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
}

func TestPagerCursors(t *testing.T) {
	feed := &memoryFeed{pages: map[types.Cursor][]*atom.Entry{
		10: {entry("1001.0001"), entry("1001.0002")},
		12: {entry("1001.0003")},
	}}
	p := NewPager(feed, NewParser(nil, nil, nil), PagerConfig{Category: "cs.LG", Start: 10, PageSize: 2}, nil)

	items, err := drain(t, p)
	require.NoError(t, err)

	var ids []string
	var cursors []types.Cursor
	for _, it := range items {
		ids = append(ids, it.Record.ID)
		cursors = append(cursors, it.Cursor)
	}
	assert.Equal(t, []string{"1001.0001", "1001.0002", "1001.0003"}, ids)
	assert.Equal(t, []types.Cursor{10, 12, 14}, cursors)
	assert.Equal(t, []types.Cursor{10, 12, 14}, feed.starts)
	assert.Equal(t, types.Cursor(14), p.Position())

	// Exhausted pagers stay exhausted without further requests.
	_, err = p.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
	assert.Len(t, feed.starts, 3)
}

func TestPagerAbortPolicy(t *testing.T) {
	feed := &memoryFeed{pages: map[types.Cursor][]*atom.Entry{
		0: {entry("1001.0001"), entry("1001.0002")},
		2: {entry("1001.0003"), entryWithoutPDF("1001.0004")},
	}}
	p := NewPager(feed, NewParser(nil, nil, nil), PagerConfig{Category: "cs.LG", PageSize: 2}, nil)

	items, err := drain(t, p)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNoPDFAvailable)
	assert.Contains(t, err.Error(), "page at 2")

	// No record of the failed page is yielded and the position stays put.
	require.Len(t, items, 2)
	assert.Equal(t, types.Cursor(2), items[1].Cursor)
	assert.Equal(t, types.Cursor(2), p.Position())
}

func TestPagerSkipPolicy(t *testing.T) {
	feed := &memoryFeed{pages: map[types.Cursor][]*atom.Entry{
		0: {entry("1001.0001"), entryWithoutPDF("1001.0002"), entry("1001.0003")},
		3: {entryWithoutPDF("1001.0004")},
		6: {entry("1001.0005")},
	}}
	cfg := PagerConfig{Category: "cs.LG", PageSize: 3, OnEntryError: types.OnEntryErrorSkip}
	p := NewPager(feed, NewParser(nil, nil, nil), cfg, nil)

	items, err := drain(t, p)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "1001.0001", items[0].Record.ID)
	assert.Equal(t, types.Cursor(0), items[0].Cursor)
	assert.Equal(t, "1001.0003", items[1].Record.ID)
	assert.Equal(t, types.Cursor(3), items[1].Cursor)
	assert.Equal(t, "1001.0005", items[2].Record.ID)
	assert.Equal(t, types.Cursor(9), items[2].Cursor)
}

func TestPagerFetchError(t *testing.T) {
	boom := types.NewHarvestError("fetch page", "x", types.ErrFetchFailed, fmt.Errorf("HTTP 500"))
	feed := &memoryFeed{errAt: map[types.Cursor]error{0: boom}}
	p := NewPager(feed, NewParser(nil, nil, nil), PagerConfig{Category: "cs.LG", PageSize: 5}, nil)

	_, err := p.Next(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrFetchFailed)
	assert.Equal(t, types.Cursor(0), p.Position())
}

func TestPagerCancelledContext(t *testing.T) {
	feed := &memoryFeed{pages: map[types.Cursor][]*atom.Entry{0: {entry("1001.0001")}}}
	p := NewPager(feed, NewParser(nil, nil, nil), PagerConfig{Category: "cs.LG", PageSize: 5}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, feed.starts, "no page is fetched after cancellation")
}

func TestPagerAll(t *testing.T) {
	feed := &memoryFeed{pages: map[types.Cursor][]*atom.Entry{
		0: {entry("1001.0001"), entry("1001.0002")},
		2: {entry("1001.0003"), entry("1001.0004")},
	}}
	p := NewPager(feed, NewParser(nil, nil, nil), PagerConfig{Category: "cs.LG", PageSize: 2}, nil)

	var ids []string
	for item, err := range p.All(context.Background()) {
		require.NoError(t, err)
		ids = append(ids, item.Record.ID)
		if len(ids) == 3 {
			break
		}
	}
	assert.Equal(t, []string{"1001.0001", "1001.0002", "1001.0003"}, ids)
	// Breaking early does not fetch past the current page.
	assert.Equal(t, []types.Cursor{0, 2}, feed.starts)
}

func TestPagerDefaults(t *testing.T) {
	p := NewPager(&memoryFeed{}, NewParser(nil, nil, nil), PagerConfig{Category: "cs.LG"}, nil)
	assert.Equal(t, DefaultPageSize, p.cfg.PageSize)
	assert.Equal(t, types.OnEntryErrorAbort, p.cfg.OnEntryError)
}
