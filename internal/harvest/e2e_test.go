// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/papertrail/internal/feed"
	"github.com/pdiddy/papertrail/internal/harvest"
	"github.com/pdiddy/papertrail/internal/httputil"
	"github.com/pdiddy/papertrail/internal/ratelimit"
	"github.com/pdiddy/papertrail/internal/store/sqlite"
	"github.com/pdiddy/papertrail/pkg/types"
)

// arxivServer serves the feed fixtures: the first page holds two entries
// and every later page is empty.
type arxivServer struct {
	t      *testing.T
	mu     sync.Mutex
	starts []string
}

func (a *arxivServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("start")
	a.mu.Lock()
	a.starts = append(a.starts, start)
	a.mu.Unlock()

	fixture := "empty.xml"
	if start == "0" {
		fixture = "page.xml"
	}
	data, err := os.ReadFile(filepath.Join("..", "feed", "testdata", fixture))
	if err != nil {
		a.t.Errorf("reading fixture: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/atom+xml")
	w.Write(data)
}

func (a *arxivServer) requestedStarts() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.starts...)
}

func newHarvest(t *testing.T, baseURL string, store *sqlite.Store) *harvest.Runner {
	t.Helper()
	getter := httputil.NewClient(ratelimit.New(0), 5*time.Second, "papertrail/test", 1, nil)
	client := feed.NewClient(getter, baseURL, nil)
	parser := feed.NewParser(nil, nil, nil)
	sources := func(start types.Cursor) harvest.Source {
		return feed.NewPager(client, parser, feed.PagerConfig{
			Category: "cs.LG",
			Start:    start,
			PageSize: 1000,
		}, nil)
	}
	return harvest.NewRunner(harvest.Config{Category: "cs.LG", FlushThreshold: 10}, store, sources, nil)
}

func TestHarvestIntoSQLite(t *testing.T) {
	arxiv := &arxivServer{t: t}
	ts := httptest.NewServer(arxiv)
	defer ts.Close()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "papers.db"))
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	sum, err := newHarvest(t, ts.URL, store).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Records)
	assert.Equal(t, 1, sum.Batches)
	assert.Equal(t, types.Cursor(1000), sum.FinalCursor)
	assert.Equal(t, []string{"0", "1000"}, arxiv.requestedStarts())

	c, ok, err := store.LoadCursor(ctx, "cs.LG")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, types.Cursor(1000), c)

	rec, err := store.Paper(ctx, "1706.03762")
	require.NoError(t, err)
	assert.Equal(t, "http://arxiv.org/pdf/1706.03762v5", rec.PDFLink)
	assert.False(t, rec.ReferencesLoaded)
	assert.NotEmpty(t, rec.Authors)

	runs, err := store.RecentRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, types.RunCompleted, runs[0].Status)
	assert.Equal(t, 2, runs[0].Records)
}

func TestHarvestResumeIsIdempotent(t *testing.T) {
	arxiv := &arxivServer{t: t}
	ts := httptest.NewServer(arxiv)
	defer ts.Close()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "papers.db"))
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	_, err = newHarvest(t, ts.URL, store).Run(ctx)
	require.NoError(t, err)

	sum, err := newHarvest(t, ts.URL, store).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.Cursor(1000), sum.StartCursor)
	assert.Zero(t, sum.Records)

	// The second run starts where the first stopped.
	assert.Equal(t, []string{"0", "1000", "1000"}, arxiv.requestedStarts())

	n, err := store.CountPapers(ctx, "cs.LG")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestHarvestReplayAfterLostCheckpoint(t *testing.T) {
	arxiv := &arxivServer{t: t}
	ts := httptest.NewServer(arxiv)
	defer ts.Close()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "papers.db"))
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	_, err = newHarvest(t, ts.URL, store).Run(ctx)
	require.NoError(t, err)

	// Rewinding the cursor replays the page; upserts keep one row per paper.
	require.NoError(t, store.SaveCursor(ctx, "cs.LG", 0))
	sum, err := newHarvest(t, ts.URL, store).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Records)

	n, err := store.CountPapers(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
