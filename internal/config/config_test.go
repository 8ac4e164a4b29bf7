// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/papertrail/internal/references"
	"github.com/pdiddy/papertrail/pkg/types"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "papertrail.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://export.arxiv.org/api/query", cfg.Feed.BaseURL)
	assert.Equal(t, "cs.LG", cfg.Feed.Category)
	assert.Equal(t, 1000, cfg.Feed.PageSize)
	assert.Equal(t, 1.0, cfg.Feed.CallsPerSecond)
	assert.Equal(t, 60*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, DefaultUserAgent, cfg.HTTP.UserAgent)
	assert.Equal(t, 1000, cfg.Harvest.FlushThreshold)
	assert.True(t, cfg.Harvest.Enrich)
	assert.Equal(t, types.OnEntryErrorAbort, cfg.Harvest.OnEntryError)
	assert.Equal(t, types.ExtractorNative, cfg.PDF.Extractor)
	assert.Equal(t, int64(64<<20), cfg.PDF.MaxBytes)
	assert.Equal(t, references.DefaultPatterns, cfg.References.Patterns)
	assert.Equal(t, types.StoreSQLite, cfg.Store.Driver)
	assert.Equal(t, "./papers.db", cfg.Store.Path)
	assert.Empty(t, cfg.Metrics.Addr)
}

func TestLoadWithFileOverrides(t *testing.T) {
	path := writeConfig(t, `
feed:
  category: math.CO
  page_size: 200
  calls_per_second: 0.5
http:
  timeout: 30s
  retry_base_delay: 2s
harvest:
  flush_threshold: 50
  enrich: false
  on_entry_error: skip
  start_cursor: 4000
pdf:
  extractor: pdftotext
store:
  driver: postgres
  dsn: postgres://harvest@localhost/papers
logging:
  development: true
  level: debug
metrics:
  addr: ":9090"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "math.CO", cfg.Feed.Category)
	assert.Equal(t, 200, cfg.Feed.PageSize)
	assert.Equal(t, 0.5, cfg.Feed.CallsPerSecond)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 2*time.Second, cfg.HTTP.RetryBaseDelay)
	assert.Equal(t, 50, cfg.Harvest.FlushThreshold)
	assert.False(t, cfg.Harvest.Enrich)
	assert.Equal(t, types.OnEntryErrorSkip, cfg.Harvest.OnEntryError)
	assert.Equal(t, int64(4000), cfg.Harvest.StartCursor)
	assert.Equal(t, types.ExtractorPdftotext, cfg.PDF.Extractor)
	assert.Equal(t, types.StorePostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://harvest@localhost/papers", cfg.Store.DSN)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
}

func TestLoadEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("PAPERTRAIL_FEED_CATEGORY", "q-bio.NC")
	t.Setenv("PAPERTRAIL_HARVEST_FLUSH_THRESHOLD", "25")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "q-bio.NC", cfg.Feed.Category)
	assert.Equal(t, 25, cfg.Harvest.FlushThreshold)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "bad policy", body: "harvest:\n  on_entry_error: retry\n", want: "harvest.on_entry_error"},
		{name: "bad extractor", body: "pdf:\n  extractor: ocr\n", want: "pdf.extractor"},
		{name: "bad driver", body: "store:\n  driver: mysql\n", want: "store.driver"},
		{name: "zero page size", body: "feed:\n  page_size: 0\n", want: "feed.page_size"},
		{name: "negative cursor", body: "harvest:\n  start_cursor: -5\n", want: "harvest.start_cursor"},
		{name: "zero threshold", body: "harvest:\n  flush_threshold: 0\n", want: "harvest.flush_threshold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
