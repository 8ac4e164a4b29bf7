// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package feed pages through the arXiv export API and turns Atom entries
// into paper records.
package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed/atom"
	"go.uber.org/zap"

	"github.com/pdiddy/papertrail/pkg/types"
)

// DefaultBaseURL is the arXiv query endpoint.
const DefaultBaseURL = "https://export.arxiv.org/api/query"

// Getter issues a rate-limited GET. *httputil.Client satisfies it.
type Getter interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// Page is one decoded response of the paginated feed.
type Page struct {
	Start   types.Cursor
	Entries []*atom.Entry

	// TotalResults is the server's count of matching papers, or -1 when
	// the response did not say.
	TotalResults int
}

// Client fetches feed pages.
type Client struct {
	http    Getter
	baseURL string
	logger  *zap.Logger
}

// NewClient returns a Client for baseURL (DefaultBaseURL when empty).
func NewClient(getter Getter, baseURL string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{http: getter, baseURL: baseURL, logger: logger}
}

// PageURL builds the query for one page of a category, oldest first.
func (c *Client) PageURL(category string, start types.Cursor, pageSize int) string {
	params := url.Values{}
	params.Set("search_query", "cat:"+category)
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "ascending")
	params.Set("start", strconv.FormatInt(int64(start), 10))
	params.Set("max_results", strconv.Itoa(pageSize))
	return c.baseURL + "?" + params.Encode()
}

// FetchPage retrieves pageSize entries of category starting at offset start.
func (c *Client) FetchPage(ctx context.Context, category string, start types.Cursor, pageSize int) (*Page, error) {
	u := c.PageURL(category, start, pageSize)
	f, err := c.get(ctx, "fetch page", u)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("fetched feed page",
		zap.String("category", category),
		zap.Int64("start", int64(start)),
		zap.Int("entries", len(f.Entries)),
	)
	return &Page{Start: start, Entries: f.Entries, TotalResults: totalResults(f)}, nil
}

// FetchByID retrieves the entry for a single paper id.
func (c *Client) FetchByID(ctx context.Context, id string) (*atom.Entry, error) {
	params := url.Values{}
	params.Set("id_list", id)
	u := c.baseURL + "?" + params.Encode()

	f, err := c.get(ctx, "fetch paper", u)
	if err != nil {
		return nil, err
	}
	if len(f.Entries) == 0 {
		return nil, types.NewHarvestError("fetch paper", id, types.ErrNotFound, nil)
	}
	e := f.Entries[0]
	// The API reports bad ids as an entry under /api/errors.
	if strings.Contains(e.ID, "/api/errors") {
		return nil, types.NewHarvestError("fetch paper", id, types.ErrNotFound,
			errors.New(strings.TrimSpace(e.Summary)))
	}
	return e, nil
}

func (c *Client) get(ctx context.Context, op, u string) (*atom.Feed, error) {
	resp, err := c.http.Get(ctx, u)
	if err != nil {
		return nil, types.NewHarvestError(op, u, types.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewHarvestError(op, u, types.ErrFetchFailed,
			fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	fp := &atom.Parser{}
	f, err := fp.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decoding feed from %s: %w", u, err)
	}
	return f, nil
}

// totalResults reads opensearch:totalResults from the feed extensions.
func totalResults(f *atom.Feed) int {
	if f == nil || f.Extensions == nil {
		return -1
	}
	for _, elems := range f.Extensions {
		vals, ok := elems["totalResults"]
		if !ok || len(vals) == 0 {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(vals[0].Value))
		if err == nil {
			return n
		}
	}
	return -1
}
