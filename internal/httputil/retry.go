// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the rate-limited HTTP client shared by the feed
// and PDF fetchers.
package httputil

import (
	"context"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// HTTP 429 and 503 responses. Tests override this to avoid real sleeps.
var RetryBaseDelay = 10 * time.Second

// maxRetryAfter caps a server supplied Retry-After value.
const maxRetryAfter = 5 * time.Minute

const defaultMaxRetries = 5

// Waiter gates each outbound request. *ratelimit.Limiter satisfies it.
type Waiter interface {
	Wait(ctx context.Context) error
}

// Client issues requests through a shared rate limiter and retries
// throttled responses.
type Client struct {
	HTTP       *http.Client
	Limiter    Waiter
	UserAgent  string
	MaxRetries int
	Logger     *zap.Logger
}

// NewClient builds a Client with the given timeout. A nil logger is
// replaced by a no-op logger.
func NewClient(limiter Waiter, timeout time.Duration, userAgent string, maxRetries int, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		HTTP:       &http.Client{Timeout: timeout},
		Limiter:    limiter,
		UserAgent:  userAgent,
		MaxRetries: maxRetries,
		Logger:     logger,
	}
}

// Get issues a GET for url.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	return DoWithRetry(ctx, c.HTTP, req, c.MaxRetries, c.Limiter, c.Logger)
}

// DoWithRetry executes an HTTP request and retries on HTTP 429 (Too Many
// Requests) and 503 (Service Unavailable). The delay is the server's
// Retry-After when present, otherwise RetryBaseDelay doubled per attempt.
//
// When limiter is non-nil every attempt, retries included, waits for it
// first. When maxRetries is 0 the default (5) is used. If the context is
// cancelled during a wait the function returns the context error. After
// exhausting retries the last throttled response is returned so the caller
// can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int, limiter Waiter, logger *zap.Logger) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	for attempt := 0; ; attempt++ {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}

		if !retryable(resp.StatusCode) {
			return resp, nil
		}

		if attempt >= maxRetries {
			return resp, nil
		}

		backoff := retryAfter(resp.Header.Get("Retry-After"))
		if backoff <= 0 {
			backoff = time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		}

		// Drain and close the body before retrying.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		logger.Info("throttled, retrying",
			zap.String("url", req.URL.String()),
			zap.Int("status", resp.StatusCode),
			zap.Duration("backoff", backoff),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
		)

		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP date.
func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	var d time.Duration
	if secs, err := strconv.Atoi(v); err == nil {
		d = time.Duration(secs) * time.Second
	} else if at, err := http.ParseTime(v); err == nil {
		d = time.Until(at)
	}
	if d > maxRetryAfter {
		d = maxRetryAfter
	}
	return d
}
