package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/tdvo/postgate/app/blog"
	"github.com/tdvo/postgate/app/sources"
)

// sleepFunc is used for inter-attempt and inter-page delays. A variable so
// tests can replace it; the default honors context cancellation instead of
// blocking unconditionally.
var sleepFunc = sleepContext

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// decodeFunc turns a raw usable response body into normalized posts. It
// also reports the raw upstream record count, which the paginated fetcher
// needs for its short-page stop condition.
type decodeFunc func(body []byte) (posts []blog.Post, raw int, err error)

// Fetcher performs resilient upstream requests: bounded retries, growing
// backoff, and block detection on every attempt. Upstream unavailability
// never escalates past it as an error, only as an empty result with a
// reason.
type Fetcher struct {
	client     *http.Client
	sources    *sources.Config
	feedParser *gofeed.Parser
	nowFunc    func() time.Time
}

func NewFetcher(client *http.Client, cfg *sources.Config) *Fetcher {
	return &Fetcher{
		client:     client,
		sources:    cfg,
		feedParser: gofeed.NewParser(),
		nowFunc:    time.Now,
	}
}

// FetchAllREST drives the primary JSON source across successive pages until
// the upstream signals exhaustion: a page shorter than the requested size,
// or a page with no usable records. A mandatory delay separates page
// fetches to respect upstream rate limits; it never precedes the first
// page. Upstream ordering (most-recent-first) is preserved.
func (f *Fetcher) FetchAllREST(ctx context.Context) ([]blog.Post, string) {
	src := f.sources.REST

	var all []blog.Post
	var lastReason string

	for page := 1; ; page++ {
		if page > 1 {
			sleepFunc(ctx, time.Duration(src.PageDelay)*time.Millisecond)
		}

		url := fmt.Sprintf("%s?per_page=%d&page=%d&_embed=1", src.URL, src.PerPage, page)
		posts, raw, reason := f.fetchResilient(ctx, url, src.Headers, PayloadJSON,
			src.MaxAttempts, time.Duration(src.RetryDelay)*time.Millisecond,
			time.Duration(src.Timeout)*time.Second, f.decodeRESTPage)

		if len(posts) == 0 {
			lastReason = reason
			break
		}

		all = append(all, posts...)
		slog.Debug("Fetched REST page", "page", page, "records", raw, "usable", len(posts))

		if raw < src.PerPage {
			break
		}
	}

	if len(all) == 0 {
		return nil, lastReason
	}
	return all, ""
}

// FetchFeed fetches and normalizes the secondary XML source. Feeds are a
// single page; items beyond the configured cap are ignored.
func (f *Fetcher) FetchFeed(ctx context.Context) ([]blog.Post, string) {
	src := f.sources.Feed

	posts, _, reason := f.fetchResilient(ctx, src.URL, src.Headers, PayloadXML,
		src.MaxAttempts, time.Duration(src.RetryDelay)*time.Millisecond,
		time.Duration(src.Timeout)*time.Second, f.decodeFeed)

	return posts, reason
}

// fetchResilient performs up to attempts requests against one URL. Network
// failures, block detection, parse failures, and empty decodes all count as
// failed attempts; between attempts it waits attempt*baseDelay. The retry
// schedule is an explicit loop with an attempt counter, never recursion.
func (f *Fetcher) fetchResilient(ctx context.Context, url string, headers map[string]string,
	want PayloadKind, attempts int, baseDelay, timeout time.Duration, decode decodeFunc) ([]blog.Post, int, string) {

	var lastReason string

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			sleepFunc(ctx, time.Duration(attempt-1)*baseDelay)
		}

		body, err := f.fetchOnce(ctx, url, headers, want, timeout)
		if err != nil {
			lastReason = err.Error()
			slog.Warn("Fetch attempt failed", "url", url, "attempt", attempt, "reason", lastReason)
			continue
		}

		posts, raw, err := decode(body)
		if err != nil {
			lastReason = fmt.Sprintf("parse failure: %v", err)
			slog.Warn("Fetch attempt failed", "url", url, "attempt", attempt, "reason", lastReason)
			continue
		}

		if len(posts) == 0 {
			// A genuinely empty upstream is indistinguishable from a soft
			// block until retried.
			lastReason = "empty result"
			slog.Warn("Fetch attempt yielded no usable records", "url", url, "attempt", attempt)
			continue
		}

		return posts, raw, ""
	}

	return nil, 0, lastReason
}

// fetchOnce issues one request with the source identification headers and
// gates the raw response through the block detector. Blocked bodies are
// never decoded.
func (f *Fetcher) fetchOnce(ctx context.Context, url string, headers map[string]string,
	want PayloadKind, timeout time.Duration) ([]byte, error) {

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for name, value := range headers {
		req.Header.Set(name, value)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network failure: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if reason, blocked := CheckBlocked(resp.StatusCode, resp.Header.Get("Content-Type"), body, want); blocked {
		return nil, fmt.Errorf("blocked response: %s", reason)
	}

	return body, nil
}

func (f *Fetcher) decodeRESTPage(body []byte) ([]blog.Post, int, error) {
	var records []blog.RESTPost
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, 0, fmt.Errorf("expected JSON array: %w", err)
	}

	now := f.nowFunc()
	posts := make([]blog.Post, 0, len(records))
	for _, rec := range records {
		if post, ok := blog.NormalizeREST(rec, now); ok {
			posts = append(posts, post)
		}
	}

	return posts, len(records), nil
}

func (f *Fetcher) decodeFeed(body []byte) ([]blog.Post, int, error) {
	feed, err := f.feedParser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse feed: %w", err)
	}

	items := feed.Items
	if max := f.sources.Feed.MaxItems; len(items) > max {
		items = items[:max]
	}

	now := f.nowFunc()
	posts := make([]blog.Post, 0, len(items))
	for _, item := range items {
		if post, ok := blog.NormalizeFeedItem(item, now); ok {
			posts = append(posts, post)
		}
	}

	return posts, len(items), nil
}
