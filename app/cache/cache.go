package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tdvo/postgate/app/blog"
)

// Refresher produces a fresh snapshot from the upstream sources.
type Refresher interface {
	Run(ctx context.Context) blog.Snapshot
}

// Cache holds the last successfully ingested snapshot and serves it while
// fresh. On expiry it refreshes through the Refresher; a refresh that comes
// back empty never regresses a populated cache, the previous snapshot is
// served instead. Only a true cold start with unreachable upstreams yields
// an empty result.
type Cache struct {
	refresher Refresher
	ttl       time.Duration
	nowFunc   func() time.Time

	// mu guards the snapshot pointer; refreshMu coalesces concurrent
	// refresh triggers so at most one upstream refresh is in flight while
	// fresh-cache readers keep being served.
	mu        sync.RWMutex
	refreshMu sync.Mutex
	snapshot  *blog.Snapshot
}

func New(refresher Refresher, ttl time.Duration) *Cache {
	return &Cache{
		refresher: refresher,
		ttl:       ttl,
		nowFunc:   time.Now,
	}
}

// Get returns the current snapshot, refreshing it first when missing or
// older than the freshness threshold.
func (c *Cache) Get(ctx context.Context) blog.Snapshot {
	if snap, ok := c.fresh(); ok {
		return snap
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	// Another caller may have refreshed while this one waited.
	if snap, ok := c.fresh(); ok {
		return snap
	}

	result := c.refresher.Run(ctx)

	if len(result.Posts) > 0 {
		c.replace(result)
		return result
	}

	if prev := c.Current(); prev != nil && len(prev.Posts) > 0 {
		slog.Warn("Refresh yielded no posts, serving stale snapshot",
			"age", c.nowFunc().Sub(prev.FetchedAt), "posts", len(prev.Posts))
		return *prev
	}

	// Cold start with no reachable upstream: the explicit empty result
	// passes through and is not stored, so the next caller retries.
	return result
}

// Current returns the stored snapshot without triggering a refresh, or nil
// when the cache is cold.
func (c *Cache) Current() *blog.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

func (c *Cache) fresh() (blog.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.snapshot == nil {
		return blog.Snapshot{}, false
	}
	if c.nowFunc().Sub(c.snapshot.FetchedAt) >= c.ttl {
		return blog.Snapshot{}, false
	}
	return *c.snapshot, true
}

func (c *Cache) replace(snap blog.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = &snap
}
