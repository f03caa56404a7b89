package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tdvo/postgate/app/blog"
)

// SourceFetcher is the upstream access the orchestrator depends on.
type SourceFetcher interface {
	FetchAllREST(ctx context.Context) ([]blog.Post, string)
	FetchFeed(ctx context.Context) ([]blog.Post, string)
}

var _ SourceFetcher = (*Fetcher)(nil)

// Orchestrator walks the source fallback chain: the paginated REST source
// first, the syndication feed second. Exhaustion of both is a normal
// outcome, expressed as an empty snapshot tagged "none" with an
// explanatory message, never as an error.
type Orchestrator struct {
	fetcher SourceFetcher
	nowFunc func() time.Time
}

func NewOrchestrator(fetcher SourceFetcher) *Orchestrator {
	return &Orchestrator{
		fetcher: fetcher,
		nowFunc: time.Now,
	}
}

// Run produces a snapshot from the first source that yields at least one
// post.
func (o *Orchestrator) Run(ctx context.Context) blog.Snapshot {
	posts, restReason := o.fetcher.FetchAllREST(ctx)
	if len(posts) > 0 {
		slog.Info("Ingestion complete", "source", blog.SourceREST, "posts", len(posts))
		return blog.Snapshot{Posts: posts, FetchedAt: o.nowFunc(), Source: blog.SourceREST}
	}

	slog.Warn("Primary source yielded no posts, falling back to feed", "reason", restReason)

	posts, feedReason := o.fetcher.FetchFeed(ctx)
	if len(posts) > 0 {
		slog.Info("Ingestion complete", "source", blog.SourceFeed, "posts", len(posts))
		return blog.Snapshot{Posts: posts, FetchedAt: o.nowFunc(), Source: blog.SourceFeed}
	}

	slog.Warn("All sources exhausted", "rest_reason", restReason, "feed_reason", feedReason)

	return blog.Snapshot{
		Posts:     []blog.Post{},
		FetchedAt: o.nowFunc(),
		Source:    blog.SourceNone,
		Message:   exhaustedMessage(restReason, feedReason),
	}
}

func exhaustedMessage(restReason, feedReason string) string {
	msg := "no posts available from any source"
	if restReason != "" {
		msg += fmt.Sprintf(" (rest: %s", restReason)
		if feedReason != "" {
			msg += fmt.Sprintf("; feed: %s", feedReason)
		}
		msg += ")"
	} else if feedReason != "" {
		msg += fmt.Sprintf(" (feed: %s)", feedReason)
	}
	return msg
}
