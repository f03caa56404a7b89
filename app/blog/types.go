package blog

import "time"

// Source identifies which upstream produced a snapshot.
type Source string

const (
	SourceREST Source = "rest"
	SourceFeed Source = "feed"
	SourceNone Source = "none"
)

// Post is the canonical, fully resolved representation of one blog entry,
// regardless of which upstream shape it was normalized from.
type Post struct {
	ID      int64     `json:"id"`
	Title   string    `json:"title"`
	Link    string    `json:"link"`
	Date    time.Time `json:"date"`
	Excerpt string    `json:"excerpt"`
	Image   string    `json:"image,omitempty"`
}

// Snapshot is a capture of the full normalized post list. It is replaced
// wholesale on each successful refresh and never mutated in place.
type Snapshot struct {
	Posts     []Post
	FetchedAt time.Time
	Source    Source

	// Message explains an empty result (both upstreams exhausted).
	Message string
}

// REST upstream types

// RESTPost mirrors the subset of the WordPress REST post record the
// normalizer consumes. Rendered fields carry HTML markup.
type RESTPost struct {
	ID       int64         `json:"id"`
	Date     string        `json:"date"`
	Link     string        `json:"link"`
	Title    RenderedField `json:"title"`
	Excerpt  RenderedField `json:"excerpt"`
	Embedded *Embedded     `json:"_embedded,omitempty"`
}

type RenderedField struct {
	Rendered string `json:"rendered"`
}

// Embedded carries the media attachments returned when the REST source is
// queried with _embed=1. Its absence is valid.
type Embedded struct {
	FeaturedMedia []FeaturedMedia `json:"wp:featuredmedia"`
}

type FeaturedMedia struct {
	SourceURL    string       `json:"source_url"`
	MediaDetails MediaDetails `json:"media_details"`
}

type MediaDetails struct {
	Sizes map[string]MediaSize `json:"sizes"`
}

type MediaSize struct {
	SourceURL string `json:"source_url"`
}
