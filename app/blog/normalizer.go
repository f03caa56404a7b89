package blog

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
)

// ExcerptLimit is the maximum excerpt length in runes, excluding the
// ellipsis marker appended on truncation.
const ExcerptLimit = 280

const ellipsis = "..."

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	trailingIDRe = regexp.MustCompile(`(\d+)/?$`)
)

// imageExtensions gates enclosure URLs when selecting a feed item image.
var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// renditionOrder is the preference ladder for REST featured media sizes.
var renditionOrder = []string{"large", "medium_large", "medium"}

// NormalizeREST converts one REST upstream record into a canonical Post.
// It reports false when the record cannot satisfy the title/link invariant;
// the caller drops such records without escalating.
func NormalizeREST(rec RESTPost, now time.Time) (Post, bool) {
	post := Post{
		ID:      rec.ID,
		Title:   StripMarkup(rec.Title.Rendered),
		Link:    rec.Link,
		Date:    parseDate(rec.Date, now),
		Excerpt: Truncate(StripMarkup(rec.Excerpt.Rendered), ExcerptLimit),
		Image:   selectFeaturedImage(rec.Embedded),
	}

	if post.Title == "" || post.Link == "" {
		return Post{}, false
	}

	return post, true
}

// NormalizeFeedItem converts one parsed feed item into a canonical Post.
// Feed items carry no upstream numeric ID, so one is derived from the
// trailing numeric segment of the link, falling back to a synthetic value.
// Synthetic IDs are not stable across fetches.
func NormalizeFeedItem(item *gofeed.Item, now time.Time) (Post, bool) {
	if item == nil {
		return Post{}, false
	}

	link := stripTracking(item.Link)

	post := Post{
		ID:      deriveFeedID(link),
		Title:   StripMarkup(item.Title),
		Link:    link,
		Date:    feedItemDate(item, now),
		Excerpt: Truncate(StripMarkup(item.Description), ExcerptLimit),
		Image:   selectFeedImage(item),
	}

	if post.Title == "" || post.Link == "" {
		return Post{}, false
	}

	return post, true
}

// StripMarkup removes HTML tags from a string, decodes entities, and
// collapses runs of whitespace into single spaces.
func StripMarkup(s string) string {
	if s == "" {
		return ""
	}

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
		s = doc.Text()
	}

	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// Truncate bounds a string to limit runes, appending an ellipsis marker
// when content was cut.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + ellipsis
}

func parseDate(raw string, now time.Time) time.Time {
	if raw == "" {
		return now
	}
	parsed, err := dateparse.ParseAny(raw)
	if err != nil {
		return now
	}
	return parsed
}

func feedItemDate(item *gofeed.Item, now time.Time) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return parseDate(item.Published, now)
}

// selectFeaturedImage walks the embedded media renditions from largest to
// smallest, falling back to the generic source URL. Absence is valid,
// an image is never fabricated.
func selectFeaturedImage(embedded *Embedded) string {
	if embedded == nil || len(embedded.FeaturedMedia) == 0 {
		return ""
	}

	media := embedded.FeaturedMedia[0]
	for _, name := range renditionOrder {
		if size, ok := media.MediaDetails.Sizes[name]; ok && size.SourceURL != "" {
			return size.SourceURL
		}
	}

	return media.SourceURL
}

// selectFeedImage prefers an image-typed enclosure, then scans the item
// description for an embedded <img> reference.
func selectFeedImage(item *gofeed.Item) string {
	for _, enc := range item.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		if strings.HasPrefix(enc.Type, "image/") || hasImageExtension(enc.URL) {
			return enc.URL
		}
	}

	if item.Description != "" {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(item.Description))
		if err == nil {
			if src, ok := doc.Find("img").First().Attr("src"); ok {
				return src
			}
		}
	}

	return ""
}

func hasImageExtension(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := strings.ToLower(parsed.Path)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// deriveFeedID extracts the trailing numeric run from a link, e.g.
// "/top-destinations-123/" or "?p=123". Links without one get a synthetic
// ID, which is not stable across fetches.
func deriveFeedID(link string) int64 {
	if match := trailingIDRe.FindStringSubmatch(link); match != nil {
		if id, err := strconv.ParseInt(match[1], 10, 64); err == nil {
			return id
		}
	}
	return int64(uuid.New().ID())
}

// trackingParams are stripped from feed item links. The REST source returns
// clean permalinks, feeds decorate theirs for analytics.
var trackingParams = map[string]bool{
	"fbclid": true,
	"gclid":  true,
	"ref":    true,
}

func stripTracking(rawURL string) string {
	if rawURL == "" {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	query := parsed.Query()
	changed := false
	for param := range query {
		if strings.HasPrefix(param, "utm_") || trackingParams[param] {
			query.Del(param)
			changed = true
		}
	}

	if !changed {
		return rawURL
	}

	parsed.RawQuery = query.Encode()
	return parsed.String()
}
