package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tdvo/postgate/app/blog"
	"github.com/tdvo/postgate/app/sources"
)

type stubCache struct {
	snapshot blog.Snapshot
	stored   *blog.Snapshot
	getCalls int
}

func (s *stubCache) Get(ctx context.Context) blog.Snapshot {
	s.getCalls++
	return s.snapshot
}

func (s *stubCache) Current() *blog.Snapshot {
	return s.stored
}

func testSnapshot(n int) blog.Snapshot {
	posts := make([]blog.Post, n)
	for i := range posts {
		posts[i] = blog.Post{ID: int64(i + 1), Title: "Post", Link: "https://example.com/post/"}
	}
	return blog.Snapshot{
		Posts:     posts,
		FetchedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Source:    blog.SourceREST,
	}
}

func newTestHandler(c PostCache, catalog sources.CatalogSource) *Handler {
	return NewHandler(c, catalog, "test-key", "test-secret", "test-agent", 12*time.Hour)
}

func performRequest(h *Handler, path string) *httptest.ResponseRecorder {
	router := NewServer(h)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestGetPosts(t *testing.T) {
	stub := &stubCache{snapshot: testSnapshot(3)}
	w := performRequest(newTestHandler(stub, sources.CatalogSource{}), "/posts")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var resp PostsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if !resp.Success {
		t.Error("Expected success true")
	}
	if resp.Count != 3 || len(resp.Posts) != 3 {
		t.Errorf("Expected 3 posts, got count=%d len=%d", resp.Count, len(resp.Posts))
	}
	if resp.Source != blog.SourceREST {
		t.Errorf("Expected source rest, got %q", resp.Source)
	}
	if resp.Refreshed == "" {
		t.Error("Expected a refreshed timestamp")
	}

	cc := w.Header().Get("Cache-Control")
	if !strings.Contains(cc, "s-maxage=43200") || !strings.Contains(cc, "stale-while-revalidate") {
		t.Errorf("Unexpected Cache-Control header: %q", cc)
	}
}

func TestGetPosts_Paginated(t *testing.T) {
	stub := &stubCache{snapshot: testSnapshot(25)}
	w := performRequest(newTestHandler(stub, sources.CatalogSource{}), "/posts?page=2&per_page=10")

	var resp PagedPostsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.Count != 10 {
		t.Errorf("Expected count 10, got %d", resp.Count)
	}
	if resp.Page != 2 || resp.PerPage != 10 {
		t.Errorf("Expected page=2 per_page=10, got page=%d per_page=%d", resp.Page, resp.PerPage)
	}
	if resp.Total != 25 || resp.TotalPages != 3 {
		t.Errorf("Expected total=25 total_pages=3, got total=%d total_pages=%d", resp.Total, resp.TotalPages)
	}
	if resp.Posts[0].ID != 11 {
		t.Errorf("Expected page 2 to start at ID 11, got %d", resp.Posts[0].ID)
	}
}

func TestGetPosts_PaginationDefaults(t *testing.T) {
	stub := &stubCache{snapshot: testSnapshot(25)}
	w := performRequest(newTestHandler(stub, sources.CatalogSource{}), "/posts?page=abc&per_page=-5")

	var resp PagedPostsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.Page != 1 || resp.PerPage != 10 {
		t.Errorf("Expected defaults page=1 per_page=10, got page=%d per_page=%d", resp.Page, resp.PerPage)
	}
}

func TestGetPosts_PerPageCapped(t *testing.T) {
	stub := &stubCache{snapshot: testSnapshot(5)}
	w := performRequest(newTestHandler(stub, sources.CatalogSource{}), "/posts?per_page=500")

	var resp PagedPostsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.PerPage != 100 {
		t.Errorf("Expected per_page capped at 100, got %d", resp.PerPage)
	}
}

func TestGetPosts_ExhaustedIsNotAnError(t *testing.T) {
	stub := &stubCache{snapshot: blog.Snapshot{
		Posts:     []blog.Post{},
		FetchedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Source:    blog.SourceNone,
		Message:   "no posts available from any source",
	}}

	w := performRequest(newTestHandler(stub, sources.CatalogSource{}), "/posts")

	if w.Code != http.StatusOK {
		t.Fatalf("Upstream exhaustion must be a 200, got %d", w.Code)
	}

	var resp PostsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if !resp.Success {
		t.Error("Expected success true for an empty result")
	}
	if resp.Count != 0 {
		t.Errorf("Expected count 0, got %d", resp.Count)
	}
	if resp.Source != blog.SourceNone {
		t.Errorf("Expected source none, got %q", resp.Source)
	}
	if resp.Message == "" {
		t.Error("Expected an explanatory message")
	}
}

func TestGetProducts_PassThrough(t *testing.T) {
	upstreamBody := `[{"id":10,"name":"Tour Package"}]`

	var gotAuth, gotQuery string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(upstreamBody))
	}))
	defer upstream.Close()

	catalog := sources.CatalogSource{URL: upstream.URL, PerPage: 100, Timeout: 5}
	w := performRequest(newTestHandler(&stubCache{}, catalog), "/products?category=tours")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if w.Body.String() != upstreamBody {
		t.Errorf("Expected the upstream body verbatim, got %q", w.Body.String())
	}
	if !strings.HasPrefix(gotAuth, "Basic ") {
		t.Errorf("Expected Basic credentials, got %q", gotAuth)
	}
	if !strings.Contains(gotQuery, "per_page=100") || !strings.Contains(gotQuery, "category=tours") {
		t.Errorf("Unexpected upstream query: %q", gotQuery)
	}
}

func TestGetProducts_UpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	catalog := sources.CatalogSource{URL: upstream.URL, PerPage: 100, Timeout: 5}
	w := performRequest(newTestHandler(&stubCache{}, catalog), "/products")

	if w.Code != http.StatusBadGateway {
		t.Fatalf("Expected 502, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Success {
		t.Error("Expected success false")
	}
	if resp.Message == "" {
		t.Error("Expected an error message")
	}
}

func TestGetProducts_DisabledWithoutUpstream(t *testing.T) {
	w := performRequest(newTestHandler(&stubCache{}, sources.CatalogSource{}), "/products")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 when the catalog proxy is not configured, got %d", w.Code)
	}
}

func TestGetHealth(t *testing.T) {
	snap := testSnapshot(7)
	stub := &stubCache{stored: &snap}

	w := performRequest(newTestHandler(stub, sources.CatalogSource{}), "/health")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var health map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if health["posts"] != float64(7) {
		t.Errorf("Expected 7 posts in health payload, got %v", health["posts"])
	}
	if health["source"] != "rest" {
		t.Errorf("Expected source rest, got %v", health["source"])
	}
	if stub.getCalls != 0 {
		t.Error("Health must not trigger an ingestion refresh")
	}
}
