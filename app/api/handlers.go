package api

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tdvo/postgate/app/blog"
	"github.com/tdvo/postgate/app/sources"
)

const (
	defaultPage    = 1
	defaultPerPage = 10
	maxPerPage     = 100

	staleWhileRevalidate = 3600 // seconds
)

func NewHandler(postCache PostCache, catalog sources.CatalogSource,
	catalogKey, catalogSecret, userAgent string, ttl time.Duration) *Handler {
	return &Handler{
		cache:         postCache,
		catalog:       catalog,
		catalogKey:    catalogKey,
		catalogSecret: catalogSecret,
		userAgent:     userAgent,
		client:        &http.Client{Timeout: time.Duration(catalog.Timeout) * time.Second},
		maxAge:        int(ttl.Seconds()),
	}
}

// GetPosts serves the normalized post list from the cache, triggering a
// refresh only when the snapshot is missing or stale. With page/per_page
// query parameters present the response carries the pagination envelope.
// Upstream exhaustion is a 200 with source "none", never a 5xx.
func (h *Handler) GetPosts(c *gin.Context) {
	snap := h.cache.Get(c.Request.Context())

	c.Header("Cache-Control", fmt.Sprintf("public, s-maxage=%d, stale-while-revalidate=%d",
		h.maxAge, staleWhileRevalidate))

	refreshed := snap.FetchedAt.Format(time.RFC3339)

	pageParam, hasPage := c.GetQuery("page")
	perPageParam, hasPerPage := c.GetQuery("per_page")
	if !hasPage && !hasPerPage {
		c.JSON(http.StatusOK, PostsResponse{
			Success:   true,
			Count:     len(snap.Posts),
			Posts:     snap.Posts,
			Refreshed: refreshed,
			Source:    snap.Source,
			Message:   snap.Message,
		})
		return
	}

	page := parsePositiveInt(pageParam, defaultPage)
	perPage := parsePositiveInt(perPageParam, defaultPerPage)
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	view := blog.Paginate(snap.Posts, page, perPage)

	c.JSON(http.StatusOK, PagedPostsResponse{
		Success:    true,
		Count:      len(view.Posts),
		Posts:      view.Posts,
		Refreshed:  refreshed,
		Source:     snap.Source,
		Message:    snap.Message,
		Page:       page,
		PerPage:    perPage,
		Total:      view.Total,
		TotalPages: view.TotalPages,
	})
}

// GetProducts is a plain pass-through proxy for the commerce catalog
// endpoint: no retry, no fallback, no normalization. Unlike the posts
// surface, a failed upstream here is a genuine proxy fault.
func (h *Handler) GetProducts(c *gin.Context) {
	target := fmt.Sprintf("%s?per_page=%d", h.catalog.URL, h.catalog.PerPage)
	if category := c.Query("category"); category != "" {
		target += "&category=" + url.QueryEscape(category)
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, target, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Failed to fetch products",
			Error:   err.Error(),
		})
		return
	}

	req.SetBasicAuth(h.catalogKey, h.catalogSecret)
	req.Header.Set("User-Agent", h.userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		slog.Error("Catalog proxy request failed", "error", err)
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Message: "Failed to fetch products",
			Error:   err.Error(),
		})
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Error("Catalog proxy read failed", "error", err)
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Message: "Failed to fetch products",
			Error:   err.Error(),
		})
		return
	}

	if resp.StatusCode != http.StatusOK {
		slog.Error("Catalog upstream error", "status", resp.StatusCode)
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Message: "Failed to fetch products",
			Error:   fmt.Sprintf("upstream status %d", resp.StatusCode),
		})
		return
	}

	c.Header("Cache-Control", fmt.Sprintf("public, s-maxage=%d, stale-while-revalidate=%d",
		h.maxAge, staleWhileRevalidate))
	c.Data(http.StatusOK, "application/json", body)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if snap := h.cache.Current(); snap != nil {
		health["posts"] = len(snap.Posts)
		health["source"] = snap.Source
		health["refreshed"] = snap.FetchedAt.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, health)
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
