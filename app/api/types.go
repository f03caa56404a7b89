package api

import (
	"context"
	"net/http"

	"github.com/tdvo/postgate/app/blog"
	"github.com/tdvo/postgate/app/cache"
	"github.com/tdvo/postgate/app/sources"
)

// PostCache is the snapshot access the handlers depend on.
type PostCache interface {
	Get(ctx context.Context) blog.Snapshot
	Current() *blog.Snapshot
}

var _ PostCache = (*cache.Cache)(nil)

type Handler struct {
	cache         PostCache
	catalog       sources.CatalogSource
	catalogKey    string
	catalogSecret string
	userAgent     string
	client        *http.Client
	maxAge        int // seconds, advertised cache lifetime
}

// PostsResponse is the plain posts envelope.
type PostsResponse struct {
	Success   bool        `json:"success"`
	Count     int         `json:"count"`
	Posts     []blog.Post `json:"posts"`
	Refreshed string      `json:"refreshed"`
	Source    blog.Source `json:"source"`
	Message   string      `json:"message,omitempty"`
}

// PagedPostsResponse is the paginated posts envelope.
type PagedPostsResponse struct {
	Success    bool        `json:"success"`
	Count      int         `json:"count"`
	Posts      []blog.Post `json:"posts"`
	Refreshed  string      `json:"refreshed"`
	Source     blog.Source `json:"source"`
	Message    string      `json:"message,omitempty"`
	Page       int         `json:"page"`
	PerPage    int         `json:"per_page"`
	Total      int         `json:"total"`
	TotalPages int         `json:"total_pages"`
}

// ErrorResponse is returned with a 5xx status only for genuine internal
// faults; upstream unavailability never produces one.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
