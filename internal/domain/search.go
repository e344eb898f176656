package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Vertical is the search category routed to a provider endpoint.
type Vertical string

const (
	VerticalWeb    Vertical = "web"
	VerticalNews   Vertical = "news"
	VerticalImages Vertical = "images"
	VerticalVideos Vertical = "videos"
)

// Verticals lists every supported vertical in schema order.
var Verticals = []Vertical{VerticalWeb, VerticalNews, VerticalImages, VerticalVideos}

// Valid reports whether v is one of the supported verticals.
func (v Vertical) Valid() bool {
	for _, known := range Verticals {
		if v == known {
			return true
		}
	}
	return false
}

// Request bounds.
const (
	MinLimit = 1
	MaxLimit = 20
)

// SearchRequest is a single search invocation.
type SearchRequest struct {
	Query    string   `json:"query"`
	Vertical Vertical `json:"vertical,omitempty"`
	Limit    *int     `json:"limit,omitempty"`
	Offset   *int     `json:"offset,omitempty"`
	Country  string   `json:"country,omitempty"`
	Lang     string   `json:"lang,omitempty"`
	Market   string   `json:"market,omitempty"`
}

// WithDefaults returns a copy of r with the vertical defaulted to web.
func (r SearchRequest) WithDefaults() SearchRequest {
	if r.Vertical == "" {
		r.Vertical = VerticalWeb
	}
	return r
}

// Validate checks the request invariants. Violations wrap ErrInvalidInput.
func (r SearchRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return NewDomainError("SearchRequest.Validate", ErrInvalidInput, "'query' is required and must be a non-empty string")
	}
	if r.Vertical != "" && !r.Vertical.Valid() {
		return NewDomainError("SearchRequest.Validate", ErrInvalidInput,
			fmt.Sprintf("invalid vertical %q (want: web, news, images, videos)", r.Vertical))
	}
	if r.Limit != nil && (*r.Limit < MinLimit || *r.Limit > MaxLimit) {
		return NewDomainError("SearchRequest.Validate", ErrInvalidInput,
			fmt.Sprintf("limit must be %d-%d", MinLimit, MaxLimit))
	}
	if r.Offset != nil && *r.Offset < 0 {
		return NewDomainError("SearchRequest.Validate", ErrInvalidInput, "offset must be >= 0")
	}
	return nil
}

// Sitelink is a sub-link attached to a result.
type Sitelink struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// NormalizedResult is the provider-agnostic result record.
// Pointer fields are serialized as null when absent.
type NormalizedResult struct {
	Rank         int        `json:"rank"`
	Title        string     `json:"title"`
	URL          string     `json:"url"`
	SnippetHTML  string     `json:"snippet_html"`
	Snippet      string     `json:"snippet"`
	SiteName     *string    `json:"site_name"`
	SiteURL      *string    `json:"site_url"`
	FaviconURL   *string    `json:"favicon_url"`
	ThumbnailURL *string    `json:"thumbnail_url"`
	PublishedAt  *string    `json:"published_at"`
	Age          *string    `json:"age"`
	ContentType  *string    `json:"content_type"`
	Sitelinks    []Sitelink `json:"sitelinks"`
}

// SearchResponse is the normalized output of one search.
type SearchResponse struct {
	Engine    string             `json:"engine"`
	Vertical  Vertical           `json:"vertical"`
	Query     string             `json:"query"`
	FetchedAt string             `json:"fetched_at"`
	Results   []NormalizedResult `json:"results"`
}

// Timestamp formats t the way fetched_at is reported: UTC, millisecond precision.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// SearchService produces one SearchResponse for one SearchRequest.
type SearchService interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}
