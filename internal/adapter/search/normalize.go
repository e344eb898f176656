package search

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cast"

	"search-online-mcp/internal/domain"
)

// Engine is the provider identifier reported by responses built here.
const Engine = "brave"

// ProviderResult is one raw result record as returned by the provider.
// It is kept loosely typed: absent, null, empty or zero fields all fall
// through to the next candidate during normalization.
type ProviderResult map[string]any

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// PlainSnippet strips tag-shaped substrings and unescapes &nbsp; and &amp;.
// Other entities are left as-is.
func PlainSnippet(html string) string {
	s := tagPattern.ReplaceAllString(html, "")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	return strings.ReplaceAll(s, "&amp;", "&")
}

// Normalize maps the provider record at 0-based index i to a NormalizedResult.
func Normalize(i int, rec ProviderResult) domain.NormalizedResult {
	desc := rec.str("description")
	return domain.NormalizedResult{
		Rank:         i + 1,
		Title:        rec.str("title"),
		URL:          rec.str("url"),
		SnippetHTML:  desc,
		Snippet:      PlainSnippet(desc),
		SiteName:     firstOf(rec.str("profile", "long_name"), rec.str("meta_url", "hostname")),
		SiteURL:      firstOf(rec.str("profile", "url")),
		FaviconURL:   firstOf(rec.str("meta_url", "favicon"), rec.str("profile", "img")),
		ThumbnailURL: firstOf(rec.str("thumbnail", "src")),
		PublishedAt:  firstOf(rec.str("page_age")),
		Age:          firstOf(rec.str("age")),
		ContentType:  firstOf(rec.str("subtype"), rec.str("content_type")),
		Sitelinks:    rec.sitelinks(),
	}
}

// NormalizeAll maps records in provider order.
func NormalizeAll(recs []ProviderResult) []domain.NormalizedResult {
	out := make([]domain.NormalizedResult, 0, len(recs))
	for i, rec := range recs {
		out = append(out, Normalize(i, rec))
	}
	return out
}

// BuildResponse assembles a SearchResponse from raw provider records.
func BuildResponse(vertical domain.Vertical, query string, recs []ProviderResult, fetchedAt time.Time) *domain.SearchResponse {
	return &domain.SearchResponse{
		Engine:    Engine,
		Vertical:  vertical,
		Query:     query,
		FetchedAt: domain.Timestamp(fetchedAt),
		Results:   NormalizeAll(recs),
	}
}

// ExtractResults parses a provider payload and returns the records found at
// <vertical>.results. A missing vertical or results key yields no records;
// a results entry that is not an object is an error.
func ExtractResults(body []byte, vertical domain.Vertical) ([]ProviderResult, error) {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	top, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected JSON object, got %s", jsonKind(raw))
	}
	section, _ := top[string(vertical)].(map[string]any)
	if section == nil {
		return nil, nil
	}
	rawResults, present := section["results"]
	if !present || rawResults == nil {
		return nil, nil
	}
	list, ok := rawResults.([]any)
	if !ok {
		return nil, fmt.Errorf("%s.results: expected array, got %s", vertical, jsonKind(rawResults))
	}

	recs := make([]ProviderResult, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s.results[%d]: expected object, got %s", vertical, i, jsonKind(item))
		}
		recs = append(recs, ProviderResult(m))
	}
	return recs, nil
}

// str walks nested objects along path and returns the leaf as a string.
// Falsy leaves (null, false, 0, "") and non-scalar leaves yield "".
func (r ProviderResult) str(path ...string) string {
	var cur any = map[string]any(r)
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = m[key]
	}
	switch v := cur.(type) {
	case nil, map[string]any, []any:
		return ""
	case bool:
		if !v {
			return ""
		}
	case float64:
		if v == 0 {
			return ""
		}
	}
	return cast.ToString(cur)
}

func (r ProviderResult) sitelinks() []domain.Sitelink {
	cluster, ok := r["cluster"].([]any)
	if !ok {
		return []domain.Sitelink{}
	}
	links := make([]domain.Sitelink, 0, len(cluster))
	for _, item := range cluster {
		c, _ := item.(map[string]any)
		links = append(links, domain.Sitelink{
			Title: ProviderResult(c).str("title"),
			URL:   ProviderResult(c).str("url"),
		})
	}
	return links
}

func firstOf(candidates ...string) *string {
	for _, c := range candidates {
		if c != "" {
			return &c
		}
	}
	return nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	default:
		return "object"
	}
}
