package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func TestSearchRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     SearchRequest
		wantErr string
	}{
		{"minimal", SearchRequest{Query: "golang"}, ""},
		{"all fields", SearchRequest{Query: "golang", Vertical: VerticalNews, Limit: intPtr(20), Offset: intPtr(0), Country: "us", Lang: "en", Market: "en-US"}, ""},
		{"empty query", SearchRequest{}, "'query' is required"},
		{"blank query", SearchRequest{Query: "   "}, "'query' is required"},
		{"bad vertical", SearchRequest{Query: "q", Vertical: "maps"}, "invalid vertical"},
		{"limit zero", SearchRequest{Query: "q", Limit: intPtr(0)}, "limit must be 1-20"},
		{"limit too large", SearchRequest{Query: "q", Limit: intPtr(21)}, "limit must be 1-20"},
		{"negative offset", SearchRequest{Query: "q", Offset: intPtr(-1)}, "offset must be >= 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, errors.Is(err, ErrInvalidInput))
		})
	}
}

func TestSearchRequestWithDefaults(t *testing.T) {
	r := SearchRequest{Query: "q"}.WithDefaults()
	assert.Equal(t, VerticalWeb, r.Vertical)

	r = SearchRequest{Query: "q", Vertical: VerticalImages}.WithDefaults()
	assert.Equal(t, VerticalImages, r.Vertical)
}

func TestVerticalValid(t *testing.T) {
	for _, v := range Verticals {
		assert.True(t, v.Valid(), v)
	}
	assert.False(t, Vertical("").Valid())
	assert.False(t, Vertical("WEB").Valid())
}

func TestTimestamp(t *testing.T) {
	ts := time.Date(2025, 3, 4, 5, 6, 7, 891_000_000, time.FixedZone("x", 3600))
	assert.Equal(t, "2025-03-04T04:06:07.891Z", Timestamp(ts))
}

func TestNormalizedResultNullFields(t *testing.T) {
	r := NormalizedResult{Rank: 1, Title: "t", URL: "u", Sitelinks: []Sitelink{}}
	data, err := json.Marshal(r)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	for _, key := range []string{"site_name", "site_url", "favicon_url", "thumbnail_url", "published_at", "age", "content_type"} {
		v, ok := m[key]
		assert.True(t, ok, "missing key %s", key)
		assert.Nil(t, v, key)
	}
	assert.Equal(t, []any{}, m["sitelinks"])
}
