package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendwatch/pkg/config"
)

func TestWebFetcher_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "upcoming political elections", req["query"])
		assert.Equal(t, "neural", req["type"])
		assert.Equal(t, true, req["use_autoprompt"])
		assert.InDelta(t, 10, req["num_results"], 0.001)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"results": [
			{"id": "r1", "title": "Election <i>forecast</i> update", "text": "polling analysis",
			 "url": "https://example.com/a", "author": "jane", "published_date": "2026-08-30T12:00:00Z", "score": 0.82},
			{"title": "No id result", "summary": "fallback summary", "url": "https://example.com/b", "score": 0.4}
		]}`)
	}))
	defer server.Close()

	fetcher := NewWebFetcher(config.WebSourceConfig{
		BaseURL:  server.URL,
		APIKey:   "test-key",
		MaxItems: 10,
	}, 5*time.Second)

	items, err := fetcher.Search(context.Background(), "upcoming political elections")
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "r1", items[0].ID)
	assert.Equal(t, "Election forecast update", items[0].Title, "markup stripped")
	assert.Equal(t, "polling analysis", items[0].Content)
	assert.InDelta(t, 0.82, items[0].Metrics.RelevanceScore, 0.0001)
	assert.Equal(t, time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC), items[0].CreatedAt)

	// url doubles as id, summary doubles as content
	assert.Equal(t, "https://example.com/b", items[1].ID)
	assert.Equal(t, "fallback summary", items[1].Content)
}

func TestWebFetcher_RecentNews(t *testing.T) {
	now := time.Date(2026, 9, 1, 15, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "breaking news", req["query"])
		assert.Equal(t, "news", req["category"])
		assert.Equal(t, "2026-08-31T15:00:00Z", req["start_published_date"])

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"results": []}`)
	}))
	defer server.Close()

	fetcher := NewWebFetcher(config.WebSourceConfig{BaseURL: server.URL, APIKey: "test-key"}, 5*time.Second)
	fetcher.now = func() time.Time { return now }

	items, err := fetcher.RecentNews(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestWebFetcher_Queries(t *testing.T) {
	fetcher := NewWebFetcher(config.WebSourceConfig{
		Queries:    []string{"a", "b", "c", "d"},
		MaxQueries: 2,
	}, time.Second)

	assert.Equal(t, []string{"a", "b"}, fetcher.Queries())
}

func TestWebFetcher_Search_MissingKey(t *testing.T) {
	fetcher := NewWebFetcher(config.WebSourceConfig{BaseURL: "http://localhost"}, time.Second)
	_, err := fetcher.Search(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key")
}

func TestWebFetcher_Search_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	fetcher := NewWebFetcher(config.WebSourceConfig{BaseURL: server.URL, APIKey: "k"}, time.Second)
	_, err := fetcher.Search(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
