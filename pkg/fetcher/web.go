package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"trendwatch/pkg/config"
	"trendwatch/pkg/domain"
)

// WebFetcher queries a neural web-search API for topical content
type WebFetcher struct {
	client *http.Client
	cfg    config.WebSourceConfig
	now    func() time.Time // injectable for tests
}

// NewWebFetcher creates a web-search fetcher
func NewWebFetcher(cfg config.WebSourceConfig, timeout time.Duration) *WebFetcher {
	return &WebFetcher{client: newHTTPClient(timeout), cfg: cfg, now: time.Now}
}

// searchRequest matches the search API's POST body
type searchRequest struct {
	Query              string         `json:"query"`
	NumResults         int            `json:"num_results"`
	UseAutoprompt      bool           `json:"use_autoprompt"`
	Type               string         `json:"type"`
	Category           string         `json:"category,omitempty"`
	StartPublishedDate string         `json:"start_published_date,omitempty"`
	Contents           searchContents `json:"contents"`
}

type searchContents struct {
	Text bool `json:"text"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Text          string  `json:"text"`
	Summary       string  `json:"summary"`
	URL           string  `json:"url"`
	Author        string  `json:"author"`
	PublishedDate string  `json:"published_date"`
	Score         float64 `json:"score"`
}

// Queries returns the configured topic queries capped to the per-run limit
func (f *WebFetcher) Queries() []string {
	queries := f.cfg.Queries
	if max := f.cfg.MaxQueries; max > 0 && len(queries) > max {
		queries = queries[:max]
	}
	return queries
}

// Search issues one neural search query
func (f *WebFetcher) Search(ctx context.Context, query string) ([]domain.RawItem, error) {
	return f.search(ctx, searchRequest{
		Query:         query,
		NumResults:    f.numResults(),
		UseAutoprompt: true,
		Type:          "neural",
		Contents:      searchContents{Text: true},
	})
}

// RecentNews searches breaking news published in the last 24 hours
func (f *WebFetcher) RecentNews(ctx context.Context) ([]domain.RawItem, error) {
	return f.search(ctx, searchRequest{
		Query:              "breaking news",
		NumResults:         f.numResults(),
		UseAutoprompt:      true,
		Type:               "neural",
		Category:           "news",
		StartPublishedDate: f.now().Add(-24 * time.Hour).UTC().Format(time.RFC3339),
		Contents:           searchContents{Text: true},
	})
}

func (f *WebFetcher) numResults() int {
	if f.cfg.MaxItems > 0 {
		return f.cfg.MaxItems
	}
	return 10
}

func (f *WebFetcher) search(ctx context.Context, sreq searchRequest) ([]domain.RawItem, error) {
	if f.cfg.APIKey == "" {
		return nil, fmt.Errorf("search api key not configured")
	}

	body, err := json.Marshal(sreq)
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.BaseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.cfg.APIKey)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", sreq.Query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search api returned %s", resp.Status)
	}

	var sresp searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sresp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	items := make([]domain.RawItem, 0, len(sresp.Results))
	for _, result := range sresp.Results {
		id := result.ID
		if id == "" {
			id = result.URL
		}
		content := result.Text
		if content == "" {
			content = result.Summary
		}

		createdAt, err := time.Parse(time.RFC3339, result.PublishedDate)
		if err != nil {
			createdAt = f.now().UTC()
		}

		items = append(items, domain.RawItem{
			ID:        id,
			Title:     cleanText(result.Title),
			Content:   cleanText(content),
			URL:       result.URL,
			Author:    result.Author,
			CreatedAt: createdAt,
			Metrics:   domain.Metrics{RelevanceScore: result.Score},
		})
	}
	return items, nil
}
