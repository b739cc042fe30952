package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-pkgz/lgr"

	"trendwatch/pkg/config"
	"trendwatch/pkg/domain"
	"trendwatch/pkg/trends"
)

// minimum volume for a searched market to be considered a match candidate
const matchCandidateMinVolume = 100

// MarketClient talks to the prediction-market Gamma API
type MarketClient struct {
	client *http.Client
	cfg    config.MarketsSourceConfig
}

// NewMarketClient creates a prediction-market API client
func NewMarketClient(cfg config.MarketsSourceConfig, timeout time.Duration) *MarketClient {
	return &MarketClient{client: newHTTPClient(timeout), cfg: cfg}
}

// gammaMarket matches the Gamma API market shape
type gammaMarket struct {
	ID            string    `json:"id"`
	Question      string    `json:"question"`
	Description   string    `json:"description"`
	MarketSlug    string    `json:"market_slug"`
	EndDateISO    string    `json:"end_date_iso"`
	OutcomePrices []float64 `json:"outcome_prices"`
	Volume        float64   `json:"volume"`
	Liquidity     float64   `json:"liquidity"`
	Active        bool      `json:"active"`
	Closed        bool      `json:"closed"`
	Category      string    `json:"category"`
	Tags          []string  `json:"tags"`
}

// ActiveMarkets fetches open markets from the API
func (c *MarketClient) ActiveMarkets(ctx context.Context) ([]*domain.Market, error) {
	limit := c.cfg.SyncLimit
	if limit <= 0 {
		limit = 100
	}

	reqURL := fmt.Sprintf("%s/markets?active=true&closed=false&limit=%d", c.cfg.BaseURL, limit)
	markets, err := c.getMarkets(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	return markets, nil
}

// Search finds markets matching a free-text query
func (c *MarketClient) Search(ctx context.Context, query string) ([]*domain.Market, error) {
	reqURL := fmt.Sprintf("%s/search?query=%s", c.cfg.BaseURL, url.QueryEscape(query))
	return c.getMarkets(ctx, reqURL)
}

// FindMatching searches markets by the trend's keywords and title, then
// dedupes by id and keeps active open markets with non-trivial volume
func (c *MarketClient) FindMatching(ctx context.Context, title string, keywords []string) ([]domain.Market, error) {
	var all []domain.Market

	if len(keywords) > 5 {
		keywords = keywords[:5]
	}
	for _, keyword := range keywords {
		found, err := c.Search(ctx, keyword)
		if err != nil {
			lgr.Printf("[WARN] market search for %q failed: %v", keyword, err)
			continue
		}
		for _, m := range found {
			all = append(all, *m)
		}
	}

	if title != "" {
		found, err := c.Search(ctx, title)
		if err != nil {
			lgr.Printf("[WARN] market search for title failed: %v", err)
		}
		for _, m := range found {
			all = append(all, *m)
		}
	}

	unique := trends.DedupeMarketsByID(all)
	matches := make([]domain.Market, 0, len(unique))
	for _, m := range unique {
		if m.Active && !m.Closed && m.Volume > matchCandidateMinVolume {
			matches = append(matches, m)
		}
	}
	return matches, nil
}

func (c *MarketClient) getMarkets(ctx context.Context, reqURL string) ([]*domain.Market, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch markets: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("market api returned %s", resp.Status)
	}

	var gammaMarkets []gammaMarket
	if err := json.NewDecoder(resp.Body).Decode(&gammaMarkets); err != nil {
		return nil, fmt.Errorf("decode markets: %w", err)
	}

	markets := make([]*domain.Market, 0, len(gammaMarkets))
	for _, gm := range gammaMarkets {
		markets = append(markets, c.toDomain(&gm))
	}
	return markets, nil
}

// toDomain converts a Gamma API market to the domain type
func (c *MarketClient) toDomain(gm *gammaMarket) *domain.Market {
	market := &domain.Market{
		ID:          gm.ID,
		Question:    gm.Question,
		Description: gm.Description,
		Slug:        gm.MarketSlug,
		Volume:      gm.Volume,
		Liquidity:   gm.Liquidity,
		Category:    gm.Category,
		Tags:        gm.Tags,
		Active:      gm.Active,
		Closed:      gm.Closed,
	}
	if len(gm.OutcomePrices) > 0 {
		market.CurrentOdds = gm.OutcomePrices[0]
	}
	if gm.EndDateISO != "" {
		if endDate, err := time.Parse(time.RFC3339, gm.EndDateISO); err == nil {
			market.EndDate = endDate
		}
	}
	return market
}
