package repository

import (
	"database/sql"
	"encoding/json"
	"time"
)

// dbTrend is the database representation of a detected trend
type dbTrend struct {
	ID              int64     `db:"id"`
	Source          string    `db:"source"`
	SourceID        string    `db:"source_id"`
	Title           string    `db:"title"`
	Content         string    `db:"content"`
	URL             string    `db:"url"`
	Author          string    `db:"author"`
	EngagementScore float64   `db:"engagement_score"`
	VelocityScore   float64   `db:"velocity_score"`
	DetectedAt      time.Time `db:"detected_at"`
	Status          string    `db:"status"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// dbAnalysis is the database representation of an LLM analysis
type dbAnalysis struct {
	ID               int64     `db:"id"`
	TrendID          int64     `db:"trend_id"`
	MarketPotential  string    `db:"market_potential"`
	ConfidenceScore  float64   `db:"confidence_score"`
	Summary          string    `db:"summary"`
	Reasoning        string    `db:"reasoning"`
	SuggestedMarkets string    `db:"suggested_markets"`
	Keywords         string    `db:"keywords"`
	AnalyzedAt       time.Time `db:"analyzed_at"`
	CreatedAt        time.Time `db:"created_at"`
}

// dbMarket is the database representation of a prediction market
type dbMarket struct {
	ID          string       `db:"id"`
	Question    string       `db:"question"`
	Description string       `db:"description"`
	Slug        string       `db:"slug"`
	Volume      float64      `db:"volume"`
	Liquidity   float64      `db:"liquidity"`
	CurrentOdds float64      `db:"current_odds"`
	EndDate     sql.NullTime `db:"end_date"`
	Category    string       `db:"category"`
	Tags        string       `db:"tags"`
	Active      bool         `db:"active"`
	Closed      bool         `db:"closed"`
	UpdatedAt   time.Time    `db:"updated_at"`
}

// dbMarketMatch is the database representation of a trend-to-market match
type dbMarketMatch struct {
	ID              int64     `db:"id"`
	TrendID         int64     `db:"trend_id"`
	MarketID        string    `db:"market_id"`
	MarketSlug      string    `db:"market_slug"`
	MarketQuestion  string    `db:"market_question"`
	MarketVolume    float64   `db:"market_volume"`
	MarketLiquidity float64   `db:"market_liquidity"`
	MarketCategory  string    `db:"market_category"`
	MarketURL       string    `db:"market_url"`
	MatchScore      float64   `db:"match_score"`
	MatchedKeywords string    `db:"matched_keywords"`
	AdPotential     string    `db:"ad_potential"`
	CreatedAt       time.Time `db:"created_at"`
}

// dbSourceMetadata is the database representation of per-source scan state
type dbSourceMetadata struct {
	ID             int64        `db:"id"`
	Source         string       `db:"source"`
	LastScanAt     sql.NullTime `db:"last_scan_at"`
	LastScanStatus string       `db:"last_scan_status"`
	TrendsFound    int          `db:"trends_found"`
	APICallsToday  int          `db:"api_calls_today"`
	APILimitDaily  int          `db:"api_limit_daily"`
	UpdatedAt      time.Time    `db:"updated_at"`
}

// marshalJSON serializes a value to a JSON string for TEXT columns,
// falling back to "[]" so columns never hold invalid JSON
func marshalJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// unmarshalStrings parses a JSON array of strings from a TEXT column
func unmarshalStrings(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}
