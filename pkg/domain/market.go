package domain

import "time"

// Market mirrors a tradable question from the prediction-market API.
// Rows are upserted keyed by ID, last write wins.
type Market struct {
	ID          string
	Question    string
	Description string
	Slug        string
	Volume      float64
	Liquidity   float64
	CurrentOdds float64
	EndDate     time.Time
	Category    string
	Tags        []string
	Active      bool
	Closed      bool
	UpdatedAt   time.Time
}

// AdPotential buckets a match score for display and prioritization
type AdPotential string

const (
	AdPotentialHigh   AdPotential = "high"
	AdPotentialMedium AdPotential = "medium"
	AdPotentialLow    AdPotential = "low"
)

// MarketMatch links a trend to a market it scored against.
// Matches are derived data, created only for scores above the
// persistence cutoff and never mutated afterwards.
type MarketMatch struct {
	ID              int64
	TrendID         int64
	MarketID        string
	MarketSlug      string
	MarketQuestion  string
	MarketVolume    float64
	MarketLiquidity float64
	MarketCategory  string
	MarketURL       string
	MatchScore      float64
	MatchedKeywords []string
	AdPotential     AdPotential
	CreatedAt       time.Time
}
