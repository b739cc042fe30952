package domain

import "time"

// MarketPotential is the categorical judgment of a trend's suitability
// for building a prediction market around.
type MarketPotential string

const (
	PotentialHigh   MarketPotential = "high"
	PotentialMedium MarketPotential = "medium"
	PotentialLow    MarketPotential = "low"
	PotentialNone   MarketPotential = "none"
)

// Valid reports whether p is one of the known potential levels
func (p MarketPotential) Valid() bool {
	switch p {
	case PotentialHigh, PotentialMedium, PotentialLow, PotentialNone:
		return true
	}
	return false
}

// MarketType describes how a suggested market resolves
type MarketType string

const (
	MarketBinary         MarketType = "binary"
	MarketMultipleChoice MarketType = "multiple_choice"
	MarketScalar         MarketType = "scalar"
)

// MarketSuggestion is a market idea produced by the analyzer,
// embedded in an Analysis and not independently persisted.
type MarketSuggestion struct {
	Question           string     `json:"question"`
	MarketType         MarketType `json:"market_type"`
	Options            []string   `json:"options,omitempty"`
	ResolutionCriteria string     `json:"resolution_criteria"`
	EstimatedLiquidity string     `json:"estimated_liquidity"`
}

// Analysis holds the scoring result for a single trend, written once
// right after the trend is created. ConfidenceScore is always in [0,1];
// out-of-range values from the scorer are clamped on ingest.
type Analysis struct {
	ID               int64
	TrendID          int64
	MarketPotential  MarketPotential
	ConfidenceScore  float64
	Summary          string
	Reasoning        string
	SuggestedMarkets []MarketSuggestion
	Keywords         []string
	AnalyzedAt       time.Time
	CreatedAt        time.Time
}

// FallbackAnalysis returns the safe default used when scoring is disabled
// or the scorer failed after retries.
func FallbackAnalysis(trendID int64, summary, reasoning string, keywords []string) *Analysis {
	if keywords == nil {
		keywords = []string{}
	}
	return &Analysis{
		TrendID:          trendID,
		MarketPotential:  PotentialNone,
		ConfidenceScore:  0,
		Summary:          summary,
		Reasoning:        reasoning,
		SuggestedMarkets: []MarketSuggestion{},
		Keywords:         keywords,
	}
}
