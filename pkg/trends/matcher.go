package trends

import (
	"math"
	"strings"
	"time"

	"trendwatch/pkg/domain"
)

// score cutoffs for persisting matches and bucketing ad potential
const (
	MatchScoreCutoff   = 5
	adPotentialHighMin = 20
	adPotentialMedMin  = 10
	keywordMatchWeight = 10
	tokenOverlapWeight = 1
	tokenOverlapMinLen = 4
	volumeBonusHigh    = 5
	volumeBonusLow     = 3
	liquidityBonusHigh = 3
	liquidityBonusLow  = 2
	volumeTierHigh     = 10000
	volumeTierLow      = 1000
	liquidityTierHigh  = 10000
	liquidityTierLow   = 1000
)

// TrendText is the trend-side input to match scoring
type TrendText struct {
	Title    string
	Content  string
	Keywords []string
}

// MatchScore computes the heuristic relevance between a trend and a
// market as a weighted sum: 10 per trend keyword found in the market
// text, 1 per overlapping token longer than 4 chars, plus volume and
// liquidity tier bonuses. Scores have no upper bound and are only
// meaningful relative to each other and the fixed cutoffs.
func MatchScore(trend TrendText, market domain.Market) float64 {
	var score float64

	trendText := strings.ToLower(trend.Title + " " + trend.Content)
	marketText := strings.ToLower(market.Question + " " + market.Description + " " + strings.Join(market.Tags, " "))

	for _, kw := range trend.Keywords {
		if strings.Contains(marketText, strings.ToLower(kw)) {
			score += keywordMatchWeight
		}
	}

	marketWords := make(map[string]struct{})
	for _, w := range strings.Fields(marketText) {
		marketWords[w] = struct{}{}
	}
	for _, w := range strings.Fields(trendText) {
		if len(w) <= tokenOverlapMinLen {
			continue
		}
		if _, ok := marketWords[w]; ok {
			score += tokenOverlapWeight
		}
	}

	switch {
	case market.Volume > volumeTierHigh:
		score += volumeBonusHigh
	case market.Volume > volumeTierLow:
		score += volumeBonusLow
	}

	switch {
	case market.Liquidity > liquidityTierHigh:
		score += liquidityBonusHigh
	case market.Liquidity > liquidityTierLow:
		score += liquidityBonusLow
	}

	return score
}

// AdPotentialFor buckets a match score for display: high above 20,
// medium above 10, low otherwise.
func AdPotentialFor(score float64) domain.AdPotential {
	switch {
	case score > adPotentialHighMin:
		return domain.AdPotentialHigh
	case score > adPotentialMedMin:
		return domain.AdPotentialMedium
	}
	return domain.AdPotentialLow
}

// RecencyEngagement is the time-decay proxy used for the microblog
// source, where the scraper provides no usable engagement metrics:
// max(0, 100 - hours since creation). It is a placeholder heuristic,
// not a semantically meaningful engagement score.
func RecencyEngagement(createdAt, now time.Time) float64 {
	hoursOld := now.Sub(createdAt).Hours()
	return math.Max(0, 100-hoursOld)
}
