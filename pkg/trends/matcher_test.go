package trends

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"trendwatch/pkg/domain"
)

func TestMatchScore_Components(t *testing.T) {
	trend := TrendText{
		Title:    "Election forecast",
		Content:  "polls show tight presidential race",
		Keywords: []string{"election", "forecast"},
	}

	t.Run("keyword and token overlap", func(t *testing.T) {
		market := domain.Market{
			Question:    "Will the election winner be decided by the presidential debate?",
			Description: "Resolves on official results",
		}
		// "election" keyword +10, "forecast" absent,
		// token overlap: "election"(8) +1, "presidential"(12) +1
		score := MatchScore(trend, market)
		assert.Equal(t, float64(12), score)
	})

	t.Run("tags count as market text", func(t *testing.T) {
		market := domain.Market{Question: "Unrelated question", Tags: []string{"forecast"}}
		// keyword "forecast" +10, token "forecast" +1
		assert.Equal(t, float64(11), MatchScore(trend, market))
	})

	t.Run("short tokens ignored", func(t *testing.T) {
		short := TrendText{Title: "race", Content: "poll"}
		market := domain.Market{Question: "race poll"}
		assert.Equal(t, float64(0), MatchScore(short, market))
	})

	t.Run("volume and liquidity tiers", func(t *testing.T) {
		base := domain.Market{Question: "nothing in common"}

		assert.Equal(t, float64(0), MatchScore(trend, base))

		base.Volume = 1001
		assert.Equal(t, float64(3), MatchScore(trend, base))
		base.Volume = 10001
		assert.Equal(t, float64(5), MatchScore(trend, base))

		base.Liquidity = 1001
		assert.Equal(t, float64(7), MatchScore(trend, base))
		base.Liquidity = 10001
		assert.Equal(t, float64(8), MatchScore(trend, base))
	})

	t.Run("tier boundaries are exclusive", func(t *testing.T) {
		market := domain.Market{Question: "nothing in common", Volume: 1000, Liquidity: 10000}
		// volume 1000 is not > 1000, liquidity 10000 is not > 10000 (gets +2)
		assert.Equal(t, float64(2), MatchScore(trend, market))
	})
}

func TestMatchScore_MonotonicInKeywords(t *testing.T) {
	market := domain.Market{
		Question:    "Will bitcoin crash before the election?",
		Description: "crypto market outcome",
	}

	base := TrendText{Title: "markets", Content: "analysis"}
	var prev float64
	keywords := []string{"bitcoin", "crash", "election", "crypto"}
	for i := range keywords {
		base.Keywords = keywords[:i+1]
		score := MatchScore(base, market)
		assert.GreaterOrEqual(t, score, prev, "adding keyword %q must not lower the score", keywords[i])
		prev = score
	}
}

func TestMatchScore_MonotonicInVolumeTier(t *testing.T) {
	trend := TrendText{Title: "Election forecast", Keywords: []string{"election"}}
	market := domain.Market{Question: "election result"}

	low := MatchScore(trend, market)
	market.Volume = 5000
	mid := MatchScore(trend, market)
	market.Volume = 50000
	high := MatchScore(trend, market)

	assert.Less(t, low, mid)
	assert.Less(t, mid, high)
}

func TestAdPotentialFor(t *testing.T) {
	assert.Equal(t, domain.AdPotentialLow, AdPotentialFor(0))
	assert.Equal(t, domain.AdPotentialLow, AdPotentialFor(10))
	assert.Equal(t, domain.AdPotentialMedium, AdPotentialFor(11))
	assert.Equal(t, domain.AdPotentialMedium, AdPotentialFor(20))
	assert.Equal(t, domain.AdPotentialHigh, AdPotentialFor(21))
}

func TestRecencyEngagement(t *testing.T) {
	now := time.Now()

	assert.InDelta(t, 100, RecencyEngagement(now, now), 0.01)
	assert.InDelta(t, 90, RecencyEngagement(now.Add(-10*time.Hour), now), 0.01)
	assert.Equal(t, float64(0), RecencyEngagement(now.Add(-200*time.Hour), now))
}
