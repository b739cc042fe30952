package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"trendwatch/pkg/config"
	"trendwatch/pkg/trends"
)

func TestConfigThresholds(t *testing.T) {
	cfg := &config.Config{}
	cfg.Thresholds.Forum.MinUpvotes = 120
	cfg.Thresholds.Forum.MinComments = 10
	cfg.Thresholds.Forum.MinRatio = 0.7
	cfg.Thresholds.Microblog.MinLikes = 1000
	cfg.Thresholds.Microblog.MinRetweets = 80
	cfg.Thresholds.Web.MinScore = 0.4

	got := configThresholds(cfg)
	assert.Equal(t, trends.Thresholds{
		Forum:     trends.ForumThresholds{MinUpvotes: 120, MinComments: 10, MinRatio: 0.7},
		Microblog: trends.MicroblogThresholds{MinLikes: 1000, MinRetweets: 80},
		Web:       trends.WebThresholds{MinScore: 0.4},
	}, got)
}
