package trends

import "trendwatch/pkg/domain"

// ForumThresholds gates forum items; all three conditions must hold
type ForumThresholds struct {
	MinUpvotes  int
	MinComments int
	MinRatio    float64
}

// MicroblogThresholds gates microblog items
type MicroblogThresholds struct {
	MinLikes    int
	MinRetweets int
}

// WebThresholds gates web-search items on the provider's relevance score
type WebThresholds struct {
	MinScore float64
}

// Thresholds bundles the per-source minimum-engagement gates
type Thresholds struct {
	Forum     ForumThresholds
	Microblog MicroblogThresholds
	Web       WebThresholds
}

// DefaultThresholds returns the compiled-in engagement minimums
func DefaultThresholds() Thresholds {
	return Thresholds{
		Forum:     ForumThresholds{MinUpvotes: 50, MinComments: 5, MinRatio: 0.6},
		Microblog: MicroblogThresholds{MinLikes: 500, MinRetweets: 50},
		Web:       WebThresholds{MinScore: 0.5},
	}
}

// Meets reports whether metrics satisfy the thresholds for the given
// source. Absent metrics are zero and fail any positive threshold.
// Unknown sources fail closed.
func (t Thresholds) Meets(source domain.Source, m domain.Metrics) bool {
	switch source {
	case domain.SourceForum:
		return m.Upvotes >= t.Forum.MinUpvotes &&
			m.Comments >= t.Forum.MinComments &&
			m.UpvoteRatio >= t.Forum.MinRatio
	case domain.SourceMicroblog:
		return m.Likes >= t.Microblog.MinLikes &&
			m.Retweets >= t.Microblog.MinRetweets
	case domain.SourceWeb:
		return m.RelevanceScore >= t.Web.MinScore
	}
	return false
}
