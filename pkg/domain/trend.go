package domain

import "time"

// Source identifies the origin platform of a raw item
type Source string

// known sources, the fixed enumeration callers must use
const (
	SourceForum     Source = "forum"
	SourceMicroblog Source = "microblog"
	SourceWeb       Source = "web"
)

// Sources lists all known sources in scan order
var Sources = []Source{SourceForum, SourceMicroblog, SourceWeb}

// Valid reports whether s is one of the known sources
func (s Source) Valid() bool {
	switch s {
	case SourceForum, SourceMicroblog, SourceWeb:
		return true
	}
	return false
}

// TrendStatus represents the lifecycle state of a trend
type TrendStatus string

const (
	TrendPending   TrendStatus = "pending"
	TrendAnalyzing TrendStatus = "analyzing"
	TrendAnalyzed  TrendStatus = "analyzed"
	TrendAlerted   TrendStatus = "alerted"
	TrendDismissed TrendStatus = "dismissed"
)

// RawItem is a single fetched post/article before filtering.
// SourceMetrics carries whatever engagement numbers the source provides.
type RawItem struct {
	ID        string
	Title     string
	Content   string
	URL       string
	Author    string
	CreatedAt time.Time
	Metrics   Metrics
}

// Metrics holds sparse per-source engagement numbers, zero when absent
type Metrics struct {
	Upvotes        int
	Comments       int
	UpvoteRatio    float64
	Likes          int
	Retweets       int
	RelevanceScore float64
}

// Trend is a persisted record of one raw item that passed filtering.
// No two trends share the same (Source, SourceID) pair.
type Trend struct {
	ID              int64
	Source          Source
	SourceID        string
	Title           string
	Content         string
	URL             string
	Author          string
	EngagementScore float64
	VelocityScore   float64
	DetectedAt      time.Time
	Status          TrendStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
