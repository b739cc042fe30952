package domain

import "time"

// SourceMetadata tracks per-source scan bookkeeping, one row per source.
// It is updated at the end of every scan run, even when no items were
// processed; ApiCallsToday is reset by the periodic cleanup job.
type SourceMetadata struct {
	ID             int64
	Source         Source
	LastScanAt     time.Time
	LastScanStatus string
	TrendsFound    int
	APICallsToday  int
	APILimitDaily  int
	UpdatedAt      time.Time
}
