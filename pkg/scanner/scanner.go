// Package scanner orchestrates the trend detection pipeline: fetch raw
// items from a source, filter, persist, analyze, and match against
// prediction markets.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"golang.org/x/sync/errgroup"

	"trendwatch/pkg/domain"
	"trendwatch/pkg/llm"
	"trendwatch/pkg/trends"
)

// TrendStore persists detected trends
type TrendStore interface {
	Create(ctx context.Context, trend *domain.Trend) (bool, error)
	Exists(ctx context.Context, source domain.Source, sourceID string) (bool, error)
	UpdateStatus(ctx context.Context, id int64, status domain.TrendStatus) error
	DeleteOld(ctx context.Context, cutoff time.Time) (int64, error)
}

// AnalysisStore persists analyses
type AnalysisStore interface {
	Create(ctx context.Context, analysis *domain.Analysis) error
}

// MarketStore persists the market mirror and trend-to-market matches
type MarketStore interface {
	UpsertBatch(ctx context.Context, markets []*domain.Market) error
	PruneBeyondTop(ctx context.Context, keep int) (int64, error)
	CreateMatch(ctx context.Context, match *domain.MarketMatch) error
}

// MetaStore records per-source scan bookkeeping
type MetaStore interface {
	UpdateScan(ctx context.Context, source domain.Source, status string, trendsFound int) error
	IncrementAPICalls(ctx context.Context, source domain.Source, calls int) error
	ResetDailyCounters(ctx context.Context) error
}

// ForumFetcher pulls posts from the forum source
type ForumFetcher interface {
	Fetch(ctx context.Context) ([]domain.RawItem, error)
}

// MicroblogFetcher pulls posts from monitored microblog accounts
type MicroblogFetcher interface {
	Fetch(ctx context.Context, accounts []string) ([]domain.RawItem, error)
}

// WebSearcher queries the web-search source
type WebSearcher interface {
	Queries() []string
	Search(ctx context.Context, query string) ([]domain.RawItem, error)
	RecentNews(ctx context.Context) ([]domain.RawItem, error)
}

// MarketDirectory finds prediction markets for matching and syncing
type MarketDirectory interface {
	ActiveMarkets(ctx context.Context) ([]*domain.Market, error)
	FindMatching(ctx context.Context, title string, keywords []string) ([]domain.Market, error)
}

// Analyzer scores trends for market potential
type Analyzer interface {
	Analyze(ctx context.Context, trend *domain.Trend) (*domain.Analysis, error)
}

// Notifier sends best-effort alerts
type Notifier interface {
	TrendAlert(ctx context.Context, trend *domain.Trend, analysis *domain.Analysis)
	System(ctx context.Context, message string)
}

// Settings provides runtime-tunable filter parameters
type Settings interface {
	Thresholds(ctx context.Context, defaults trends.Thresholds) trends.Thresholds
	KeywordFilter(ctx context.Context) *trends.KeywordFilter
	MicroblogAccounts(ctx context.Context) []string
}

// Config holds scanner tunables
type Config struct {
	ItemDelay      time.Duration     // pause between processed items
	MarketsKeepTop int               // markets retained after sync
	MaxTrendAge    time.Duration     // cleanup cutoff
	WebConcurrency int               // parallel web queries
	Thresholds     trends.Thresholds // baseline engagement gates, settings may override
}

// Scanner runs the detection pipeline for all sources
type Scanner struct {
	trendStore    TrendStore
	analysisStore AnalysisStore
	marketStore   MarketStore
	metaStore     MetaStore

	forum     ForumFetcher
	microblog MicroblogFetcher
	web       WebSearcher
	markets   MarketDirectory

	analyzer Analyzer
	notifier Notifier
	settings Settings

	cfg Config

	// delays before re-asking a rate-limited analyzer, then give up
	retryDelays []time.Duration

	sleep func(ctx context.Context, d time.Duration) error // injectable for tests
}

// Params bundles scanner dependencies
type Params struct {
	TrendStore    TrendStore
	AnalysisStore AnalysisStore
	MarketStore   MarketStore
	MetaStore     MetaStore
	Forum         ForumFetcher
	Microblog     MicroblogFetcher
	Web           WebSearcher
	Markets       MarketDirectory
	Analyzer      Analyzer
	Notifier      Notifier
	Settings      Settings
	Config        Config
}

// New creates a scanner. Analyzer, Notifier and Markets may be nil; the
// pipeline degrades to fallback analyses, silence and no matching.
func New(p Params) *Scanner {
	if p.Config.ItemDelay <= 0 {
		p.Config.ItemDelay = 200 * time.Millisecond
	}
	if p.Config.MarketsKeepTop <= 0 {
		p.Config.MarketsKeepTop = 50
	}
	if p.Config.MaxTrendAge <= 0 {
		p.Config.MaxTrendAge = 30 * 24 * time.Hour
	}
	if p.Config.WebConcurrency <= 0 {
		p.Config.WebConcurrency = 4
	}
	if p.Config.Thresholds == (trends.Thresholds{}) {
		p.Config.Thresholds = trends.DefaultThresholds()
	}

	return &Scanner{
		trendStore:    p.TrendStore,
		analysisStore: p.AnalysisStore,
		marketStore:   p.MarketStore,
		metaStore:     p.MetaStore,
		forum:         p.Forum,
		microblog:     p.Microblog,
		web:           p.Web,
		markets:       p.Markets,
		analyzer:      p.Analyzer,
		notifier:      p.Notifier,
		settings:      p.Settings,
		cfg:           p.Config,
		retryDelays:   []time.Duration{5 * time.Second, 10 * time.Second},
		sleep:         sleepCtx,
	}
}

// ScanResult summarizes one source scan
type ScanResult struct {
	Source    domain.Source `json:"source"`
	Processed int           `json:"processed"`
	Inserted  int           `json:"inserted"`
	Skipped   int           `json:"skipped"`
	Errors    int           `json:"errors"`
}

// ScanSource runs the full pipeline for one source. Item-level failures
// are logged and counted, never fatal; source metadata is updated at the
// end regardless of outcome.
func (s *Scanner) ScanSource(ctx context.Context, source domain.Source) (ScanResult, error) {
	if !source.Valid() {
		return ScanResult{}, fmt.Errorf("unknown source %q", source)
	}

	result := ScanResult{Source: source}
	scanStatus := "success"

	items, err := s.fetch(ctx, source)
	if err != nil {
		lgr.Printf("[WARN] fetch failed for %s: %v", source, err)
		scanStatus = "error: " + err.Error()
		items = nil
	}

	// count the upstream call attempt against the daily budget
	if err := s.metaStore.IncrementAPICalls(ctx, source, 1); err != nil {
		lgr.Printf("[WARN] failed to count api call for %s: %v", source, err)
	}

	items = trends.DedupeByID(items)

	thresholds := s.settings.Thresholds(ctx, s.cfg.Thresholds)
	filter := s.settings.KeywordFilter(ctx)

	for i := range items {
		item := &items[i]
		result.Processed++

		inserted, err := s.processItem(ctx, source, item, thresholds, filter)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				scanStatus = "error: canceled"
				break
			}
			lgr.Printf("[WARN] failed to process %s item %s: %v", source, item.ID, err)
			result.Errors++
			continue
		}
		if !inserted {
			result.Skipped++
			continue
		}
		result.Inserted++

		// spread out external calls between items
		if err := s.sleep(ctx, s.cfg.ItemDelay); err != nil {
			scanStatus = "error: canceled"
			break
		}
	}

	// bookkeeping runs even for empty or failed scans
	if err := s.metaStore.UpdateScan(ctx, source, scanStatus, result.Inserted); err != nil {
		lgr.Printf("[WARN] failed to update scan metadata for %s: %v", source, err)
	}

	lgr.Printf("[INFO] scan %s done: processed %d, inserted %d, skipped %d, errors %d",
		source, result.Processed, result.Inserted, result.Skipped, result.Errors)
	return result, nil
}

// ScanAll scans every known source in order
func (s *Scanner) ScanAll(ctx context.Context) []ScanResult {
	results := make([]ScanResult, 0, len(domain.Sources))
	totalInserted := 0

	for _, source := range domain.Sources {
		result, err := s.ScanSource(ctx, source)
		if err != nil {
			lgr.Printf("[ERROR] scan %s failed: %v", source, err)
			continue
		}
		results = append(results, result)
		totalInserted += result.Inserted

		if ctx.Err() != nil {
			break
		}
	}

	if totalInserted > 0 && s.notifier != nil {
		s.notifier.System(ctx, fmt.Sprintf("Scan complete: %d new trends detected", totalInserted))
	}
	return results
}

// fetch pulls raw items for one source
func (s *Scanner) fetch(ctx context.Context, source domain.Source) ([]domain.RawItem, error) {
	switch source {
	case domain.SourceForum:
		return s.forum.Fetch(ctx)
	case domain.SourceMicroblog:
		return s.microblog.Fetch(ctx, s.settings.MicroblogAccounts(ctx))
	case domain.SourceWeb:
		return s.fetchWeb(ctx)
	}
	return nil, fmt.Errorf("unknown source %q", source)
}

// fetchWeb runs the breaking-news query and the configured topic queries
// concurrently and merges the results. A single failed query is logged,
// the rest of the batch survives.
func (s *Scanner) fetchWeb(ctx context.Context) ([]domain.RawItem, error) {
	var mu sync.Mutex
	var merged []domain.RawItem

	collect := func(items []domain.RawItem) {
		mu.Lock()
		merged = append(merged, items...)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.WebConcurrency)

	g.Go(func() error {
		items, err := s.web.RecentNews(gctx)
		if err != nil {
			lgr.Printf("[WARN] breaking news query failed: %v", err)
			return nil
		}
		collect(items)
		return nil
	})

	for _, query := range s.web.Queries() {
		g.Go(func() error {
			items, err := s.web.Search(gctx, query)
			if err != nil {
				lgr.Printf("[WARN] web query %q failed: %v", query, err)
				return nil
			}
			collect(items)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return merged, nil
}

// processItem runs one raw item through filter, insert, analysis and
// matching. Returns true when a new trend was stored.
func (s *Scanner) processItem(ctx context.Context, source domain.Source, item *domain.RawItem,
	thresholds trends.Thresholds, filter *trends.KeywordFilter) (bool, error) {

	combined := item.Title + " " + item.Content

	// forum is a firehose of general discussion, keyword-gate it;
	// the other sources are already topical by construction
	if source == domain.SourceForum && !filter.Relevant(combined) {
		return false, nil
	}

	if !thresholds.Meets(source, item.Metrics) {
		return false, nil
	}

	exists, err := s.trendStore.Exists(ctx, source, item.ID)
	if err != nil {
		return false, fmt.Errorf("exists check: %w", err)
	}
	if exists {
		return false, nil
	}

	trend := &domain.Trend{
		Source:          source,
		SourceID:        item.ID,
		Title:           item.Title,
		Content:         item.Content,
		URL:             item.URL,
		Author:          item.Author,
		EngagementScore: engagementScore(source, item),
		VelocityScore:   item.Metrics.UpvoteRatio,
		DetectedAt:      time.Now(),
		Status:          domain.TrendAnalyzing,
	}

	inserted, err := s.trendStore.Create(ctx, trend)
	if err != nil {
		return false, fmt.Errorf("create trend: %w", err)
	}
	if !inserted {
		return false, nil // raced with a concurrent scan, not an error
	}

	analysis := s.analyzeTrend(ctx, trend, filter.Matched(combined))
	if err := s.analysisStore.Create(ctx, analysis); err != nil {
		return true, fmt.Errorf("store analysis: %w", err)
	}

	if err := s.trendStore.UpdateStatus(ctx, trend.ID, domain.TrendAnalyzed); err != nil {
		return true, fmt.Errorf("mark analyzed: %w", err)
	}

	if analysis.MarketPotential == domain.PotentialHigh && s.notifier != nil {
		s.notifier.TrendAlert(ctx, trend, analysis)
		if err := s.trendStore.UpdateStatus(ctx, trend.ID, domain.TrendAlerted); err != nil {
			return true, fmt.Errorf("mark alerted: %w", err)
		}
	}

	if err := s.matchMarkets(ctx, trend, analysis); err != nil {
		lgr.Printf("[WARN] market matching for trend %d failed: %v", trend.ID, err)
	}

	return true, nil
}

// analyzeTrend scores a trend with the LLM when available. Rate-limited
// requests are retried on a fixed schedule; any terminal failure yields
// the safe fallback so the pipeline keeps moving.
func (s *Scanner) analyzeTrend(ctx context.Context, trend *domain.Trend, matchedKeywords []string) *domain.Analysis {
	if s.analyzer == nil {
		return domain.FallbackAnalysis(trend.ID, trend.Title, "AI analysis disabled", matchedKeywords)
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		analysis, err := s.analyzer.Analyze(ctx, trend)
		if err == nil {
			analysis.TrendID = trend.ID
			return analysis
		}
		lastErr = err

		if !errors.Is(err, llm.ErrRateLimited) || attempt >= len(s.retryDelays) {
			break
		}

		delay := s.retryDelays[attempt]
		lgr.Printf("[WARN] analyzer rate limited for trend %d, retrying in %v", trend.ID, delay)
		if err := s.sleep(ctx, delay); err != nil {
			break
		}
	}

	lgr.Printf("[WARN] analysis failed for trend %d, storing fallback: %v", trend.ID, lastErr)
	return domain.FallbackAnalysis(trend.ID, trend.Title, "analysis unavailable", matchedKeywords)
}

// matchMarkets searches the market directory for the trend's keywords,
// scores the candidates and persists matches above the cutoff
func (s *Scanner) matchMarkets(ctx context.Context, trend *domain.Trend, analysis *domain.Analysis) error {
	if s.markets == nil {
		return nil
	}

	candidates, err := s.markets.FindMatching(ctx, trend.Title, analysis.Keywords)
	if err != nil {
		return fmt.Errorf("find matching markets: %w", err)
	}

	text := trends.TrendText{Title: trend.Title, Content: trend.Content, Keywords: analysis.Keywords}
	for _, market := range candidates {
		score := trends.MatchScore(text, market)
		if score <= trends.MatchScoreCutoff {
			continue
		}

		match := &domain.MarketMatch{
			TrendID:         trend.ID,
			MarketID:        market.ID,
			MarketSlug:      market.Slug,
			MarketQuestion:  market.Question,
			MarketVolume:    market.Volume,
			MarketLiquidity: market.Liquidity,
			MarketCategory:  market.Category,
			MarketURL:       marketURL(market.Slug),
			MatchScore:      score,
			MatchedKeywords: analysis.Keywords,
			AdPotential:     trends.AdPotentialFor(score),
		}
		if err := s.marketStore.CreateMatch(ctx, match); err != nil {
			lgr.Printf("[WARN] failed to store match %s for trend %d: %v", market.ID, trend.ID, err)
		}
	}
	return nil
}

// SyncMarkets refreshes the local market mirror and prunes it to the
// configured top slice by volume
func (s *Scanner) SyncMarkets(ctx context.Context) (int, error) {
	if s.markets == nil {
		return 0, fmt.Errorf("market directory not configured")
	}

	fetched, err := s.markets.ActiveMarkets(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch active markets: %w", err)
	}

	open := make([]*domain.Market, 0, len(fetched))
	for _, m := range fetched {
		if m.Active && !m.Closed {
			open = append(open, m)
		}
	}

	if err := s.marketStore.UpsertBatch(ctx, open); err != nil {
		return 0, fmt.Errorf("upsert markets: %w", err)
	}

	pruned, err := s.marketStore.PruneBeyondTop(ctx, s.cfg.MarketsKeepTop)
	if err != nil {
		return 0, fmt.Errorf("prune markets: %w", err)
	}

	lgr.Printf("[INFO] market sync done: %d upserted, %d pruned", len(open), pruned)
	return len(open), nil
}

// Cleanup removes stale trends and resets daily API-call counters
func (s *Scanner) Cleanup(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.cfg.MaxTrendAge)
	removed, err := s.trendStore.DeleteOld(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old trends: %w", err)
	}

	if err := s.metaStore.ResetDailyCounters(ctx); err != nil {
		return removed, fmt.Errorf("reset daily counters: %w", err)
	}

	if s.notifier != nil {
		s.notifier.System(ctx, fmt.Sprintf("🧹 Cleanup complete: %d old trends removed", removed))
	}

	lgr.Printf("[INFO] cleanup done: removed %d trends older than %v", removed, s.cfg.MaxTrendAge)
	return removed, nil
}

// engagementScore derives the stored engagement number per source:
// forum counts upvotes, microblog decays with age, web scales the
// provider's relevance score to 0-100
func engagementScore(source domain.Source, item *domain.RawItem) float64 {
	switch source {
	case domain.SourceForum:
		return float64(item.Metrics.Upvotes)
	case domain.SourceMicroblog:
		return trends.RecencyEngagement(item.CreatedAt, time.Now())
	case domain.SourceWeb:
		return math.Round(item.Metrics.RelevanceScore * 100)
	}
	return 0
}

// marketURL builds the public page URL for a matched market
func marketURL(slug string) string {
	if slug == "" {
		return ""
	}
	return "https://polymarket.com/event/" + slug
}

// sleepCtx waits for d or until ctx is done
func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
