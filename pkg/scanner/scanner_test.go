package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendwatch/pkg/domain"
	"trendwatch/pkg/llm"
	"trendwatch/pkg/trends"
)

// fakeTrendStore keeps trends in memory keyed by (source, source_id)
type fakeTrendStore struct {
	mu       sync.Mutex
	nextID   int64
	bySource map[string]*domain.Trend
	statuses map[int64][]domain.TrendStatus
	deleted  []time.Time
}

func newFakeTrendStore() *fakeTrendStore {
	return &fakeTrendStore{
		bySource: map[string]*domain.Trend{},
		statuses: map[int64][]domain.TrendStatus{},
	}
}

func (f *fakeTrendStore) key(source domain.Source, id string) string {
	return string(source) + "/" + id
}

func (f *fakeTrendStore) Create(_ context.Context, trend *domain.Trend) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.bySource[f.key(trend.Source, trend.SourceID)]; ok {
		trend.ID = existing.ID
		return false, nil
	}
	f.nextID++
	trend.ID = f.nextID
	copied := *trend
	f.bySource[f.key(trend.Source, trend.SourceID)] = &copied
	f.statuses[trend.ID] = append(f.statuses[trend.ID], trend.Status)
	return true, nil
}

func (f *fakeTrendStore) Exists(_ context.Context, source domain.Source, sourceID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.bySource[f.key(source, sourceID)]
	return ok, nil
}

func (f *fakeTrendStore) UpdateStatus(_ context.Context, id int64, status domain.TrendStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[id] = append(f.statuses[id], status)
	return nil
}

func (f *fakeTrendStore) DeleteOld(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, cutoff)
	return 3, nil
}

type fakeAnalysisStore struct {
	mu       sync.Mutex
	analyses []*domain.Analysis
}

func (f *fakeAnalysisStore) Create(_ context.Context, analysis *domain.Analysis) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *analysis
	f.analyses = append(f.analyses, &copied)
	return nil
}

type fakeMarketStore struct {
	mu       sync.Mutex
	matches  []*domain.MarketMatch
	upserted []*domain.Market
	pruneArg int
}

func (f *fakeMarketStore) UpsertBatch(_ context.Context, markets []*domain.Market) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = append(f.upserted, markets...)
	return nil
}

func (f *fakeMarketStore) PruneBeyondTop(_ context.Context, keep int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pruneArg = keep
	return 1, nil
}

func (f *fakeMarketStore) CreateMatch(_ context.Context, match *domain.MarketMatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *match
	f.matches = append(f.matches, &copied)
	return nil
}

type metaUpdate struct {
	source domain.Source
	status string
	found  int
}

type fakeMetaStore struct {
	mu       sync.Mutex
	updates  []metaUpdate
	apiCalls map[domain.Source]int
	resets   int
}

func (f *fakeMetaStore) UpdateScan(_ context.Context, source domain.Source, status string, trendsFound int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, metaUpdate{source: source, status: status, found: trendsFound})
	return nil
}

func (f *fakeMetaStore) IncrementAPICalls(_ context.Context, source domain.Source, calls int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.apiCalls == nil {
		f.apiCalls = map[domain.Source]int{}
	}
	f.apiCalls[source] += calls
	return nil
}

func (f *fakeMetaStore) ResetDailyCounters(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return nil
}

type fakeForum struct {
	items []domain.RawItem
	err   error
}

func (f *fakeForum) Fetch(_ context.Context) ([]domain.RawItem, error) { return f.items, f.err }

type fakeMicroblog struct {
	items       []domain.RawItem
	gotAccounts []string
}

func (f *fakeMicroblog) Fetch(_ context.Context, accounts []string) ([]domain.RawItem, error) {
	f.gotAccounts = accounts
	return f.items, nil
}

type fakeWeb struct {
	queries   []string
	byQuery   map[string][]domain.RawItem
	recent    []domain.RawItem
	recentErr error
}

func (f *fakeWeb) Queries() []string { return f.queries }

func (f *fakeWeb) Search(_ context.Context, query string) ([]domain.RawItem, error) {
	items, ok := f.byQuery[query]
	if !ok {
		return nil, fmt.Errorf("unexpected query %q", query)
	}
	return items, nil
}

func (f *fakeWeb) RecentNews(_ context.Context) ([]domain.RawItem, error) {
	return f.recent, f.recentErr
}

type fakeMarkets struct {
	active   []*domain.Market
	matching []domain.Market
	findErr  error
}

func (f *fakeMarkets) ActiveMarkets(_ context.Context) ([]*domain.Market, error) {
	return f.active, nil
}

func (f *fakeMarkets) FindMatching(_ context.Context, _ string, _ []string) ([]domain.Market, error) {
	return f.matching, f.findErr
}

type fakeAnalyzer struct {
	mu     sync.Mutex
	calls  int
	result *domain.Analysis
	errs   []error // consumed per call, nil entry means success
}

func (f *fakeAnalyzer) Analyze(_ context.Context, trend *domain.Trend) (*domain.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.calls
	f.calls++
	if call < len(f.errs) && f.errs[call] != nil {
		return nil, f.errs[call]
	}
	copied := *f.result
	copied.TrendID = trend.ID
	return &copied, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	alerts []string
	system []string
}

func (f *fakeNotifier) TrendAlert(_ context.Context, trend *domain.Trend, _ *domain.Analysis) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, trend.Title)
}

func (f *fakeNotifier) System(_ context.Context, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.system = append(f.system, message)
}

type fakeSettings struct {
	accounts []string
}

func (f *fakeSettings) Thresholds(_ context.Context, defaults trends.Thresholds) trends.Thresholds {
	return defaults
}

func (f *fakeSettings) KeywordFilter(_ context.Context) *trends.KeywordFilter {
	return trends.NewKeywordFilter(nil, nil)
}

func (f *fakeSettings) MicroblogAccounts(_ context.Context) []string { return f.accounts }

// harness bundles a scanner with all its fakes
type harness struct {
	scanner   *Scanner
	trends    *fakeTrendStore
	analyses  *fakeAnalysisStore
	markets   *fakeMarketStore
	meta      *fakeMetaStore
	forum     *fakeForum
	microblog *fakeMicroblog
	web       *fakeWeb
	directory *fakeMarkets
	analyzer  *fakeAnalyzer
	notifier  *fakeNotifier
	slept     []time.Duration
}

func newHarness(analyzer *fakeAnalyzer) *harness {
	h := &harness{
		trends:    newFakeTrendStore(),
		analyses:  &fakeAnalysisStore{},
		markets:   &fakeMarketStore{},
		meta:      &fakeMetaStore{},
		forum:     &fakeForum{},
		microblog: &fakeMicroblog{},
		web:       &fakeWeb{byQuery: map[string][]domain.RawItem{}},
		directory: &fakeMarkets{},
		analyzer:  analyzer,
		notifier:  &fakeNotifier{},
	}

	params := Params{
		TrendStore:    h.trends,
		AnalysisStore: h.analyses,
		MarketStore:   h.markets,
		MetaStore:     h.meta,
		Forum:         h.forum,
		Microblog:     h.microblog,
		Web:           h.web,
		Markets:       h.directory,
		Notifier:      h.notifier,
		Settings:      &fakeSettings{accounts: []string{"breakingnews"}},
		Config:        Config{ItemDelay: 200 * time.Millisecond, MarketsKeepTop: 50},
	}
	if analyzer != nil {
		params.Analyzer = analyzer
	}

	h.scanner = New(params)
	h.scanner.sleep = func(_ context.Context, d time.Duration) error {
		h.slept = append(h.slept, d)
		return nil
	}
	return h
}

func forumItem(id, title string, upvotes, comments int, ratio float64) domain.RawItem {
	return domain.RawItem{
		ID:        id,
		Title:     title,
		Content:   "discussion",
		URL:       "https://reddit.com/" + id,
		Author:    "author",
		CreatedAt: time.Now(),
		Metrics:   domain.Metrics{Upvotes: upvotes, Comments: comments, UpvoteRatio: ratio},
	}
}

func TestScanner_ScanForum_FullPipeline(t *testing.T) {
	analyzer := &fakeAnalyzer{result: &domain.Analysis{
		MarketPotential: domain.PotentialHigh,
		ConfidenceScore: 0.9,
		Summary:         "tight race",
		Keywords:        []string{"election", "president"},
	}}
	h := newHarness(analyzer)

	h.forum.items = []domain.RawItem{
		forumItem("good", "Election polls tighten before vote", 200, 50, 0.9),
		forumItem("irrelevant", "My cat photo collection", 900, 90, 0.99),
		forumItem("weak", "Election turnout prediction", 10, 1, 0.3),
		forumItem("good", "Election polls tighten before vote", 210, 52, 0.9), // dup id, last wins
	}
	h.directory.matching = []domain.Market{
		{ID: "m1", Question: "Will the presidential election be decided by polls margin?",
			Slug: "pres-election", Volume: 50000, Liquidity: 20000, Category: "Politics", Active: true},
		{ID: "m2", Question: "Completely unrelated sports outcome", Volume: 200, Active: true},
	}

	result, err := h.scanner.ScanSource(context.Background(), domain.SourceForum)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Processed, "duplicate collapsed before processing")
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 2, result.Skipped)
	assert.Zero(t, result.Errors)

	// trend stored with the deduped (latest) metrics, analyzing -> analyzed
	stored := h.trends.bySource["forum/good"]
	require.NotNil(t, stored)
	assert.InDelta(t, 210, stored.EngagementScore, 0.001, "engagement is upvote count")
	assert.InDelta(t, 0.9, stored.VelocityScore, 0.001)
	assert.Equal(t, []domain.TrendStatus{domain.TrendAnalyzing, domain.TrendAnalyzed, domain.TrendAlerted},
		h.trends.statuses[stored.ID], "high potential ends up alerted")

	// analysis persisted and high-potential alert sent
	require.Len(t, h.analyses.analyses, 1)
	assert.Equal(t, stored.ID, h.analyses.analyses[0].TrendID)
	assert.Equal(t, domain.PotentialHigh, h.analyses.analyses[0].MarketPotential)
	assert.Equal(t, []string{"Election polls tighten before vote"}, h.notifier.alerts)

	// only the market scoring above the cutoff is stored
	require.Len(t, h.markets.matches, 1)
	match := h.markets.matches[0]
	assert.Equal(t, "m1", match.MarketID)
	assert.Equal(t, "https://polymarket.com/event/pres-election", match.MarketURL)
	assert.Greater(t, match.MatchScore, float64(trends.MatchScoreCutoff))
	assert.Equal(t, []string{"election", "president"}, match.MatchedKeywords)

	// metadata updated once with the insert count, api call counted
	require.Len(t, h.meta.updates, 1)
	assert.Equal(t, metaUpdate{source: domain.SourceForum, status: "success", found: 1}, h.meta.updates[0])
	assert.Equal(t, 1, h.meta.apiCalls[domain.SourceForum])

	// inter-item delay applied after the inserted item
	assert.Contains(t, h.slept, 200*time.Millisecond)
}

func TestScanner_ScanSource_FetchErrorStillUpdatesMetadata(t *testing.T) {
	h := newHarness(nil)
	h.forum.err = errors.New("upstream down")

	result, err := h.scanner.ScanSource(context.Background(), domain.SourceForum)
	require.NoError(t, err, "fetch failure is not fatal")
	assert.Zero(t, result.Processed)

	require.Len(t, h.meta.updates, 1)
	assert.Equal(t, domain.SourceForum, h.meta.updates[0].source)
	assert.Contains(t, h.meta.updates[0].status, "error")
	assert.Zero(t, h.meta.updates[0].found)
}

func TestScanner_ScanSource_UnknownSource(t *testing.T) {
	h := newHarness(nil)
	_, err := h.scanner.ScanSource(context.Background(), domain.Source("rss"))
	require.Error(t, err)
}

func TestScanner_AnalyzerDisabled_Fallback(t *testing.T) {
	h := newHarness(nil) // nil analyzer
	h.forum.items = []domain.RawItem{forumItem("p1", "Election forecast discussion", 100, 20, 0.8)}

	_, err := h.scanner.ScanSource(context.Background(), domain.SourceForum)
	require.NoError(t, err)

	require.Len(t, h.analyses.analyses, 1)
	got := h.analyses.analyses[0]
	assert.Equal(t, domain.PotentialNone, got.MarketPotential)
	assert.Zero(t, got.ConfidenceScore)
	assert.Equal(t, "AI analysis disabled", got.Reasoning)
	assert.Contains(t, got.Keywords, "election", "matched keywords recorded")
	assert.Empty(t, h.notifier.alerts, "fallback never alerts")
}

func TestScanner_RateLimitRetriesThenFallback(t *testing.T) {
	rateLimited := fmt.Errorf("%w: 429", llm.ErrRateLimited)
	analyzer := &fakeAnalyzer{
		result: &domain.Analysis{MarketPotential: domain.PotentialHigh, ConfidenceScore: 0.9},
		errs:   []error{rateLimited, rateLimited, rateLimited},
	}
	h := newHarness(analyzer)
	h.forum.items = []domain.RawItem{forumItem("p1", "Election result odds", 100, 20, 0.8)}

	_, err := h.scanner.ScanSource(context.Background(), domain.SourceForum)
	require.NoError(t, err)

	assert.Equal(t, 3, analyzer.calls, "initial attempt plus two retries")
	assert.Contains(t, h.slept, 5*time.Second)
	assert.Contains(t, h.slept, 10*time.Second)

	require.Len(t, h.analyses.analyses, 1)
	got := h.analyses.analyses[0]
	assert.Equal(t, domain.PotentialNone, got.MarketPotential, "fallback after exhausted retries")
	assert.Equal(t, "analysis unavailable", got.Reasoning)
}

func TestScanner_RateLimitRecoversOnRetry(t *testing.T) {
	analyzer := &fakeAnalyzer{
		result: &domain.Analysis{MarketPotential: domain.PotentialMedium, ConfidenceScore: 0.7, Keywords: []string{"election"}},
		errs:   []error{fmt.Errorf("%w: 429", llm.ErrRateLimited), nil},
	}
	h := newHarness(analyzer)
	h.forum.items = []domain.RawItem{forumItem("p1", "Election result odds", 100, 20, 0.8)}

	_, err := h.scanner.ScanSource(context.Background(), domain.SourceForum)
	require.NoError(t, err)

	assert.Equal(t, 2, analyzer.calls)
	require.Len(t, h.analyses.analyses, 1)
	assert.Equal(t, domain.PotentialMedium, h.analyses.analyses[0].MarketPotential)
}

func TestScanner_NonRateLimitErrorFallsBackImmediately(t *testing.T) {
	analyzer := &fakeAnalyzer{
		result: &domain.Analysis{MarketPotential: domain.PotentialHigh},
		errs:   []error{errors.New("model exploded")},
	}
	h := newHarness(analyzer)
	h.forum.items = []domain.RawItem{forumItem("p1", "Election result odds", 100, 20, 0.8)}

	_, err := h.scanner.ScanSource(context.Background(), domain.SourceForum)
	require.NoError(t, err)

	assert.Equal(t, 1, analyzer.calls, "no retry for non-rate-limit errors")
	require.Len(t, h.analyses.analyses, 1)
	assert.Equal(t, domain.PotentialNone, h.analyses.analyses[0].MarketPotential)
}

func TestScanner_ScanSource_Idempotent(t *testing.T) {
	h := newHarness(nil)
	h.forum.items = []domain.RawItem{forumItem("p1", "Election forecast discussion", 100, 20, 0.8)}

	first, err := h.scanner.ScanSource(context.Background(), domain.SourceForum)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Inserted)

	second, err := h.scanner.ScanSource(context.Background(), domain.SourceForum)
	require.NoError(t, err)
	assert.Zero(t, second.Inserted, "same source id skipped on rescan")
	assert.Equal(t, 1, second.Skipped)
	assert.Len(t, h.analyses.analyses, 1, "no duplicate analysis")
}

func TestScanner_ScanMicroblog_NoKeywordGate(t *testing.T) {
	h := newHarness(nil)
	h.microblog.items = []domain.RawItem{
		{
			ID: "tw1", Title: "random viral moment", Content: "no prediction words here",
			CreatedAt: time.Now().Add(-2 * time.Hour),
			Metrics:   domain.Metrics{Likes: 900, Retweets: 120},
		},
		{
			ID: "tw2", Title: "quiet post", CreatedAt: time.Now(),
			Metrics: domain.Metrics{Likes: 5, Retweets: 0},
		},
	}

	result, err := h.scanner.ScanSource(context.Background(), domain.SourceMicroblog)
	require.NoError(t, err)

	assert.Equal(t, []string{"breakingnews"}, h.microblog.gotAccounts, "accounts come from settings")
	assert.Equal(t, 1, result.Inserted, "keyword filter not applied to microblog")
	assert.Equal(t, 1, result.Skipped)

	stored := h.trends.bySource["microblog/tw1"]
	require.NotNil(t, stored)
	assert.InDelta(t, 98, stored.EngagementScore, 1, "recency-decayed engagement")
}

func TestScanner_ScanWeb_MergesConcurrentQueries(t *testing.T) {
	h := newHarness(nil)
	h.web.queries = []string{"q1", "q2"}
	h.web.recent = []domain.RawItem{
		{ID: "w1", Title: "breaking story", CreatedAt: time.Now(), Metrics: domain.Metrics{RelevanceScore: 0.9}},
	}
	h.web.byQuery["q1"] = []domain.RawItem{
		{ID: "w2", Title: "topic story", CreatedAt: time.Now(), Metrics: domain.Metrics{RelevanceScore: 0.55}},
		{ID: "w1", Title: "breaking story", CreatedAt: time.Now(), Metrics: domain.Metrics{RelevanceScore: 0.9}}, // dup
	}
	h.web.byQuery["q2"] = []domain.RawItem{
		{ID: "w3", Title: "weak story", CreatedAt: time.Now(), Metrics: domain.Metrics{RelevanceScore: 0.2}},
	}

	result, err := h.scanner.ScanSource(context.Background(), domain.SourceWeb)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Processed, "merged and deduped across queries")
	assert.Equal(t, 2, result.Inserted, "below-score item dropped")

	stored := h.trends.bySource["web/w1"]
	require.NotNil(t, stored)
	assert.InDelta(t, 90, stored.EngagementScore, 0.001, "relevance scaled to 0-100")
}

func TestScanner_ScanAll_SendsSummary(t *testing.T) {
	h := newHarness(nil)
	h.forum.items = []domain.RawItem{forumItem("p1", "Election forecast discussion", 100, 20, 0.8)}

	results := h.scanner.ScanAll(context.Background())
	assert.Len(t, results, 3)

	require.Len(t, h.notifier.system, 1)
	assert.Contains(t, h.notifier.system[0], "1 new trends")
}

func TestScanner_SyncMarkets(t *testing.T) {
	h := newHarness(nil)
	// m2 is closed and m3 inactive, both must be dropped before upsert
	h.directory.active = []*domain.Market{
		{ID: "m1", Question: "Q1", Volume: 1000, Active: true, Closed: false},
		{ID: "m2", Question: "Q2", Volume: 2000, Active: true, Closed: true},
		{ID: "m3", Question: "Q3", Volume: 3000, Active: false, Closed: false},
	}

	count, err := h.scanner.SyncMarkets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.Len(t, h.markets.upserted, 1)
	assert.Equal(t, "m1", h.markets.upserted[0].ID)
	assert.Equal(t, 50, h.markets.pruneArg)
}

func TestScanner_Cleanup(t *testing.T) {
	h := newHarness(nil)

	removed, err := h.scanner.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	require.Len(t, h.trends.deleted, 1)
	wantCutoff := time.Now().Add(-30 * 24 * time.Hour)
	assert.WithinDuration(t, wantCutoff, h.trends.deleted[0], time.Minute)
	assert.Equal(t, 1, h.meta.resets)

	require.Len(t, h.notifier.system, 1)
	assert.Contains(t, h.notifier.system[0], "3 old trends removed")
}

func TestScanner_ConfiguredThresholds(t *testing.T) {
	newScanner := func(th trends.Thresholds, item domain.RawItem) (*Scanner, *fakeTrendStore) {
		store := newFakeTrendStore()
		s := New(Params{
			TrendStore:    store,
			AnalysisStore: &fakeAnalysisStore{},
			MarketStore:   &fakeMarketStore{},
			MetaStore:     &fakeMetaStore{},
			Forum:         &fakeForum{items: []domain.RawItem{item}},
			Settings:      &fakeSettings{},
			Config:        Config{Thresholds: th},
		})
		s.sleep = func(context.Context, time.Duration) error { return nil }
		return s, store
	}

	t.Run("raised minimums drop otherwise passing items", func(t *testing.T) {
		th := trends.DefaultThresholds()
		th.Forum.MinUpvotes = 500
		s, store := newScanner(th, forumItem("p1", "Election forecast discussion", 200, 50, 0.9))

		result, err := s.ScanSource(context.Background(), domain.SourceForum)
		require.NoError(t, err)
		assert.Zero(t, result.Inserted)
		assert.Equal(t, 1, result.Skipped)
		assert.Empty(t, store.bySource)
	})

	t.Run("lowered minimums admit small items", func(t *testing.T) {
		th := trends.Thresholds{
			Forum:     trends.ForumThresholds{MinUpvotes: 10, MinComments: 1, MinRatio: 0.1},
			Microblog: trends.MicroblogThresholds{MinLikes: 500, MinRetweets: 50},
			Web:       trends.WebThresholds{MinScore: 0.5},
		}
		s, store := newScanner(th, forumItem("p1", "Election forecast discussion", 20, 2, 0.4))

		result, err := s.ScanSource(context.Background(), domain.SourceForum)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Inserted)
		assert.NotNil(t, store.bySource["forum/p1"])
	})

	t.Run("zero value falls back to compiled-in defaults", func(t *testing.T) {
		s, _ := newScanner(trends.Thresholds{}, forumItem("p1", "Election forecast discussion", 20, 2, 0.4))
		assert.Equal(t, trends.DefaultThresholds(), s.cfg.Thresholds)

		result, err := s.ScanSource(context.Background(), domain.SourceForum)
		require.NoError(t, err)
		assert.Zero(t, result.Inserted, "item below the default gates")
	})
}

func TestScheduler_StartStop(t *testing.T) {
	h := newHarness(nil)
	h.forum.items = []domain.RawItem{forumItem("p1", "Election forecast discussion", 100, 20, 0.8)}

	sched := NewScheduler(h.scanner, SchedulerConfig{
		ScanInterval:    10 * time.Millisecond,
		SyncInterval:    10 * time.Millisecond,
		CleanupInterval: 10 * time.Millisecond,
	})

	sched.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	sched.Stop()

	h.meta.mu.Lock()
	updates := len(h.meta.updates)
	h.meta.mu.Unlock()
	assert.Greater(t, updates, 0, "at least one scan ran")

	h.markets.mu.Lock()
	prune := h.markets.pruneArg
	h.markets.mu.Unlock()
	assert.Equal(t, 50, prune, "market sync ran")
}
