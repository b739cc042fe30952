package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"

	"trendwatch/pkg/domain"
	"trendwatch/pkg/repository"
	"trendwatch/pkg/trends"
)

// trendResponse is the API shape of a trend, optionally with its analysis
type trendResponse struct {
	ID              int64             `json:"id"`
	Source          domain.Source     `json:"source"`
	SourceID        string            `json:"source_id"`
	Title           string            `json:"title"`
	Content         string            `json:"content,omitempty"`
	URL             string            `json:"url"`
	Author          string            `json:"author,omitempty"`
	EngagementScore float64           `json:"engagement_score"`
	VelocityScore   float64           `json:"velocity_score"`
	DetectedAt      time.Time         `json:"detected_at"`
	Status          string            `json:"status"`
	Analysis        *analysisResponse `json:"analysis,omitempty"`
}

type analysisResponse struct {
	MarketPotential  string                    `json:"market_potential"`
	ConfidenceScore  float64                   `json:"confidence_score"`
	Summary          string                    `json:"summary"`
	Reasoning        string                    `json:"reasoning,omitempty"`
	SuggestedMarkets []domain.MarketSuggestion `json:"suggested_markets"`
	Keywords         []string                  `json:"keywords"`
	AnalyzedAt       time.Time                 `json:"analyzed_at"`
}

type marketResponse struct {
	ID          string    `json:"id"`
	Question    string    `json:"question"`
	Slug        string    `json:"slug"`
	Volume      float64   `json:"volume"`
	Liquidity   float64   `json:"liquidity"`
	CurrentOdds float64   `json:"current_odds"`
	Category    string    `json:"category,omitempty"`
	EndDate     time.Time `json:"end_date,omitempty"`
}

type matchResponse struct {
	ID              int64    `json:"id"`
	TrendID         int64    `json:"trend_id"`
	MarketID        string   `json:"market_id"`
	Question        string   `json:"question"`
	Volume          float64  `json:"volume"`
	Liquidity       float64  `json:"liquidity"`
	Category        string   `json:"category,omitempty"`
	URL             string   `json:"url"`
	MatchScore      float64  `json:"match_score"`
	MatchedKeywords []string `json:"matched_keywords"`
	AdPotential     string   `json:"ad_potential"`
}

type sourceResponse struct {
	Source         domain.Source `json:"source"`
	LastScanAt     time.Time     `json:"last_scan_at"`
	LastScanStatus string        `json:"last_scan_status"`
	TrendsFound    int           `json:"trends_found"`
	APICallsToday  int           `json:"api_calls_today"`
	APILimitDaily  int           `json:"api_limit_daily,omitempty"`
}

// statusHandler returns server status and store counts
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	trendCount, err := s.trends.Count(ctx)
	if err != nil {
		lgr.Printf("[WARN] failed to count trends: %v", err)
	}
	marketCount, err := s.markets.Count(ctx)
	if err != nil {
		lgr.Printf("[WARN] failed to count markets: %v", err)
	}
	byPotential, err := s.analyses.CountByPotential(ctx)
	if err != nil {
		lgr.Printf("[WARN] failed to count analyses: %v", err)
	}

	status := map[string]interface{}{
		"status":       "ok",
		"version":      s.version,
		"time":         time.Now().UTC(),
		"trends":       trendCount,
		"markets":      marketCount,
		"by_potential": byPotential,
	}
	renderJSON(w, r, http.StatusOK, status)
}

// listTrendsHandler returns trends matching the query filters
func (s *Server) listTrendsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filter := repository.TrendFilter{}

	if src := q.Get("source"); src != "" {
		source := domain.Source(src)
		if !source.Valid() {
			renderError(w, r, fmt.Errorf("invalid source %q", src), http.StatusBadRequest)
			return
		}
		filter.Source = source
	}

	if pot := q.Get("potential"); pot != "" {
		potential := domain.MarketPotential(pot)
		if !potential.Valid() {
			renderError(w, r, fmt.Errorf("invalid potential %q", pot), http.StatusBadRequest)
			return
		}
		filter.MinPotential = potential
	}

	if st := q.Get("status"); st != "" {
		filter.Status = domain.TrendStatus(st)
	}

	if limitStr := q.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			renderError(w, r, fmt.Errorf("invalid limit"), http.StatusBadRequest)
			return
		}
		filter.Limit = limit
	}

	trendList, err := s.trends.List(ctx, filter)
	if err != nil {
		lgr.Printf("[ERROR] failed to list trends: %v", err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}

	resp := make([]trendResponse, 0, len(trendList))
	for _, trend := range trendList {
		resp = append(resp, toTrendResponse(trend, nil))
	}
	renderJSON(w, r, http.StatusOK, resp)
}

// getTrendHandler returns one trend with its latest analysis
func (s *Server) getTrendHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		renderError(w, r, fmt.Errorf("invalid trend ID"), http.StatusBadRequest)
		return
	}

	trend, err := s.trends.Get(ctx, id)
	if err != nil {
		lgr.Printf("[ERROR] failed to get trend %d: %v", id, err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	if trend == nil {
		renderError(w, r, fmt.Errorf("trend not found"), http.StatusNotFound)
		return
	}

	analysis, err := s.analyses.GetByTrend(ctx, id)
	if err != nil {
		lgr.Printf("[WARN] failed to get analysis for trend %d: %v", id, err)
	}

	renderJSON(w, r, http.StatusOK, toTrendResponse(trend, analysis))
}

// getMatchesHandler returns market matches for a trend
func (s *Server) getMatchesHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		renderError(w, r, fmt.Errorf("invalid trend ID"), http.StatusBadRequest)
		return
	}

	matches, err := s.markets.GetMatches(ctx, id)
	if err != nil {
		lgr.Printf("[ERROR] failed to get matches for trend %d: %v", id, err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}

	resp := make([]matchResponse, 0, len(matches))
	for _, m := range matches {
		resp = append(resp, matchResponse{
			ID:              m.ID,
			TrendID:         m.TrendID,
			MarketID:        m.MarketID,
			Question:        m.MarketQuestion,
			Volume:          m.MarketVolume,
			Liquidity:       m.MarketLiquidity,
			Category:        m.MarketCategory,
			URL:             m.MarketURL,
			MatchScore:      m.MatchScore,
			MatchedKeywords: m.MatchedKeywords,
			AdPotential:     string(m.AdPotential),
		})
	}
	renderJSON(w, r, http.StatusOK, resp)
}

// listMarketsHandler returns the mirrored markets ordered by volume
func (s *Server) listMarketsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			renderError(w, r, fmt.Errorf("invalid limit"), http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	fetched, err := s.markets.List(ctx, limit)
	if err != nil {
		lgr.Printf("[ERROR] failed to list markets: %v", err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}

	category := r.URL.Query().Get("category")

	// multi-outcome events share a slug, show the biggest market per event
	flat := make([]domain.Market, 0, len(fetched))
	for _, m := range fetched {
		if category != "" && !strings.EqualFold(m.Category, category) {
			continue
		}
		flat = append(flat, *m)
	}
	markets := trends.DedupeMarketsBySlug(flat)

	resp := make([]marketResponse, 0, len(markets))
	for _, m := range markets {
		resp = append(resp, marketResponse{
			ID:          m.ID,
			Question:    m.Question,
			Slug:        m.Slug,
			Volume:      m.Volume,
			Liquidity:   m.Liquidity,
			CurrentOdds: m.CurrentOdds,
			Category:    m.Category,
			EndDate:     m.EndDate,
		})
	}
	renderJSON(w, r, http.StatusOK, resp)
}

// sourcesHandler returns per-source scan bookkeeping
func (s *Server) sourcesHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	metas, err := s.meta.GetAll(ctx)
	if err != nil {
		lgr.Printf("[ERROR] failed to get source metadata: %v", err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}

	resp := make([]sourceResponse, 0, len(metas))
	for _, m := range metas {
		resp = append(resp, sourceResponse{
			Source:         m.Source,
			LastScanAt:     m.LastScanAt,
			LastScanStatus: m.LastScanStatus,
			TrendsFound:    m.TrendsFound,
			APICallsToday:  m.APICallsToday,
			APILimitDaily:  m.APILimitDaily,
		})
	}
	renderJSON(w, r, http.StatusOK, resp)
}

// getSettingsHandler returns all runtime settings
func (s *Server) getSettingsHandler(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, r, http.StatusOK, s.settings.All(r.Context()))
}

// setSettingHandler updates one runtime setting
func (s *Server) setSettingHandler(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		renderError(w, r, fmt.Errorf("setting key is required"), http.StatusBadRequest)
		return
	}

	var body struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		renderError(w, r, fmt.Errorf("invalid request body"), http.StatusBadRequest)
		return
	}

	if err := s.settings.Set(r.Context(), key, body.Value); err != nil {
		lgr.Printf("[ERROR] failed to set %s: %v", key, err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}

	renderJSON(w, r, http.StatusOK, map[string]string{key: body.Value})
}

// scanHandler triggers a synchronous scan of one source
func (s *Server) scanHandler(w http.ResponseWriter, r *http.Request) {
	if s.scanner == nil {
		renderError(w, r, fmt.Errorf("scanner not available"), http.StatusServiceUnavailable)
		return
	}

	source := domain.Source(r.PathValue("source"))
	if !source.Valid() {
		renderError(w, r, fmt.Errorf("invalid source %q", source), http.StatusBadRequest)
		return
	}

	result, err := s.scanner.ScanSource(r.Context(), source)
	if err != nil {
		lgr.Printf("[ERROR] manual scan of %s failed: %v", source, err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}

	renderJSON(w, r, http.StatusOK, result)
}

// syncMarketsHandler triggers a market mirror refresh
func (s *Server) syncMarketsHandler(w http.ResponseWriter, r *http.Request) {
	if s.scanner == nil {
		renderError(w, r, fmt.Errorf("scanner not available"), http.StatusServiceUnavailable)
		return
	}

	count, err := s.scanner.SyncMarkets(r.Context())
	if err != nil {
		lgr.Printf("[ERROR] market sync failed: %v", err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}

	renderJSON(w, r, http.StatusOK, map[string]int{"synced": count})
}

// marketingHandler generates ad copy for a trend's matched markets
func (s *Server) marketingHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.marketing == nil {
		renderError(w, r, fmt.Errorf("ai generation not available"), http.StatusServiceUnavailable)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		renderError(w, r, fmt.Errorf("invalid trend ID"), http.StatusBadRequest)
		return
	}

	trend, err := s.trends.Get(ctx, id)
	if err != nil {
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	if trend == nil {
		renderError(w, r, fmt.Errorf("trend not found"), http.StatusNotFound)
		return
	}

	matches, err := s.markets.GetMatches(ctx, id)
	if err != nil {
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	if len(matches) == 0 {
		renderError(w, r, fmt.Errorf("trend has no market matches"), http.StatusBadRequest)
		return
	}

	ideas, err := s.marketing.GenerateMarketingIdeas(ctx, trend, matches)
	if err != nil {
		lgr.Printf("[ERROR] marketing generation for trend %d failed: %v", id, err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}

	renderJSON(w, r, http.StatusOK, map[string]string{"ideas": ideas})
}

func toTrendResponse(trend *domain.Trend, analysis *domain.Analysis) trendResponse {
	resp := trendResponse{
		ID:              trend.ID,
		Source:          trend.Source,
		SourceID:        trend.SourceID,
		Title:           trend.Title,
		Content:         trend.Content,
		URL:             trend.URL,
		Author:          trend.Author,
		EngagementScore: trend.EngagementScore,
		VelocityScore:   trend.VelocityScore,
		DetectedAt:      trend.DetectedAt,
		Status:          string(trend.Status),
	}
	if analysis != nil {
		resp.Analysis = &analysisResponse{
			MarketPotential:  string(analysis.MarketPotential),
			ConfidenceScore:  analysis.ConfidenceScore,
			Summary:          analysis.Summary,
			Reasoning:        analysis.Reasoning,
			SuggestedMarkets: analysis.SuggestedMarkets,
			Keywords:         analysis.Keywords,
			AnalyzedAt:       analysis.AnalyzedAt,
		}
	}
	return resp
}

// renderJSON sends JSON response
func renderJSON(w http.ResponseWriter, _ *http.Request, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			lgr.Printf("[ERROR] can't encode response to JSON: %v", err)
		}
	}
}

// renderError sends error response as JSON
func renderError(w http.ResponseWriter, r *http.Request, err error, code int) {
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	renderJSON(w, r, code, map[string]string{"error": errMsg})
}
