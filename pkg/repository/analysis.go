package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-pkgz/repeater/v2"
	"github.com/jmoiron/sqlx"

	"trendwatch/pkg/domain"
)

// AnalysisRepository handles analysis-related database operations
type AnalysisRepository struct {
	db *sqlx.DB
}

// NewAnalysisRepository creates a new analysis repository
func NewAnalysisRepository(db *sqlx.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Create inserts an analysis for a trend
func (r *AnalysisRepository) Create(ctx context.Context, analysis *domain.Analysis) error {
	dba := &dbAnalysis{
		TrendID:          analysis.TrendID,
		MarketPotential:  string(analysis.MarketPotential),
		ConfidenceScore:  analysis.ConfidenceScore,
		Summary:          analysis.Summary,
		Reasoning:        analysis.Reasoning,
		SuggestedMarkets: marshalJSON(analysis.SuggestedMarkets),
		Keywords:         marshalJSON(analysis.Keywords),
		AnalyzedAt:       analysis.AnalyzedAt,
	}
	if dba.AnalyzedAt.IsZero() {
		dba.AnalyzedAt = time.Now()
	}

	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))

	return retrier.Do(ctx, func() error {
		query := `
			INSERT INTO analyses (trend_id, market_potential, confidence_score,
				summary, reasoning, suggested_markets, keywords, analyzed_at)
			VALUES (:trend_id, :market_potential, :confidence_score,
				:summary, :reasoning, :suggested_markets, :keywords, :analyzed_at)
		`
		result, err := r.db.NamedExecContext(ctx, query, dba)
		if err != nil {
			if isLockError(err) {
				return err // retry
			}
			return &criticalError{err: fmt.Errorf("create analysis: %w", err)}
		}

		id, err := result.LastInsertId()
		if err != nil {
			return &criticalError{err: fmt.Errorf("get insert id: %w", err)}
		}
		analysis.ID = id
		return nil
	})
}

// GetByTrend retrieves the latest analysis for a trend, nil when none exists
func (r *AnalysisRepository) GetByTrend(ctx context.Context, trendID int64) (*domain.Analysis, error) {
	var dba dbAnalysis
	err := r.db.GetContext(ctx, &dba,
		"SELECT * FROM analyses WHERE trend_id = ? ORDER BY analyzed_at DESC LIMIT 1", trendID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	return r.toDomain(&dba)
}

// CountByPotential returns how many analyses exist per potential level
func (r *AnalysisRepository) CountByPotential(ctx context.Context) (map[domain.MarketPotential]int, error) {
	rows := []struct {
		Potential string `db:"market_potential"`
		Count     int    `db:"cnt"`
	}{}
	err := r.db.SelectContext(ctx, &rows,
		"SELECT market_potential, COUNT(*) AS cnt FROM analyses GROUP BY market_potential")
	if err != nil {
		return nil, fmt.Errorf("count analyses: %w", err)
	}

	counts := make(map[domain.MarketPotential]int, len(rows))
	for _, row := range rows {
		counts[domain.MarketPotential(row.Potential)] = row.Count
	}
	return counts, nil
}

// toDomain converts dbAnalysis to domain.Analysis
func (r *AnalysisRepository) toDomain(dba *dbAnalysis) (*domain.Analysis, error) {
	var suggestions []domain.MarketSuggestion
	if dba.SuggestedMarkets != "" {
		if err := json.Unmarshal([]byte(dba.SuggestedMarkets), &suggestions); err != nil {
			return nil, fmt.Errorf("parse suggested markets: %w", err)
		}
	}

	return &domain.Analysis{
		ID:               dba.ID,
		TrendID:          dba.TrendID,
		MarketPotential:  domain.MarketPotential(dba.MarketPotential),
		ConfidenceScore:  dba.ConfidenceScore,
		Summary:          dba.Summary,
		Reasoning:        dba.Reasoning,
		SuggestedMarkets: suggestions,
		Keywords:         unmarshalStrings(dba.Keywords),
		AnalyzedAt:       dba.AnalyzedAt,
		CreatedAt:        dba.CreatedAt,
	}, nil
}
