package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-pkgz/repeater/v2"
	"github.com/jmoiron/sqlx"

	"trendwatch/pkg/domain"
)

// TrendRepository handles trend-related database operations
type TrendRepository struct {
	db *sqlx.DB
}

// NewTrendRepository creates a new trend repository
func NewTrendRepository(db *sqlx.DB) *TrendRepository {
	return &TrendRepository{db: db}
}

// TrendFilter narrows List results, zero values mean no filtering
type TrendFilter struct {
	Source       domain.Source
	Status       domain.TrendStatus
	MinPotential domain.MarketPotential
	Limit        int
}

// Create inserts a trend unless one with the same (source, source_id)
// already exists. Returns true when a new row was inserted; the trend's
// ID is populated either way.
func (r *TrendRepository) Create(ctx context.Context, trend *domain.Trend) (bool, error) {
	dbt := &dbTrend{
		Source:          string(trend.Source),
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
	if dbt.Status == "" {
		dbt.Status = string(domain.TrendPending)
	}
	if dbt.DetectedAt.IsZero() {
		dbt.DetectedAt = time.Now()
	}

	inserted := false
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))

	err := retrier.Do(ctx, func() error {
		query := `
			INSERT INTO trends (source, source_id, title, content, url, author,
				engagement_score, velocity_score, detected_at, status)
			VALUES (:source, :source_id, :title, :content, :url, :author,
				:engagement_score, :velocity_score, :detected_at, :status)
			ON CONFLICT(source, source_id) DO NOTHING
		`
		result, err := r.db.NamedExecContext(ctx, query, dbt)
		if err != nil {
			if isLockError(err) {
				return err // retry
			}
			return &criticalError{err: fmt.Errorf("create trend: %w", err)}
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return &criticalError{err: fmt.Errorf("rows affected: %w", err)}
		}
		inserted = rows > 0

		if inserted {
			id, err := result.LastInsertId()
			if err != nil {
				return &criticalError{err: fmt.Errorf("get insert id: %w", err)}
			}
			trend.ID = id
			return nil
		}

		// conflict path, fetch the existing row's id
		var id int64
		err = r.db.GetContext(ctx, &id,
			"SELECT id FROM trends WHERE source = ? AND source_id = ?",
			dbt.Source, dbt.SourceID)
		if err != nil {
			return &criticalError{err: fmt.Errorf("get existing trend id: %w", err)}
		}
		trend.ID = id
		return nil
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// Exists reports whether a trend with the given source and source id is stored
func (r *TrendRepository) Exists(ctx context.Context, source domain.Source, sourceID string) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM trends WHERE source = ? AND source_id = ?",
		string(source), sourceID)
	if err != nil {
		return false, fmt.Errorf("check trend exists: %w", err)
	}
	return count > 0, nil
}

// Get retrieves a trend by ID, nil when not stored
func (r *TrendRepository) Get(ctx context.Context, id int64) (*domain.Trend, error) {
	var dbt dbTrend
	err := r.db.GetContext(ctx, &dbt, "SELECT * FROM trends WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // not found is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("get trend: %w", err)
	}
	return r.toDomain(&dbt), nil
}

// List retrieves trends matching the filter, newest first
func (r *TrendRepository) List(ctx context.Context, filter TrendFilter) ([]*domain.Trend, error) {
	query := "SELECT t.* FROM trends t"
	var args []interface{}
	var where []string

	if filter.MinPotential != "" {
		query += " JOIN analyses a ON a.trend_id = t.id"
		where = append(where, "a.market_potential IN ("+potentialSet(filter.MinPotential)+")")
	}
	if filter.Source != "" {
		where = append(where, "t.source = ?")
		args = append(args, string(filter.Source))
	}
	if filter.Status != "" {
		where = append(where, "t.status = ?")
		args = append(args, string(filter.Status))
	}

	for i, w := range where {
		if i == 0 {
			query += " WHERE " + w
		} else {
			query += " AND " + w
		}
	}
	query += " ORDER BY t.detected_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " LIMIT ?"
	args = append(args, limit)

	var dbTrends []dbTrend
	if err := r.db.SelectContext(ctx, &dbTrends, query, args...); err != nil {
		return nil, fmt.Errorf("list trends: %w", err)
	}

	trends := make([]*domain.Trend, len(dbTrends))
	for i, t := range dbTrends {
		trends[i] = r.toDomain(&t)
	}
	return trends, nil
}

// UpdateStatus moves a trend to a new lifecycle status
func (r *TrendRepository) UpdateStatus(ctx context.Context, id int64, status domain.TrendStatus) error {
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))

	return retrier.Do(ctx, func() error {
		query := "UPDATE trends SET status = ?, updated_at = datetime('now') WHERE id = ?"
		_, err := r.db.ExecContext(ctx, query, string(status), id)
		if err != nil {
			if isLockError(err) {
				return err // retry
			}
			return &criticalError{err: fmt.Errorf("update trend status: %w", err)}
		}
		return nil
	})
}

// DeleteOld removes trends detected before the cutoff, cascading to
// their analyses and matches. Trends with a high or medium potential
// analysis are kept regardless of age. Returns the number removed.
func (r *TrendRepository) DeleteOld(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM trends WHERE detected_at < ?
		AND id NOT IN (SELECT trend_id FROM analyses WHERE market_potential IN ('high', 'medium'))`
	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old trends: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return rows, nil
}

// Count returns the total number of stored trends
func (r *TrendRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM trends"); err != nil {
		return 0, fmt.Errorf("count trends: %w", err)
	}
	return count, nil
}

// potentialSet expands a minimum potential level into the SQL IN-list of
// levels at or above it
func potentialSet(minPotential domain.MarketPotential) string {
	switch minPotential {
	case domain.PotentialHigh:
		return "'high'"
	case domain.PotentialMedium:
		return "'high', 'medium'"
	case domain.PotentialLow:
		return "'high', 'medium', 'low'"
	default:
		return "'high', 'medium', 'low', 'none'"
	}
}

// toDomain converts dbTrend to domain.Trend
func (r *TrendRepository) toDomain(dbt *dbTrend) *domain.Trend {
	return &domain.Trend{
		ID:              dbt.ID,
		Source:          domain.Source(dbt.Source),
		SourceID:        dbt.SourceID,
		Title:           dbt.Title,
		Content:         dbt.Content,
		URL:             dbt.URL,
		Author:          dbt.Author,
		EngagementScore: dbt.EngagementScore,
		VelocityScore:   dbt.VelocityScore,
		DetectedAt:      dbt.DetectedAt,
		Status:          domain.TrendStatus(dbt.Status),
		CreatedAt:       dbt.CreatedAt,
		UpdatedAt:       dbt.UpdatedAt,
	}
}
