package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-pkgz/repeater/v2"
	"github.com/jmoiron/sqlx"

	"trendwatch/pkg/domain"
)

// SourceMetaRepository handles per-source scan bookkeeping
type SourceMetaRepository struct {
	db *sqlx.DB
}

// NewSourceMetaRepository creates a new source metadata repository
func NewSourceMetaRepository(db *sqlx.DB) *SourceMetaRepository {
	return &SourceMetaRepository{db: db}
}

// Get retrieves metadata for a source
func (r *SourceMetaRepository) Get(ctx context.Context, source domain.Source) (*domain.SourceMetadata, error) {
	var dbm dbSourceMetadata
	err := r.db.GetContext(ctx, &dbm, "SELECT * FROM source_metadata WHERE source = ?", string(source))
	if err != nil {
		return nil, fmt.Errorf("get source metadata: %w", err)
	}
	return r.toDomain(&dbm), nil
}

// GetAll retrieves metadata for every known source
func (r *SourceMetaRepository) GetAll(ctx context.Context) ([]*domain.SourceMetadata, error) {
	var dbMetas []dbSourceMetadata
	err := r.db.SelectContext(ctx, &dbMetas, "SELECT * FROM source_metadata ORDER BY source")
	if err != nil {
		return nil, fmt.Errorf("get all source metadata: %w", err)
	}

	metas := make([]*domain.SourceMetadata, len(dbMetas))
	for i, m := range dbMetas {
		metas[i] = r.toDomain(&m)
	}
	return metas, nil
}

// UpdateScan records the outcome of a scan run. It runs after every scan,
// successful or not, so the dashboard always shows the latest attempt.
func (r *SourceMetaRepository) UpdateScan(ctx context.Context, source domain.Source, status string, trendsFound int) error {
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))

	return retrier.Do(ctx, func() error {
		query := `
			UPDATE source_metadata
			SET last_scan_at = datetime('now'),
			    last_scan_status = ?,
			    trends_found = ?,
			    updated_at = datetime('now')
			WHERE source = ?
		`
		_, err := r.db.ExecContext(ctx, query, status, trendsFound, string(source))
		if err != nil {
			if isLockError(err) {
				return err // retry
			}
			return &criticalError{err: fmt.Errorf("update scan metadata: %w", err)}
		}
		return nil
	})
}

// IncrementAPICalls bumps today's API-call counter for a source
func (r *SourceMetaRepository) IncrementAPICalls(ctx context.Context, source domain.Source, calls int) error {
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))

	return retrier.Do(ctx, func() error {
		query := `
			UPDATE source_metadata
			SET api_calls_today = api_calls_today + ?,
			    updated_at = datetime('now')
			WHERE source = ?
		`
		_, err := r.db.ExecContext(ctx, query, calls, string(source))
		if err != nil {
			if isLockError(err) {
				return err // retry
			}
			return &criticalError{err: fmt.Errorf("increment api calls: %w", err)}
		}
		return nil
	})
}

// ResetDailyCounters zeroes the per-day API-call counters for all sources
func (r *SourceMetaRepository) ResetDailyCounters(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE source_metadata SET api_calls_today = 0, updated_at = datetime('now')")
	if err != nil {
		return fmt.Errorf("reset daily counters: %w", err)
	}
	return nil
}

// toDomain converts dbSourceMetadata to domain.SourceMetadata
func (r *SourceMetaRepository) toDomain(dbm *dbSourceMetadata) *domain.SourceMetadata {
	meta := &domain.SourceMetadata{
		ID:             dbm.ID,
		Source:         domain.Source(dbm.Source),
		LastScanStatus: dbm.LastScanStatus,
		TrendsFound:    dbm.TrendsFound,
		APICallsToday:  dbm.APICallsToday,
		APILimitDaily:  dbm.APILimitDaily,
		UpdatedAt:      dbm.UpdatedAt,
	}
	if dbm.LastScanAt.Valid {
		meta.LastScanAt = dbm.LastScanAt.Time
	}
	return meta
}
