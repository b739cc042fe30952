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

// MarketRepository handles prediction-market database operations
type MarketRepository struct {
	db *sqlx.DB
}

// NewMarketRepository creates a new market repository
func NewMarketRepository(db *sqlx.DB) *MarketRepository {
	return &MarketRepository{db: db}
}

// Upsert stores a market, replacing any existing row with the same ID
func (r *MarketRepository) Upsert(ctx context.Context, market *domain.Market) error {
	dbm := r.toDB(market)

	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))

	return retrier.Do(ctx, func() error {
		query := `
			INSERT INTO markets (id, question, description, slug, volume, liquidity,
				current_odds, end_date, category, tags, active, closed, updated_at)
			VALUES (:id, :question, :description, :slug, :volume, :liquidity,
				:current_odds, :end_date, :category, :tags, :active, :closed, datetime('now'))
			ON CONFLICT(id) DO UPDATE SET
				question = excluded.question,
				description = excluded.description,
				slug = excluded.slug,
				volume = excluded.volume,
				liquidity = excluded.liquidity,
				current_odds = excluded.current_odds,
				end_date = excluded.end_date,
				category = excluded.category,
				tags = excluded.tags,
				active = excluded.active,
				closed = excluded.closed,
				updated_at = datetime('now')
		`
		_, err := r.db.NamedExecContext(ctx, query, dbm)
		if err != nil {
			if isLockError(err) {
				return err // retry
			}
			return &criticalError{err: fmt.Errorf("upsert market: %w", err)}
		}
		return nil
	})
}

// UpsertBatch stores a batch of markets in one transaction
func (r *MarketRepository) UpsertBatch(ctx context.Context, markets []*domain.Market) error {
	if len(markets) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	query := `
		INSERT INTO markets (id, question, description, slug, volume, liquidity,
			current_odds, end_date, category, tags, active, closed, updated_at)
		VALUES (:id, :question, :description, :slug, :volume, :liquidity,
			:current_odds, :end_date, :category, :tags, :active, :closed, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
			question = excluded.question,
			description = excluded.description,
			slug = excluded.slug,
			volume = excluded.volume,
			liquidity = excluded.liquidity,
			current_odds = excluded.current_odds,
			end_date = excluded.end_date,
			category = excluded.category,
			tags = excluded.tags,
			active = excluded.active,
			closed = excluded.closed,
			updated_at = datetime('now')
	`
	for _, m := range markets {
		if _, err := tx.NamedExecContext(ctx, query, r.toDB(m)); err != nil {
			return fmt.Errorf("upsert market %s: %w", m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Get retrieves a market by ID, nil when not stored
func (r *MarketRepository) Get(ctx context.Context, id string) (*domain.Market, error) {
	var dbm dbMarket
	err := r.db.GetContext(ctx, &dbm, "SELECT * FROM markets WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get market: %w", err)
	}
	return r.toDomain(&dbm), nil
}

// List retrieves active open markets ordered by volume, highest first
func (r *MarketRepository) List(ctx context.Context, limit int) ([]*domain.Market, error) {
	if limit <= 0 {
		limit = 50
	}

	var dbMarkets []dbMarket
	err := r.db.SelectContext(ctx, &dbMarkets,
		"SELECT * FROM markets WHERE active = 1 AND closed = 0 ORDER BY volume DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list markets: %w", err)
	}

	markets := make([]*domain.Market, len(dbMarkets))
	for i, m := range dbMarkets {
		markets[i] = r.toDomain(&m)
	}
	return markets, nil
}

// CreateMatch records a trend-to-market match
func (r *MarketRepository) CreateMatch(ctx context.Context, match *domain.MarketMatch) error {
	dbm := &dbMarketMatch{
		TrendID:         match.TrendID,
		MarketID:        match.MarketID,
		MarketSlug:      match.MarketSlug,
		MarketQuestion:  match.MarketQuestion,
		MarketVolume:    match.MarketVolume,
		MarketLiquidity: match.MarketLiquidity,
		MarketCategory:  match.MarketCategory,
		MarketURL:       match.MarketURL,
		MatchScore:      match.MatchScore,
		MatchedKeywords: marshalJSON(match.MatchedKeywords),
		AdPotential:     string(match.AdPotential),
	}

	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))

	return retrier.Do(ctx, func() error {
		query := `
			INSERT INTO market_matches (trend_id, market_id, market_slug, market_question,
				market_volume, market_liquidity, market_category, market_url,
				match_score, matched_keywords, ad_potential)
			VALUES (:trend_id, :market_id, :market_slug, :market_question,
				:market_volume, :market_liquidity, :market_category, :market_url,
				:match_score, :matched_keywords, :ad_potential)
		`
		result, err := r.db.NamedExecContext(ctx, query, dbm)
		if err != nil {
			if isLockError(err) {
				return err // retry
			}
			return &criticalError{err: fmt.Errorf("create market match: %w", err)}
		}

		id, err := result.LastInsertId()
		if err != nil {
			return &criticalError{err: fmt.Errorf("get insert id: %w", err)}
		}
		match.ID = id
		return nil
	})
}

// GetMatches retrieves matches for a trend ordered by score, highest first
func (r *MarketRepository) GetMatches(ctx context.Context, trendID int64) ([]*domain.MarketMatch, error) {
	var dbMatches []dbMarketMatch
	err := r.db.SelectContext(ctx, &dbMatches,
		"SELECT * FROM market_matches WHERE trend_id = ? ORDER BY match_score DESC", trendID)
	if err != nil {
		return nil, fmt.Errorf("get market matches: %w", err)
	}

	matches := make([]*domain.MarketMatch, len(dbMatches))
	for i, m := range dbMatches {
		matches[i] = &domain.MarketMatch{
			ID:              m.ID,
			TrendID:         m.TrendID,
			MarketID:        m.MarketID,
			MarketSlug:      m.MarketSlug,
			MarketQuestion:  m.MarketQuestion,
			MarketVolume:    m.MarketVolume,
			MarketLiquidity: m.MarketLiquidity,
			MarketCategory:  m.MarketCategory,
			MarketURL:       m.MarketURL,
			MatchScore:      m.MatchScore,
			MatchedKeywords: unmarshalStrings(m.MatchedKeywords),
			AdPotential:     domain.AdPotential(m.AdPotential),
			CreatedAt:       m.CreatedAt,
		}
	}
	return matches, nil
}

// PruneBeyondTop keeps the top N markets by volume and removes the rest
func (r *MarketRepository) PruneBeyondTop(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}

	query := `
		DELETE FROM markets WHERE id NOT IN (
			SELECT id FROM markets ORDER BY volume DESC LIMIT ?
		)
	`
	result, err := r.db.ExecContext(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("prune markets: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return rows, nil
}

// Count returns the total number of stored markets
func (r *MarketRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM markets"); err != nil {
		return 0, fmt.Errorf("count markets: %w", err)
	}
	return count, nil
}

// toDB converts domain.Market to dbMarket
func (r *MarketRepository) toDB(market *domain.Market) *dbMarket {
	dbm := &dbMarket{
		ID:          market.ID,
		Question:    market.Question,
		Description: market.Description,
		Slug:        market.Slug,
		Volume:      market.Volume,
		Liquidity:   market.Liquidity,
		CurrentOdds: market.CurrentOdds,
		Category:    market.Category,
		Tags:        marshalJSON(market.Tags),
		Active:      market.Active,
		Closed:      market.Closed,
	}
	if !market.EndDate.IsZero() {
		dbm.EndDate = sql.NullTime{Time: market.EndDate, Valid: true}
	}
	return dbm
}

// toDomain converts dbMarket to domain.Market
func (r *MarketRepository) toDomain(dbm *dbMarket) *domain.Market {
	market := &domain.Market{
		ID:          dbm.ID,
		Question:    dbm.Question,
		Description: dbm.Description,
		Slug:        dbm.Slug,
		Volume:      dbm.Volume,
		Liquidity:   dbm.Liquidity,
		CurrentOdds: dbm.CurrentOdds,
		Category:    dbm.Category,
		Tags:        unmarshalStrings(dbm.Tags),
		Active:      dbm.Active,
		Closed:      dbm.Closed,
		UpdatedAt:   dbm.UpdatedAt,
	}
	if dbm.EndDate.Valid {
		market.EndDate = dbm.EndDate.Time
	}
	return market
}
