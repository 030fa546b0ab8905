// Package store archives scrape results in PostgreSQL. Archiving is
// best-effort and optional; the pipeline serves requests identically with
// the store disabled.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/manjain15/propwealth-scraper/api/schemas"
)

// DBPool abstracts pgxpool.Pool so tests can run against pgxmock.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// Store provides the PostgreSQL archive.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

const insertMarketStatsSQL = `
	INSERT INTO market_stats_snapshots (suburb, state, postcode, payload, scraped_at)
	VALUES ($1, $2, $3, $4, $5);
`

// ArchiveMarketStats records one normalized market snapshot.
func (s *Store) ArchiveMarketStats(ctx context.Context, stats schemas.MarketStats) error {
	payload, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal market stats: %w", err)
	}
	if _, err := s.pool.Exec(ctx, insertMarketStatsSQL,
		stats.Suburb, stats.State, stats.Postcode, payload, time.Now()); err != nil {
		return fmt.Errorf("failed to insert market stats snapshot: %w", err)
	}
	return nil
}

const insertPropertySQL = `
	INSERT INTO property_records (address, market_status, payload, scraped_at)
	VALUES ($1, $2, $3, $4);
`

// ArchiveProperty records one extracted property record.
func (s *Store) ArchiveProperty(ctx context.Context, rec schemas.PropertyRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal property record: %w", err)
	}
	if _, err := s.pool.Exec(ctx, insertPropertySQL,
		rec.Address, rec.MarketStatus, payload, time.Now()); err != nil {
		return fmt.Errorf("failed to insert property record: %w", err)
	}
	return nil
}

const recentSnapshotsSQL = `
	SELECT payload FROM market_stats_snapshots
	WHERE suburb = $1 AND state = $2 AND postcode = $3
	ORDER BY scraped_at DESC
	LIMIT $4;
`

// RecentMarketStats returns the most recent archived snapshots for a
// location, newest first.
func (s *Store) RecentMarketStats(ctx context.Context, loc schemas.Location, limit int) ([]schemas.MarketStats, error) {
	rows, err := s.pool.Query(ctx, recentSnapshotsSQL, loc.Suburb, loc.State, loc.Postcode, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var out []schemas.MarketStats
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		var stats schemas.MarketStats
		if err := json.Unmarshal(payload, &stats); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot payload: %w", err)
		}
		out = append(out, stats)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return out, nil
}
