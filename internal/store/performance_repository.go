package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dgozlan/clickguard/internal/contracts"
)

// PerformanceRepository implements contracts.PerformanceRepository over
// the ad_performance table.
type PerformanceRepository struct {
	pool *pgxpool.Pool
}

// NewPerformanceRepository creates a new performance repository.
func NewPerformanceRepository(pool *pgxpool.Pool) *PerformanceRepository {
	return &PerformanceRepository{pool: pool}
}

// GetByDateRange retrieves performance records with date in [from, to].
func (r *PerformanceRepository) GetByDateRange(ctx context.Context, from, to time.Time) ([]contracts.PerformanceRecord, error) {
	query := `
		SELECT ad_id, date, impressions, clicks, ctr, conversions, conversion_rate, bounce_rate
		FROM ad_performance
		WHERE date BETWEEN $1 AND $2
		ORDER BY ad_id, date
	`

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query performance records: %w", err)
	}
	defer rows.Close()

	var records []contracts.PerformanceRecord
	for rows.Next() {
		var rec contracts.PerformanceRecord
		if err := rows.Scan(
			&rec.AdID, &rec.Date, &rec.Impressions, &rec.Clicks,
			&rec.CTR, &rec.Conversions, &rec.ConversionRate, &rec.BounceRate,
		); err != nil {
			return nil, fmt.Errorf("failed to scan performance record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SaveBatch upserts performance records on (ad_id, date) in one
// transaction. Used by the performance collector.
func (r *PerformanceRepository) SaveBatch(ctx context.Context, records []contracts.PerformanceRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := `
		INSERT INTO ad_performance (
			ad_id, date, impressions, clicks, ctr, conversions, conversion_rate, bounce_rate
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (ad_id, date) DO UPDATE SET
			impressions = EXCLUDED.impressions,
			clicks = EXCLUDED.clicks,
			ctr = EXCLUDED.ctr,
			conversions = EXCLUDED.conversions,
			conversion_rate = EXCLUDED.conversion_rate,
			bounce_rate = EXCLUDED.bounce_rate
	`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(query,
			rec.AdID, rec.Date, rec.Impressions, rec.Clicks,
			rec.CTR, rec.Conversions, rec.ConversionRate, rec.BounceRate,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for range records {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("failed to upsert performance record: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
