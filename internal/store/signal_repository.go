package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dgozlan/clickguard/internal/contracts"
)

// SignalRepository implements contracts.SignalRepository over the
// fraud_signals table. Primary key: (as_of_date, ad_id, ip_address).
type SignalRepository struct {
	pool *pgxpool.Pool
}

// NewSignalRepository creates a new signal repository.
func NewSignalRepository(pool *pgxpool.Pool) *SignalRepository {
	return &SignalRepository{pool: pool}
}

const signalColumns = `
	as_of_date, ad_id, ip_address,
	clicks_day, uniq_devices_day, uniq_referrers_day, burst_max_5min, uniq_ads_ip_24h,
	ctr_7d, conv_rate_7d, night_click_rate,
	invalid_ip_flag, missing_device_flag, suspicious_ctr_flag
`

const upsertSignal = `
	INSERT INTO fraud_signals (
		as_of_date, ad_id, ip_address,
		clicks_day, uniq_devices_day, uniq_referrers_day, burst_max_5min, uniq_ads_ip_24h,
		ctr_7d, conv_rate_7d, night_click_rate,
		invalid_ip_flag, missing_device_flag, suspicious_ctr_flag
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	ON CONFLICT (as_of_date, ad_id, ip_address) DO UPDATE SET
		clicks_day = EXCLUDED.clicks_day,
		uniq_devices_day = EXCLUDED.uniq_devices_day,
		uniq_referrers_day = EXCLUDED.uniq_referrers_day,
		burst_max_5min = EXCLUDED.burst_max_5min,
		uniq_ads_ip_24h = EXCLUDED.uniq_ads_ip_24h,
		ctr_7d = EXCLUDED.ctr_7d,
		conv_rate_7d = EXCLUDED.conv_rate_7d,
		night_click_rate = EXCLUDED.night_click_rate,
		invalid_ip_flag = EXCLUDED.invalid_ip_flag,
		missing_device_flag = EXCLUDED.missing_device_flag,
		suspicious_ctr_flag = EXCLUDED.suspicious_ctr_flag,
		updated_at = NOW()
`

// SaveBatch upserts all signal rows in one transaction. Every non-key
// column is fully replaced on conflict, so re-running over unchanged
// inputs is idempotent. Either the whole batch commits or none of it.
func (r *SignalRepository) SaveBatch(ctx context.Context, signals []contracts.FraudSignal) error {
	if len(signals) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, s := range signals {
		batch.Queue(upsertSignal,
			s.AsOfDate, s.AdID, s.IPAddress,
			s.ClicksDay, s.UniqDevicesDay, s.UniqReferrersDay, s.BurstMax5Min, s.UniqAdsIP24h,
			s.CTR7d, s.ConvRate7d, s.NightClickRate,
			s.InvalidIPFlag, s.MissingDeviceFlag, s.SuspiciousCTRFlag,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for i := range signals {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("failed to upsert signal %s/%s: %w", signals[i].AdID, signals[i].IPAddress, err)
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

// GetByDate retrieves all signal rows for one UTC day.
func (r *SignalRepository) GetByDate(ctx context.Context, date time.Time) ([]contracts.FraudSignal, error) {
	query := `
		SELECT ` + signalColumns + `
		FROM fraud_signals
		WHERE as_of_date = $1
		ORDER BY ad_id, ip_address
	`

	return r.querySignals(ctx, query, contracts.DayOf(date))
}

// GetByKey retrieves one signal row, or nil when absent.
func (r *SignalRepository) GetByKey(ctx context.Context, key contracts.SignalKey) (*contracts.FraudSignal, error) {
	query := `
		SELECT ` + signalColumns + `
		FROM fraud_signals
		WHERE as_of_date = $1 AND ad_id = $2 AND ip_address = $3
	`

	var s contracts.FraudSignal
	err := r.pool.QueryRow(ctx, query, key.Date, key.AdID, key.IPAddress).Scan(
		&s.AsOfDate, &s.AdID, &s.IPAddress,
		&s.ClicksDay, &s.UniqDevicesDay, &s.UniqReferrersDay, &s.BurstMax5Min, &s.UniqAdsIP24h,
		&s.CTR7d, &s.ConvRate7d, &s.NightClickRate,
		&s.InvalidIPFlag, &s.MissingDeviceFlag, &s.SuspiciousCTRFlag,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get signal: %w", err)
	}
	return &s, nil
}

// GetFlagged retrieves rows for one UTC day with at least one risk flag.
func (r *SignalRepository) GetFlagged(ctx context.Context, date time.Time) ([]contracts.FraudSignal, error) {
	query := `
		SELECT ` + signalColumns + `
		FROM fraud_signals
		WHERE as_of_date = $1
		  AND (invalid_ip_flag OR missing_device_flag OR suspicious_ctr_flag)
		ORDER BY clicks_day DESC
	`

	return r.querySignals(ctx, query, contracts.DayOf(date))
}

func (r *SignalRepository) querySignals(ctx context.Context, query string, args ...interface{}) ([]contracts.FraudSignal, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals: %w", err)
	}
	defer rows.Close()

	var signals []contracts.FraudSignal
	for rows.Next() {
		var s contracts.FraudSignal
		if err := rows.Scan(
			&s.AsOfDate, &s.AdID, &s.IPAddress,
			&s.ClicksDay, &s.UniqDevicesDay, &s.UniqReferrersDay, &s.BurstMax5Min, &s.UniqAdsIP24h,
			&s.CTR7d, &s.ConvRate7d, &s.NightClickRate,
			&s.InvalidIPFlag, &s.MissingDeviceFlag, &s.SuspiciousCTRFlag,
		); err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		signals = append(signals, s)
	}
	return signals, rows.Err()
}
