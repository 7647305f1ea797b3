package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dgozlan/clickguard/internal/contracts"
)

// ClickRepository implements contracts.ClickEventRepository over the
// raw_clicks table. The table is append-only; this repository only reads.
type ClickRepository struct {
	pool *pgxpool.Pool
}

// NewClickRepository creates a new click event repository.
func NewClickRepository(pool *pgxpool.Pool) *ClickRepository {
	return &ClickRepository{pool: pool}
}

// GetByTimeRange retrieves click events within [from, to] ordered by
// click_time.
func (r *ClickRepository) GetByTimeRange(ctx context.Context, from, to time.Time) ([]contracts.ClickEvent, error) {
	query := `
		SELECT ad_id, ip_address, device_type, click_time,
		       COALESCE(referrer_url, ''), COALESCE(user_agent, '')
		FROM raw_clicks
		WHERE click_time BETWEEN $1 AND $2
		ORDER BY click_time ASC
	`

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query click events: %w", err)
	}
	defer rows.Close()

	var events []contracts.ClickEvent
	for rows.Next() {
		var e contracts.ClickEvent
		if err := rows.Scan(&e.AdID, &e.IPAddress, &e.DeviceType, &e.ClickTime, &e.ReferrerURL, &e.UserAgent); err != nil {
			return nil, fmt.Errorf("failed to scan click event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// CountByTimeRange returns the number of click events within [from, to).
// The half-open range lets callers count whole days without overlap.
func (r *ClickRepository) CountByTimeRange(ctx context.Context, from, to time.Time) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM raw_clicks
		WHERE click_time >= $1 AND click_time < $2
	`

	var count int64
	if err := r.pool.QueryRow(ctx, query, from, to).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count click events: %w", err)
	}
	return count, nil
}
