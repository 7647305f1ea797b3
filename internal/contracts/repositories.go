package contracts

import (
	"context"
	"time"
)

// ClickEventRepository reads from the append-only click event log.
type ClickEventRepository interface {
	// GetByTimeRange returns events with click_time in [from, to],
	// ordered by click_time ascending.
	GetByTimeRange(ctx context.Context, from, to time.Time) ([]ClickEvent, error)
}

// PerformanceRepository reads and writes daily per-ad performance
// aggregates.
type PerformanceRepository interface {
	// GetByDateRange returns records with date in [from, to].
	GetByDateRange(ctx context.Context, from, to time.Time) ([]PerformanceRecord, error)

	// SaveBatch upserts records on (ad_id, date). Used by the collector.
	SaveBatch(ctx context.Context, records []PerformanceRecord) error
}

// SignalRepository persists and queries fraud signal rows.
type SignalRepository interface {
	// SaveBatch writes all rows in one transaction with
	// insert-or-replace semantics on (as_of_date, ad_id, ip_address).
	// Either every row commits or none do.
	SaveBatch(ctx context.Context, signals []FraudSignal) error

	// GetByDate returns all signal rows for one UTC day.
	GetByDate(ctx context.Context, date time.Time) ([]FraudSignal, error)

	// GetByKey returns a single signal row, or nil when absent.
	GetByKey(ctx context.Context, key SignalKey) (*FraudSignal, error)

	// GetFlagged returns rows for one UTC day with at least one risk
	// flag set.
	GetFlagged(ctx context.Context, date time.Time) ([]FraudSignal, error)
}
