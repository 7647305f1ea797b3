package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/dgozlan/clickguard/internal/contracts"
	"github.com/dgozlan/clickguard/pkg/logger"
)

// ReportFetcher fetches one day of per-ad performance aggregates.
type ReportFetcher interface {
	FetchDaily(ctx context.Context, date time.Time) ([]contracts.PerformanceRecord, error)
}

// Collector pulls daily ad performance aggregates from the reporting
// API and upserts them so the rolling performance window stays current.
// Collection failures only leave the window stale; they never touch
// signal rows.
type Collector struct {
	client ReportFetcher
	perf   contracts.PerformanceRepository
	logger *logger.Logger
}

// NewCollector creates a new performance collector.
func NewCollector(client ReportFetcher, perf contracts.PerformanceRepository, log *logger.Logger) *Collector {
	return &Collector{
		client: client,
		perf:   perf,
		logger: log,
	}
}

// Collect pulls one day's report and upserts it. Returns the number of
// rows written.
func (c *Collector) Collect(ctx context.Context, date time.Time) (int, error) {
	day := contracts.DayOf(date)

	records, err := c.client.FetchDaily(ctx, day)
	if err != nil {
		return 0, fmt.Errorf("fetch daily report for %s: %w", day.Format("2006-01-02"), err)
	}

	if len(records) == 0 {
		c.logger.WithField("date", day.Format("2006-01-02")).Info("No performance rows for day")
		return 0, nil
	}

	if err := c.perf.SaveBatch(ctx, records); err != nil {
		return 0, fmt.Errorf("save performance batch: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"date": day.Format("2006-01-02"),
		"rows": len(records),
	}).Info("Collected daily performance")

	return len(records), nil
}

// CollectRange pulls each day in [from, to] in order. Days that fail
// are logged and skipped so one bad day does not block the rest.
func (c *Collector) CollectRange(ctx context.Context, from, to time.Time) (int, error) {
	start, end := contracts.DayOf(from), contracts.DayOf(to)
	if end.Before(start) {
		return 0, fmt.Errorf("invalid range: %s after %s", start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	total := 0
	failed := 0
	for day := start; !day.After(end); day = day.Add(24 * time.Hour) {
		n, err := c.Collect(ctx, day)
		if err != nil {
			failed++
			c.logger.WithError(err).WithField("date", day.Format("2006-01-02")).Error("Day collection failed")
			continue
		}
		total += n
	}

	if failed > 0 {
		return total, fmt.Errorf("%d day(s) failed to collect", failed)
	}
	return total, nil
}
