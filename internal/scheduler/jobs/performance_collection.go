package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/dgozlan/clickguard/internal/collector"
	"github.com/dgozlan/clickguard/pkg/logger"
)

// PerformanceCollectionJob pulls the previous day's ad performance
// report so the rolling window is current before the signal run.
type PerformanceCollectionJob struct {
	collector *collector.Collector
	logger    *logger.Logger
}

// NewPerformanceCollectionJob creates a new performance collection job.
func NewPerformanceCollectionJob(c *collector.Collector, log *logger.Logger) *PerformanceCollectionJob {
	return &PerformanceCollectionJob{
		collector: c,
		logger:    log,
	}
}

// Name returns the job name.
func (j *PerformanceCollectionJob) Name() string {
	return "performance_collection"
}

// Schedule returns the cron schedule. 01:30 UTC, once the platform has
// finalized the previous day's report.
func (j *PerformanceCollectionJob) Schedule() string {
	return "0 30 1 * * *"
}

// Run collects yesterday's report.
func (j *PerformanceCollectionJob) Run(ctx context.Context) error {
	yesterday := time.Now().UTC().Add(-24 * time.Hour)

	n, err := j.collector.Collect(ctx, yesterday)
	if err != nil {
		return fmt.Errorf("performance collection: %w", err)
	}

	j.logger.WithField("rows", n).Info("Scheduled performance collection finished")
	return nil
}
