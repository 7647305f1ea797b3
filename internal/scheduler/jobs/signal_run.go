package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgozlan/clickguard/internal/features"
	"github.com/dgozlan/clickguard/pkg/logger"
)

// SignalRunJob runs the fraud signal pipeline on schedule. The job's
// start time becomes the run's snapshot instant.
type SignalRunJob struct {
	builder    *features.Builder
	periodDays int
	logger     *logger.Logger
}

// NewSignalRunJob creates a new signal run job.
func NewSignalRunJob(builder *features.Builder, periodDays int, log *logger.Logger) *SignalRunJob {
	return &SignalRunJob{
		builder:    builder,
		periodDays: periodDays,
		logger:     log,
	}
}

// Name returns the job name.
func (j *SignalRunJob) Name() string {
	return "signal_run"
}

// Schedule returns the cron schedule. 02:30 UTC, after the previous
// day's performance collection has landed.
func (j *SignalRunJob) Schedule() string {
	return "0 30 2 * * *"
}

// Run executes one pipeline pass.
func (j *SignalRunJob) Run(ctx context.Context) error {
	asOf := time.Now().UTC()

	result, err := j.builder.Build(ctx, asOf, j.periodDays)
	if err != nil {
		// Another process already covering this window is not a failure
		// worth retrying.
		if errors.Is(err, features.ErrRunInProgress) {
			j.logger.Warn("Signal run skipped: another run holds the lock")
			return nil
		}
		return fmt.Errorf("signal run: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"signals": result.SignalCount,
		"flagged": result.FlaggedCount,
	}).Info("Scheduled signal run finished")

	return nil
}
