package features

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgozlan/clickguard/internal/contracts"
	"github.com/dgozlan/clickguard/pkg/logger"
	"github.com/dgozlan/clickguard/pkg/redis"
)

// runLockName serializes overlapping signal runs across processes.
const runLockName = "signal_run"

// ErrRunInProgress is returned when another process holds the run lock.
var ErrRunInProgress = errors.New("signal run already in progress")

// Builder orchestrates the full fraud signal pipeline: fetch the inputs
// once, run the four aggregators against a single snapshot instant,
// merge, and persist the batch.
type Builder struct {
	window  *WindowAggregator
	crossAd *CrossAdAggregator
	rolling *RollingPerfAggregator
	night   *NightRatioAggregator
	merger  *Merger

	clicks  contracts.ClickEventRepository
	perf    contracts.PerformanceRepository
	signals contracts.SignalRepository

	lock    *redis.RunLock
	lockTTL time.Duration

	logger *logger.Logger
}

// NewBuilder creates a new signal pipeline builder. lock may be backed
// by a disabled Redis client, in which case overlapping runs fall back
// to last-writer-wins on the upserts.
func NewBuilder(
	clicks contracts.ClickEventRepository,
	perf contracts.PerformanceRepository,
	signals contracts.SignalRepository,
	lock *redis.RunLock,
	lockTTL time.Duration,
	log *logger.Logger,
) *Builder {
	return &Builder{
		window:  NewWindowAggregator(),
		crossAd: NewCrossAdAggregator(),
		rolling: NewRollingPerfAggregator(),
		night:   NewNightRatioAggregator(),
		merger:  NewMerger(),
		clicks:  clicks,
		perf:    perf,
		signals: signals,
		lock:    lock,
		lockTTL: lockTTL,
		logger:  log,
	}
}

// Build runs one pipeline pass. asOf is the single snapshot instant
// shared by every lookback window (24h cross-ad, 7d rolling); it is the
// only time source the aggregators see, which keeps backfills and live
// runs on the same code path. periodDays bounds how many trailing days
// of click events are aggregated.
//
// Inputs are fetched before anything is written; an upstream failure
// aborts the run with no signal rows touched.
func (b *Builder) Build(ctx context.Context, asOf time.Time, periodDays int) (*contracts.RunResult, error) {
	started := time.Now()

	result := &contracts.RunResult{
		AsOf:      asOf,
		StartedAt: started,
	}

	if b.lock != nil {
		token, ok, err := b.lock.Acquire(ctx, runLockName, b.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire run lock: %w", err)
		}
		if !ok {
			return nil, ErrRunInProgress
		}
		defer func() {
			if err := b.lock.Release(ctx, runLockName, token); err != nil {
				b.logger.WithError(err).Warn("Failed to release run lock")
			}
		}()
	}

	b.logger.WithFields(map[string]interface{}{
		"as_of":       asOf.Format(time.RFC3339),
		"period_days": periodDays,
	}).Info("Starting signal run")

	// The event slice must cover both the processed period and the
	// 24-hour cross-ad lookback.
	lookback := time.Duration(periodDays) * 24 * time.Hour
	if lookback < crossAdLookback {
		lookback = crossAdLookback
	}

	// Fetch from the start of the oldest day in the window. The upsert
	// fully replaces rows, so the boundary day must be recomputed from
	// full coverage or its stored counts would regress to a partial day.
	fetchStart := contracts.DayOf(asOf.Add(-lookback))

	events, err := b.clicks.GetByTimeRange(ctx, fetchStart, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch click events: %w", err)
	}

	perfRecords, err := b.perf.GetByDateRange(ctx, asOf.Add(-rollingWindow), asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch performance records: %w", err)
	}

	result.EventCount = len(events)
	result.PerfCount = len(perfRecords)

	// All four aggregates share the fetched slices and the one asOf
	// instant; none of them reads the clock.
	windowStats := b.window.Aggregate(events)
	crossAdCounts := b.crossAd.Aggregate(events, asOf)
	rollingPerf := b.rolling.Aggregate(perfRecords, asOf)
	nightRates := b.night.Aggregate(events)

	merged := b.merger.Merge(windowStats, crossAdCounts, rollingPerf, nightRates)

	if err := b.signals.SaveBatch(ctx, merged); err != nil {
		return nil, fmt.Errorf("failed to persist signals: %w", err)
	}

	result.SignalCount = len(merged)
	for i := range merged {
		if merged[i].Flagged() {
			result.FlaggedCount++
		}
	}

	result.FinishedAt = time.Now()
	result.Duration = result.FinishedAt.Sub(started)
	result.Success = true

	b.logger.WithFields(map[string]interface{}{
		"events":   result.EventCount,
		"perf":     result.PerfCount,
		"signals":  result.SignalCount,
		"flagged":  result.FlaggedCount,
		"duration": result.Duration,
	}).Info("Signal run completed")

	return result, nil
}
