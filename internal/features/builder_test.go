package features

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgozlan/clickguard/internal/contracts"
	"github.com/dgozlan/clickguard/pkg/config"
	"github.com/dgozlan/clickguard/pkg/logger"
)

type fakeClickRepo struct {
	events []contracts.ClickEvent
	err    error
}

func (r *fakeClickRepo) GetByTimeRange(_ context.Context, from, to time.Time) ([]contracts.ClickEvent, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []contracts.ClickEvent
	for _, e := range r.events {
		if !e.ClickTime.Before(from) && !e.ClickTime.After(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakePerfRepo struct {
	records []contracts.PerformanceRecord
	err     error
}

func (r *fakePerfRepo) GetByDateRange(_ context.Context, from, to time.Time) ([]contracts.PerformanceRecord, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []contracts.PerformanceRecord
	for _, rec := range r.records {
		if !rec.Date.Before(from) && !rec.Date.After(to) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakePerfRepo) SaveBatch(_ context.Context, records []contracts.PerformanceRecord) error {
	r.records = append(r.records, records...)
	return nil
}

type fakeSignalRepo struct {
	rows  map[contracts.SignalKey]contracts.FraudSignal
	saves int
	err   error
}

func newFakeSignalRepo() *fakeSignalRepo {
	return &fakeSignalRepo{rows: make(map[contracts.SignalKey]contracts.FraudSignal)}
}

func (r *fakeSignalRepo) SaveBatch(_ context.Context, signals []contracts.FraudSignal) error {
	if r.err != nil {
		return r.err
	}
	r.saves++
	for _, s := range signals {
		r.rows[s.Key()] = s
	}
	return nil
}

func (r *fakeSignalRepo) GetByDate(_ context.Context, date time.Time) ([]contracts.FraudSignal, error) {
	var out []contracts.FraudSignal
	for _, s := range r.rows {
		if s.AsOfDate.Equal(date) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSignalRepo) GetByKey(_ context.Context, key contracts.SignalKey) (*contracts.FraudSignal, error) {
	if s, ok := r.rows[key]; ok {
		return &s, nil
	}
	return nil, nil
}

func (r *fakeSignalRepo) GetFlagged(_ context.Context, date time.Time) ([]contracts.FraudSignal, error) {
	var out []contracts.FraudSignal
	for _, s := range r.rows {
		if s.AsOfDate.Equal(date) && s.Flagged() {
			out = append(out, s)
		}
	}
	return out, nil
}

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "development", LogLevel: "error", LogFormat: "console"})
}

func newTestBuilder(clicks *fakeClickRepo, perf *fakePerfRepo, signals *fakeSignalRepo) *Builder {
	return NewBuilder(clicks, perf, signals, nil, time.Minute, testLogger())
}

func TestBuilder_BuildEndToEnd(t *testing.T) {
	asOf := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	day := contracts.DayOf(asOf)
	mobile := strPtr("Mobile")

	clicks := &fakeClickRepo{events: []contracts.ClickEvent{
		click("A1", "10.0.0.1", asOf.Add(-1*time.Hour), mobile, "https://ref.example.com"),
		click("A1", "10.0.0.1", asOf.Add(-1*time.Hour+30*time.Second), mobile, "https://ref.example.com"),
		click("A2", "10.0.0.1", asOf.Add(-2*time.Hour), nil, ""),
		click("A1", "255.255.255.255", asOf.Add(-3*time.Hour), mobile, ""),
	}}
	perf := &fakePerfRepo{records: []contracts.PerformanceRecord{
		perfRec("A1", day.Add(-24*time.Hour), 0.8, 0.1),
	}}
	signals := newFakeSignalRepo()

	result, err := newTestBuilder(clicks, perf, signals).Build(context.Background(), asOf, 2)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 4, result.EventCount)
	assert.Equal(t, 1, result.PerfCount)
	assert.Equal(t, 3, result.SignalCount)
	require.Len(t, signals.rows, 3)

	s1 := signals.rows[contracts.SignalKey{Date: day, AdID: "A1", IPAddress: "10.0.0.1"}]
	assert.Equal(t, int64(2), s1.ClicksDay)
	assert.Equal(t, int64(2), s1.BurstMax5Min)
	assert.Equal(t, int64(2), s1.UniqAdsIP24h, "10.0.0.1 touched A1 and A2")
	assert.InDelta(t, 0.8, s1.CTR7d, 1e-9)
	assert.True(t, s1.SuspiciousCTRFlag)
	assert.False(t, s1.InvalidIPFlag)
	assert.False(t, s1.MissingDeviceFlag)

	s2 := signals.rows[contracts.SignalKey{Date: day, AdID: "A2", IPAddress: "10.0.0.1"}]
	assert.True(t, s2.MissingDeviceFlag)
	assert.Zero(t, s2.CTR7d, "no performance rows for A2")
	assert.False(t, s2.SuspiciousCTRFlag)

	s3 := signals.rows[contracts.SignalKey{Date: day, AdID: "A1", IPAddress: "255.255.255.255"}]
	assert.True(t, s3.InvalidIPFlag)

	// Every flagged row is counted once.
	assert.Equal(t, 3, result.FlaggedCount)

	for key, s := range signals.rows {
		assert.NoError(t, s.Validate(), "key %v", key)
	}
}

func TestBuilder_BuildIdempotent(t *testing.T) {
	asOf := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	mobile := strPtr("Mobile")

	clicks := &fakeClickRepo{events: []contracts.ClickEvent{
		click("A1", "10.0.0.1", asOf.Add(-1*time.Hour), mobile, "https://ref.example.com"),
		click("A1", "10.0.0.1", asOf.Add(-90*time.Minute), mobile, ""),
	}}
	perf := &fakePerfRepo{records: []contracts.PerformanceRecord{
		perfRec("A1", contracts.DayOf(asOf).Add(-24*time.Hour), 0.2, 0.05),
	}}
	signals := newFakeSignalRepo()

	builder := newTestBuilder(clicks, perf, signals)

	_, err := builder.Build(context.Background(), asOf, 2)
	require.NoError(t, err)
	first := make(map[contracts.SignalKey]contracts.FraudSignal, len(signals.rows))
	for k, v := range signals.rows {
		first[k] = v
	}

	_, err = builder.Build(context.Background(), asOf, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, signals.saves)
	assert.Equal(t, first, signals.rows, "re-running the same as-of must not change stored rows")
}

func TestBuilder_UpstreamFailureWritesNothing(t *testing.T) {
	asOf := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	signals := newFakeSignalRepo()

	t.Run("click fetch fails", func(t *testing.T) {
		clicks := &fakeClickRepo{err: errors.New("connection refused")}
		_, err := newTestBuilder(clicks, &fakePerfRepo{}, signals).Build(context.Background(), asOf, 2)
		require.Error(t, err)
		assert.Zero(t, signals.saves)
	})

	t.Run("performance fetch fails", func(t *testing.T) {
		clicks := &fakeClickRepo{events: []contracts.ClickEvent{
			click("A1", "10.0.0.1", asOf.Add(-time.Hour), nil, ""),
		}}
		perf := &fakePerfRepo{err: errors.New("connection refused")}
		_, err := newTestBuilder(clicks, perf, signals).Build(context.Background(), asOf, 2)
		require.Error(t, err)
		assert.Zero(t, signals.saves)
	})
}

func TestBuilder_NoEventsNoRows(t *testing.T) {
	asOf := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	signals := newFakeSignalRepo()

	result, err := newTestBuilder(&fakeClickRepo{}, &fakePerfRepo{}, signals).Build(context.Background(), asOf, 2)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Zero(t, result.SignalCount)
	assert.Equal(t, 1, signals.saves, "an empty batch still commits as a no-op")
	assert.Empty(t, signals.rows)
}

func TestBuilder_BoundaryDayKeepsFullCounts(t *testing.T) {
	// Day D has clicks before and after the daily 02:30 run time. On
	// the later run D is the oldest day of the period; its row must be
	// recomputed from the whole day, not from 02:30 onward.
	day := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)

	clicks := &fakeClickRepo{events: []contracts.ClickEvent{
		click("A1", "10.0.0.1", day.Add(1*time.Hour), nil, ""),
		click("A1", "10.0.0.1", day.Add(10*time.Hour), nil, ""),
	}}
	signals := newFakeSignalRepo()
	builder := newTestBuilder(clicks, &fakePerfRepo{}, signals)

	key := contracts.SignalKey{Date: day, AdID: "A1", IPAddress: "10.0.0.1"}

	for _, asOf := range []time.Time{
		day.Add(24*time.Hour + 150*time.Minute), // next day 02:30
		day.Add(48*time.Hour + 150*time.Minute), // the day after, D now the boundary day
	} {
		_, err := builder.Build(context.Background(), asOf, 2)
		require.NoError(t, err)

		s, ok := signals.rows[key]
		require.True(t, ok, "day row missing after run at %s", asOf)
		assert.Equal(t, int64(2), s.ClicksDay, "run at %s", asOf)
	}
}

func TestBuilder_LookbackCoversCrossAdWindow(t *testing.T) {
	asOf := time.Date(2026, 8, 29, 2, 0, 0, 0, time.UTC)

	// period_days of 1 would only reach back to 02:00 yesterday, but the
	// cross-ad lookback needs the full trailing 24h; both land inside it.
	clicks := &fakeClickRepo{events: []contracts.ClickEvent{
		click("A1", "10.0.0.1", asOf.Add(-1*time.Hour), nil, ""),
		click("A2", "10.0.0.1", asOf.Add(-23*time.Hour), nil, ""),
	}}
	signals := newFakeSignalRepo()

	result, err := newTestBuilder(clicks, &fakePerfRepo{}, signals).Build(context.Background(), asOf, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, result.EventCount)

	s := signals.rows[contracts.SignalKey{Date: contracts.DayOf(asOf), AdID: "A1", IPAddress: "10.0.0.1"}]
	assert.Equal(t, int64(2), s.UniqAdsIP24h)
}
