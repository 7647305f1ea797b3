package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgozlan/clickguard/internal/contracts"
	"github.com/dgozlan/clickguard/pkg/config"
	"github.com/dgozlan/clickguard/pkg/httputil"
	"github.com/dgozlan/clickguard/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "development", LogLevel: "error", LogFormat: "console"})
}

type memPerfRepo struct {
	rows map[string]contracts.PerformanceRecord // ad_id|date
	err  error
}

func newMemPerfRepo() *memPerfRepo {
	return &memPerfRepo{rows: make(map[string]contracts.PerformanceRecord)}
}

func perfKey(adID string, date time.Time) string {
	return adID + "|" + date.Format("2006-01-02")
}

func (r *memPerfRepo) GetByDateRange(_ context.Context, from, to time.Time) ([]contracts.PerformanceRecord, error) {
	var out []contracts.PerformanceRecord
	for _, rec := range r.rows {
		if !rec.Date.Before(from) && !rec.Date.After(to) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memPerfRepo) SaveBatch(_ context.Context, records []contracts.PerformanceRecord) error {
	if r.err != nil {
		return r.err
	}
	for _, rec := range records {
		r.rows[perfKey(rec.AdID, rec.Date)] = rec
	}
	return nil
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	cfg := &config.Config{}
	cfg.AdPlatform.BaseURL = baseURL
	cfg.AdPlatform.APIKey = "test-key"
	cfg.AdPlatform.RateLimit = 100
	return NewClient(cfg, httputil.New(testLogger()).DisableRetry(), testLogger())
}

func TestClient_FetchDaily(t *testing.T) {
	day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "2026-08-28", r.URL.Query().Get("date"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"date": "2026-08-28",
			"rows": [
				{"ad_id": "A1", "impressions": 1000, "clicks": 50, "ctr": 0.05, "conversions": 5, "conversion_rate": 0.1, "bounce_rate": 0.4},
				{"ad_id": "", "clicks": 3},
				{"ad_id": "A2", "impressions": 200, "clicks": 120, "ctr": 0.6}
			]
		}`)
	}))
	defer server.Close()

	records, err := newTestClient(t, server.URL).FetchDaily(context.Background(), day)
	require.NoError(t, err)

	require.Len(t, records, 2, "rows without an ad id are dropped")
	assert.Equal(t, "A1", records[0].AdID)
	assert.Equal(t, day, records[0].Date)
	assert.InDelta(t, 0.05, records[0].CTR, 1e-9)
	assert.InDelta(t, 0.1, records[0].ConversionRate, 1e-9)
	assert.Equal(t, "A2", records[1].AdID)
}

func TestClient_FetchDailyServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).FetchDaily(context.Background(), time.Now().UTC())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

type fakeFetcher struct {
	byDay map[string][]contracts.PerformanceRecord
	errs  map[string]error
	calls []string
}

func (f *fakeFetcher) FetchDaily(_ context.Context, date time.Time) ([]contracts.PerformanceRecord, error) {
	key := date.Format("2006-01-02")
	f.calls = append(f.calls, key)
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	return f.byDay[key], nil
}

func TestCollector_Collect(t *testing.T) {
	day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	fetcher := &fakeFetcher{byDay: map[string][]contracts.PerformanceRecord{
		"2026-08-28": {
			{AdID: "A1", Date: day, Clicks: 10, CTR: 0.1},
			{AdID: "A2", Date: day, Clicks: 20, CTR: 0.2},
		},
	}}
	repo := newMemPerfRepo()

	n, err := NewCollector(fetcher, repo, testLogger()).Collect(context.Background(), day.Add(13*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, repo.rows, 2)
	assert.Equal(t, []string{"2026-08-28"}, fetcher.calls, "intra-day timestamps collapse to the day")
}

func TestCollector_CollectRangeSkipsBadDays(t *testing.T) {
	d1 := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)
	d3 := d1.Add(48 * time.Hour)

	fetcher := &fakeFetcher{
		byDay: map[string][]contracts.PerformanceRecord{
			"2026-08-26": {{AdID: "A1", Date: d1, Clicks: 1}},
			"2026-08-28": {{AdID: "A1", Date: d3, Clicks: 3}},
		},
		errs: map[string]error{"2026-08-27": errors.New("upstream timeout")},
	}
	repo := newMemPerfRepo()

	n, err := NewCollector(fetcher, repo, testLogger()).CollectRange(context.Background(), d1, d3)
	require.Error(t, err, "a failed day surfaces after the rest complete")
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"2026-08-26", "2026-08-27", "2026-08-28"}, fetcher.calls)
	assert.Len(t, repo.rows, 2)
}

func TestCollector_CollectRangeInvalid(t *testing.T) {
	now := time.Now().UTC()
	_, err := NewCollector(&fakeFetcher{}, newMemPerfRepo(), testLogger()).
		CollectRange(context.Background(), now, now.Add(-48*time.Hour))
	assert.Error(t, err)
}
