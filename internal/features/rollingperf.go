package features

import (
	"time"

	"github.com/dgozlan/clickguard/internal/contracts"
)

// rollingWindow is the trailing window for ad performance means.
const rollingWindow = 7 * 24 * time.Hour

// PerfWindow holds the 7-day trailing performance means for one ad.
type PerfWindow struct {
	CTR7d      float64
	ConvRate7d float64
}

// RollingPerfAggregator computes per-ad trailing means of CTR and
// conversion rate, keyed by ad_id only. Every key of an ad in a run
// shares the same rolling value regardless of the row's own date.
type RollingPerfAggregator struct{}

// NewRollingPerfAggregator creates a new rolling performance aggregator.
func NewRollingPerfAggregator() *RollingPerfAggregator {
	return &RollingPerfAggregator{}
}

// Aggregate averages CTR and conversion rate per ad over records with
// date inside (asOf-7d, asOf]. Ads with no in-window records are absent.
func (a *RollingPerfAggregator) Aggregate(records []contracts.PerformanceRecord, asOf time.Time) map[string]PerfWindow {
	cutoff := asOf.Add(-rollingWindow)

	type sums struct {
		ctr  float64
		conv float64
		n    int
	}

	byAd := make(map[string]*sums)
	for _, rec := range records {
		if !rec.Date.After(cutoff) || rec.Date.After(asOf) {
			continue
		}

		s, ok := byAd[rec.AdID]
		if !ok {
			s = &sums{}
			byAd[rec.AdID] = s
		}
		s.ctr += rec.CTR
		s.conv += rec.ConversionRate
		s.n++
	}

	out := make(map[string]PerfWindow, len(byAd))
	for adID, s := range byAd {
		out[adID] = PerfWindow{
			CTR7d:      s.ctr / float64(s.n),
			ConvRate7d: s.conv / float64(s.n),
		}
	}
	return out
}
