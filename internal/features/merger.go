package features

import (
	"sort"

	"github.com/dgozlan/clickguard/internal/contracts"
)

const (
	// invalidIPSentinel marks click rows whose origin failed upstream
	// validation. Unparseable addresses pass through unflagged; only the
	// exact sentinel matches.
	invalidIPSentinel = "255.255.255.255"

	// suspiciousCTRThreshold flags ads whose 7-day CTR exceeds it
	// (strict comparison).
	suspiciousCTRThreshold = 0.5
)

// Defaults substituted when an aggregate has no match for a driving key.
const (
	defaultUniqAdsIP24h   = 1
	defaultCTR7d          = 0.0
	defaultConvRate7d     = 0.0
	defaultNightClickRate = 0.0
)

// Merger joins the four aggregates into fraud signal rows and derives
// the risk flags. The window aggregate drives: a key absent there never
// yields a signal, whatever the other aggregates contain.
type Merger struct{}

// NewMerger creates a new signal merger.
func NewMerger() *Merger {
	return &Merger{}
}

// Merge left-augments each window key with hash-join lookups into the
// other three aggregates, substitutes documented defaults for misses,
// and derives the flags. Output is sorted by (date, ad, ip) so repeated
// runs over identical inputs produce identical batches.
func (m *Merger) Merge(
	window map[contracts.SignalKey]WindowStats,
	crossAd map[string]int64,
	rolling map[string]PerfWindow,
	night map[contracts.SignalKey]float64,
) []contracts.FraudSignal {
	signals := make([]contracts.FraudSignal, 0, len(window))

	for key, stats := range window {
		uniqAds := int64(defaultUniqAdsIP24h)
		if n, ok := crossAd[key.IPAddress]; ok {
			uniqAds = n
		}

		ctr7d := defaultCTR7d
		convRate7d := defaultConvRate7d
		if perf, ok := rolling[key.AdID]; ok {
			ctr7d = perf.CTR7d
			convRate7d = perf.ConvRate7d
		}

		nightRate := defaultNightClickRate
		if rate, ok := night[key]; ok {
			nightRate = rate
		}

		signals = append(signals, contracts.FraudSignal{
			AsOfDate:  key.Date,
			AdID:      key.AdID,
			IPAddress: key.IPAddress,

			ClicksDay:        stats.Clicks,
			UniqDevicesDay:   stats.UniqDevices,
			UniqReferrersDay: stats.UniqReferrers,
			BurstMax5Min:     stats.BurstMax5Min,
			UniqAdsIP24h:     uniqAds,

			CTR7d:          ctr7d,
			ConvRate7d:     convRate7d,
			NightClickRate: nightRate,

			InvalidIPFlag:     stats.Clicks > 0 && key.IPAddress == invalidIPSentinel,
			MissingDeviceFlag: stats.UniqDevices == 0,
			SuspiciousCTRFlag: ctr7d > suspiciousCTRThreshold,
		})
	}

	sort.Slice(signals, func(i, j int) bool {
		a, b := &signals[i], &signals[j]
		if !a.AsOfDate.Equal(b.AsOfDate) {
			return a.AsOfDate.Before(b.AsOfDate)
		}
		if a.AdID != b.AdID {
			return a.AdID < b.AdID
		}
		return a.IPAddress < b.IPAddress
	})

	return signals
}
