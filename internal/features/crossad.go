package features

import (
	"time"

	"github.com/dgozlan/clickguard/internal/contracts"
)

// crossAdLookback is the trailing window for cross-ad touch counting.
const crossAdLookback = 24 * time.Hour

// CrossAdAggregator counts how many distinct ads an origin IP touched
// within the trailing 24 hours of the run's snapshot instant. The count
// is keyed by IP alone: it spans the whole window regardless of which
// calendar day each click fell on, and the merger surfaces the same
// value for every day-key the address drives.
type CrossAdAggregator struct{}

// NewCrossAdAggregator creates a new cross-ad aggregator.
func NewCrossAdAggregator() *CrossAdAggregator {
	return &CrossAdAggregator{}
}

// Aggregate counts distinct ads per IP over events inside
// (asOf-24h, asOf]. IPs with zero in-window events are absent.
func (a *CrossAdAggregator) Aggregate(events []contracts.ClickEvent, asOf time.Time) map[string]int64 {
	cutoff := asOf.Add(-crossAdLookback)

	ads := make(map[string]map[string]struct{})
	for _, e := range events {
		if !e.ClickTime.After(cutoff) || e.ClickTime.After(asOf) {
			continue
		}

		set, ok := ads[e.IPAddress]
		if !ok {
			set = make(map[string]struct{})
			ads[e.IPAddress] = set
		}
		set[e.AdID] = struct{}{}
	}

	out := make(map[string]int64, len(ads))
	for ip, set := range ads {
		out[ip] = int64(len(set))
	}
	return out
}
