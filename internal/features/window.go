package features

import (
	"sort"
	"time"

	"github.com/dgozlan/clickguard/internal/contracts"
)

// burstWindow is the trailing window used for the burst feature.
const burstWindow = 5 * time.Minute

// WindowStats holds the per-(day, ad, ip) daily aggregates.
type WindowStats struct {
	Clicks        int64
	UniqDevices   int64
	UniqReferrers int64
	BurstMax5Min  int64
}

// WindowAggregator computes daily click counts, distinct device and
// referrer counts, and the 5-minute burst peak per (day, ad, ip) key.
type WindowAggregator struct{}

// NewWindowAggregator creates a new window aggregator.
func NewWindowAggregator() *WindowAggregator {
	return &WindowAggregator{}
}

// Aggregate groups events by (UTC day, ad, ip) and computes the daily
// stats. Keys with zero events are simply absent from the output.
func (a *WindowAggregator) Aggregate(events []contracts.ClickEvent) map[contracts.SignalKey]WindowStats {
	type group struct {
		times     []time.Time
		devices   map[string]struct{}
		referrers map[string]struct{}
	}

	groups := make(map[contracts.SignalKey]*group)
	for _, e := range events {
		key := contracts.SignalKey{Date: e.Day(), AdID: e.AdID, IPAddress: e.IPAddress}

		g, ok := groups[key]
		if !ok {
			g = &group{
				devices:   make(map[string]struct{}),
				referrers: make(map[string]struct{}),
			}
			groups[key] = g
		}

		g.times = append(g.times, e.ClickTime)
		if e.DeviceType != nil && *e.DeviceType != "" {
			g.devices[*e.DeviceType] = struct{}{}
		}
		if e.ReferrerURL != "" {
			g.referrers[e.ReferrerURL] = struct{}{}
		}
	}

	out := make(map[contracts.SignalKey]WindowStats, len(groups))
	for key, g := range groups {
		out[key] = WindowStats{
			Clicks:        int64(len(g.times)),
			UniqDevices:   int64(len(g.devices)),
			UniqReferrers: int64(len(g.referrers)),
			BurstMax5Min:  burstMax(g.times),
		}
	}
	return out
}

// burstMax returns the maximum event count inside any trailing 5-minute
// window ending at an event. Events sharing a timestamp land in the same
// window.
func burstMax(times []time.Time) int64 {
	if len(times) == 0 {
		return 0
	}

	sorted := make([]time.Time, len(times))
	copy(sorted, times)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	var max int64
	start := 0
	for i, t := range sorted {
		for t.Sub(sorted[start]) > burstWindow {
			start++
		}
		if count := int64(i - start + 1); count > max {
			max = count
		}
	}
	return max
}
