package features

import (
	"github.com/dgozlan/clickguard/internal/contracts"
)

// Night band: clicks whose UTC hour falls in [nightStartHour, nightEndHour].
const (
	nightStartHour = 0
	nightEndHour   = 5
)

// NightRatioAggregator computes the fraction of a key's clicks that land
// in the low-traffic night band, keyed by (day, ad, ip).
type NightRatioAggregator struct{}

// NewNightRatioAggregator creates a new night-ratio aggregator.
func NewNightRatioAggregator() *NightRatioAggregator {
	return &NightRatioAggregator{}
}

// Aggregate computes night click fractions per (day, ad, ip). Keys with
// zero events are absent; rates are always within [0, 1].
func (a *NightRatioAggregator) Aggregate(events []contracts.ClickEvent) map[contracts.SignalKey]float64 {
	type counts struct {
		total int64
		night int64
	}

	byKey := make(map[contracts.SignalKey]*counts)
	for _, e := range events {
		key := contracts.SignalKey{Date: e.Day(), AdID: e.AdID, IPAddress: e.IPAddress}

		c, ok := byKey[key]
		if !ok {
			c = &counts{}
			byKey[key] = c
		}

		c.total++
		hour := e.ClickTime.UTC().Hour()
		if hour >= nightStartHour && hour <= nightEndHour {
			c.night++
		}
	}

	out := make(map[contracts.SignalKey]float64, len(byKey))
	for key, c := range byKey {
		out[key] = float64(c.night) / float64(c.total)
	}
	return out
}
