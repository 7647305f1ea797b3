package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dgozlan/clickguard/internal/contracts"
)

func TestNightRatioAggregator_Fraction(t *testing.T) {
	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	events := []contracts.ClickEvent{
		click("A1", "10.0.0.1", day.Add(2*time.Hour), nil, ""),  // 02:00 night
		click("A1", "10.0.0.1", day.Add(4*time.Hour), nil, ""),  // 04:00 night
		click("A1", "10.0.0.1", day.Add(14*time.Hour), nil, ""), // 14:00 day
		click("A1", "10.0.0.1", day.Add(20*time.Hour), nil, ""), // 20:00 day
	}

	out := NewNightRatioAggregator().Aggregate(events)

	key := contracts.SignalKey{Date: day, AdID: "A1", IPAddress: "10.0.0.1"}
	assert.InDelta(t, 0.5, out[key], 1e-9)
}

func TestNightRatioAggregator_HourBandEdges(t *testing.T) {
	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		at    time.Time
		night bool
	}{
		{"midnight", day, true},
		{"last night hour", day.Add(5*time.Hour + 59*time.Minute), true},
		{"first day hour", day.Add(6 * time.Hour), false},
		{"last hour of day", day.Add(23 * time.Hour), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := NewNightRatioAggregator().Aggregate([]contracts.ClickEvent{
				click("A1", "10.0.0.1", tc.at, nil, ""),
			})

			key := contracts.SignalKey{Date: day, AdID: "A1", IPAddress: "10.0.0.1"}
			want := 0.0
			if tc.night {
				want = 1.0
			}
			assert.InDelta(t, want, out[key], 1e-9)
		})
	}
}

func TestNightRatioAggregator_UTCHourDecides(t *testing.T) {
	// 23:00 in UTC-5 is 04:00 UTC the next day: inside the night band.
	est := time.FixedZone("EST", -5*3600)
	at := time.Date(2026, 8, 28, 23, 0, 0, 0, est)

	out := NewNightRatioAggregator().Aggregate([]contracts.ClickEvent{
		click("A1", "10.0.0.1", at, nil, ""),
	})

	key := contracts.SignalKey{
		Date:      time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC),
		AdID:      "A1",
		IPAddress: "10.0.0.1",
	}
	assert.InDelta(t, 1.0, out[key], 1e-9)
}

func TestNightRatioAggregator_RatesBounded(t *testing.T) {
	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	var events []contracts.ClickEvent
	for h := 0; h < 24; h++ {
		events = append(events, click("A1", "10.0.0.1", day.Add(time.Duration(h)*time.Hour), nil, ""))
	}

	out := NewNightRatioAggregator().Aggregate(events)
	for key, rate := range out {
		assert.GreaterOrEqual(t, rate, 0.0, "key %v", key)
		assert.LessOrEqual(t, rate, 1.0, "key %v", key)
	}
}
