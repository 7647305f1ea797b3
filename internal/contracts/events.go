package contracts

import "time"

// ClickEvent is a single row from the append-only click event log.
// Events are immutable and may arrive out of time order.
type ClickEvent struct {
	AdID        string    `json:"ad_id"`
	IPAddress   string    `json:"ip_address"`
	DeviceType  *string   `json:"device_type"` // nil when the upstream row had no device
	ClickTime   time.Time `json:"click_time"`
	ReferrerURL string    `json:"referrer_url"`
	UserAgent   string    `json:"user_agent"`
}

// Day returns the UTC day bucket the event falls into.
func (e *ClickEvent) Day() time.Time {
	return DayOf(e.ClickTime)
}

// PerformanceRecord is one externally produced per-ad per-day performance
// aggregate from the ad platform.
type PerformanceRecord struct {
	AdID           string    `json:"ad_id"`
	Date           time.Time `json:"date"`
	Impressions    int64     `json:"impressions"`
	Clicks         int64     `json:"clicks"`
	CTR            float64   `json:"ctr"`
	Conversions    int64     `json:"conversions"`
	ConversionRate float64   `json:"conversion_rate"`
	BounceRate     float64   `json:"bounce_rate"`
}

// DayOf truncates an instant to its UTC day.
func DayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
