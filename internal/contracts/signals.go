package contracts

import (
	"fmt"
	"time"
)

// SignalKey identifies one fraud signal row: one ad, one origin IP, one
// UTC day. Date must be a UTC midnight (see DayOf).
type SignalKey struct {
	Date      time.Time
	AdID      string
	IPAddress string
}

// FraudSignal is one computed, persisted row of fraud-risk features for a
// (day, ad, ip) key. Rows are fully overwritten on every run, never
// partially patched.
type FraudSignal struct {
	AsOfDate  time.Time `json:"as_of_date"`
	AdID      string    `json:"ad_id"`
	IPAddress string    `json:"ip_address"`

	ClicksDay        int64 `json:"clicks_day"`
	UniqDevicesDay   int64 `json:"uniq_devices_day"`
	UniqReferrersDay int64 `json:"uniq_referrers_day"`
	BurstMax5Min     int64 `json:"burst_max_5min"`
	UniqAdsIP24h     int64 `json:"uniq_ads_ip_24h"`

	CTR7d          float64 `json:"ctr_7d"`
	ConvRate7d     float64 `json:"conv_rate_7d"`
	NightClickRate float64 `json:"night_click_rate"`

	InvalidIPFlag     bool `json:"invalid_ip_flag"`
	MissingDeviceFlag bool `json:"missing_device_flag"`
	SuspiciousCTRFlag bool `json:"suspicious_ctr_flag"`
}

// Key returns the primary key of the signal row.
func (s *FraudSignal) Key() SignalKey {
	return SignalKey{Date: s.AsOfDate, AdID: s.AdID, IPAddress: s.IPAddress}
}

// Flagged reports whether any risk flag is set.
func (s *FraudSignal) Flagged() bool {
	return s.InvalidIPFlag || s.MissingDeviceFlag || s.SuspiciousCTRFlag
}

// Validate checks the structural invariants every produced row must hold.
func (s *FraudSignal) Validate() error {
	if s.ClicksDay < 1 {
		return fmt.Errorf("signal %s/%s: clicks_day must be >= 1, got %d", s.AdID, s.IPAddress, s.ClicksDay)
	}
	if s.UniqDevicesDay > s.ClicksDay {
		return fmt.Errorf("signal %s/%s: uniq_devices_day %d exceeds clicks_day %d", s.AdID, s.IPAddress, s.UniqDevicesDay, s.ClicksDay)
	}
	if s.UniqReferrersDay > s.ClicksDay {
		return fmt.Errorf("signal %s/%s: uniq_referrers_day %d exceeds clicks_day %d", s.AdID, s.IPAddress, s.UniqReferrersDay, s.ClicksDay)
	}
	if s.BurstMax5Min < 1 || s.BurstMax5Min > s.ClicksDay {
		return fmt.Errorf("signal %s/%s: burst_max_5min %d outside [1, %d]", s.AdID, s.IPAddress, s.BurstMax5Min, s.ClicksDay)
	}
	if s.UniqAdsIP24h < 1 {
		return fmt.Errorf("signal %s/%s: uniq_ads_ip_24h must be >= 1, got %d", s.AdID, s.IPAddress, s.UniqAdsIP24h)
	}
	if s.NightClickRate < 0 || s.NightClickRate > 1 {
		return fmt.Errorf("signal %s/%s: night_click_rate %f outside [0,1]", s.AdID, s.IPAddress, s.NightClickRate)
	}
	return nil
}
