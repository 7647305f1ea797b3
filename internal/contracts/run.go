package contracts

import "time"

// RunResult summarizes one pipeline run for status reporting.
type RunResult struct {
	AsOf       time.Time     `json:"as_of"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`

	EventCount   int `json:"event_count"`
	PerfCount    int `json:"perf_count"`
	SignalCount  int `json:"signal_count"`
	FlaggedCount int `json:"flagged_count"`

	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
