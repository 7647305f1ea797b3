package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dgozlan/clickguard/internal/contracts"
	"github.com/dgozlan/clickguard/pkg/logger"
	"github.com/dgozlan/clickguard/pkg/redis"
)

// summaryCacheTTL bounds staleness of the cached per-day summary.
const summaryCacheTTL = 5 * time.Minute

// SignalHandler serves fraud signal queries.
type SignalHandler struct {
	signals contracts.SignalRepository
	cache   *redis.Cache
	logger  *logger.Logger
}

// NewSignalHandler creates a new signal handler.
func NewSignalHandler(signals contracts.SignalRepository, cache *redis.Cache, log *logger.Logger) *SignalHandler {
	return &SignalHandler{
		signals: signals,
		cache:   cache,
		logger:  log,
	}
}

// SignalsResponse is the signal list payload.
type SignalsResponse struct {
	Date    string                  `json:"date"`
	Count   int                     `json:"count"`
	Signals []contracts.FraudSignal `json:"signals"`
}

// SummaryResponse is the per-day summary payload.
type SummaryResponse struct {
	Date          string `json:"date"`
	Total         int    `json:"total"`
	Flagged       int    `json:"flagged"`
	InvalidIP     int    `json:"invalid_ip"`
	MissingDevice int    `json:"missing_device"`
	SuspiciousCTR int    `json:"suspicious_ctr"`
}

// GetSignals returns signal rows for one day. Query params: date
// (YYYY-MM-DD, default yesterday UTC), ad_id, ip, flagged=true.
func (h *SignalHandler) GetSignals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	date, err := parseDateParam(r, "date")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid 'date' format (expected YYYY-MM-DD)")
		return
	}

	flaggedOnly := r.URL.Query().Get("flagged") == "true"

	var rows []contracts.FraudSignal
	if flaggedOnly {
		rows, err = h.signals.GetFlagged(ctx, date)
	} else {
		rows, err = h.signals.GetByDate(ctx, date)
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to query signals")
		respondError(w, http.StatusInternalServerError, "Failed to query signals")
		return
	}

	adID := r.URL.Query().Get("ad_id")
	ip := r.URL.Query().Get("ip")
	if adID != "" || ip != "" {
		filtered := rows[:0]
		for _, s := range rows {
			if adID != "" && s.AdID != adID {
				continue
			}
			if ip != "" && s.IPAddress != ip {
				continue
			}
			filtered = append(filtered, s)
		}
		rows = filtered
	}

	if rows == nil {
		rows = []contracts.FraudSignal{}
	}

	respondJSON(w, http.StatusOK, SignalsResponse{
		Date:    date.Format("2006-01-02"),
		Count:   len(rows),
		Signals: rows,
	})
}

// GetSummary returns cached per-day flag counts.
func (h *SignalHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	date, err := parseDateParam(r, "date")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid 'date' format (expected YYYY-MM-DD)")
		return
	}

	cacheKey := redis.SignalSummaryKey(date.Format("2006-01-02"))

	var summary SummaryResponse
	if hit, err := h.cache.Get(ctx, cacheKey, &summary); err == nil && hit {
		respondJSON(w, http.StatusOK, summary)
		return
	}

	rows, err := h.signals.GetByDate(ctx, date)
	if err != nil {
		h.logger.WithError(err).Error("Failed to query signals for summary")
		respondError(w, http.StatusInternalServerError, "Failed to build summary")
		return
	}

	summary = SummaryResponse{Date: date.Format("2006-01-02"), Total: len(rows)}
	for i := range rows {
		s := &rows[i]
		if s.Flagged() {
			summary.Flagged++
		}
		if s.InvalidIPFlag {
			summary.InvalidIP++
		}
		if s.MissingDeviceFlag {
			summary.MissingDevice++
		}
		if s.SuspiciousCTRFlag {
			summary.SuspiciousCTR++
		}
	}

	if err := h.cache.Set(ctx, cacheKey, summary, summaryCacheTTL); err != nil {
		h.logger.WithError(err).Warn("Failed to cache signal summary")
	}

	respondJSON(w, http.StatusOK, summary)
}

// parseDateParam reads a YYYY-MM-DD query param, defaulting to
// yesterday UTC when absent.
func parseDateParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return contracts.DayOf(time.Now().UTC().Add(-24 * time.Hour)), nil
	}
	return time.ParseInLocation("2006-01-02", raw, time.UTC)
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes a JSON error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
