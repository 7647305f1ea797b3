package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dgozlan/clickguard/internal/features"
	"github.com/dgozlan/clickguard/pkg/logger"
	"github.com/dgozlan/clickguard/pkg/redis"
)

// runStatusTTL keeps the last run result visible long enough for an
// operator checking after a daily schedule.
const runStatusTTL = 48 * time.Hour

// PipelineHandler triggers and reports on signal pipeline runs.
type PipelineHandler struct {
	builder    *features.Builder
	periodDays int
	cache      *redis.Cache
	logger     *logger.Logger
}

// NewPipelineHandler creates a new pipeline handler.
func NewPipelineHandler(builder *features.Builder, periodDays int, cache *redis.Cache, log *logger.Logger) *PipelineHandler {
	return &PipelineHandler{
		builder:    builder,
		periodDays: periodDays,
		cache:      cache,
		logger:     log,
	}
}

// RunRequest is the optional trigger body.
type RunRequest struct {
	AsOf string `json:"as_of,omitempty"` // RFC3339 or YYYY-MM-DD; default now
	Days int    `json:"days,omitempty"`  // default configured period
}

// TriggerRun runs the signal pipeline synchronously and returns the
// run result.
func (h *PipelineHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	asOf := time.Now().UTC()
	if req.AsOf != "" {
		parsed, err := parseAsOf(req.AsOf)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'as_of' (expected RFC3339 or YYYY-MM-DD)")
			return
		}
		asOf = parsed
	}

	days := h.periodDays
	if req.Days > 0 {
		days = req.Days
	}

	h.logger.WithFields(map[string]interface{}{
		"as_of": asOf.Format(time.RFC3339),
		"days":  days,
	}).Info("Pipeline run triggered via API")

	result, err := h.builder.Build(ctx, asOf, days)
	if err != nil {
		if errors.Is(err, features.ErrRunInProgress) {
			respondError(w, http.StatusConflict, "A signal run is already in progress")
			return
		}
		h.logger.WithError(err).Error("Pipeline run failed")
		respondError(w, http.StatusInternalServerError, "Pipeline run failed")
		return
	}

	if err := h.cache.Set(ctx, redis.RunStatusKey(), result, runStatusTTL); err != nil {
		h.logger.WithError(err).Warn("Failed to cache run status")
	}

	respondJSON(w, http.StatusOK, result)
}

// GetStatus returns the most recent run result, when known.
func (h *PipelineHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	var result map[string]interface{}
	hit, err := h.cache.Get(r.Context(), redis.RunStatusKey(), &result)
	if err != nil {
		h.logger.WithError(err).Error("Failed to read run status")
		respondError(w, http.StatusInternalServerError, "Failed to read run status")
		return
	}
	if !hit {
		respondJSON(w, http.StatusOK, map[string]string{"status": "no recorded runs"})
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func parseAsOf(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.ParseInLocation("2006-01-02", raw, time.UTC)
}
