package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/betpulse/betpulse-engine/internal/alert"
	"github.com/betpulse/betpulse-engine/internal/api/respond"
	"github.com/betpulse/betpulse-engine/internal/cache"
	"github.com/betpulse/betpulse-engine/internal/feedback"
)

type feedbackBody struct {
	UserID string `json:"user_id"`
	Action string `json:"action"`
}

// SubmitFeedback records a user's reaction to an alert.
// @Summary Submit alert feedback
// @Description Records led_to_bet, dismissed, or ignored for an alert. Idempotent: resubmitting returns the original record.
// @Tags feedback
// @Accept json
// @Produce json
// @Param alertID path string true "Alert ID"
// @Success 200 {object} feedback.Record
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /alerts/{alertID}/feedback [post]
func (h *Handler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "alertID")

	var body feedbackBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID == "" {
		respond.WriteError(w, http.StatusBadRequest, "MISSING_USER_ID", "user_id is required in the request body")
		return
	}

	rec, err := feedback.Submit(r.Context(), h.pool, alertID, body.UserID, body.Action, time.Now())
	if errors.Is(err, feedback.ErrInvalidAction) {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_ACTION",
			"action must be led_to_bet, dismissed, or ignored", body.Action)
		return
	}
	if errors.Is(err, alert.ErrNotFound) {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Alert not found")
		return
	}
	if err != nil {
		h.logger.Error("Submit feedback failed", "alert_id", alertID, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Failed to record feedback")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, rec)
}

// GetAnalytics returns alert-quality metrics for a user.
// @Summary Get feedback analytics
// @Description Aggregates useful rate, false positive rate, conversion rate, and time-to-action per alert type over a period such as 24h or 7d.
// @Tags feedback
// @Produce json
// @Param user_id query string true "User ID"
// @Param period query string false "Lookback window (default 30d)"
// @Success 200 {object} feedback.Analytics
// @Failure 400 {object} respond.ErrorResponse
// @Router /analytics [get]
func (h *Handler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respond.WriteError(w, http.StatusBadRequest, "MISSING_USER_ID", "user_id query parameter is required")
		return
	}
	period := r.URL.Query().Get("period")
	if _, err := feedback.ParsePeriod(period); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_PERIOD", "period must look like 24h or 7d")
		return
	}

	ttl := cache.TTLAnalytics
	cacheKey := fmt.Sprintf("analytics:%s:%s", userID, period)

	// Check cache
	if data, etag, ok := h.cache.Get(cacheKey); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, ttl, true)
		return
	}

	stats, err := feedback.GetAnalytics(r.Context(), h.pool, userID, period, time.Now())
	if err != nil {
		h.logger.Error("Analytics failed", "user_id", userID, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Failed to compute analytics")
		return
	}

	raw, err := json.Marshal(stats)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Failed to encode analytics")
		return
	}

	etag := h.cache.Set(cacheKey, raw, ttl)
	respond.WriteJSON(w, raw, etag, ttl, false)
}
