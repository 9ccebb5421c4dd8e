package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/betpulse/betpulse-engine/internal/alert"
	"github.com/betpulse/betpulse-engine/internal/api/respond"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 200
)

// userIDBody is the body shape for alert state changes. Identity is trusted
// here; the gateway authenticated the caller.
type userIDBody struct {
	UserID string `json:"user_id"`
}

func decodeUserID(r *http.Request) (string, error) {
	var body userIDBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.UserID, nil
}

// ListUnreadAlerts returns a user's live alerts newest-first.
// @Summary List unread alerts
// @Description Returns the user's unread alerts, newest first. Read, dismissed, and expired alerts are excluded.
// @Tags alerts
// @Produce json
// @Param user_id query string true "User ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Router /alerts/unread [get]
func (h *Handler) ListUnreadAlerts(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respond.WriteError(w, http.StatusBadRequest, "MISSING_USER_ID", "user_id query parameter is required")
		return
	}

	alerts, err := alert.ListUnread(r.Context(), h.pool, userID)
	if err != nil {
		h.logger.Error("List unread failed", "user_id", userID, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Failed to list alerts")
		return
	}
	if alerts == nil {
		alerts = []alert.Alert{}
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// ListRecentAlerts returns a user's most recent alerts regardless of state.
// @Summary List recent alerts
// @Description Returns the user's most recent alerts in any state, newest first.
// @Tags alerts
// @Produce json
// @Param user_id query string true "User ID"
// @Param limit query int false "Max rows (default 50, cap 200)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Router /alerts/recent [get]
func (h *Handler) ListRecentAlerts(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respond.WriteError(w, http.StatusBadRequest, "MISSING_USER_ID", "user_id query parameter is required")
		return
	}

	limit := defaultRecentLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			respond.WriteError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer")
			return
		}
		if n > maxRecentLimit {
			n = maxRecentLimit
		}
		limit = n
	}

	alerts, err := alert.ListRecent(r.Context(), h.pool, userID, limit)
	if err != nil {
		h.logger.Error("List recent failed", "user_id", userID, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Failed to list alerts")
		return
	}
	if alerts == nil {
		alerts = []alert.Alert{}
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// MarkAlertRead marks one alert as read.
// @Summary Mark alert read
// @Description Marks a single alert as read. 404 when the alert does not exist or belongs to another user.
// @Tags alerts
// @Accept json
// @Produce json
// @Param alertID path string true "Alert ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /alerts/{alertID}/read [post]
func (h *Handler) MarkAlertRead(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "alertID")
	userID, err := decodeUserID(r)
	if err != nil || userID == "" {
		respond.WriteError(w, http.StatusBadRequest, "MISSING_USER_ID", "user_id is required in the request body")
		return
	}

	err = alert.MarkRead(r.Context(), h.pool, alertID, userID)
	if errors.Is(err, alert.ErrNotFound) {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Alert not found")
		return
	}
	if err != nil {
		h.logger.Error("Mark read failed", "alert_id", alertID, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Failed to mark alert read")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"alert_id": alertID,
		"is_read":  true,
	})
}

// MarkAllAlertsRead marks every unread alert for a user.
// @Summary Mark all alerts read
// @Description Marks all of the user's unread alerts read. Reports partial success rather than rolling back.
// @Tags alerts
// @Accept json
// @Produce json
// @Success 200 {object} alert.MarkAllResult
// @Failure 400 {object} respond.ErrorResponse
// @Router /alerts/read-all [post]
func (h *Handler) MarkAllAlertsRead(w http.ResponseWriter, r *http.Request) {
	userID, err := decodeUserID(r)
	if err != nil || userID == "" {
		respond.WriteError(w, http.StatusBadRequest, "MISSING_USER_ID", "user_id is required in the request body")
		return
	}

	res, err := alert.MarkAllRead(r.Context(), h.pool, userID)
	if err != nil {
		h.logger.Error("Mark all read failed", "user_id", userID, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Failed to mark alerts read")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, res)
}

// DismissAlert dismisses one alert.
// @Summary Dismiss alert
// @Description Dismisses a single alert so it leaves the unread feed for good.
// @Tags alerts
// @Accept json
// @Produce json
// @Param alertID path string true "Alert ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /alerts/{alertID}/dismiss [post]
func (h *Handler) DismissAlert(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "alertID")
	userID, err := decodeUserID(r)
	if err != nil || userID == "" {
		respond.WriteError(w, http.StatusBadRequest, "MISSING_USER_ID", "user_id is required in the request body")
		return
	}

	err = alert.Dismiss(r.Context(), h.pool, alertID, userID)
	if errors.Is(err, alert.ErrNotFound) {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Alert not found")
		return
	}
	if err != nil {
		h.logger.Error("Dismiss failed", "alert_id", alertID, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Failed to dismiss alert")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"alert_id":  alertID,
		"dismissed": true,
	})
}
