package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/betpulse/betpulse-engine/internal/api/respond"
	"github.com/betpulse/betpulse-engine/internal/rules"
)

// GetPreferences returns a user's alert preferences.
// @Summary Get alert preferences
// @Description Returns the user's saved preferences, or the defaults when nothing was ever saved.
// @Tags preferences
// @Produce json
// @Param user_id query string true "User ID"
// @Success 200 {object} rules.AlertPreference
// @Failure 400 {object} respond.ErrorResponse
// @Router /preferences [get]
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respond.WriteError(w, http.StatusBadRequest, "MISSING_USER_ID", "user_id query parameter is required")
		return
	}

	pref, err := rules.GetPreference(r.Context(), h.pool, userID)
	if err != nil {
		h.logger.Error("Get preferences failed", "user_id", userID, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Failed to load preferences")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, pref)
}

// UpdatePreferences saves a full preference row.
// @Summary Update alert preferences
// @Description Validates and saves the user's preferences. Invalid fields return 400 with the offending field named.
// @Tags preferences
// @Accept json
// @Produce json
// @Success 200 {object} rules.AlertPreference
// @Failure 400 {object} respond.ErrorResponse
// @Router /preferences [put]
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var pref rules.AlertPreference
	if err := json.NewDecoder(r.Body).Decode(&pref); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "Request body must be a preference object")
		return
	}
	if pref.UserID == "" {
		respond.WriteError(w, http.StatusBadRequest, "MISSING_USER_ID", "user_id is required in the request body")
		return
	}

	err := rules.UpsertPreference(r.Context(), h.pool, pref)
	var verr *rules.ValidationError
	if errors.As(err, &verr) {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_PREFERENCE", verr.Reason, verr.Field)
		return
	}
	if err != nil {
		h.logger.Error("Update preferences failed", "user_id", pref.UserID, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Failed to save preferences")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, pref)
}
