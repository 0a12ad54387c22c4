package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"lira-rate-alerts/internal/rates"
	"lira-rate-alerts/internal/service"
	"lira-rate-alerts/internal/storage"
)

type preferenceResponse struct {
	storage.Preference
	IsDefault bool `json:"is_default"`
}

type preferenceRequest struct {
	DefaultInterval  *string `json:"default_interval"`
	DefaultTimeRange *int    `json:"default_time_range"`
	DefaultDirection *string `json:"default_direction"`
	DefaultUSDToLBP  *bool   `json:"default_usd_to_lbp"`
}

// GetPreferences returns the caller's saved or default preferences.
func (h *Handler) GetPreferences(c *gin.Context) {
	id, _ := identity(c)
	pref, found, err := h.svc.Preference(c.Request.Context(), id.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, preferenceResponse{Preference: pref, IsDefault: !found})
}

// UpdatePreferences merges the given fields into the caller's preferences.
func (h *Handler) UpdatePreferences(c *gin.Context) {
	upd, ok := bindPreferenceUpdate(c)
	if !ok {
		return
	}
	id, _ := identity(c)
	pref, err := h.svc.UpdatePreference(c.Request.Context(), id.UserID, upd)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, preferenceResponse{Preference: pref})
}

// GetUserPreferences returns the saved preferences of the user in the path.
func (h *Handler) GetUserPreferences(c *gin.Context) {
	userID, err := idParam(c)
	if err != nil {
		abortError(c, http.StatusBadRequest, err.Error())
		return
	}
	pref, found, err := h.svc.Preference(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusOK, gin.H{"message": "No preferences set for this user", "data": nil})
		return
	}
	c.JSON(http.StatusOK, preferenceResponse{Preference: pref})
}

// CreateUserPreferences stores preferences for a user who has none.
func (h *Handler) CreateUserPreferences(c *gin.Context) {
	h.writeUserPreferences(c, h.svc.CreatePreference, http.StatusCreated)
}

// ReplaceUserPreferences updates a user's existing preferences.
func (h *Handler) ReplaceUserPreferences(c *gin.Context) {
	h.writeUserPreferences(c, h.svc.ReplacePreference, http.StatusOK)
}

// DeleteUserPreferences removes a user's preferences.
func (h *Handler) DeleteUserPreferences(c *gin.Context) {
	userID, err := idParam(c)
	if err != nil {
		abortError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.DeletePreference(c.Request.Context(), userID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User preferences deleted"})
}

type preferenceWriter func(ctx context.Context, userID int64, upd service.PreferenceUpdate) (storage.Preference, error)

func (h *Handler) writeUserPreferences(c *gin.Context, write preferenceWriter, status int) {
	userID, err := idParam(c)
	if err != nil {
		abortError(c, http.StatusBadRequest, err.Error())
		return
	}
	upd, ok := bindPreferenceUpdate(c)
	if !ok {
		return
	}
	pref, err := write(c.Request.Context(), userID, upd)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(status, preferenceResponse{Preference: pref})
}

func bindPreferenceUpdate(c *gin.Context) (service.PreferenceUpdate, bool) {
	var (
		req preferenceRequest
		upd service.PreferenceUpdate
	)
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid JSON body")
		return upd, false
	}

	if req.DefaultInterval != nil {
		interval, err := rates.ParseInterval(*req.DefaultInterval)
		if err != nil {
			abortError(c, http.StatusBadRequest, err.Error())
			return upd, false
		}
		upd.DefaultInterval = &interval
	}
	upd.DefaultTimeRange = req.DefaultTimeRange
	if req.DefaultDirection != nil || req.DefaultUSDToLBP != nil {
		raw := ""
		if req.DefaultDirection != nil {
			raw = *req.DefaultDirection
		}
		dir, err := directionBody(raw, req.DefaultUSDToLBP)
		if err != nil {
			abortError(c, http.StatusBadRequest, err.Error())
			return upd, false
		}
		upd.DefaultDirection = &dir
	}
	return upd, true
}
