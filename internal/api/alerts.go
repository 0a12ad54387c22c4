package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"lira-rate-alerts/internal/storage"
)

type alertRequest struct {
	Direction  string          `json:"direction"`
	USDToLBP   *bool           `json:"usd_to_lbp"`
	Threshold  decimal.Decimal `json:"threshold"`
	Comparison string          `json:"comparison"`
}

// CreateAlert stores a threshold alert for the caller.
func (h *Handler) CreateAlert(c *gin.Context) {
	id, _ := identity(c)
	h.createAlertFor(c, id.UserID)
}

// CreateUserAlert stores an alert on behalf of the user in the path.
func (h *Handler) CreateUserAlert(c *gin.Context) {
	userID, err := idParam(c)
	if err != nil {
		abortError(c, http.StatusBadRequest, err.Error())
		return
	}
	h.createAlertFor(c, userID)
}

func (h *Handler) createAlertFor(c *gin.Context, userID int64) {
	var req alertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid JSON body")
		return
	}
	dir, err := directionBody(req.Direction, req.USDToLBP)
	if err != nil {
		abortError(c, http.StatusBadRequest, err.Error())
		return
	}
	cmp, err := storage.ParseComparison(req.Comparison)
	if err != nil {
		abortError(c, http.StatusBadRequest, err.Error())
		return
	}

	alert, err := h.svc.CreateAlert(c.Request.Context(), userID, dir, req.Threshold, cmp)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, alert)
}

// ListAlerts returns the caller's alerts.
func (h *Handler) ListAlerts(c *gin.Context) {
	id, _ := identity(c)
	h.listAlertsFor(c, id.UserID)
}

// ListUserAlerts returns the alerts of the user in the path.
func (h *Handler) ListUserAlerts(c *gin.Context) {
	userID, err := idParam(c)
	if err != nil {
		abortError(c, http.StatusBadRequest, err.Error())
		return
	}
	h.listAlertsFor(c, userID)
}

func (h *Handler) listAlertsFor(c *gin.Context, userID int64) {
	alerts, err := h.svc.ListAlerts(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, alerts)
}

// DeleteAlert removes an alert owned by the caller, or any alert for admins.
func (h *Handler) DeleteAlert(c *gin.Context) {
	alertID, err := idParam(c)
	if err != nil {
		abortError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.DeleteAlert(c.Request.Context(), h.actor(c), alertID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Alert deleted"})
}

// CheckAlerts evaluates the caller's alerts without notifying.
func (h *Handler) CheckAlerts(c *gin.Context) {
	id, _ := identity(c)
	h.checkAlertsFor(c, id.UserID)
}

// CheckUserAlerts is the administrative variant of CheckAlerts.
func (h *Handler) CheckUserAlerts(c *gin.Context) {
	userID, err := idParam(c)
	if err != nil {
		abortError(c, http.StatusBadRequest, err.Error())
		return
	}
	h.checkAlertsFor(c, userID)
}

func (h *Handler) checkAlertsFor(c *gin.Context, userID int64) {
	ev, err := h.svc.CheckAlerts(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}
