package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// VolumeReport summarises transaction volume over a date range.
func (h *Handler) VolumeReport(c *gin.Context) {
	w, err := h.windowOrDefault(c)
	if err != nil {
		abortError(c, http.StatusBadRequest, err.Error())
		return
	}
	report, err := h.svc.Volume(c.Request.Context(), w)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

type adminNotificationRequest struct {
	UserID  int64  `json:"user_id"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// SendNotification writes an administrative notification to a user.
func (h *Handler) SendNotification(c *gin.Context) {
	var req adminNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid JSON body")
		return
	}
	note, err := h.svc.SendNotification(c.Request.Context(), req.UserID, req.Title, req.Message)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, note)
}

// Stats returns the system-wide transaction overview.
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
