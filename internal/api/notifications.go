package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListNotifications returns the caller's inbox with the unread count.
func (h *Handler) ListNotifications(c *gin.Context) {
	id, _ := identity(c)
	list, err := h.svc.ListNotifications(c.Request.Context(), id.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// MarkNotificationRead flags one notification as read.
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	noteID, err := idParam(c)
	if err != nil {
		abortError(c, http.StatusBadRequest, err.Error())
		return
	}
	id, _ := identity(c)
	note, err := h.svc.MarkNotificationRead(c.Request.Context(), id.UserID, noteID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, note)
}

// DeleteNotification removes one notification.
func (h *Handler) DeleteNotification(c *gin.Context) {
	noteID, err := idParam(c)
	if err != nil {
		abortError(c, http.StatusBadRequest, err.Error())
		return
	}
	id, _ := identity(c)
	if err := h.svc.DeleteNotification(c.Request.Context(), id.UserID, noteID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted"})
}

// ClearNotifications removes all of the caller's notifications.
func (h *Handler) ClearNotifications(c *gin.Context) {
	id, _ := identity(c)
	if err := h.svc.ClearNotifications(c.Request.Context(), id.UserID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications deleted"})
}
