package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type watchlistRequest struct {
	Label      string           `json:"label"`
	Direction  string           `json:"direction"`
	USDToLBP   *bool            `json:"usd_to_lbp"`
	TargetRate *decimal.Decimal `json:"target_rate"`
}

// AddWatchlistItem stores a followed direction for the caller.
func (h *Handler) AddWatchlistItem(c *gin.Context) {
	var req watchlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid JSON body")
		return
	}
	dir, err := directionBody(req.Direction, req.USDToLBP)
	if err != nil {
		abortError(c, http.StatusBadRequest, err.Error())
		return
	}

	id, _ := identity(c)
	item, err := h.svc.AddWatchlistItem(c.Request.Context(), id.UserID, req.Label, dir, req.TargetRate)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// ListWatchlist returns the caller's watchlist, newest first.
func (h *Handler) ListWatchlist(c *gin.Context) {
	id, _ := identity(c)
	items, err := h.svc.ListWatchlist(c.Request.Context(), id.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// RemoveWatchlistItem deletes one of the caller's watchlist items.
func (h *Handler) RemoveWatchlistItem(c *gin.Context) {
	itemID, err := idParam(c)
	if err != nil {
		abortError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.RemoveWatchlistItem(c.Request.Context(), h.actor(c), itemID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item removed from watchlist"})
}
