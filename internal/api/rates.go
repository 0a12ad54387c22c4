package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lira-rate-alerts/internal/rates"
	"lira-rate-alerts/internal/service"
	"lira-rate-alerts/internal/storage"
)

type exchangeRateResponse struct {
	rates.CurrentRates
	WindowHours float64 `json:"window_hours"`
}

// ExchangeRate reports the trailing average per direction, outliers excluded.
func (h *Handler) ExchangeRate(c *gin.Context) {
	current, err := h.svc.CurrentRates(c.Request.Context(), h.svc.Now())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, exchangeRateResponse{
		CurrentRates: current.Rounded(),
		WindowHours:  h.svc.Window().Hours(),
	})
}

type analyticsResponse struct {
	Direction storage.Direction `json:"direction"`
	From      string            `json:"start_date"`
	To        string            `json:"end_date"`
	*rates.Statistics
}

// Analytics returns rate statistics for a direction and date range.
func (h *Handler) Analytics(c *gin.Context) {
	dir, err := directionQuery(c)
	if err != nil {
		abortError(c, http.StatusBadRequest, err.Error())
		return
	}
	direction := storage.DirectionUSDToLBP
	if dir != nil {
		direction = *dir
	}
	w, err := h.windowOrDefault(c)
	if err != nil {
		abortError(c, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := h.svc.Statistics(c.Request.Context(), direction, w)
	if err != nil {
		h.fail(c, err)
		return
	}
	if stats == nil {
		c.JSON(http.StatusOK, gin.H{"message": "No transactions found for the given time range", "data": nil})
		return
	}
	c.JSON(http.StatusOK, analyticsResponse{
		Direction:  direction,
		From:       w.From.Format("2006-01-02T15:04:05"),
		To:         w.To.Format("2006-01-02T15:04:05"),
		Statistics: stats,
	})
}

// History returns bucketed average rates. Authenticated callers get their
// saved preferences as defaults.
func (h *Handler) History(c *gin.Context) {
	var q service.HistoryQuery
	if id, ok := identity(c); ok {
		uid := id.UserID
		q.UserID = &uid
	}

	dir, err := directionQuery(c)
	if err != nil {
		abortError(c, http.StatusBadRequest, err.Error())
		return
	}
	q.Direction = dir

	if raw := c.Query("interval"); raw != "" {
		interval, err := rates.ParseInterval(raw)
		if err != nil {
			abortError(c, http.StatusBadRequest, err.Error())
			return
		}
		q.Interval = &interval
	}

	w, ok, err := parseRange(c)
	if err != nil {
		abortError(c, http.StatusBadRequest, err.Error())
		return
	}
	if ok {
		q.From, q.To = &w.From, &w.To
	}

	hist, err := h.svc.History(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	if len(hist.Buckets) == 0 {
		c.JSON(http.StatusOK, gin.H{"message": "No transactions found for the given time range", "data": nil})
		return
	}
	c.JSON(http.StatusOK, hist)
}
