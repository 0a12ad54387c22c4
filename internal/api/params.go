package api

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"lira-rate-alerts/internal/rates"
	"lira-rate-alerts/internal/storage"
)

const dateLayout = "01/02/2006"

// parseRange reads start_date and end_date (MM/DD/YYYY, local time). The end
// date covers its whole day. When either is missing, ok is false.
func parseRange(c *gin.Context) (w rates.Window, ok bool, err error) {
	startStr, endStr := c.Query("start_date"), c.Query("end_date")
	if startStr == "" || endStr == "" {
		return rates.Window{}, false, nil
	}
	start, err := time.ParseInLocation(dateLayout, startStr, time.Local)
	if err != nil {
		return rates.Window{}, false, fmt.Errorf("invalid date format, use MM/DD/YYYY")
	}
	end, err := time.ParseInLocation(dateLayout, endStr, time.Local)
	if err != nil {
		return rates.Window{}, false, fmt.Errorf("invalid date format, use MM/DD/YYYY")
	}
	end = time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 0, time.Local)
	return rates.Window{From: start, To: end}, true, nil
}

// windowOrDefault falls back to the trailing window ending now.
func (h *Handler) windowOrDefault(c *gin.Context) (rates.Window, error) {
	w, ok, err := parseRange(c)
	if err != nil {
		return rates.Window{}, err
	}
	if !ok {
		w = rates.Trailing(h.svc.Now(), h.svc.Window())
	}
	if !w.From.Before(w.To) {
		return rates.Window{}, fmt.Errorf("start_date must be before end_date")
	}
	return w, nil
}

// directionQuery reads "direction", or the boolean "usd_to_lbp". A nil result
// means neither was given.
func directionQuery(c *gin.Context) (*storage.Direction, error) {
	raw := c.Query("direction")
	if raw == "" {
		raw = c.Query("usd_to_lbp")
	}
	if raw == "" {
		return nil, nil
	}
	dir, err := storage.ParseDirection(raw)
	if err != nil {
		return nil, err
	}
	return &dir, nil
}

func idParam(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", c.Param("id"))
	}
	return id, nil
}

// directionBody resolves the direction from either body form.
func directionBody(direction string, usdToLBP *bool) (storage.Direction, error) {
	if direction != "" {
		return storage.ParseDirection(direction)
	}
	if usdToLBP != nil {
		if *usdToLBP {
			return storage.DirectionUSDToLBP, nil
		}
		return storage.DirectionLBPToUSD, nil
	}
	return "", fmt.Errorf("direction or usd_to_lbp is required")
}
