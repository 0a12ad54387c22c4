package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"lira-rate-alerts/internal/service"
	"lira-rate-alerts/internal/storage"
)

type transactionRequest struct {
	USDAmount decimal.Decimal `json:"usd_amount"`
	LBPAmount decimal.Decimal `json:"lbp_amount"`
	Direction string          `json:"direction"`
	USDToLBP  *bool           `json:"usd_to_lbp"`
}

type transactionResponse struct {
	storage.Transaction
	TriggeredAlerts      int `json:"triggered_alerts"`
	NotificationsCreated int `json:"notifications_created"`
}

// SubmitTransaction runs the insertion pipeline.
func (h *Handler) SubmitTransaction(c *gin.Context) {
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !req.USDAmount.IsPositive() {
		abortError(c, http.StatusBadRequest, "Invalid usd_amount")
		return
	}
	if !req.LBPAmount.IsPositive() {
		abortError(c, http.StatusBadRequest, "Invalid lbp_amount")
		return
	}
	dir, err := directionBody(req.Direction, req.USDToLBP)
	if err != nil {
		abortError(c, http.StatusBadRequest, err.Error())
		return
	}

	sub := service.Submission{USDAmount: req.USDAmount, LBPAmount: req.LBPAmount, Direction: dir}
	if id, ok := identity(c); ok {
		uid := id.UserID
		sub.UserID = &uid
	}

	res, err := h.svc.SubmitTransaction(c.Request.Context(), sub)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, transactionResponse{
		Transaction:          res.Transaction,
		TriggeredAlerts:      len(res.Evaluation.Triggered),
		NotificationsCreated: len(res.Dispatch.Created),
	})
}

// ListTransactions returns the caller's own transactions.
func (h *Handler) ListTransactions(c *gin.Context) {
	id, _ := identity(c)
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		abortError(c, http.StatusBadRequest, "invalid limit")
		return
	}
	txs, err := h.svc.ListTransactions(c.Request.Context(), id.UserID, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}
