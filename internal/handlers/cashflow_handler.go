package handlers

import (
	"net/http"

	"go-dokan-pos/internal/cashflow"

	"github.com/gin-gonic/gin"
)

// --- GET: /api/cashflow/overview ---
func (h *Handler) CashOverview(c *gin.Context) {
	o, err := h.Cashflow.Overview(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// --- GET: /api/cashflow/summary?days=30 ---
func (h *Handler) CashSummary(c *gin.Context) {
	sum, err := h.Cashflow.Summary(c.Request.Context(), intQuery(c, "days", 30))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// --- GET: /api/cashflow/transactions?days=30&type=OUT ---
func (h *Handler) CashTransactions(c *gin.Context) {
	txs, err := h.Cashflow.Transactions(c.Request.Context(), intQuery(c, "days", 30), c.Query("type"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}

// --- POST: /api/cashflow/transactions ---
func (h *Handler) AddCashTransaction(c *gin.Context) {
	var in cashflow.TransactionInput
	if !bindAndValidate(c, &in) {
		return
	}
	tx, err := h.Cashflow.AddTransaction(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

// --- GET: /api/cashflow/dues ---
func (h *Handler) DuesBreakdown(c *gin.Context) {
	dues, err := h.Cashflow.DuesBreakdown(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dues)
}

// --- POST: /api/cashflow/advice ---
func (h *Handler) CashAdvice(c *gin.Context) {
	advice, err := h.Cashflow.Advice(c.Request.Context())
	if err != nil {
		respondAIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"advice": advice})
}
