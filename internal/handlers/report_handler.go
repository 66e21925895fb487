package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"go-dokan-pos/internal/report"

	"github.com/gin-gonic/gin"
)

const xlsxType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// --- GET: /api/reports/stats ---
// Dashboard numbers. Served from the cache until the next write.
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.Ledger.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// --- GET: /api/reports/top-selling?limit=10&days=30 ---
func (h *Handler) GetTopSelling(c *gin.Context) {
	top, err := h.Ledger.TopSelling(c.Request.Context(), intQuery(c, "limit", 10), intQuery(c, "days", 30))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, top)
}

// --- GET: /api/reports/sales?from=2025-01-01&to=2025-01-31 ---
func (h *Handler) GetSalesReport(c *gin.Context) {
	rep, err := h.Ledger.SalesReport(c.Request.Context(), c.Query("from"), c.Query("to"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// --- GET: /api/reports/sales.xlsx?from=...&to=... ---
func (h *Handler) ExportSalesWorkbook(c *gin.Context) {
	from, to := c.Query("from"), c.Query("to")
	sales, err := h.Ledger.SalesBetween(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	h.sendWorkbook(c, fmt.Sprintf("sales_%s_%s.xlsx", from, to), func(buf *bytes.Buffer) error {
		return report.SalesWorkbook(buf, sales)
	})
}

// --- GET: /api/reports/valuation ---
// Stock at cost, grouped by category.
func (h *Handler) GetStockValuation(c *gin.Context) {
	v, err := h.Ledger.StockValuation(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// --- GET: /api/reports/valuation.xlsx ---
func (h *Handler) ExportValuationWorkbook(c *gin.Context) {
	v, err := h.Ledger.StockValuation(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	h.sendWorkbook(c, "stock_valuation.xlsx", func(buf *bytes.Buffer) error {
		return report.ValuationWorkbook(buf, v)
	})
}

func (h *Handler) sendWorkbook(c *gin.Context, name string, write func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, xlsxType, buf.Bytes())
}
