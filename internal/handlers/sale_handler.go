package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"go-dokan-pos/internal/ledger"
	"go-dokan-pos/internal/report"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// --- POST: /api/sales ---
// Posts the whole cart in one transaction. A short line fails the sale with 409.
func (h *Handler) RecordSale(c *gin.Context) {
	var req ledger.SaleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	id, err := h.Ledger.RecordSale(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	sale, err := h.Ledger.GetSale(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Sale successful!",
		"sale_id": id,
		"sale":    sale,
	})
}

// --- GET: /api/sales?limit=100 ---
func (h *Handler) RecentSales(c *gin.Context) {
	sales, err := h.Ledger.RecentSales(c.Request.Context(), intQuery(c, "limit", 100))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sales)
}

// --- GET: /api/sales/:id ---
func (h *Handler) GetSale(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	sale, err := h.Ledger.GetSale(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

// --- GET: /api/sales/:id/receipt.pdf ---
func (h *Handler) SaleReceipt(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	sale, err := h.Ledger.GetSale(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := report.Receipt(&buf, h.ShopName, sale); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="receipt_%d.pdf"`, id))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

type PaymentRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"gt=0"`
}

// --- POST: /api/sales/:id/pay ---
func (h *Handler) PaySale(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req PaymentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	due, err := h.Ledger.ApplyPayment(c.Request.Context(), id, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sale_id": id, "due_amount": due, "settled": due.IsZero()})
}

// --- POST: /api/sales/import (multipart "file") ---
// Back-fills history line by line. Stock is never touched.
func (h *Handler) ImportSales(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read upload"})
		return
	}
	defer f.Close()

	res, err := h.Ledger.ImportSales(c.Request.Context(), file.Filename, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
