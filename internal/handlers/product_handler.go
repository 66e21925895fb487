package handlers

import (
	"net/http"

	"go-dokan-pos/internal/ledger"

	"github.com/gin-gonic/gin"
)

// --- GET: /api/products ---
func (h *Handler) GetProducts(c *gin.Context) {
	products, err := h.Ledger.ListProducts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// --- GET: /api/products/search?q=rice&limit=10 ---
// Recently sold matches come first; out-of-stock products are left out.
func (h *Handler) SearchProducts(c *gin.Context) {
	matches, err := h.Ledger.SearchProducts(c.Request.Context(), c.Query("q"), intQuery(c, "limit", 10))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, matches)
}

// --- GET: /api/products/:id ---
func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	p, err := h.Ledger.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// --- GET: /api/products/low-stock ---
func (h *Handler) LowStock(c *gin.Context) {
	low, err := h.Ledger.LowStockProducts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, low)
}

// --- GET: /api/products/:id/history?days=180 ---
func (h *Handler) ProductHistory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	hist, err := h.Ledger.ProductSalesHistory(c.Request.Context(), id, intQuery(c, "days", 180))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, hist)
}

// --- POST: /api/products ---
// Creates a product, or restocks the one that already has this name.
func (h *Handler) UpsertProduct(c *gin.Context) {
	var in ledger.ProductInput
	if !bindAndValidate(c, &in) {
		return
	}
	res, err := h.Ledger.UpsertProduct(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	c.JSON(status, res)
}

// --- POST: /api/products/import (multipart "file", .csv or .xlsx) ---
func (h *Handler) ImportProducts(c *gin.Context) {
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

	res, err := h.Ledger.ImportProducts(c.Request.Context(), file.Filename, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// --- DELETE: /api/products/:id ---
// Products that appear on past sales cannot be removed.
func (h *Handler) DeleteProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.Ledger.DeleteProduct(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}
