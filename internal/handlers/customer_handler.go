package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// --- GET: /api/customers ---
func (h *Handler) GetCustomers(c *gin.Context) {
	customers, err := h.Ledger.ListCustomers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customers)
}

// --- GET: /api/customers/suggest?q=kar ---
func (h *Handler) SuggestCustomers(c *gin.Context) {
	matches, err := h.Ledger.CustomerSuggestions(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, matches)
}

// --- GET: /api/customers/by-phone/:phone ---
func (h *Handler) CustomerByPhone(c *gin.Context) {
	cust, err := h.Ledger.CustomerByPhone(c.Request.Context(), c.Param("phone"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cust)
}

// --- GET: /api/customers/dues?name=Karim ---
// Open sales for one customer, newest first.
func (h *Handler) CustomerDues(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	dues, err := h.Ledger.CustomerDueHistory(c.Request.Context(), name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dues)
}
