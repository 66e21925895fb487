package handlers

import (
	"go-dokan-pos/internal/auth"
	"go-dokan-pos/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Routes mounts the API on r. Registration is only exposed when allowed.
func (h *Handler) Routes(r *gin.Engine, allowRegistration bool) {
	r.GET("/health", h.Health)
	r.POST("/login", h.Login)

	if allowRegistration {
		r.POST("/register", h.Register)
		log.Warn().Msg("registration route is OPEN, disable it in production")
	} else {
		log.Info().Msg("registration route is disabled")
	}

	// --- PROTECTED ROUTES ---
	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(h.Tokens))
	{
		// STAFF & ADMIN
		api.GET("/products", h.GetProducts)
		api.GET("/products/search", h.SearchProducts)
		api.GET("/products/low-stock", h.LowStock)
		api.GET("/products/:id", h.GetProduct)
		api.GET("/products/:id/history", h.ProductHistory)
		api.POST("/products", h.UpsertProduct)

		api.POST("/sales", h.RecordSale)
		api.GET("/sales", h.RecentSales)
		api.GET("/sales/:id", h.GetSale)
		api.GET("/sales/:id/receipt.pdf", h.SaleReceipt)
		api.POST("/sales/:id/pay", h.PaySale)

		api.GET("/customers", h.GetCustomers)
		api.GET("/customers/suggest", h.SuggestCustomers)
		api.GET("/customers/by-phone/:phone", h.CustomerByPhone)
		api.GET("/customers/dues", h.CustomerDues)

		api.GET("/reports/stats", h.GetStats)
		api.GET("/reports/top-selling", h.GetTopSelling)

		api.GET("/cashflow/overview", h.CashOverview)
		api.GET("/cashflow/summary", h.CashSummary)
		api.GET("/cashflow/transactions", h.CashTransactions)
		api.POST("/cashflow/transactions", h.AddCashTransaction)
		api.GET("/cashflow/dues", h.DuesBreakdown)

		api.GET("/forecast", h.GetForecasts)
		api.GET("/forecast/training.csv", h.ExportTrainingData)
		api.POST("/forecast/input.csv", h.ForecastInput)

		// ADMIN ONLY
		admin := api.Group("/")
		admin.Use(middleware.RequireRole(auth.RoleAdmin))
		{
			admin.POST("/ask", h.AskAI)
			admin.POST("/cashflow/advice", h.CashAdvice)

			admin.POST("/products/import", h.ImportProducts)
			admin.DELETE("/products/:id", h.DeleteProduct)
			admin.POST("/sales/import", h.ImportSales)

			admin.GET("/reports/sales", h.GetSalesReport)
			admin.GET("/reports/sales.xlsx", h.ExportSalesWorkbook)
			admin.GET("/reports/valuation", h.GetStockValuation)
			admin.GET("/reports/valuation.xlsx", h.ExportValuationWorkbook)

			admin.POST("/forecast/run", h.RunForecast)

			admin.POST("/system/reset", h.ResetData)
			admin.POST("/system/backup", h.BackupData)
		}
	}
}
