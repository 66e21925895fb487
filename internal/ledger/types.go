package ledger

import (
	"github.com/shopspring/decimal"
)

// CartItem is one line of a checkout. Subtotal is taken as given.
type CartItem struct {
	ProductID   uint            `json:"product_id" binding:"required"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity" binding:"required,gt=0"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// SaleRequest is a checkout to post. An empty SaleDate means today.
type SaleRequest struct {
	CustomerName  string          `json:"customer_name" binding:"required"`
	CustomerPhone string          `json:"customer_phone"`
	Items         []CartItem      `json:"items" binding:"required,min=1,dive"`
	Discount      decimal.Decimal `json:"discount"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	SaleDate      string          `json:"sale_date"`
}

// HistoricalSale is one back-filled sale line. It never moves stock.
type HistoricalSale struct {
	CustomerName  string
	CustomerPhone string
	ProductName   string
	Quantity      int
	UnitPrice     decimal.Decimal
	Discount      decimal.Decimal
	PaidAmount    decimal.Decimal
	SaleDate      string
}

// RowError reports one rejected import row. Line counts the header as line 1.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// ImportResult tallies a bulk sale import. Errors keeps the first few rejections.
type ImportResult struct {
	Imported int        `json:"imported"`
	Failed   int        `json:"failed"`
	Errors   []RowError `json:"errors"`
}

// ProductInput creates a product or restocks an existing one with the same name.
type ProductInput struct {
	Name         string          `json:"name" binding:"required"`
	Category     string          `json:"category"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	StockDelta   int             `json:"current_stock"`
	ReorderPoint int             `json:"reorder_point"`
	Unit         string          `json:"unit"`
}

// UpsertResult tells the caller whether a row was created or restocked.
type UpsertResult struct {
	ProductID uint   `json:"product_id"`
	Created   bool   `json:"created"`
	Message   string `json:"message"`
}

// ProductImportResult tallies a product list upload.
type ProductImportResult struct {
	Created int        `json:"created"`
	Updated int        `json:"updated"`
	Skipped int        `json:"skipped"`
	Failed  int        `json:"failed"`
	Errors  []RowError `json:"errors"`
}

const maxReportedErrors = 10

func (r *ImportResult) fail(line int, msg string) {
	r.Failed++
	if len(r.Errors) < maxReportedErrors {
		r.Errors = append(r.Errors, RowError{Line: line, Message: msg})
	}
}

func (r *ProductImportResult) fail(line int, msg string) {
	r.Failed++
	if len(r.Errors) < maxReportedErrors {
		r.Errors = append(r.Errors, RowError{Line: line, Message: msg})
	}
}
