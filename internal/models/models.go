package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	StatusPaid = "Paid"
	StatusDue  = "Due"

	CashIn  = "IN"
	CashOut = "OUT"

	// DateLayout is the calendar-day format stored in sale_date columns.
	DateLayout = "2006-01-02"
)

// User - staff account that signs in to the API
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:50" json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `gorm:"size:20" json:"role"` // 'admin', 'staff'
	CreatedAt    time.Time `json:"created_at"`
}

// Product - one catalog entry and its on-hand stock
type Product struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Name         string          `gorm:"size:150;not null" json:"name"`
	NameKey      string          `gorm:"size:150;uniqueIndex;not null" json:"-"`
	Category     string          `gorm:"size:80;default:Uncategorized" json:"category"`
	CostPrice    decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"cost_price"`
	SellingPrice decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"selling_price"`
	CurrentStock int             `gorm:"not null;default:0" json:"current_stock"`
	ReorderPoint int             `gorm:"not null" json:"reorder_point"`
	Unit         string          `gorm:"size:20;default:unit" json:"unit"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// BeforeSave keeps the case-insensitive lookup key in step with Name.
func (p *Product) BeforeSave(_ *gorm.DB) error {
	p.NameKey = NameKey(p.Name)
	return nil
}

// Sale - the transaction header
type Sale struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	CustomerName  string          `gorm:"size:150;not null;index" json:"customer_name"`
	CustomerPhone string          `gorm:"size:30" json:"customer_phone"`
	SaleDate      string          `gorm:"size:10;not null;index" json:"sale_date"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total_amount"`
	Discount      decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"discount"`
	FinalAmount   decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"final_amount"`
	PaidAmount    decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"paid_amount"`
	DueAmount     decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"due_amount"`
	PaymentStatus string          `gorm:"size:10;not null;index" json:"payment_status"` // 'Paid', 'Due'
	CreatedAt     time.Time       `json:"created_at"`
	Items         []SaleItem      `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// SaleItem - one cart line, with cost and profit frozen at sale time
type SaleItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	SaleID      uint            `gorm:"not null;index" json:"sale_id"`
	ProductID   uint            `gorm:"not null;index" json:"product_id"`
	Product     *Product        `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	ProductName string          `gorm:"size:150" json:"product_name"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"unit_price"`
	CostPrice   decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"cost_price"`
	Profit      decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"profit"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"subtotal"`
	SaleDate    string          `gorm:"size:10;not null;index" json:"sale_date"`
}

// Customer - running purchase aggregate keyed by case-insensitive name
type Customer struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	Name             string          `gorm:"size:150;not null" json:"customer_name"`
	NameKey          string          `gorm:"size:150;uniqueIndex;not null" json:"-"`
	Phone            string          `gorm:"size:30;index" json:"customer_phone"`
	TotalPurchases   decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"total_purchases"`
	PurchaseCount    int             `gorm:"not null;default:0" json:"purchase_count"`
	LastPurchaseDate string          `gorm:"size:10" json:"last_purchase_date"`
	Segment          string          `gorm:"size:30" json:"segment,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// CashTransaction - money moved in or out of the till outside of sales
type CashTransaction struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Type            string          `gorm:"size:3;not null;index" json:"type"` // 'IN', 'OUT'
	Amount          decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	Category        string          `gorm:"size:80" json:"category"`
	Description     string          `gorm:"size:255" json:"description"`
	TransactionDate string          `gorm:"size:10;not null;index" json:"transaction_date"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ProductForecast - one week of predicted demand written back by the ML pipeline
type ProductForecast struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	ProductID      uint            `gorm:"not null;index" json:"product_id"`
	ProductName    string          `gorm:"size:150" json:"product_name"`
	ForecastDate   string          `gorm:"size:10;not null;index" json:"forecast_date"`
	ForecastQty    int             `gorm:"not null" json:"forecast_qty"`
	ExpectedProfit decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"expected_profit"`
	ReorderNeeded  int             `gorm:"not null" json:"reorder_needed"`
	AIAdvice       string          `gorm:"type:text" json:"ai_advice"`
	CreatedAt      time.Time       `json:"created_at"`
}

// All lists every model in migration order.
func All() []any {
	return []any{
		&User{},
		&Product{},
		&Sale{},
		&SaleItem{},
		&Customer{},
		&CashTransaction{},
		&ProductForecast{},
	}
}

// NameKey is the normalized form used for case-insensitive uniqueness.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// PaymentStatus derives the sale status from its outstanding balance.
func PaymentStatus(due decimal.Decimal) string {
	if due.IsPositive() {
		return StatusDue
	}
	return StatusPaid
}

// Settle returns the outstanding balance for a sale: max(0, final - paid).
func Settle(final, paid decimal.Decimal) decimal.Decimal {
	due := final.Sub(paid)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}
