package ledger

import (
	"context"
	"errors"
	"strings"

	"go-dokan-pos/internal/apperr"
	"go-dokan-pos/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductMatch is one checkout search hit.
type ProductMatch struct {
	ID           uint            `json:"id"`
	Name         string          `json:"name"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	CurrentStock int             `json:"current_stock"`
	Unit         string          `json:"unit"`
	LastSold     string          `json:"last_sold"`
}

// LowStockProduct is a product at or below its reorder point.
type LowStockProduct struct {
	ID           uint            `json:"id"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	CurrentStock int             `json:"current_stock"`
	ReorderPoint int             `json:"reorder_point"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Unit         string          `json:"unit"`
}

// SaleSummary is a sale header without its lines.
type SaleSummary struct {
	ID            uint            `json:"id"`
	CustomerName  string          `json:"customer_name"`
	SaleDate      string          `json:"sale_date"`
	FinalAmount   decimal.Decimal `json:"final_amount"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	DueAmount     decimal.Decimal `json:"due_amount"`
	PaymentStatus string          `json:"payment_status"`
}

// DailyProductSales is one day of a product's sales history.
type DailyProductSales struct {
	SaleDate      string          `json:"sale_date"`
	TotalQuantity int             `json:"total_quantity"`
	TotalProfit   decimal.Decimal `json:"total_profit"`
	NumSales      int             `json:"num_sales"`
}

func (s *Service) ListProducts(ctx context.Context) ([]models.Product, error) {
	var out []models.Product
	if err := s.db.WithContext(ctx).Order("updated_at DESC, id DESC").Find(&out).Error; err != nil {
		return nil, apperr.Storage("list products", err)
	}
	return out, nil
}

func (s *Service) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	return findProduct(s.db.WithContext(ctx), id)
}

// SearchProducts finds in-stock products whose name contains term, most recently sold first.
func (s *Service) SearchProducts(ctx context.Context, term string, limit int) ([]ProductMatch, error) {
	term = strings.TrimSpace(term)
	out := []ProductMatch{}
	if term == "" {
		return out, nil
	}
	if limit <= 0 {
		limit = 10
	}
	err := s.db.WithContext(ctx).
		Table("products AS p").
		Select("p.id, p.name, p.selling_price, p.current_stock, p.unit, COALESCE(MAX(si.sale_date), '2000-01-01') AS last_sold").
		Joins("LEFT JOIN sale_items AS si ON si.product_id = p.id").
		Where("p.name_key LIKE ? AND p.current_stock > 0", "%"+models.NameKey(term)+"%").
		Group("p.id, p.name, p.selling_price, p.current_stock, p.unit").
		Order("last_sold DESC, p.name ASC").
		Limit(limit).
		Scan(&out).Error
	if err != nil {
		return nil, apperr.Storage("search products", err)
	}
	return out, nil
}

// LowStockProducts lists products at or below their reorder point, most urgent first.
func (s *Service) LowStockProducts(ctx context.Context) ([]LowStockProduct, error) {
	out := []LowStockProduct{}
	err := s.db.WithContext(ctx).Model(&models.Product{}).
		Select("id, name, category, current_stock, reorder_point, cost_price, selling_price, unit").
		Where("current_stock <= reorder_point").
		Order("CASE WHEN reorder_point = 0 THEN 1 ELSE 0 END, current_stock * 1.0 / NULLIF(reorder_point, 0) ASC, name ASC").
		Scan(&out).Error
	if err != nil {
		return nil, apperr.Storage("low stock products", err)
	}
	return out, nil
}

func (s *Service) RecentSales(ctx context.Context, limit int) ([]SaleSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	out := []SaleSummary{}
	err := s.db.WithContext(ctx).Model(&models.Sale{}).
		Select("id, customer_name, sale_date, final_amount, paid_amount, due_amount, payment_status").
		Order("sale_date DESC, id DESC").
		Limit(limit).
		Scan(&out).Error
	if err != nil {
		return nil, apperr.Storage("recent sales", err)
	}
	return out, nil
}

// GetSale loads a sale with its lines.
func (s *Service) GetSale(ctx context.Context, id uint) (*models.Sale, error) {
	var sale models.Sale
	if err := s.db.WithContext(ctx).Preload("Items").First(&sale, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("sale", id)
		}
		return nil, apperr.Storage("load sale", err)
	}
	return &sale, nil
}

// SaleItems lists the lines of one sale.
func (s *Service) SaleItems(ctx context.Context, saleID uint) ([]models.SaleItem, error) {
	items := []models.SaleItem{}
	if err := s.db.WithContext(ctx).Where("sale_id = ?", saleID).Order("id").Find(&items).Error; err != nil {
		return nil, apperr.Storage("sale items", err)
	}
	return items, nil
}

// CustomerSuggestions autocompletes customer names; terms shorter than two characters match nothing.
func (s *Service) CustomerSuggestions(ctx context.Context, term string) ([]models.Customer, error) {
	term = strings.TrimSpace(term)
	out := []models.Customer{}
	if len([]rune(term)) < 2 {
		return out, nil
	}
	err := s.db.WithContext(ctx).
		Where("name_key LIKE ?", "%"+models.NameKey(term)+"%").
		Order("last_purchase_date DESC").
		Limit(5).
		Find(&out).Error
	if err != nil {
		return nil, apperr.Storage("customer suggestions", err)
	}
	return out, nil
}

// CustomerByPhone finds the most recent customer whose phone contains at least four given digits.
func (s *Service) CustomerByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	phone = strings.TrimSpace(phone)
	if len(phone) < 4 {
		return nil, apperr.Validation("phone", "enter at least 4 digits")
	}
	var c models.Customer
	err := s.db.WithContext(ctx).
		Where("phone LIKE ?", "%"+phone+"%").
		Order("last_purchase_date DESC").
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("customer with phone", phone)
		}
		return nil, apperr.Storage("customer by phone", err)
	}
	return &c, nil
}

// CustomerDueHistory lists a customer's unpaid sales, newest first.
func (s *Service) CustomerDueHistory(ctx context.Context, name string) ([]SaleSummary, error) {
	out := []SaleSummary{}
	err := s.db.WithContext(ctx).Model(&models.Sale{}).
		Select("id, customer_name, sale_date, final_amount, paid_amount, due_amount, payment_status").
		Where("LOWER(customer_name) = ? AND payment_status = ?", models.NameKey(name), models.StatusDue).
		Order("sale_date DESC, id DESC").
		Scan(&out).Error
	if err != nil {
		return nil, apperr.Storage("customer due history", err)
	}
	return out, nil
}

func (s *Service) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	out := []models.Customer{}
	if err := s.db.WithContext(ctx).Order("total_purchases DESC").Find(&out).Error; err != nil {
		return nil, apperr.Storage("list customers", err)
	}
	return out, nil
}

// ProductSalesHistory aggregates a product's sale lines per day over the last days.
func (s *Service) ProductSalesHistory(ctx context.Context, productID uint, days int) ([]DailyProductSales, error) {
	out := []DailyProductSales{}
	err := s.db.WithContext(ctx).Model(&models.SaleItem{}).
		Select("sale_date, SUM(quantity) AS total_quantity, COALESCE(SUM(profit), 0) AS total_profit, COUNT(*) AS num_sales").
		Where("product_id = ? AND sale_date >= ?", productID, s.since(days)).
		Group("sale_date").
		Order("sale_date ASC").
		Scan(&out).Error
	if err != nil {
		return nil, apperr.Storage("product sales history", err)
	}
	return out, nil
}
