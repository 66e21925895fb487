package ledger

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"go-dokan-pos/internal/apperr"
	"go-dokan-pos/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const statsTTL = time.Minute

// Stats is the dashboard summary.
type Stats struct {
	TotalProducts   int64           `json:"total_products"`
	TotalSales      int64           `json:"total_sales"`
	TotalCustomers  int64           `json:"total_customers"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	TotalProfit     decimal.Decimal `json:"total_profit"`
	TodaySalesCount int64           `json:"today_sales_count"`
	TodayRevenue    decimal.Decimal `json:"today_revenue"`
	TodayProfit     decimal.Decimal `json:"today_profit"`
	TotalDue        decimal.Decimal `json:"total_due"`
}

// SalesReport is revenue and order count inside a date range.
type SalesReport struct {
	From         string          `json:"from"`
	To           string          `json:"to"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalProfit  decimal.Decimal `json:"total_profit"`
	TotalCount   int64           `json:"total_count"`
}

// TopProduct is one row of the best-seller ranking.
type TopProduct struct {
	ProductID     uint            `json:"product_id"`
	ProductName   string          `json:"product_name"`
	TotalQuantity int             `json:"total_quantity"`
	NumSales      int             `json:"num_sales"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalProfit   decimal.Decimal `json:"total_profit"`
}

// ValuationItem is one product's stock at cost.
type ValuationItem struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Unit      string          `json:"unit"`
	CostPrice decimal.Decimal `json:"cost_price"`
	TotalCost decimal.Decimal `json:"total_cost"`
}

// CategoryGroup is all products of one category with their subtotal.
type CategoryGroup struct {
	CategoryName string          `json:"category_name"`
	Items        []ValuationItem `json:"items"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

// Valuation is the stock valuation report.
type Valuation struct {
	Categories []CategoryGroup `json:"categories"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

type sumRow struct {
	Total decimal.Decimal
}

// sum runs a COALESCE(SUM(expr), 0) over q.
func sum(q *gorm.DB, expr string) (decimal.Decimal, error) {
	var r sumRow
	if err := q.Select("COALESCE(SUM(" + expr + "), 0) AS total").Scan(&r).Error; err != nil {
		return decimal.Zero, err
	}
	// SQLite sums decimal columns as REAL
	return r.Total.Round(2), nil
}

// Stats returns the dashboard figures, served from cache when fresh.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	if b, ok := s.cache.Get(ctx, s.statsKey()); ok {
		var cached Stats
		if json.Unmarshal(b, &cached) == nil {
			return &cached, nil
		}
	}

	st, err := s.computeStats(ctx)
	if err != nil {
		return nil, apperr.Storage("stats", err)
	}
	if b, err := json.Marshal(st); err == nil {
		s.cache.Set(ctx, s.statsKey(), b, statsTTL)
	}
	return st, nil
}

func (s *Service) computeStats(ctx context.Context) (*Stats, error) {
	db := s.db.WithContext(ctx)
	today := s.today()
	st := &Stats{}
	var err error

	if err = db.Model(&models.Product{}).Count(&st.TotalProducts).Error; err != nil {
		return nil, err
	}
	if err = db.Model(&models.Sale{}).Count(&st.TotalSales).Error; err != nil {
		return nil, err
	}
	if err = db.Model(&models.Customer{}).Count(&st.TotalCustomers).Error; err != nil {
		return nil, err
	}
	if st.TotalRevenue, err = sum(db.Model(&models.Sale{}), "final_amount"); err != nil {
		return nil, err
	}
	if st.TotalProfit, err = sum(db.Model(&models.SaleItem{}), "profit"); err != nil {
		return nil, err
	}
	if err = db.Model(&models.Sale{}).Where("sale_date = ?", today).Count(&st.TodaySalesCount).Error; err != nil {
		return nil, err
	}
	if st.TodayRevenue, err = sum(db.Model(&models.Sale{}).Where("sale_date = ?", today), "final_amount"); err != nil {
		return nil, err
	}
	if st.TodayProfit, err = sum(db.Model(&models.SaleItem{}).Where("sale_date = ?", today), "profit"); err != nil {
		return nil, err
	}
	if st.TotalDue, err = sum(db.Model(&models.Sale{}).Where("payment_status = ?", models.StatusDue), "due_amount"); err != nil {
		return nil, err
	}
	return st, nil
}

func checkRange(from, to string) error {
	fromDay, err := time.Parse(models.DateLayout, from)
	if err != nil {
		return apperr.Validation("start_date", "must be YYYY-MM-DD")
	}
	toDay, err := time.Parse(models.DateLayout, to)
	if err != nil {
		return apperr.Validation("end_date", "must be YYYY-MM-DD")
	}
	if toDay.Before(fromDay) {
		return apperr.Validation("end_date", "is before start_date")
	}
	return nil
}

// SalesBetween loads every sale with its lines between two dates, inclusive, oldest first.
func (s *Service) SalesBetween(ctx context.Context, from, to string) ([]models.Sale, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	var sales []models.Sale
	err := s.db.WithContext(ctx).Preload("Items").
		Where("sale_date BETWEEN ? AND ?", from, to).
		Order("sale_date, id").
		Find(&sales).Error
	if err != nil {
		return nil, apperr.Storage("sales between", err)
	}
	return sales, nil
}

// SalesReport totals sales between two YYYY-MM-DD dates, inclusive.
func (s *Service) SalesReport(ctx context.Context, from, to string) (*SalesReport, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}

	var err error
	db := s.db.WithContext(ctx)
	r := &SalesReport{From: from, To: to}
	if r.TotalRevenue, err = sum(db.Model(&models.Sale{}).Where("sale_date BETWEEN ? AND ?", from, to), "final_amount"); err != nil {
		return nil, apperr.Storage("sales report revenue", err)
	}
	if r.TotalProfit, err = sum(db.Model(&models.SaleItem{}).Where("sale_date BETWEEN ? AND ?", from, to), "profit"); err != nil {
		return nil, apperr.Storage("sales report profit", err)
	}
	if err = db.Model(&models.Sale{}).Where("sale_date BETWEEN ? AND ?", from, to).Count(&r.TotalCount).Error; err != nil {
		return nil, apperr.Storage("sales report count", err)
	}
	return r, nil
}

// TopSelling ranks products by units sold over the last days.
func (s *Service) TopSelling(ctx context.Context, limit, days int) ([]TopProduct, error) {
	if limit <= 0 {
		limit = 10
	}
	out := []TopProduct{}
	err := s.db.WithContext(ctx).Model(&models.SaleItem{}).
		Select("product_id, MAX(product_name) AS product_name, SUM(quantity) AS total_quantity, " +
			"COUNT(DISTINCT sale_id) AS num_sales, COALESCE(SUM(subtotal), 0) AS total_revenue, COALESCE(SUM(profit), 0) AS total_profit").
		Where("sale_date >= ?", s.since(days)).
		Group("product_id").
		Order("total_quantity DESC").
		Limit(limit).
		Scan(&out).Error
	if err != nil {
		return nil, apperr.Storage("top selling", err)
	}
	return out, nil
}

// StockValuation values on-hand stock at cost, grouped by category.
func (s *Service) StockValuation(ctx context.Context) (*Valuation, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&products).Error; err != nil {
		return nil, apperr.Storage("stock valuation", err)
	}

	grouped := make(map[string]*CategoryGroup)
	grand := decimal.Zero
	for _, p := range products {
		cat := p.Category
		if cat == "" {
			cat = "Uncategorized"
		}
		g, ok := grouped[cat]
		if !ok {
			g = &CategoryGroup{CategoryName: cat, Items: []ValuationItem{}}
			grouped[cat] = g
		}
		total := p.CostPrice.Mul(decimal.NewFromInt(int64(p.CurrentStock)))
		g.Items = append(g.Items, ValuationItem{
			Name:      p.Name,
			Quantity:  p.CurrentStock,
			Unit:      p.Unit,
			CostPrice: p.CostPrice,
			TotalCost: total,
		})
		g.Subtotal = g.Subtotal.Add(total)
		grand = grand.Add(total)
	}

	v := &Valuation{Categories: []CategoryGroup{}, GrandTotal: grand}
	for _, g := range grouped {
		v.Categories = append(v.Categories, *g)
	}
	sort.Slice(v.Categories, func(i, j int) bool {
		return v.Categories[i].CategoryName < v.Categories[j].CategoryName
	})
	return v, nil
}
