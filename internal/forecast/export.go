// Package forecast prepares demand data for the external ML pipeline, runs
// it, and stores the weekly predictions it writes back.
package forecast

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"go-dokan-pos/internal/apperr"
	"go-dokan-pos/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var featureColumns = []string{
	"day_of_week", "is_weekend", "month", "day_of_month", "year",
	"festival", "is_festival", "days_to_next_festival",
}

var trainingColumns = append([]string{
	"sale_date", "product_id", "product_name", "category", "quantity",
	"cost_price", "unit_price", "profit", "subtotal", "unit",
}, featureColumns...)

var inputColumns = append([]string{
	"sale_date", "product_id", "product_name", "category",
	"cost_price", "unit_price", "unit",
}, featureColumns...)

func (f Features) record() []string {
	return []string{
		strconv.Itoa(f.DayOfWeek),
		strconv.Itoa(f.IsWeekend),
		strconv.Itoa(f.Month),
		strconv.Itoa(f.DayOfMonth),
		strconv.Itoa(f.Year),
		f.Festival,
		strconv.Itoa(f.IsFestival),
		strconv.Itoa(f.DaysToNextFestival),
	}
}

// Service reads the ledger tables for the ML pipeline and owns product_forecasts.
type Service struct {
	db       *gorm.DB
	calendar Calendar
	now      func() time.Time
}

type Option func(*Service)

func WithCalendar(c Calendar) Option {
	return func(s *Service) { s.calendar = c }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(db *gorm.DB, opts ...Option) *Service {
	s := &Service{db: db, calendar: DefaultCalendar(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

type trainingRow struct {
	SaleDate    string
	ProductID   uint
	ProductName string
	Category    string
	Quantity    int
	CostPrice   decimal.Decimal
	UnitPrice   decimal.Decimal
	Profit      decimal.Decimal
	Subtotal    decimal.Decimal
	Unit        string
}

// ExportTrainingCSV writes one row per sale line with its calendar features.
// days <= 0 exports the whole history. It returns the number of data rows.
func (s *Service) ExportTrainingCSV(ctx context.Context, w io.Writer, days int) (int, error) {
	q := s.db.WithContext(ctx).Table("sale_items AS si").
		Select("si.sale_date, si.product_id, si.product_name, p.category, si.quantity, si.cost_price, si.unit_price, si.profit, si.subtotal, p.unit").
		Joins("JOIN products p ON p.id = si.product_id")
	if days > 0 {
		q = q.Where("si.sale_date >= ?", s.now().AddDate(0, 0, -days).Format(models.DateLayout))
	}
	var rows []trainingRow
	if err := q.Order("si.sale_date, si.id").Scan(&rows).Error; err != nil {
		return 0, apperr.Storage("export training data", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(trainingColumns); err != nil {
		return 0, err
	}
	for _, r := range rows {
		day, err := time.Parse(models.DateLayout, r.SaleDate)
		if err != nil {
			continue
		}
		rec := []string{
			r.SaleDate,
			strconv.FormatUint(uint64(r.ProductID), 10),
			r.ProductName,
			r.Category,
			strconv.Itoa(r.Quantity),
			r.CostPrice.StringFixed(2),
			r.UnitPrice.StringFixed(2),
			r.Profit.StringFixed(2),
			r.Subtotal.StringFixed(2),
			r.Unit,
		}
		if err := cw.Write(append(rec, s.calendar.Features(day).record()...)); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	return len(rows), cw.Error()
}

// WriteForecastInput writes horizon future days, starting the day after from,
// for each product. An empty productIDs selects the whole catalog.
func (s *Service) WriteForecastInput(ctx context.Context, w io.Writer, productIDs []uint, from time.Time, horizon int) (int, error) {
	if horizon <= 0 {
		horizon = 7
	}
	q := s.db.WithContext(ctx).Order("id")
	if len(productIDs) > 0 {
		q = q.Where("id IN ?", productIDs)
	}
	var products []models.Product
	if err := q.Find(&products).Error; err != nil {
		return 0, apperr.Storage("load products for forecast", err)
	}
	if len(productIDs) > 0 && len(products) == 0 {
		return 0, apperr.NotFound("product", "selection")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(inputColumns); err != nil {
		return 0, err
	}
	start := truncate(from)
	n := 0
	for _, p := range products {
		for i := 1; i <= horizon; i++ {
			day := start.AddDate(0, 0, i)
			rec := []string{
				day.Format(models.DateLayout),
				strconv.FormatUint(uint64(p.ID), 10),
				"",
				p.Category,
				p.CostPrice.StringFixed(2),
				p.SellingPrice.StringFixed(2),
				p.Unit,
			}
			if err := cw.Write(append(rec, s.calendar.Features(day).record()...)); err != nil {
				return 0, err
			}
			n++
		}
	}
	cw.Flush()
	return n, cw.Error()
}
