// Package cashflow tracks money moving through the till outside of sales and
// summarizes the shop's cash position, assets and outstanding dues.
package cashflow

import (
	"context"
	"sort"
	"strings"
	"time"

	"go-dokan-pos/internal/ai"
	"go-dokan-pos/internal/apperr"
	"go-dokan-pos/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Urgency tags for a customer's oldest unpaid sale.
const (
	UrgencyNormal   = "normal"
	UrgencyFollowUp = "follow_up"
	UrgencyUrgent   = "urgent"
)

type Service struct {
	db      *gorm.DB
	advisor ai.Advisor
	now     func() time.Time
}

type Option func(*Service)

func WithAdvisor(a ai.Advisor) Option {
	return func(s *Service) { s.advisor = a }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(db *gorm.DB, opts ...Option) *Service {
	s := &Service{db: db, advisor: ai.Disabled{}, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// TransactionInput is a manual cash movement.
type TransactionInput struct {
	Type        string          `json:"type" binding:"required,oneof=IN OUT in out"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category" binding:"max=80"`
	Description string          `json:"description" binding:"max=255"`
	Date        string          `json:"transaction_date"`
}

// Overview is the shop's current money position.
type Overview struct {
	SalesCollected  decimal.Decimal `json:"sales_collected"`
	OtherIncome     decimal.Decimal `json:"other_income"`
	Expenses        decimal.Decimal `json:"expenses"`
	CashBalance     decimal.Decimal `json:"cash_balance"`
	InventoryValue  decimal.Decimal `json:"inventory_value"`
	ProductsInStock int64           `json:"products_in_stock"`
	TotalDues       decimal.Decimal `json:"total_dues"`
	TotalAssets     decimal.Decimal `json:"total_assets"`
}

// Summary is cash in and out over a window.
type Summary struct {
	Days     int             `json:"days"`
	TotalIn  decimal.Decimal `json:"total_in"`
	TotalOut decimal.Decimal `json:"total_out"`
	Net      decimal.Decimal `json:"net"`
}

// CustomerDue is one customer's unpaid balance.
type CustomerDue struct {
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
	DueAmount     decimal.Decimal `json:"due_amount"`
	DueCount      int             `json:"due_count"`
	OldestDue     string          `json:"oldest_due_date"`
	OldestDays    int             `json:"oldest_days"`
	Urgency       string          `json:"urgency"`
}

func (s *Service) today() string {
	return s.now().Format(models.DateLayout)
}

// AddTransaction records a manual IN or OUT movement. The date defaults to today.
func (s *Service) AddTransaction(ctx context.Context, in TransactionInput) (*models.CashTransaction, error) {
	typ := strings.ToUpper(strings.TrimSpace(in.Type))
	if typ != models.CashIn && typ != models.CashOut {
		return nil, apperr.Validation("type", "must be IN or OUT, got %q", in.Type)
	}
	if !in.Amount.IsPositive() {
		return nil, apperr.Validation("amount", "must be greater than 0")
	}

	date := s.today()
	if raw := strings.TrimSpace(in.Date); raw != "" {
		d, err := time.Parse(models.DateLayout, raw)
		if err != nil {
			return nil, apperr.Validation("transaction_date", "must be YYYY-MM-DD, got %q", raw)
		}
		date = d.Format(models.DateLayout)
	}

	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		desc = "No description"
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = "Other"
	}

	tx := models.CashTransaction{
		Type:            typ,
		Amount:          in.Amount.Round(2),
		Category:        category,
		Description:     desc,
		TransactionDate: date,
	}
	if err := s.db.WithContext(ctx).Create(&tx).Error; err != nil {
		return nil, apperr.Storage("add cash transaction", err)
	}
	log.Info().Uint("transaction_id", tx.ID).Str("type", typ).Str("amount", tx.Amount.StringFixed(2)).Msg("cash transaction recorded")
	return &tx, nil
}

type sumRow struct {
	Total decimal.Decimal
}

func sum(q *gorm.DB, expr string) (decimal.Decimal, error) {
	var r sumRow
	if err := q.Select("COALESCE(SUM(" + expr + "), 0) AS total").Scan(&r).Error; err != nil {
		return decimal.Zero, err
	}
	return r.Total.Round(2), nil
}

// Overview computes cash = sales collected + other income - expenses and
// total assets = cash + inventory at cost + dues.
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	db := s.db.WithContext(ctx)
	var (
		o   Overview
		err error
	)
	if o.SalesCollected, err = sum(db.Model(&models.Sale{}), "paid_amount"); err != nil {
		return nil, apperr.Storage("cash overview", err)
	}
	if o.OtherIncome, err = sum(db.Model(&models.CashTransaction{}).Where("type = ?", models.CashIn), "amount"); err != nil {
		return nil, apperr.Storage("cash overview", err)
	}
	if o.Expenses, err = sum(db.Model(&models.CashTransaction{}).Where("type = ?", models.CashOut), "amount"); err != nil {
		return nil, apperr.Storage("cash overview", err)
	}
	if o.InventoryValue, err = sum(db.Model(&models.Product{}), "current_stock * cost_price"); err != nil {
		return nil, apperr.Storage("cash overview", err)
	}
	if o.TotalDues, err = sum(db.Model(&models.Sale{}), "due_amount"); err != nil {
		return nil, apperr.Storage("cash overview", err)
	}
	if err = db.Model(&models.Product{}).Where("current_stock > 0").Count(&o.ProductsInStock).Error; err != nil {
		return nil, apperr.Storage("cash overview", err)
	}

	o.CashBalance = o.SalesCollected.Add(o.OtherIncome).Sub(o.Expenses).Round(2)
	o.InventoryValue = o.InventoryValue.Round(2)
	o.TotalAssets = o.CashBalance.Add(o.InventoryValue).Add(o.TotalDues).Round(2)
	return &o, nil
}

func (s *Service) window(days int) (int, string) {
	if days <= 0 {
		days = 30
	}
	return days, s.now().AddDate(0, 0, -days).Format(models.DateLayout)
}

// Summary totals manual IN and OUT movements over the last days.
func (s *Service) Summary(ctx context.Context, days int) (*Summary, error) {
	days, from := s.window(days)
	q := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&models.CashTransaction{}).Where("transaction_date >= ?", from)
	}
	in, err := sum(q().Where("type = ?", models.CashIn), "amount")
	if err != nil {
		return nil, apperr.Storage("cash summary", err)
	}
	out, err := sum(q().Where("type = ?", models.CashOut), "amount")
	if err != nil {
		return nil, apperr.Storage("cash summary", err)
	}
	return &Summary{Days: days, TotalIn: in, TotalOut: out, Net: in.Sub(out)}, nil
}

// Transactions lists movements in the window, newest first. An empty or
// "ALL" type returns both directions.
func (s *Service) Transactions(ctx context.Context, days int, typ string) ([]models.CashTransaction, error) {
	_, from := s.window(days)
	q := s.db.WithContext(ctx).Where("transaction_date >= ?", from)

	switch t := strings.ToUpper(strings.TrimSpace(typ)); t {
	case "", "ALL":
	case models.CashIn, models.CashOut:
		q = q.Where("type = ?", t)
	default:
		return nil, apperr.Validation("type", "must be IN, OUT or ALL, got %q", typ)
	}

	var list []models.CashTransaction
	if err := q.Order("transaction_date DESC, id DESC").Find(&list).Error; err != nil {
		return nil, apperr.Storage("list cash transactions", err)
	}
	return list, nil
}

type dueRow struct {
	CustomerName  string
	CustomerPhone string
	DueAmount     decimal.Decimal
	DueCount      int
	OldestDue     string
}

// DuesBreakdown groups unpaid sales by customer, largest balance first.
func (s *Service) DuesBreakdown(ctx context.Context) ([]CustomerDue, error) {
	var rows []dueRow
	err := s.db.WithContext(ctx).Model(&models.Sale{}).
		Select("customer_name, MAX(customer_phone) AS customer_phone, SUM(due_amount) AS due_amount, COUNT(*) AS due_count, MIN(sale_date) AS oldest_due").
		Where("due_amount > 0").
		Group("customer_name").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Storage("dues breakdown", err)
	}

	today, _ := time.Parse(models.DateLayout, s.today())
	dues := make([]CustomerDue, 0, len(rows))
	for _, r := range rows {
		d := CustomerDue{
			CustomerName:  r.CustomerName,
			CustomerPhone: r.CustomerPhone,
			DueAmount:     r.DueAmount.Round(2),
			DueCount:      r.DueCount,
			OldestDue:     r.OldestDue,
		}
		if oldest, err := time.Parse(models.DateLayout, r.OldestDue); err == nil {
			d.OldestDays = int(today.Sub(oldest).Hours() / 24)
		}
		d.Urgency = urgency(d.OldestDays)
		dues = append(dues, d)
	}
	sort.SliceStable(dues, func(i, j int) bool {
		if c := dues[i].DueAmount.Cmp(dues[j].DueAmount); c != 0 {
			return c > 0
		}
		return dues[i].CustomerName < dues[j].CustomerName
	})
	return dues, nil
}

func urgency(days int) string {
	switch {
	case days > 60:
		return UrgencyUrgent
	case days > 30:
		return UrgencyFollowUp
	}
	return UrgencyNormal
}
