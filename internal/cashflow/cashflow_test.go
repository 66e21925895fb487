package cashflow

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"go-dokan-pos/internal/apperr"
	"go-dokan-pos/internal/database"
	"go-dokan-pos/internal/ledger"
	"go-dokan-pos/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + unsafeChars.ReplaceAllString(t.Name(), "_") + "?mode=memory&cache=shared"
	db, err := database.Connect(database.DriverSQLite, dsn, database.Options{Attempts: 1})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func clock() time.Time { return fixedNow }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

// seedShop stocks two products and posts three sales through the ledger:
// Karim owes 150 from 2025-01-01 and 100 from 2025-03-01, Rahim paid in full.
func seedShop(t *testing.T, db *gorm.DB) {
	t.Helper()
	ctx := context.Background()
	l := ledger.NewService(db, ledger.WithClock(clock))

	tea := models.Product{Name: "Tea", CostPrice: dec("200"), SellingPrice: dec("250"), CurrentStock: 10, Unit: "pcs"}
	soap := models.Product{Name: "Soap", CostPrice: dec("30"), SellingPrice: dec("40"), CurrentStock: 0, Unit: "pcs"}
	require.NoError(t, db.Create(&tea).Error)
	require.NoError(t, db.Create(&soap).Error)

	item := func(qty int) []ledger.CartItem {
		return []ledger.CartItem{{ProductID: tea.ID, Quantity: qty, UnitPrice: dec("250"), Subtotal: dec("250").Mul(decimal.NewFromInt(int64(qty)))}}
	}
	for _, req := range []ledger.SaleRequest{
		{CustomerName: "Karim", CustomerPhone: "01711", Items: item(1), PaidAmount: dec("100"), SaleDate: "2025-01-01"},
		{CustomerName: "Karim", Items: item(1), PaidAmount: dec("150"), SaleDate: "2025-03-01"},
		{CustomerName: "Rahim", Items: item(2), PaidAmount: dec("500"), SaleDate: "2025-03-05"},
	} {
		_, err := l.RecordSale(ctx, req)
		require.NoError(t, err)
	}
}

func TestAddTransaction(t *testing.T) {
	s := NewService(newTestDB(t), WithClock(clock))
	ctx := context.Background()

	tx, err := s.AddTransaction(ctx, TransactionInput{Type: "in", Amount: dec("1000")})
	require.NoError(t, err)
	assert.Equal(t, models.CashIn, tx.Type)
	assert.Equal(t, "2025-03-10", tx.TransactionDate)
	assert.Equal(t, "No description", tx.Description)

	tests := []struct {
		name  string
		in    TransactionInput
		field string
	}{
		{"bad type", TransactionInput{Type: "LOAN", Amount: dec("1")}, "type"},
		{"zero amount", TransactionInput{Type: "OUT"}, "amount"},
		{"negative amount", TransactionInput{Type: "OUT", Amount: dec("-5")}, "amount"},
		{"bad date", TransactionInput{Type: "OUT", Amount: dec("5"), Date: "10/03/2025"}, "transaction_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.AddTransaction(ctx, tt.in)
			var ve *apperr.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestOverview(t *testing.T) {
	db := newTestDB(t)
	seedShop(t, db)
	s := NewService(db, WithClock(clock))
	ctx := context.Background()

	_, err := s.AddTransaction(ctx, TransactionInput{Type: "IN", Amount: dec("1000"), Category: "Investment"})
	require.NoError(t, err)
	_, err = s.AddTransaction(ctx, TransactionInput{Type: "OUT", Amount: dec("300"), Category: "Rent"})
	require.NoError(t, err)

	o, err := s.Overview(ctx)
	require.NoError(t, err)
	assertMoney(t, "750", o.SalesCollected)
	assertMoney(t, "1000", o.OtherIncome)
	assertMoney(t, "300", o.Expenses)
	assertMoney(t, "1450", o.CashBalance)
	assertMoney(t, "1200", o.InventoryValue)
	assertMoney(t, "250", o.TotalDues)
	assertMoney(t, "2900", o.TotalAssets)
	assert.EqualValues(t, 1, o.ProductsInStock)
}

func TestSummaryAndTransactions(t *testing.T) {
	s := NewService(newTestDB(t), WithClock(clock))
	ctx := context.Background()

	for _, in := range []TransactionInput{
		{Type: "IN", Amount: dec("500"), Date: "2025-03-09"},
		{Type: "OUT", Amount: dec("200"), Date: "2025-03-08"},
		{Type: "OUT", Amount: dec("999"), Date: "2024-12-01"},
	} {
		_, err := s.AddTransaction(ctx, in)
		require.NoError(t, err)
	}

	sum, err := s.Summary(ctx, 30)
	require.NoError(t, err)
	assertMoney(t, "500", sum.TotalIn)
	assertMoney(t, "200", sum.TotalOut)
	assertMoney(t, "300", sum.Net)

	all, err := s.Transactions(ctx, 30, "all")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "2025-03-09", all[0].TransactionDate)

	out, err := s.Transactions(ctx, 0, "OUT")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assertMoney(t, "200", out[0].Amount)

	_, err = s.Transactions(ctx, 30, "sideways")
	assert.Equal(t, "validation", apperr.Kind(err))
}

func TestDuesBreakdown(t *testing.T) {
	db := newTestDB(t)
	seedShop(t, db)
	s := NewService(db, WithClock(clock))

	dues, err := s.DuesBreakdown(context.Background())
	require.NoError(t, err)
	require.Len(t, dues, 1)

	d := dues[0]
	assert.Equal(t, "Karim", d.CustomerName)
	assert.Equal(t, "01711", d.CustomerPhone)
	assertMoney(t, "250", d.DueAmount)
	assert.Equal(t, 2, d.DueCount)
	assert.Equal(t, "2025-01-01", d.OldestDue)
	assert.Equal(t, 68, d.OldestDays)
	assert.Equal(t, UrgencyUrgent, d.Urgency)
}

func TestUrgency(t *testing.T) {
	assert.Equal(t, UrgencyNormal, urgency(30))
	assert.Equal(t, UrgencyFollowUp, urgency(31))
	assert.Equal(t, UrgencyFollowUp, urgency(60))
	assert.Equal(t, UrgencyUrgent, urgency(61))
}

type recordingAdvisor struct {
	prompt string
	err    error
}

func (r *recordingAdvisor) Advise(_ context.Context, prompt string) (string, error) {
	r.prompt = prompt
	if r.err != nil {
		return "", r.err
	}
	return "Collect Karim's dues.", nil
}

func TestAdvice(t *testing.T) {
	db := newTestDB(t)
	seedShop(t, db)
	adv := &recordingAdvisor{}
	s := NewService(db, WithClock(clock), WithAdvisor(adv))

	text, err := s.Advice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Collect Karim's dues.", text)
	assert.True(t, strings.Contains(adv.prompt, "Total dues: Tk 250"), adv.prompt)

	adv.err = errors.New("quota exceeded")
	_, err = s.Advice(context.Background())
	assert.ErrorContains(t, err, "quota")

	var n int64
	require.NoError(t, db.Model(&models.CashTransaction{}).Count(&n).Error)
	assert.Zero(t, n)
}
