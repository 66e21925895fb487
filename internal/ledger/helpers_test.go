package ledger

import (
	"context"
	"regexp"
	"testing"
	"time"

	"go-dokan-pos/internal/database"
	"go-dokan-pos/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// newTestDB opens a private in-memory SQLite database for one test.
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

func newTestService(t *testing.T, opts ...Option) (*Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewService(db, opts...), db
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]any{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func seedProduct(t *testing.T, db *gorm.DB, name string, cost, price string, stock int) models.Product {
	t.Helper()
	p := models.Product{
		Name:         name,
		Category:     "Grocery",
		CostPrice:    dec(cost),
		SellingPrice: dec(price),
		CurrentStock: stock,
		ReorderPoint: 5,
		Unit:         "pcs",
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func stockOf(t *testing.T, db *gorm.DB, id uint) int {
	t.Helper()
	var p models.Product
	require.NoError(t, db.First(&p, id).Error)
	return p.CurrentStock
}

func count(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func line(p models.Product, qty int) CartItem {
	q := decimal.NewFromInt(int64(qty))
	return CartItem{
		ProductID:   p.ID,
		ProductName: p.Name,
		Quantity:    qty,
		UnitPrice:   p.SellingPrice,
		Subtotal:    p.SellingPrice.Mul(q),
	}
}

func recordOK(t *testing.T, s *Service, req SaleRequest) uint {
	t.Helper()
	id, err := s.RecordSale(context.Background(), req)
	require.NoError(t, err)
	return id
}
